package intake

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/repository"
)

// DuplicateRecentThreshold separates a recent duplicate from a stale one.
// Elapsed time is floored to whole days before comparing.
const DuplicateRecentThreshold = 7 * 24 * time.Hour

const (
	msgDuplicateRecent        = "Ya recibimos tu solicitud. Nuestro equipo te contactará muy pronto."
	suggestionDuplicateRecent = "Revisa tu correo, te enviamos información sobre los siguientes pasos."
	msgDuplicateStale         = "Ya tienes una solicitud registrada con este correo."
	suggestionDuplicateStale  = "Escríbenos por WhatsApp para retomar tu solicitud."
)

// EmailLookup finds an existing lead by normalized email. A nil summary with
// a nil error means no lead exists.
type EmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*repository.LeadSummary, error)
}

// Duplicate describes an existing lead that blocks a new submission.
type Duplicate struct {
	Existing   repository.LeadSummary
	DaysAgo    int
	Recent     bool
	Message    string
	Suggestion string
}

// DuplicateDetector applies the age-based duplicate policy.
type DuplicateDetector struct {
	lookup EmailLookup
	now    func() time.Time
}

// NewDuplicateDetector creates a detector reading through lookup.
func NewDuplicateDetector(lookup EmailLookup, now func() time.Time) *DuplicateDetector {
	if now == nil {
		now = time.Now
	}
	return &DuplicateDetector{lookup: lookup, now: now}
}

// Check returns nil when email is free. Lookup failures are returned as-is
// so the caller can fail closed.
func (d *DuplicateDetector) Check(ctx context.Context, email string) (*Duplicate, error) {
	existing, err := d.lookup.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	return classifyDuplicate(*existing, d.now()), nil
}

func classifyDuplicate(existing repository.LeadSummary, now time.Time) *Duplicate {
	days := int(now.Sub(existing.CreatedAt) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}

	dup := &Duplicate{Existing: existing, DaysAgo: days}
	if days < int(DuplicateRecentThreshold/(24*time.Hour)) {
		dup.Recent = true
		dup.Message = msgDuplicateRecent
		dup.Suggestion = suggestionDuplicateRecent
	} else {
		dup.Message = msgDuplicateStale
		dup.Suggestion = suggestionDuplicateStale
	}
	return dup
}
