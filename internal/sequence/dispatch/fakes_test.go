package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequence/sendlog"

	"github.com/google/uuid"
)

type fakeLeads struct {
	mu      sync.Mutex
	leads   []domain.Lead
	listErr func(start, end time.Time) error
}

func (f *fakeLeads) add(name string, createdAt time.Time) domain.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := domain.Lead{
		ID:           uuid.New(),
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		BusinessType: domain.BusinessSalon,
		City:         "Guadalajara",
		CreatedAt:    createdAt,
	}
	f.leads = append(f.leads, lead)
	return lead
}

func (f *fakeLeads) ListCreatedBetween(_ context.Context, start, end time.Time) ([]domain.Lead, error) {
	if f.listErr != nil {
		if err := f.listErr(start, end); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range f.leads {
		if !l.CreatedAt.Before(start) && !l.CreatedAt.After(end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLeads) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Lead{}, errors.New("not found")
}

type fakeSendLog struct {
	mu      sync.Mutex
	entries []sendlog.Entry
	appends int
}

func (f *fakeSendLog) Append(_ context.Context, entry sendlog.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if entry.Status == sendlog.StatusSent {
		for _, e := range f.entries {
			if e.LeadID == entry.LeadID && e.Template == entry.Template && e.Status == sendlog.StatusSent {
				return sendlog.ErrAlreadySent
			}
		}
	}
	entry.ID = uuid.New()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeSendLog) HasSent(_ context.Context, leadID uuid.UUID, template string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.LeadID == leadID && e.Template == template && e.Status == sendlog.StatusSent {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSendLog) ListByLead(_ context.Context, leadID uuid.UUID) ([]sendlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sendlog.Entry, 0)
	for _, e := range f.entries {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSendLog) markSent(leadID uuid.UUID, template string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, sendlog.Entry{ID: uuid.New(), LeadID: leadID, Template: template, Status: sendlog.StatusSent})
}

func (f *fakeSendLog) count(leadID uuid.UUID, template string, status sendlog.Status) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.LeadID == leadID && e.Template == template && e.Status == status {
			n++
		}
	}
	return n
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []email.Message
	failTo map[string]error
	// onSend runs after each accepted message.
	onSend func()
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) (email.SendResult, error) {
	f.mu.Lock()
	if err, ok := f.failTo[msg.To]; ok {
		f.mu.Unlock()
		return email.SendResult{}, err
	}
	f.sent = append(f.sent, msg)
	n := len(f.sent)
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return email.SendResult{ID: fmt.Sprintf("msg-%d", n)}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
