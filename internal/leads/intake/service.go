// Package intake runs the public lead admission pipeline: rate check,
// validation, duplicate check, attribution, scoring and persistence, with
// analytics as a best-effort side effect.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"leadflow_backend/internal/analytics"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/ratelimit"
	"leadflow_backend/platform/sanitize"
	"leadflow_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
)

const (
	msgAccepted          = "¡Gracias! Recibimos tu solicitud."
	msgNextSteps         = "Te enviamos un correo de bienvenida. Un asesor te contactará por WhatsApp en menos de 24 horas."
	msgRateLimited       = "Demasiadas solicitudes. Intenta de nuevo más tarde."
	msgInvalidInput      = "Revisa los datos del formulario."
	msgInvalidBody       = "El cuerpo de la solicitud no es JSON válido."
	msgDuplicateCheck    = "No pudimos verificar tu solicitud. Intenta de nuevo."
	msgPersistFailed     = "No pudimos guardar tu solicitud. Intenta de nuevo."
	msgUnexpectedFailure = "Ocurrió un error inesperado."
)

// LeadStore is the persistence the pipeline needs.
type LeadStore interface {
	EmailLookup
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
}

// Submission is one raw form post.
type Submission struct {
	ClientKey string
	Body      []byte
	Query     url.Values
}

// Accepted is the successful branch of Result.
type Accepted struct {
	Lead      domain.Lead
	Score     scoring.Breakdown
	NextSteps string
	Message   string
}

// BestEffort records the outcome of a side effect that never alters Result.
type BestEffort struct {
	Attempted bool
	Err       error
}

// Result is exactly one of Accepted or Rejected.
type Result struct {
	Accepted *Accepted
	Rejected *apperr.Error
	// RetryAfterSeconds is set when Rejected is a rate limit.
	RetryAfterSeconds int
	Analytics         BestEffort
}

// OK reports whether the submission was accepted.
func (r Result) OK() bool { return r.Accepted != nil }

func reject(err *apperr.Error) Result { return Result{Rejected: err} }

// Deps are the collaborators of Service.
type Deps struct {
	Limiter     ratelimit.RateLimiter
	Validator   *validator.Validator
	Store       LeadStore
	Analytics   analytics.Sink
	EventBus    events.Bus
	Log         *logger.Logger
	PhoneRegion string
	Now         func() time.Time
}

// Service is the intake pipeline.
type Service struct {
	limiter     ratelimit.RateLimiter
	val         *validator.Validator
	store       LeadStore
	duplicates  *DuplicateDetector
	analytics   analytics.Sink
	eventBus    events.Bus
	log         *logger.Logger
	phoneRegion string
	now         func() time.Time
}

// New creates the pipeline and registers the "phone" validation tag on the validator.
func New(deps Deps) (*Service, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Analytics == nil {
		deps.Analytics = analytics.NoopSink{}
	}
	if deps.PhoneRegion == "" {
		deps.PhoneRegion = phone.DefaultRegion
	}

	region := deps.PhoneRegion
	if err := deps.Validator.RegisterValidation("phone", func(fl govalidator.FieldLevel) bool {
		return phone.Plausible(fl.Field().String(), region)
	}); err != nil {
		return nil, fmt.Errorf("register phone validation: %w", err)
	}

	return &Service{
		limiter:     deps.Limiter,
		val:         deps.Validator,
		store:       deps.Store,
		duplicates:  NewDuplicateDetector(deps.Store, deps.Now),
		analytics:   deps.Analytics,
		eventBus:    deps.EventBus,
		log:         deps.Log,
		phoneRegion: deps.PhoneRegion,
		now:         deps.Now,
	}, nil
}

// Submit runs the pipeline. It never panics; unexpected failures become
// INTERNAL_ERROR rejections. No lead is written unless every earlier step
// admitted the submission.
func (s *Service) Submit(ctx context.Context, sub Submission) (result Result) {
	log := s.log.WithContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("intake pipeline panic", "panic", r)
			result = reject(apperr.Internal(msgUnexpectedFailure))
		}
	}()

	decision, err := s.limiter.Admit(ctx, sub.ClientKey)
	if err != nil {
		// Limiter backend outage admits the request.
		log.Warn("rate limiter unavailable; admitting request", "client_key", sub.ClientKey, "error", err)
	} else if !decision.Allowed {
		log.RateLimitExceeded(sub.ClientKey, "intake", decision.RetryAfter)
		res := reject(apperr.RateLimited(msgRateLimited))
		res.RetryAfterSeconds = decision.RetryAfterSeconds()
		return res
	}

	req, rejection := s.parse(sub.Body)
	if rejection != nil {
		return reject(rejection)
	}

	dup, err := s.duplicates.Check(ctx, req.Email)
	if err != nil {
		log.DatabaseError("find lead by email", err)
		return reject(apperr.Database(msgDuplicateCheck, err))
	}
	if dup != nil {
		log.Info("duplicate lead rejected", "existing_lead_id", dup.Existing.ID, "days_ago", dup.DaysAgo)
		return reject(apperr.Conflict(apperr.CodeDuplicateLead, dup.Message).WithData(transport.DuplicateLeadData{
			ExistingLeadCreated: dup.Existing.CreatedAt.UTC().Format(time.RFC3339),
			Suggestion:          dup.Suggestion,
		}))
	}

	utm := resolveUTM(req, sub.Query)
	businessType := domain.BusinessType(req.BusinessType)
	score := scoring.Explain(businessType, true)

	lead, err := s.store.Create(ctx, repository.CreateLeadParams{
		Name:         req.Name,
		Email:        req.Email,
		Company:      optional(req.Company),
		Phone:        phone.NormalizeE164(req.WhatsApp, s.phoneRegion),
		BusinessType: businessType,
		City:         req.City,
		Message:      optional(req.Message),
		Status:       domain.StatusNew,
		Source:       domain.SourceWebsite,
		UTMSource:    utm.Source,
		UTMMedium:    optional(utm.Medium),
		UTMCampaign:  optional(utm.Campaign),
		LeadScore:    score.Total,
	})
	if err != nil {
		log.DatabaseError("insert lead", err)
		return reject(apperr.Database(msgPersistFailed, err))
	}

	log.Info("lead created", "lead_id", lead.ID, "business_type", lead.BusinessType,
		"score_base", score.Base, "score_bonus", score.Bonus, "lead_score", lead.LeadScore, "utm_source", lead.UTMSource)

	result = Result{
		Accepted: &Accepted{
			Lead:      lead,
			Score:     score,
			NextSteps: msgNextSteps,
			Message:   msgAccepted,
		},
		Analytics: s.captureSubmitted(ctx, log, lead),
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent:    events.NewBaseEventAt(s.now()),
			LeadID:       lead.ID,
			Name:         lead.Name,
			Email:        lead.Email,
			BusinessType: string(lead.BusinessType),
			LeadScore:    lead.LeadScore,
			CreatedAt:    lead.CreatedAt,
		})
	}

	return result
}

func (s *Service) parse(body []byte) (transport.SubmitLeadRequest, *apperr.Error) {
	var req transport.SubmitLeadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, apperr.Validation(msgInvalidInput).WithDetails(map[string]string{"body": msgInvalidBody})
	}

	normalize(&req)

	if err := s.val.Struct(req); err != nil {
		details := validator.FieldErrors(err)
		if details == nil {
			details = map[string]string{"body": msgInvalidBody}
		}
		return req, apperr.Validation(msgInvalidInput).WithDetails(details)
	}
	return req, nil
}

func normalize(req *transport.SubmitLeadRequest) {
	req.Name = sanitize.Text(req.Name)
	req.Email = sanitize.Email(req.Email)
	req.WhatsApp = strings.TrimSpace(req.WhatsApp)
	req.Company = sanitize.Text(req.Company)
	req.BusinessType = strings.ToLower(strings.TrimSpace(req.BusinessType))
	req.City = sanitize.Text(req.City)
	req.Message = sanitize.Multiline(req.Message)
	req.UTMSource = sanitize.Text(req.UTMSource)
	req.UTMMedium = sanitize.Text(req.UTMMedium)
	req.UTMCampaign = sanitize.Text(req.UTMCampaign)
}

// resolveUTM prefers body attribution over the query string and defaults
// the source to "direct".
func resolveUTM(req transport.SubmitLeadRequest, query url.Values) domain.UTM {
	body := domain.UTM{Source: req.UTMSource, Medium: req.UTMMedium, Campaign: req.UTMCampaign}
	fromQuery := domain.UTM{
		Source:   sanitize.Text(query.Get("utm_source")),
		Medium:   sanitize.Text(query.Get("utm_medium")),
		Campaign: sanitize.Text(query.Get("utm_campaign")),
	}

	utm := body.Merge(fromQuery)
	if utm.Source == "" {
		utm.Source = domain.DefaultUTMSource
	}
	return utm
}

func (s *Service) captureSubmitted(ctx context.Context, log *logger.Logger, lead domain.Lead) BestEffort {
	props := map[string]interface{}{
		"lead_id":       lead.ID.String(),
		"business_type": string(lead.BusinessType),
		"city":          lead.City,
		"lead_score":    lead.LeadScore,
		"utm_source":    lead.UTMSource,
	}
	if lead.UTMMedium != nil {
		props["utm_medium"] = *lead.UTMMedium
	}
	if lead.UTMCampaign != nil {
		props["utm_campaign"] = *lead.UTMCampaign
	}

	outcome := BestEffort{Attempted: true}
	outcome.Err = s.capture(ctx, analytics.Event{
		Name:       analytics.EventLeadSubmitted,
		DistinctID: lead.ID.String(),
		Properties: props,
		Timestamp:  s.now(),
	})
	if outcome.Err != nil {
		log.BestEffortFailed(analytics.EventLeadSubmitted, outcome.Err)
	}
	return outcome
}

// capture isolates sink panics from the primary result.
func (s *Service) capture(ctx context.Context, event analytics.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analytics sink panic: %v", r)
		}
	}()
	return s.analytics.Capture(ctx, event)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
