// Package dispatch runs the follow-up sequence: it finds leads that became
// due for each stage, enforces the welcome prerequisite and per-stage
// idempotency through the send log, sends, and records every attempt.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequence/sendlog"
	"leadflow_backend/internal/sequence/stages"
	"leadflow_backend/platform/distlock"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// LockKey serializes dispatch runs across processes.
const LockKey = "sequence:dispatch"

const (
	// DefaultSendInterval paces consecutive sends within a run.
	DefaultSendInterval = 100 * time.Millisecond
	// WelcomeRetryLookback bounds how old a lead can be for its welcome to be retried.
	WelcomeRetryLookback = 24 * time.Hour
	// WelcomeRetryGrace leaves fresh leads to the intake-triggered welcome send.
	WelcomeRetryGrace = 5 * time.Minute
)

// ErrRunInProgress is returned when another run holds the dispatch lock.
var ErrRunInProgress = errors.New("dispatch: run already in progress")

// LeadReader is the lead query surface the dispatcher needs.
type LeadReader interface {
	ListCreatedBetween(ctx context.Context, start, end time.Time) ([]domain.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// SendLog records and queries send attempts.
type SendLog interface {
	Append(ctx context.Context, entry sendlog.Entry) error
	HasSent(ctx context.Context, leadID uuid.UUID, template string) (bool, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]sendlog.Entry, error)
}

// Renderer turns a template name into an email for a recipient.
type Renderer interface {
	Render(name string, to email.Recipient) (email.Rendered, error)
}

// Report summarizes one run. Counts are keyed by template.
type Report struct {
	RunID         string                  `json:"run_id"`
	ReferenceTime time.Time               `json:"reference_time"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
	Sent          map[stages.Template]int `json:"sent"`
	Failed        map[stages.Template]int `json:"failed"`
	Skipped       map[stages.Template]int `json:"skipped"`
	Errors        []string                `json:"errors"`
	Truncated     bool                    `json:"truncated"`
}

func newReport(runID string, now, startedAt time.Time) Report {
	r := Report{
		RunID:         runID,
		ReferenceTime: now,
		StartedAt:     startedAt,
		Sent:          make(map[stages.Template]int),
		Failed:        make(map[stages.Template]int),
		Skipped:       make(map[stages.Template]int),
		Errors:        make([]string, 0),
	}
	for _, st := range stages.All() {
		r.Sent[st.Template] = 0
		r.Failed[st.Template] = 0
		r.Skipped[st.Template] = 0
	}
	return r
}

func (r *Report) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Deps are the collaborators of Service.
type Deps struct {
	Leads        LeadReader
	SendLog      SendLog
	Sender       email.Sender
	Renderer     Renderer
	Locks        distlock.Factory
	EventBus     events.Bus
	Log          *logger.Logger
	// SendInterval is the minimum gap between sends. Zero selects
	// DefaultSendInterval; a negative value disables pacing.
	SendInterval time.Duration
	// LockRefresh is how often an expiring dispatch lock is extended while
	// a run holds it. Zero selects a third of the lock TTL.
	LockRefresh  time.Duration
	Now          func() time.Time
}

// Service executes dispatch runs, previews and welcome sends.
type Service struct {
	leads        LeadReader
	sendLog      SendLog
	sender       email.Sender
	renderer     Renderer
	locks        distlock.Factory
	eventBus     events.Bus
	log          *logger.Logger
	sendInterval time.Duration
	lockRefresh  time.Duration
	now          func() time.Time
}

// New creates a Service. A nil Locks factory disables cross-process locking.
func New(deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SendInterval == 0 {
		deps.SendInterval = DefaultSendInterval
	}
	return &Service{
		leads:        deps.Leads,
		sendLog:      deps.SendLog,
		sender:       deps.Sender,
		renderer:     deps.Renderer,
		locks:        deps.Locks,
		eventBus:     deps.EventBus,
		log:          deps.Log,
		sendInterval: deps.SendInterval,
		lockRefresh:  deps.LockRefresh,
		now:          deps.Now,
	}
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) newPacer() *rate.Limiter {
	if s.sendInterval < 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(s.sendInterval), 1)
}

// Run executes one dispatch pass with now as the reference time. It retries
// missing welcomes first, then processes follow-up stages in ascending
// order. Leads welcomed during the pass are held back from follow-ups until
// the next one. When ctx ends mid-run, or a held lock lapses, the partial
// report is returned with Truncated set and a nil error.
func (s *Service) Run(ctx context.Context, now time.Time) (Report, error) {
	ctx, release, err := s.hold(ctx)
	if err != nil {
		return Report{}, err
	}
	defer release()

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)

	p := s.newPass(ctx, runID, now)
	p.log.Info("dispatch run started", "reference_time", now)

	if !p.window(ctx, stages.Welcome, welcomeRetryWindow(now), false) {
		for _, stage := range stages.Followups() {
			if p.window(ctx, stage, stages.WindowFor(stage.Offset, now), true) {
				break
			}
		}
	}
	if cause := context.Cause(ctx); errors.Is(cause, errLockLost) {
		p.report.errorf("%v", cause)
	}

	report := p.finish()
	s.publishCompleted(ctx, report)
	return report, nil
}

// RetryWelcome re-sends the welcome email to leads created in the last
// WelcomeRetryLookback that have no sent welcome. Fresh leads inside
// WelcomeRetryGrace are left to the intake-triggered send. It shares the
// dispatch lock with Run.
func (s *Service) RetryWelcome(ctx context.Context, now time.Time) (Report, error) {
	ctx, release, err := s.hold(ctx)
	if err != nil {
		return Report{}, err
	}
	defer release()

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)

	p := s.newPass(ctx, runID, now)
	p.window(ctx, stages.Welcome, welcomeRetryWindow(now), false)
	if cause := context.Cause(ctx); errors.Is(cause, errLockLost) {
		p.report.errorf("%v", cause)
	}
	return p.finish(), nil
}

var errLockLost = errors.New("dispatch lock lost")

// hold takes the dispatch lock and keeps it alive until release is called.
// The returned context is cancelled with errLockLost if the lock lapses.
func (s *Service) hold(ctx context.Context) (context.Context, func(), error) {
	ctx, cancel := context.WithCancelCause(ctx)
	if s.locks == nil {
		return ctx, func() { cancel(nil) }, nil
	}

	lock := s.locks(LockKey)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		cancel(nil)
		return nil, nil, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !ok {
		cancel(nil)
		return nil, nil, ErrRunInProgress
	}

	stop := s.keepAlive(ctx, cancel, lock)
	return ctx, func() {
		stop()
		cancel(nil)
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release dispatch lock", "error", err)
		}
	}, nil
}

// keepAlive refreshes an expiring lock until stop is called. If a refresh
// reports the lock gone, the run is cancelled with errLockLost.
func (s *Service) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, lock distlock.Lock) (stop func()) {
	ext, ok := lock.(distlock.Extender)
	if !ok {
		return func() {}
	}
	interval := s.lockRefresh
	if interval <= 0 {
		interval = ext.TTL() / 3
	}
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	quit := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := ext.Extend(ctx)
			switch {
			case err == nil:
			case errors.Is(err, distlock.ErrNotHeld):
				s.log.Error("dispatch lock lapsed mid-run", "ttl", ext.TTL())
				cancel(errLockLost)
				return
			case ctx.Err() != nil:
				return
			default:
				// Transient; the lock stays valid until its TTL runs out.
				s.log.Warn("extend dispatch lock", "error", err)
			}
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}

func welcomeRetryWindow(now time.Time) stages.Window {
	return stages.Window{Start: now.Add(-WelcomeRetryLookback), End: now.Add(-WelcomeRetryGrace)}
}

// pass carries the state of one run across its stages.
type pass struct {
	svc    *Service
	log    *logger.Logger
	pacer  *rate.Limiter
	report Report
	// welcomed holds leads that received their welcome in this pass.
	welcomed map[uuid.UUID]bool
}

func (s *Service) newPass(ctx context.Context, runID string, now time.Time) *pass {
	return &pass{
		svc:      s,
		log:      s.log.WithContext(ctx),
		pacer:    s.newPacer(),
		report:   newReport(runID, now, s.now()),
		welcomed: make(map[uuid.UUID]bool),
	}
}

func (p *pass) finish() Report {
	p.report.FinishedAt = p.svc.now()
	r := &p.report
	p.log.Info("dispatch run finished",
		"sent", sum(r.Sent), "failed", sum(r.Failed), "skipped", sum(r.Skipped),
		"errors", len(r.Errors), "truncated", r.Truncated)
	return p.report
}

// window processes the candidates created inside w and reports whether the
// run was truncated.
func (p *pass) window(ctx context.Context, stage stages.Stage, w stages.Window, requireWelcome bool) bool {
	s, report := p.svc, &p.report
	if ctx.Err() != nil {
		report.Truncated = true
		return true
	}

	template := stage.Template
	candidates, err := s.leads.ListCreatedBetween(ctx, w.Start, w.End)
	if err != nil {
		if ctx.Err() != nil {
			report.Truncated = true
			return true
		}
		p.log.DatabaseError("list dispatch candidates", err)
		report.errorf("%s: list candidates: %v", template, err)
		return false
	}

	sentBefore, failedBefore, skippedBefore := report.Sent[template], report.Failed[template], report.Skipped[template]
	defer func() {
		p.log.DispatchStage(string(template), len(candidates),
			report.Sent[template]-sentBefore, report.Failed[template]-failedBefore, report.Skipped[template]-skippedBefore)
	}()

	for _, lead := range candidates {
		if ctx.Err() != nil {
			report.Truncated = true
			return true
		}

		if requireWelcome && p.welcomed[lead.ID] {
			report.Skipped[template]++
			continue
		}

		eligible, err := s.eligible(ctx, lead.ID, template, requireWelcome)
		if err != nil {
			report.errorf("%s: lead %s: check send log: %v", template, lead.ID, err)
			continue
		}
		if !eligible {
			report.Skipped[template]++
			continue
		}

		if err := p.pacer.Wait(ctx); err != nil {
			report.Truncated = true
			return true
		}

		switch out := s.deliver(ctx, lead, template); out.status {
		case sendlog.StatusSent:
			report.Sent[template]++
			if template == stages.TemplateWelcome {
				p.welcomed[lead.ID] = true
			}
			if out.logErr != nil {
				report.errorf("%s: lead %s: record send: %v", template, lead.ID, out.logErr)
			}
		case sendlog.StatusFailed:
			report.Failed[template]++
			report.errorf("%s: lead %s: send: %v", template, lead.ID, out.err)
		default:
			report.Skipped[template]++
		}
	}
	return false
}

// eligible applies the welcome prerequisite (when requireWelcome) and the
// per-template idempotency check.
func (s *Service) eligible(ctx context.Context, leadID uuid.UUID, template stages.Template, requireWelcome bool) (bool, error) {
	if requireWelcome {
		welcomed, err := s.sendLog.HasSent(ctx, leadID, string(stages.TemplateWelcome))
		if err != nil {
			return false, err
		}
		if !welcomed {
			return false, nil
		}
	}

	already, err := s.sendLog.HasSent(ctx, leadID, string(template))
	if err != nil {
		return false, err
	}
	return !already, nil
}

type outcome struct {
	status sendlog.Status
	id     string
	err    error
	logErr error
}

// deliver renders, sends and records one email. An empty status means the
// send log already held a sent entry, so the attempt counts as a skip.
func (s *Service) deliver(ctx context.Context, lead domain.Lead, template stages.Template) outcome {
	log := s.log.WithContext(ctx)

	rendered, err := s.renderer.Render(string(template), email.Recipient{
		Name:         lead.Name,
		Email:        lead.Email,
		BusinessType: string(lead.BusinessType),
		City:         lead.City,
	})
	if err == nil {
		var res email.SendResult
		res, err = s.sender.Send(ctx, email.Message{
			To:      lead.Email,
			ToName:  lead.Name,
			Subject: rendered.Subject,
			HTML:    rendered.HTML,
			Tags:    []string{string(template)},
		})
		if err == nil {
			return s.record(ctx, log, lead, template, res.ID)
		}
	}

	log.Warn("sequence email failed", "lead_id", lead.ID, "template", template, "error", err)
	msg := err.Error()
	entry := sendlog.Entry{
		LeadID:   lead.ID,
		Template: string(template),
		Status:   sendlog.StatusFailed,
		Error:    &msg,
		SentAt:   s.now(),
	}
	out := outcome{status: sendlog.StatusFailed, err: err}
	if appendErr := s.sendLog.Append(ctx, entry); appendErr != nil {
		log.DatabaseError("append failed send", appendErr)
		out.logErr = appendErr
	}
	return out
}

func (s *Service) record(ctx context.Context, log *logger.Logger, lead domain.Lead, template stages.Template, providerID string) outcome {
	entry := sendlog.Entry{
		LeadID:   lead.ID,
		Template: string(template),
		Status:   sendlog.StatusSent,
		SentAt:   s.now(),
	}
	if providerID != "" {
		entry.ProviderMessageID = &providerID
	}

	out := outcome{status: sendlog.StatusSent, id: providerID}
	if err := s.sendLog.Append(ctx, entry); err != nil {
		if errors.Is(err, sendlog.ErrAlreadySent) {
			log.Warn("concurrent send detected", "lead_id", lead.ID, "template", template)
			return outcome{}
		}
		log.DatabaseError("append sent entry", err)
		out.logErr = err
	}

	log.Info("sequence email sent", "lead_id", lead.ID, "template", template, "provider_message_id", providerID)
	return out
}

func (s *Service) publishCompleted(ctx context.Context, report Report) {
	if s.eventBus == nil {
		return
	}
	sent := make(map[string]int, len(report.Sent))
	for k, v := range report.Sent {
		sent[string(k)] = v
	}
	failed := make(map[string]int, len(report.Failed))
	for k, v := range report.Failed {
		failed[string(k)] = v
	}
	s.eventBus.Publish(ctx, events.DispatchCompleted{
		BaseEvent: events.NewBaseEventAt(report.FinishedAt),
		RunID:     report.RunID,
		Sent:      sent,
		Failed:    failed,
		Errors:    len(report.Errors),
		Truncated: report.Truncated,
	})
}

func sum(counts map[stages.Template]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
