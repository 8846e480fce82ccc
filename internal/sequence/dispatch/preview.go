package dispatch

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/sequence/stages"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Candidate is one lead inside a stage window and what a run would do with it.
type Candidate struct {
	LeadID      uuid.UUID `json:"lead_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	WelcomeSent bool      `json:"welcome_sent"`
	AlreadySent bool      `json:"already_sent"`
	WouldSend   bool      `json:"would_send"`
}

// StagePreview lists the candidates of one stage.
type StagePreview struct {
	Template   stages.Template `json:"template"`
	Window     stages.Window   `json:"window"`
	Candidates []Candidate     `json:"candidates"`
}

// PreviewReport is the dry-run view of a dispatch run.
type PreviewReport struct {
	ReferenceTime time.Time      `json:"reference_time"`
	Stages        []StagePreview `json:"stages"`
}

// Preview computes what Run would do at now without sending or writing.
// Stages are evaluated concurrently; the first failing query aborts the preview.
func (s *Service) Preview(ctx context.Context, now time.Time) (PreviewReport, error) {
	type plan struct {
		stage          stages.Stage
		window         stages.Window
		requireWelcome bool
	}

	plans := []plan{{stage: stages.Welcome, window: welcomeRetryWindow(now)}}
	for _, stage := range stages.Followups() {
		plans = append(plans, plan{stage: stage, window: stages.WindowFor(stage.Offset, now), requireWelcome: true})
	}

	previews := make([]StagePreview, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range plans {
		g.Go(func() error {
			preview, err := s.previewStage(gctx, p.stage, p.window, p.requireWelcome)
			if err != nil {
				return fmt.Errorf("preview %s: %w", p.stage.Template, err)
			}
			previews[i] = preview
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PreviewReport{}, err
	}

	return PreviewReport{ReferenceTime: now, Stages: previews}, nil
}

func (s *Service) previewStage(ctx context.Context, stage stages.Stage, window stages.Window, requireWelcome bool) (StagePreview, error) {
	leads, err := s.leads.ListCreatedBetween(ctx, window.Start, window.End)
	if err != nil {
		return StagePreview{}, err
	}

	preview := StagePreview{Template: stage.Template, Window: window, Candidates: make([]Candidate, 0, len(leads))}
	for _, lead := range leads {
		welcomed, err := s.sendLog.HasSent(ctx, lead.ID, string(stages.TemplateWelcome))
		if err != nil {
			return StagePreview{}, err
		}
		already := welcomed
		if stage.Template != stages.TemplateWelcome {
			if already, err = s.sendLog.HasSent(ctx, lead.ID, string(stage.Template)); err != nil {
				return StagePreview{}, err
			}
		}

		preview.Candidates = append(preview.Candidates, Candidate{
			LeadID:      lead.ID,
			Email:       lead.Email,
			Name:        lead.Name,
			CreatedAt:   lead.CreatedAt,
			WelcomeSent: welcomed,
			AlreadySent: already,
			WouldSend:   (welcomed || !requireWelcome) && !already,
		})
	}
	return preview, nil
}
