package dispatch

import (
	"context"
	"fmt"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequence/sendlog"
	"leadflow_backend/internal/sequence/stages"
)

// SendWelcome sends the welcome email unless a sent entry already exists.
// Failures are recorded in the send log and returned.
func (s *Service) SendWelcome(ctx context.Context, lead domain.Lead) error {
	already, err := s.sendLog.HasSent(ctx, lead.ID, string(stages.TemplateWelcome))
	if err != nil {
		return fmt.Errorf("check welcome: %w", err)
	}
	if already {
		return nil
	}

	out := s.deliver(ctx, lead, stages.TemplateWelcome)
	if out.status == sendlog.StatusFailed {
		return fmt.Errorf("send welcome: %w", out.err)
	}
	if out.logErr != nil {
		return fmt.Errorf("record welcome: %w", out.logErr)
	}
	return nil
}

// HandleLeadCreated is the events.Handler for LeadCreated. It reloads the
// lead so the email uses the stored row.
func (s *Service) HandleLeadCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.LeadCreated)
	if !ok {
		return nil
	}

	lead, err := s.leads.GetByID(ctx, created.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %s: %w", created.LeadID, err)
	}

	if err := s.SendWelcome(ctx, lead); err != nil {
		s.log.WithContext(ctx).Warn("welcome email not delivered", "lead_id", lead.ID, "error", err)
		return err
	}
	return nil
}
