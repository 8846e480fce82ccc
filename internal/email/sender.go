// Package email delivers rendered sequence emails through Brevo, SMTP, or a
// no-op transport.
package email

import (
	"context"
	"fmt"

	"leadflow_backend/platform/config"

	"github.com/google/uuid"
)

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Tags    []string
}

// SendResult carries the provider's message id.
type SendResult struct {
	ID string
}

// Sender is the email transport.
type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// NoopSender accepts every message without delivering it.
type NoopSender struct{}

// Send implements Sender.
func (NoopSender) Send(context.Context, Message) (SendResult, error) {
	return SendResult{ID: "noop-" + uuid.NewString()}, nil
}

// NewSender picks the transport from configuration.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "brevo", "":
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromName(), cfg.GetEmailFromAddress()), nil
	case "smtp":
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.GetEmailProvider())
	}
}
