package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoSender delivers through the Brevo transactional API.
type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

// NewBrevoSender creates a Brevo transport.
func NewBrevoSender(apiKey, fromName, fromEmail string) *BrevoSender {
	return &BrevoSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmailRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	Tags        []string       `json:"tags,omitempty"`
}

type brevoEmailResponse struct {
	MessageID string `json:"messageId"`
}

// Send implements Sender.
func (b *BrevoSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	body, err := json.Marshal(brevoEmailRequest{
		Sender:      brevoContact{Name: b.fromName, Email: b.fromEmail},
		To:          []brevoContact{{Name: msg.ToName, Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		Tags:        msg.Tags,
	})
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed brevoEmailResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return SendResult{}, fmt.Errorf("brevo send: decode response: %w", err)
	}
	return SendResult{ID: parsed.MessageID}, nil
}
