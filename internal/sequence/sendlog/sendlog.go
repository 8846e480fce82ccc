// Package sendlog persists the append-only record of sequence email attempts.
package sendlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the outcome of one send attempt.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// ErrAlreadySent is returned by Append when a sent entry already exists for
// the same lead and template.
var ErrAlreadySent = errors.New("sendlog: template already sent to lead")

// Entry is one send attempt.
type Entry struct {
	ID                uuid.UUID `json:"id"`
	LeadID            uuid.UUID `json:"lead_id"`
	Template          string    `json:"template_name"`
	Status            Status    `json:"status"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	Error             *string   `json:"error,omitempty"`
	SentAt            time.Time `json:"sent_at"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts entry. At most one sent entry may exist per (lead, template);
// a second one is dropped and reported as ErrAlreadySent.
func (r *Repository) Append(ctx context.Context, entry Entry) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO email_send_log (lead_id, template_name, status, provider_message_id, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`, entry.LeadID, entry.Template, entry.Status, entry.ProviderMessageID, entry.Error, entry.SentAt)
	if err != nil {
		return fmt.Errorf("append send log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySent
	}
	return nil
}

// HasSent reports whether a sent entry exists for leadID and template.
func (r *Repository) HasSent(ctx context.Context, leadID uuid.UUID, template string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM email_send_log
			WHERE lead_id = $1 AND template_name = $2 AND status = 'sent'
		)
	`, leadID, template).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check send log: %w", err)
	}
	return exists, nil
}

// ListByLead returns every attempt for leadID, oldest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, template_name, status, provider_message_id, error_message, sent_at
		FROM email_send_log
		WHERE lead_id = $1
		ORDER BY sent_at ASC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list send log: %w", err)
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Template, &e.Status, &e.ProviderMessageID, &e.Error, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan send log: %w", err)
		}
		items = append(items, e)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}
