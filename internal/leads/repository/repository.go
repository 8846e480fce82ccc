package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// LeadSummary is the minimal view returned by duplicate lookups.
type LeadSummary struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// CreateLeadParams are the columns written at intake.
type CreateLeadParams struct {
	Name         string
	Email        string
	Company      *string
	Phone        string
	BusinessType domain.BusinessType
	City         string
	Message      *string
	Status       domain.Status
	Source       string
	UTMSource    string
	UTMMedium    *string
	UTMCampaign  *string
	LeadScore    int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, name, email, company, phone, business_type, city, message, status, source,
	utm_source, utm_medium, utm_campaign, lead_score, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Company, &lead.Phone, &lead.BusinessType, &lead.City, &lead.Message,
		&lead.Status, &lead.Source, &lead.UTMSource, &lead.UTMMedium, &lead.UTMCampaign, &lead.LeadScore,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

// FindByEmail returns the most recent lead with the given normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*LeadSummary, error) {
	var summary LeadSummary
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at
		FROM leads
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, email).Scan(&summary.ID, &summary.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find lead by email: %w", err)
	}
	return &summary, nil
}

// Create inserts a lead and returns the stored row.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			name, email, company, phone, business_type, city, message, status, source,
			utm_source, utm_medium, utm_campaign, lead_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+leadColumns,
		params.Name, params.Email, params.Company, params.Phone, params.BusinessType, params.City, params.Message,
		params.Status, params.Source, params.UTMSource, params.UTMMedium, params.UTMCampaign, params.LeadScore,
	))
	if err != nil {
		return domain.Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	return lead, nil
}

// GetByID loads a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// ListCreatedBetween returns leads with start <= created_at <= end, oldest first.
func (r *Repository) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list leads in window: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, lead)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}
