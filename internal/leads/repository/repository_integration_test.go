//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/db/dbtest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func createAt(t *testing.T, pool *pgxpool.Pool, repo *Repository, email string, createdAt time.Time) domain.Lead {
	t.Helper()
	ctx := context.Background()
	lead, err := repo.Create(ctx, CreateLeadParams{
		Name:         "Carmen",
		Email:        email,
		Phone:        "+523312345678",
		BusinessType: domain.BusinessSalon,
		City:         "Guadalajara",
		Status:       domain.StatusNew,
		Source:       "website",
		UTMSource:    "direct",
		LeadScore:    50,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE leads SET created_at = $2 WHERE id = $1`, lead.ID, createdAt); err != nil {
		t.Fatalf("backdate lead: %v", err)
	}
	return lead
}

func TestListCreatedBetweenIncludesBothBounds(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := New(pool)
	ctx := context.Background()

	start := time.Date(2026, 3, 9, 11, 30, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	atStart := createAt(t, pool, repo, "start@example.com", start)
	atEnd := createAt(t, pool, repo, "end@example.com", end)
	createAt(t, pool, repo, "before@example.com", start.Add(-time.Microsecond))
	createAt(t, pool, repo, "after@example.com", end.Add(time.Microsecond))

	got, err := repo.ListCreatedBetween(ctx, start, end)
	if err != nil {
		t.Fatalf("ListCreatedBetween: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(got))
	}
	if got[0].ID != atStart.ID || got[1].ID != atEnd.ID {
		t.Fatalf("expected bound leads oldest first, got %s then %s", got[0].Email, got[1].Email)
	}
}

func TestFindByEmailReturnsMostRecent(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := New(pool)
	ctx := context.Background()

	if summary, err := repo.FindByEmail(ctx, "carmen@example.com"); err != nil || summary != nil {
		t.Fatalf("expected no match, got %+v err=%v", summary, err)
	}

	now := time.Now().UTC()
	createAt(t, pool, repo, "carmen@example.com", now.Add(-10*24*time.Hour))
	recent := createAt(t, pool, repo, "carmen@example.com", now.Add(-time.Hour))

	summary, err := repo.FindByEmail(ctx, "carmen@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if summary == nil || summary.ID != recent.ID {
		t.Fatalf("expected most recent lead %s, got %+v", recent.ID, summary)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := New(dbtest.Pool(t))
	if _, err := repo.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
