// Package dbtest opens a migrated PostgreSQL pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"leadflow_backend/migrations"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnvURL names the variable holding the test database URL. The database is
// truncated on every Pool call, so it must be disposable.
const EnvURL = "TEST_DATABASE_URL"

type databaseConfig string

func (c databaseConfig) GetDatabaseURL() string     { return string(c) }
func (c databaseConfig) GetMigrationsEnabled() bool { return true }

// Pool connects to EnvURL, applies migrations and empties the lead tables.
// The test is skipped when EnvURL is unset.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set", EnvURL)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, databaseConfig(url))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool, migrations.FS, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE email_send_log, leads`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
