package db

import (
	"context"
	"fmt"
	"io/fs"

	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending goose migrations found at the root of fsys.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, log *logger.Logger) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("init migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, result := range results {
		log.Info("migration applied", "version", result.Source.Version, "duration", result.Duration)
	}
	return nil
}
