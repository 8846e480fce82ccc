package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/analytics"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/router"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/sequence"
	"leadflow_backend/migrations"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/distlock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/ratelimit"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.GetMigrationsEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS, log)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	redisClient, closeRedis := initRedis(ctx, cfg, log)
	defer closeRedis()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	limiter, err := initRateLimiter(ctx, cfg, redisClient, log)
	if err != nil {
		log.Error("failed to initialize rate limiter", "error", err)
		panic("failed to initialize rate limiter: " + err.Error())
	}

	sink, closeSink := analytics.NewFromConfig(cfg, log)
	defer closeSink()
	analytics.SubscribeDispatchCompleted(eventBus, sink, log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule, err := leads.NewModule(pool, eventBus, limiter, sink, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	locks := distlock.NewFactory(redisClient, pool, cfg.GetDispatchLockTTL())
	sequenceModule, err := sequence.NewModule(pool, leadsModule.Repository(), eventBus, sender, locks, cfg, log)
	if err != nil {
		log.Error("failed to initialize sequence module", "error", err)
		panic("failed to initialize sequence module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			sequenceModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		// Let in-flight welcome sends finish before the pool closes.
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis returns a nil client when REDIS_URL is unset. The client is
// typed as the interface so a missing Redis stays a nil interface.
func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (redis.UniversalClient, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; dispatch lock falls back to postgres advisory locks")
		return nil, func() {}
	}

	var client *redis.Client
	if err := withRetry(ctx, log, "redis connection", 3, time.Second, func() error {
		c, err := db.NewRedis(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}

	return client, func() {
		_ = client.Close()
	}
}

func initRateLimiter(ctx context.Context, cfg config.RateLimitConfig, client redis.UniversalClient, log *logger.Logger) (ratelimit.RateLimiter, error) {
	settings := ratelimit.Settings{Max: cfg.GetRateLimitMax(), Window: cfg.GetRateLimitWindow()}

	switch cfg.GetRateLimitBackend() {
	case "redis":
		if client == nil {
			return nil, errors.New("redis rate limit backend requires REDIS_URL")
		}
		log.Info("intake rate limiter using redis", "max", settings.Max, "window", settings.Window)
		return ratelimit.NewRedisLimiter(client, "ratelimit:intake", settings), nil
	case "memory", "":
		limiter := ratelimit.NewMemoryLimiter(settings)
		go limiter.RunSweeper(ctx, time.Minute)
		log.Info("intake rate limiter using memory", "max", settings.Max, "window", settings.Window)
		return limiter, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.GetRateLimitBackend())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
