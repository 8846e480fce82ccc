package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/analytics"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/sequence"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/distlock"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cron", cfg.GetDispatchCron())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var redisClient *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := db.NewRedis(ctx, cfg)
		if err != nil {
			return err
		}
		redisClient = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	eventBus := events.NewInMemoryBus(log)

	sink, closeSink := analytics.NewFromConfig(cfg, log)
	defer closeSink()
	analytics.SubscribeDispatchCompleted(eventBus, sink, log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	locks := distlock.NewFactory(redisClient, pool, cfg.GetDispatchLockTTL())
	sequenceModule, err := sequence.NewModule(pool, leadrepo.New(pool), eventBus, sender, locks, cfg, log)
	if err != nil {
		log.Error("failed to initialize sequence module", "error", err)
		panic("failed to initialize sequence module: " + err.Error())
	}

	cron, err := scheduler.NewCron(cfg, cfg.GetDispatchTimeout(), log)
	if err != nil {
		log.Error("failed to initialize dispatch cron", "error", err)
		panic("failed to initialize dispatch cron: " + err.Error())
	}
	if _, err := cron.Register(cfg.GetDispatchCron()); err != nil {
		log.Error("failed to register dispatch cron", "error", err)
		panic("failed to register dispatch cron: " + err.Error())
	}
	go func() {
		if err := cron.Run(ctx); err != nil {
			log.Error("dispatch cron stopped", "error", err)
			stop()
		}
	}()

	worker, err := scheduler.NewWorker(cfg, sequenceModule.Dispatcher(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
