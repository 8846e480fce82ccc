// Command dispatch runs, previews or enqueues a single follow-up dispatch
// pass and prints the report as JSON. With -welcome-only it retries missing
// welcome emails and leaves the follow-up stages alone.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"leadflow_backend/internal/email"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/sequence"
	"leadflow_backend/internal/sequence/dispatch"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/distlock"
	"leadflow_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitInProgress = 3
)

type options struct {
	preview     bool
	enqueue     bool
	welcomeOnly bool
	refTime     *time.Time
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	fs.BoolVar(&opts.preview, "preview", false, "print the candidates without sending")
	fs.BoolVar(&opts.enqueue, "enqueue", false, "hand the run to the scheduler worker instead of running it here")
	fs.BoolVar(&opts.welcomeOnly, "welcome-only", false, "only retry missing welcome emails")
	nowFlag := fs.String("now", "", "reference time in RFC3339 (default: current time)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return options{}, fmt.Errorf("invalid -now %q: %w", *nowFlag, err)
		}
		opts.refTime = &t
	}
	if opts.welcomeOnly && (opts.preview || opts.enqueue) {
		return options{}, errors.New("-welcome-only cannot be combined with -preview or -enqueue")
	}
	if opts.preview && opts.enqueue {
		return options{}, errors.New("-preview cannot be combined with -enqueue")
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return exitFailure
	}

	// Logs go to stderr so stdout carries only the report.
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetDispatchTimeout())
	defer cancel()

	if opts.enqueue {
		if err := runEnqueue(ctx, cfg, opts.refTime); err != nil {
			log.Error("enqueue failed", "error", err)
			return exitFailure
		}
		return exitOK
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return exitFailure
	}
	defer pool.Close()

	var redisClient redis.UniversalClient
	if cfg.GetRedisURL() != "" {
		c, err := db.NewRedis(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			return exitFailure
		}
		defer func() { _ = c.Close() }()
		redisClient = c
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		return exitFailure
	}

	locks := distlock.NewFactory(redisClient, pool, cfg.GetDispatchLockTTL())
	module, err := sequence.NewModule(pool, leadrepo.New(pool), nil, sender, locks, cfg, log)
	if err != nil {
		log.Error("failed to initialize sequence module", "error", err)
		return exitFailure
	}
	svc := module.Dispatcher()

	now := svc.Now()
	if opts.refTime != nil {
		now = *opts.refTime
	}

	var out interface{}
	switch {
	case opts.preview:
		out, err = svc.Preview(ctx, now)
	case opts.welcomeOnly:
		out, err = svc.RetryWelcome(ctx, now)
	default:
		out, err = svc.Run(ctx, now)
	}
	if errors.Is(err, dispatch.ErrRunInProgress) {
		log.Warn("another dispatch run is in progress")
		return exitInProgress
	}
	if err != nil {
		log.Error("dispatch failed", "error", err)
		return exitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("failed to write report", "error", err)
		return exitFailure
	}
	return exitOK
}

func runEnqueue(ctx context.Context, cfg *config.Config, refTime *time.Time) error {
	client, err := scheduler.NewClient(cfg, cfg.GetDispatchTimeout())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	id, err := client.EnqueueDispatch(ctx, scheduler.SequenceDispatchPayload{ReferenceTime: refTime, Reason: "manual"})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
