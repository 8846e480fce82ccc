package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/sequence/dispatch"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// DispatchRunner executes a dispatch run.
type DispatchRunner interface {
	Run(ctx context.Context, now time.Time) (dispatch.Report, error)
	Now() time.Time
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner DispatchRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner DispatchRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(runner, log)
	w.server = server
	return w, nil
}

func newWorker(runner DispatchRunner, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:    mux,
		runner: runner,
		log:    log,
	}
	mux.HandleFunc(TaskSequenceDispatch, w.handleSequenceDispatch)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSequenceDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSequenceDispatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	now := w.runner.Now()
	if payload.ReferenceTime != nil {
		now = *payload.ReferenceTime
	}

	report, err := w.runner.Run(ctx, now)
	if errors.Is(err, dispatch.ErrRunInProgress) {
		w.log.Info("dispatch skipped; another run holds the lock")
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info("scheduled dispatch finished",
		"run_id", report.RunID, "reason", payload.Reason, "errors", len(report.Errors), "truncated", report.Truncated)
	return nil
}
