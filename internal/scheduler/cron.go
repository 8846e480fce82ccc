package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Cron enqueues a dispatch task on a cron schedule.
type Cron struct {
	scheduler *asynq.Scheduler
	queue     string
	timeout   time.Duration
	log       *logger.Logger
}

func NewCron(cfg config.SchedulerConfig, timeout time.Duration, log *logger.Logger) (*Cron, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	c := &Cron{queue: queueName(cfg), timeout: timeout, log: log}
	c.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("dispatch enqueue failed", "error", err)
				return
			}
			log.Debug("dispatch enqueued", "task_id", info.ID)
		},
	})
	return c, nil
}

// Register adds the dispatch task under spec and returns the entry id.
func (c *Cron) Register(spec string) (string, error) {
	task, err := NewSequenceDispatchTask(SequenceDispatchPayload{Reason: "cron"}, dispatchTaskOptions(c.queue, c.timeout)...)
	if err != nil {
		return "", err
	}
	id, err := c.scheduler.Register(spec, task)
	if err != nil {
		return "", fmt.Errorf("register dispatch cron %q: %w", spec, err)
	}
	c.log.Info("dispatch cron registered", "spec", spec, "entry_id", id)
	return id, nil
}

// Run starts the scheduler and blocks until ctx is done.
func (c *Cron) Run(ctx context.Context) error {
	if err := c.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	c.scheduler.Shutdown()
	return nil
}
