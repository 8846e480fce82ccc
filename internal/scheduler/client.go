package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"leadflow_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
}

// DispatchEnqueuer hands a dispatch run to the worker pool.
type DispatchEnqueuer interface {
	EnqueueDispatch(ctx context.Context, payload SequenceDispatchPayload) (string, error)
}

func NewClient(cfg config.SchedulerConfig, timeout time.Duration) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client:  asynq.NewClient(opt),
		queue:   queueName(cfg),
		timeout: timeout,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueDispatch queues one run and returns the task id.
func (c *Client) EnqueueDispatch(ctx context.Context, payload SequenceDispatchPayload) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}

	task, err := NewSequenceDispatchTask(payload, dispatchTaskOptions(c.queue, c.timeout)...)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
