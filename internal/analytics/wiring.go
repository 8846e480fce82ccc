package analytics

import (
	"context"

	"leadflow_backend/internal/events"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// NewFromConfig builds the configured sinks. A sink whose backend cannot be
// reached at startup is skipped with a warning. The returned func releases
// sink resources.
func NewFromConfig(cfg config.AnalyticsConfig, log *logger.Logger) (Sink, func()) {
	var sinks Multi
	var closers []func() error

	if key := cfg.GetPostHogAPIKey(); key != "" {
		sinks = append(sinks, NewPostHogSink(key, cfg.GetPostHogHost()))
	}

	if url := cfg.GetAnalyticsAMQPURL(); url != "" {
		sink, err := DialAMQPSink(url, cfg.GetAnalyticsAMQPExchange())
		if err != nil {
			log.Warn("analytics amqp sink disabled", "error", err)
		} else {
			sinks = append(sinks, sink)
			closers = append(closers, sink.Close)
		}
	}

	cleanup := func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}

	if len(sinks) == 0 {
		log.Info("analytics disabled; no sink configured")
		return NoopSink{}, cleanup
	}
	return sinks, cleanup
}

// SubscribeDispatchCompleted forwards dispatch run summaries to sink.
func SubscribeDispatchCompleted(bus events.Bus, sink Sink, log *logger.Logger) {
	bus.Subscribe(events.DispatchCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.DispatchCompleted)
		if !ok {
			return nil
		}

		err := sink.Capture(ctx, Event{
			Name:       EventDispatchCompleted,
			DistinctID: "dispatcher",
			Timestamp:  e.OccurredAt(),
			Properties: map[string]interface{}{
				"run_id":    e.RunID,
				"sent":      e.Sent,
				"failed":    e.Failed,
				"errors":    e.Errors,
				"truncated": e.Truncated,
			},
		})
		if err != nil {
			log.BestEffortFailed(EventDispatchCompleted, err)
		}
		return nil
	}))
}
