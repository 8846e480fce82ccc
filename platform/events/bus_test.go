package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"leadflow_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishRunsHandlersAsync(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
			calls.Add(1)
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if calls.Load() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls.Load())
	}
}

func TestPublishDetachesCancellation(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	errCh := make(chan error, 1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		time.Sleep(10 * time.Millisecond)
		errCh <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if err := <-errCh; err != nil {
		t.Fatalf("expected handler context to survive caller cancel, got %v", err)
	}
}

func TestPublishSyncJoinsErrorsAndRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	boom := errors.New("boom")
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error { return boom }))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error { panic("bad") }))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()
}
