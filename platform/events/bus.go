package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"leadflow_backend/platform/logger"
)

// InMemoryBus dispatches events to handlers registered in the same process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	log      *logger.Logger
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish runs every handler in its own goroutine. Handler errors and panics
// are logged. The handlers receive a context detached from the caller's
// cancellation so that request completion does not abort them.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.snapshot(event.EventName())
	if len(handlers) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := b.invoke(detached, h, event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync runs handlers sequentially and joins their errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.snapshot(event.EventName()) {
		if err := b.invoke(ctx, h, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every asynchronously published handler has returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) snapshot(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[eventName]...)
}

func (b *InMemoryBus) invoke(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
