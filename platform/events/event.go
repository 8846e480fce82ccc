// Package events provides the in-process event bus used for decoupled
// communication between modules.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// NewBaseEventAt stamps an event with t.
func NewBaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{Timestamp: t.UTC()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow ordinary functions to be used as handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribers keyed by EventName.
type Bus interface {
	// Publish delivers the event asynchronously.
	Publish(ctx context.Context, event Event)
	// PublishSync delivers the event and waits for every handler.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
