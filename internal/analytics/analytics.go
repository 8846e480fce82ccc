// Package analytics captures product events. Every sink is best-effort:
// callers log failures and never let them change a primary outcome.
package analytics

import (
	"context"
	"errors"
	"time"
)

// Event names.
const (
	EventLeadSubmitted     = "lead_submitted"
	EventDispatchCompleted = "dispatch_completed"
)

// Event is one captured occurrence.
type Event struct {
	Name       string                 `json:"event"`
	DistinctID string                 `json:"distinct_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Sink records events.
type Sink interface {
	Capture(ctx context.Context, event Event) error
}

// NoopSink drops every event.
type NoopSink struct{}

// Capture implements Sink.
func (NoopSink) Capture(context.Context, Event) error { return nil }

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

// Capture implements Sink.
func (m Multi) Capture(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Capture(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
