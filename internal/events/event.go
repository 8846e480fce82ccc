// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a lead row has been persisted by intake.
type LeadCreated struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	BusinessType string    `json:"businessType"`
	LeadScore    int       `json:"leadScore"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Sequence Domain Events
// =============================================================================

// DispatchCompleted is published when a dispatch run finishes, including
// runs cut short by their deadline.
type DispatchCompleted struct {
	BaseEvent
	RunID     string         `json:"runId"`
	Sent      map[string]int `json:"sent"`
	Failed    map[string]int `json:"failed"`
	Errors    int            `json:"errors"`
	Truncated bool           `json:"truncated"`
}

func (e DispatchCompleted) EventName() string { return "sequence.dispatch.completed" }
