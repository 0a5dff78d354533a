// Package events implements the realtime event log (§4.10's
// dashboard/audit surface): an in-process publish/subscribe Bus, a
// durable SQLite archive, and an append-only JSONL file for live
// tailing, adapted from the teacher's internal/events package.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the externally observable actions the MCP
// server and its background workers emit, per the SPEC_FULL tool
// surface and C2/C9's side effects.
type EventType string

const (
	EventAgentRegistered         EventType = "agent_registered"
	EventAssignmentGranted       EventType = "assignment_granted"
	EventAssignmentDenied        EventType = "assignment_denied"
	EventProgressReported        EventType = "progress_reported"
	EventBlockerReported         EventType = "blocker_reported"
	EventTaskReleased            EventType = "task_released"
	EventTaskCreated              EventType = "task_created"
	EventReconciliationCorrected EventType = "reconciliation_corrected"
	EventCircuitStateChanged     EventType = "circuit_state_changed"
	EventPatternDetected         EventType = "pattern_detected"
	EventHealthDegraded         EventType = "health_degraded"
	EventServerStartup           EventType = "server_startup"
)

// Priority constants, kept from the teacher for dashboard sort order.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityNormal   = 3
	PriorityLow      = 4
)

// Event is one externally observable occurrence.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Source    string         `json:"source"`
	Target    string         `json:"target"`
	Priority  int            `json:"priority"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent creates an Event with an auto-generated id and timestamp.
func NewEvent(eventType EventType, source, target string, priority int, payload map[string]any) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Target:    target,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// AllEventTypes returns every defined event type, for dashboards that
// want to offer a type-filter selector.
func AllEventTypes() []EventType {
	return []EventType{
		EventAgentRegistered,
		EventAssignmentGranted,
		EventAssignmentDenied,
		EventProgressReported,
		EventBlockerReported,
		EventTaskReleased,
		EventTaskCreated,
		EventReconciliationCorrected,
		EventCircuitStateChanged,
		EventPatternDetected,
		EventHealthDegraded,
		EventServerStartup,
	}
}
