package events

import (
	"context"

	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/monitor"
	"github.com/marcus-mcp/marcus/internal/reconcile"
)

// Recorder adapts a *Bus into the narrow single-method sinks C2 and
// C9 depend on (monitor.Notifier, reconcile.EventSink), so neither
// package needs to import events directly — the same inversion the
// teacher keeps between its alerting and notification layers.
type Recorder struct {
	bus *Bus
}

func NewRecorder(bus *Bus) *Recorder {
	return &Recorder{bus: bus}
}

var _ reconcile.EventSink = (*Recorder)(nil)
var _ monitor.Notifier = (*Recorder)(nil)

// RecordReconciliation implements reconcile.EventSink.
func (r *Recorder) RecordReconciliation(ctx context.Context, e domain.ReconciliationEvent) {
	r.bus.Publish(NewEvent(EventReconciliationCorrected, "reconcile", "all", PriorityHigh, map[string]any{
		"event_id":    e.EventID,
		"agent_id":    e.AgentID,
		"task_id":     e.TaskID,
		"description": e.Description,
	}))
}

// NotifyPattern implements monitor.Notifier.
func (r *Recorder) NotifyPattern(ctx context.Context, p *monitor.ErrorPattern) error {
	r.bus.Publish(NewEvent(EventPatternDetected, "monitor", "all", priorityForSeverity(string(p.Severity)), map[string]any{
		"pattern_id":   p.PatternID,
		"pattern_type": string(p.PatternType),
		"description":  p.Description,
		"frequency":    p.Frequency,
	}))
	return nil
}

// NotifyHealthDegraded implements monitor.Notifier.
func (r *Recorder) NotifyHealthDegraded(ctx context.Context, report monitor.HealthReport) error {
	r.bus.Publish(NewEvent(EventHealthDegraded, "monitor", "all", PriorityCritical, map[string]any{
		"score":  report.Score,
		"status": report.Status,
	}))
	return nil
}

// RecordAssignment publishes the assignment-granted/denied events C7
// produces, and RecordTaskEvent covers the C8 lifecycle events —
// both called directly by C10's tool handlers rather than through a
// narrow interface, since mcpserver already imports events for
// transport.
func (r *Recorder) RecordAssignment(agentID, taskID string, granted bool) {
	eventType := EventAssignmentGranted
	priority := PriorityNormal
	if !granted {
		eventType = EventAssignmentDenied
		priority = PriorityLow
	}
	r.bus.Publish(NewEvent(eventType, "assignment", agentID, priority, map[string]any{
		"task_id": taskID,
	}))
}

func (r *Recorder) RecordTaskEvent(eventType EventType, agentID, taskID string, extra map[string]any) {
	payload := map[string]any{"task_id": taskID}
	for k, v := range extra {
		payload[k] = v
	}
	r.bus.Publish(NewEvent(eventType, "lifecycle", agentID, PriorityNormal, payload))
}

func priorityForSeverity(severity string) int {
	switch severity {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}
