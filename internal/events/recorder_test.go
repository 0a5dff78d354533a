package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/merrors"
	"github.com/marcus-mcp/marcus/internal/monitor"
)

func TestRecorder_RecordReconciliationPublishesEvent(t *testing.T) {
	bus := NewBus(nil, nil)
	rec := NewRecorder(bus)
	ch := bus.Subscribe("all", []EventType{EventReconciliationCorrected})

	rec.RecordReconciliation(context.Background(), domain.ReconciliationEvent{
		EventID:     "e1",
		AgentID:     "a1",
		TaskID:      "t1",
		Kind:        "reconciliation_corrected",
		Description: "test",
		OccurredAt:  time.Now(),
	})

	select {
	case ev := <-ch:
		assert.Equal(t, EventReconciliationCorrected, ev.Type)
		assert.Equal(t, "t1", ev.Payload["task_id"])
	case <-time.After(time.Second):
		t.Fatal("did not receive reconciliation event")
	}
}

func TestRecorder_NotifyPatternPublishesEvent(t *testing.T) {
	bus := NewBus(nil, nil)
	rec := NewRecorder(bus)
	ch := bus.Subscribe("all", []EventType{EventPatternDetected})

	err := rec.NotifyPattern(context.Background(), &monitor.ErrorPattern{
		PatternID:   "p1",
		PatternType: monitor.PatternFrequency,
		Severity:    merrors.SeverityHigh,
		Frequency:   5,
	})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, EventPatternDetected, ev.Type)
		assert.Equal(t, PriorityHigh, ev.Priority)
	case <-time.After(time.Second):
		t.Fatal("did not receive pattern event")
	}
}

func TestRecorder_RecordAssignmentDistinguishesGrantedAndDenied(t *testing.T) {
	bus := NewBus(nil, nil)
	rec := NewRecorder(bus)
	ch := bus.Subscribe("agent-1", nil)

	rec.RecordAssignment("agent-1", "t1", true)
	select {
	case ev := <-ch:
		assert.Equal(t, EventAssignmentGranted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("did not receive granted event")
	}

	rec.RecordAssignment("agent-1", "", false)
	select {
	case ev := <-ch:
		assert.Equal(t, EventAssignmentDenied, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("did not receive denied event")
	}
}
