package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(nil, nil)

	ch := bus.Subscribe("agent-1", []EventType{EventAssignmentGranted})

	event := NewEvent(EventAssignmentGranted, "assignment", "agent-1", PriorityNormal, map[string]any{
		"task_id": "t-1",
	})
	bus.Publish(event)

	select {
	case received := <-ch:
		if received.ID != event.ID {
			t.Errorf("Expected event ID %s, got %s", event.ID, received.ID)
		}
		if received.Type != EventAssignmentGranted {
			t.Errorf("Expected event type %s, got %s", EventAssignmentGranted, received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Did not receive event within timeout")
	}

	bus.Unsubscribe("agent-1", ch)
}

func TestBus_FilterByType(t *testing.T) {
	bus := NewBus(nil, nil)

	ch := bus.Subscribe("agent-1", []EventType{EventProgressReported})

	progressEvent := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{
		"progress": 50,
	})
	bus.Publish(progressEvent)

	select {
	case received := <-ch:
		if received.Type != EventProgressReported {
			t.Errorf("Expected event type %s, got %s", EventProgressReported, received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Did not receive progress event")
	}

	blockerEvent := NewEvent(EventBlockerReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{})
	bus.Publish(blockerEvent)

	select {
	case received := <-ch:
		t.Errorf("Should not have received event type %s", received.Type)
	case <-time.After(100 * time.Millisecond):
		// Expected timeout
	}

	bus.Unsubscribe("agent-1", ch)
}

func TestBus_BroadcastAll(t *testing.T) {
	bus := NewBus(nil, nil)

	ch1 := bus.Subscribe("agent-1", []EventType{EventServerStartup})
	ch2 := bus.Subscribe("agent-2", []EventType{EventServerStartup})
	ch3 := bus.Subscribe("agent-3", []EventType{EventServerStartup})

	event := NewEvent(EventServerStartup, "server", "all", PriorityNormal, map[string]any{
		"broadcast": true,
	})
	bus.Publish(event)

	agents := []struct {
		name string
		ch   <-chan Event
	}{
		{"agent-1", ch1},
		{"agent-2", ch2},
		{"agent-3", ch3},
	}

	for _, agent := range agents {
		select {
		case received := <-agent.ch:
			if received.ID != event.ID {
				t.Errorf("%s: Expected event ID %s, got %s", agent.name, event.ID, received.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s: Did not receive broadcast event", agent.name)
		}
	}

	bus.Unsubscribe("agent-1", ch1)
	bus.Unsubscribe("agent-2", ch2)
	bus.Unsubscribe("agent-3", ch3)
}

func TestBus_AllSubscriber(t *testing.T) {
	bus := NewBus(nil, nil)

	allCh := bus.Subscribe("all", []EventType{EventAssignmentGranted})
	agent1Ch := bus.Subscribe("agent-1", []EventType{EventAssignmentGranted})

	event := NewEvent(EventAssignmentGranted, "assignment", "agent-1", PriorityNormal, map[string]any{
		"task_id": "t-1",
	})
	bus.Publish(event)

	select {
	case received := <-agent1Ch:
		if received.ID != event.ID {
			t.Errorf("agent-1: Expected event ID %s, got %s", event.ID, received.ID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("agent-1 did not receive event")
	}

	select {
	case received := <-allCh:
		if received.ID != event.ID {
			t.Errorf("all subscriber: Expected event ID %s, got %s", event.ID, received.ID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("all subscriber did not receive event")
	}

	bus.Unsubscribe("all", allCh)
	bus.Unsubscribe("agent-1", agent1Ch)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil, nil)

	ch := bus.Subscribe("agent-1", []EventType{EventProgressReported})

	event1 := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{
		"progress": 10,
	})
	bus.Publish(event1)

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Did not receive first event")
	}

	bus.Unsubscribe("agent-1", ch)

	event2 := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{
		"progress": 20,
	})
	bus.Publish(event2)

	select {
	case event, ok := <-ch:
		if ok {
			t.Errorf("Should not have received event after unsubscribe: %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_MultipleSubscriptionsSameTarget(t *testing.T) {
	bus := NewBus(nil, nil)

	ch1 := bus.Subscribe("agent-1", []EventType{EventProgressReported})
	ch2 := bus.Subscribe("agent-1", []EventType{EventProgressReported})

	event := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{
		"progress": 30,
	})
	bus.Publish(event)

	select {
	case <-ch1:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ch1 did not receive event")
	}

	select {
	case <-ch2:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ch2 did not receive event")
	}

	bus.Unsubscribe("agent-1", ch1)
	bus.Unsubscribe("agent-1", ch2)
}

func TestBus_NoTypeFilter(t *testing.T) {
	bus := NewBus(nil, nil)

	ch := bus.Subscribe("agent-1", nil)

	progressEvent := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{})
	bus.Publish(progressEvent)

	blockerEvent := NewEvent(EventBlockerReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{})
	bus.Publish(blockerEvent)

	releasedEvent := NewEvent(EventTaskReleased, "lifecycle", "agent-1", PriorityNormal, map[string]any{})
	bus.Publish(releasedEvent)

	receivedTypes := make(map[EventType]bool)
	for i := 0; i < 3; i++ {
		select {
		case event := <-ch:
			receivedTypes[event.Type] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Did not receive all events")
		}
	}

	if !receivedTypes[EventProgressReported] {
		t.Error("Did not receive progress event")
	}
	if !receivedTypes[EventBlockerReported] {
		t.Error("Did not receive blocker event")
	}
	if !receivedTypes[EventTaskReleased] {
		t.Error("Did not receive released event")
	}

	bus.Unsubscribe("agent-1", ch)
}

func TestBus_FullChannelNonBlocking(t *testing.T) {
	bus := NewBus(nil, nil)

	ch := bus.Subscribe("agent-1", []EventType{EventProgressReported})

	for i := 0; i < 100; i++ {
		event := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{
			"index": i,
		})
		bus.Publish(event)
	}

	done := make(chan bool)
	go func() {
		event := NewEvent(EventProgressReported, "lifecycle", "agent-1", PriorityNormal, map[string]any{
			"index": 100,
		})
		bus.Publish(event)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked on full channel")
	}

	bus.Unsubscribe("agent-1", ch)
}

func TestBus_RealtimeWriterReceivesEveryPublish(t *testing.T) {
	rec := &recordingWriter{}
	bus := NewBus(nil, rec)

	bus.Publish(NewEvent(EventServerStartup, "server", "all", PriorityNormal, nil))
	bus.Publish(NewEvent(EventAssignmentGranted, "assignment", "agent-1", PriorityNormal, nil))

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events appended to realtime writer, got %d", len(rec.events))
	}
}

type recordingWriter struct {
	events []*Event
}

func (w *recordingWriter) Append(event *Event) error {
	w.events = append(w.events, event)
	return nil
}
