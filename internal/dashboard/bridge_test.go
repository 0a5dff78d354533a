package dashboard

import (
	"encoding/json"
	"testing"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/marcus-mcp/marcus/internal/events"
)

func TestBridge_ForwardsEventsToNATS(t *testing.T) {
	srv, err := NewEmbeddedServer(EmbeddedServerConfig{Port: 14324})
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Shutdown()

	client, err := NewClient(srv.URL())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	bus := events.NewBus(nil, nil)
	bridge := NewBridge(bus, client, nil)
	defer bridge.Stop()

	sub, err := client.conn.Subscribe(SubjectEvents, func(*nc.Msg) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	received := make(chan events.Event, 1)
	sub2, err := client.conn.Subscribe(SubjectEvents, func(msg *nc.Msg) {
		var e events.Event
		if err := json.Unmarshal(msg.Data, &e); err == nil {
			received <- e
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub2.Unsubscribe()

	bus.Publish(events.NewEvent(events.EventAgentRegistered, "registry", "agent-1", events.PriorityNormal, map[string]any{"name": "Ada"}))

	select {
	case e := <-received:
		if e.Type != events.EventAgentRegistered {
			t.Errorf("Type = %v, want %v", e.Type, events.EventAgentRegistered)
		}
		if e.Target != "agent-1" {
			t.Errorf("Target = %v, want agent-1", e.Target)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridged event on NATS")
	}
}
