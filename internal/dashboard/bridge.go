package dashboard

import (
	"log"

	"github.com/marcus-mcp/marcus/internal/events"
)

// Bridge fans every event published on bus out to a NATS client on
// SubjectEvents, so a dashboard can subscribe to live updates instead
// of polling get_project_status/check_assignment_health.
type Bridge struct {
	bus    *events.Bus
	client *Client
	logger *log.Logger
	ch     <-chan events.Event
	done   chan struct{}
}

// NewBridge subscribes to every event type on bus and starts
// forwarding them to client. Call Stop to unsubscribe and halt.
func NewBridge(bus *events.Bus, client *Client, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	b := &Bridge{
		bus:    bus,
		client: client,
		logger: logger,
		ch:     bus.Subscribe("all", nil),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bridge) run() {
	for {
		select {
		case e, ok := <-b.ch:
			if !ok {
				return
			}
			if err := b.client.PublishJSON(SubjectEvents, e); err != nil {
				b.logger.Printf("dashboard: failed to publish event %s: %v", e.Type, err)
			}
		case <-b.done:
			return
		}
	}
}

// Stop unsubscribes from the bus and halts the forwarding goroutine.
func (b *Bridge) Stop() {
	close(b.done)
	b.bus.Unsubscribe("all", b.ch)
}
