package dashboard

import (
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"
)

// SubjectEvents is the single subject Marcus publishes its realtime
// event log to; dashboards subscribe here for every event type.
const SubjectEvents = "marcus.events"

// Client wraps a NATS connection with the JSON publish convenience
// the bridge needs, adapted from the teacher's internal/nats.Client.
type Client struct {
	conn *nc.Conn
}

// NewClient connects to url with indefinite reconnect, matching the
// teacher's resilience posture for a long-lived background bridge.
func NewClient(url string) (*Client, error) {
	conn, err := nc.Connect(url,
		nc.ReconnectWait(2*time.Second),
		nc.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard: failed to connect to NATS: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// PublishJSON marshals v and publishes it to subject.
func (c *Client) PublishJSON(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("dashboard: failed to marshal event: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("dashboard: failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
