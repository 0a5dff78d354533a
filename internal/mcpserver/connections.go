// Package mcpserver implements the coordination server's tool
// surface (C10): an MCP-over-Streamable-HTTP transport adapted
// nearly verbatim from the teacher's internal/mcp package (MCP wire
// framing is explicitly reused, not redesigned, per spec.md §1), with
// every handler rewritten to the 11 tools in the tool-surface table.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-mcp/marcus/internal/types"
)

// ConnectionState is the lifecycle state of one SSE connection.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateActive
	StateClosing
	StateClosed
)

// SSEConnection represents one connected agent's event stream.
type SSEConnection struct {
	AgentID   string
	SessionID string
	Writer    http.ResponseWriter
	Flusher   http.Flusher
	Done      chan struct{}
	CreatedAt time.Time
	LastPing  time.Time
	state     ConnectionState
	mu        sync.Mutex
	closeOnce sync.Once
}

func NewSSEConnection(agentID string, w http.ResponseWriter) (*SSEConnection, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("mcpserver: streaming not supported")
	}
	return &SSEConnection{
		AgentID:   agentID,
		SessionID: uuid.New().String(),
		Writer:    w,
		Flusher:   flusher,
		Done:      make(chan struct{}),
		CreatedAt: time.Now(),
		LastPing:  time.Now(),
		state:     StateConnecting,
	}, nil
}

func (c *SSEConnection) Send(event string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	c.Flusher.Flush()
	c.LastPing = time.Now()
	return nil
}

func (c *SSEConnection) SendPlainData(event string, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	c.Flusher.Flush()
	c.LastPing = time.Now()
	return nil
}

func (c *SSEConnection) SendResponse(resp types.MCPResponse) error {
	return c.Send("message", resp)
}

func (c *SSEConnection) SendNotification(method string, params interface{}) error {
	return c.Send("message", types.MCPNotification{JSONRPC: "2.0", Method: method, Params: params})
}

func (c *SSEConnection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosing
		c.mu.Unlock()

		close(c.Done)

		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
	})
}

func (c *SSEConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateClosing || c.state == StateClosed
}

func (c *SSEConnection) SetActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnecting {
		c.state = StateActive
	}
}

// ConnectionManager tracks every live SSE connection, keyed by both
// agent ID and session ID, with a background sweep for stale entries.
type ConnectionManager struct {
	mu           sync.RWMutex
	connections  map[string]*SSEConnection
	sessions     map[string]*SSEConnection
	onConnect    func(agentID string)
	onDisconnect func(agentID string)
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewConnectionManager() *ConnectionManager {
	cm := &ConnectionManager{
		connections:  make(map[string]*SSEConnection),
		sessions:     make(map[string]*SSEConnection),
		shutdownChan: make(chan struct{}),
	}
	go cm.cleanupStaleConnections()
	return cm
}

func (m *ConnectionManager) cleanupStaleConnections() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownChan:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			var stale []string
			for agentID, conn := range m.connections {
				conn.mu.Lock()
				lastPing := conn.LastPing
				closed := conn.state == StateClosing || conn.state == StateClosed
				conn.mu.Unlock()
				if closed || now.Sub(lastPing) > 5*time.Minute {
					stale = append(stale, agentID)
				}
			}
			m.mu.Unlock()
			for _, agentID := range stale {
				m.Remove(agentID)
			}
		}
	}
}

func (m *ConnectionManager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)

		m.mu.Lock()
		for agentID := range m.connections {
			if conn, ok := m.connections[agentID]; ok {
				delete(m.sessions, conn.SessionID)
				conn.Close()
			}
		}
		m.connections = make(map[string]*SSEConnection)
		m.sessions = make(map[string]*SSEConnection)
		m.mu.Unlock()
	})
}

func (m *ConnectionManager) SetCallbacks(onConnect, onDisconnect func(agentID string)) {
	m.onConnect = onConnect
	m.onDisconnect = onDisconnect
}

func (m *ConnectionManager) Add(agentID string, conn *SSEConnection) {
	m.mu.Lock()
	if existing, ok := m.connections[agentID]; ok {
		delete(m.sessions, existing.SessionID)
		existing.Close()
	}
	m.connections[agentID] = conn
	m.sessions[conn.SessionID] = conn
	m.mu.Unlock()

	if m.onConnect != nil {
		m.onConnect(agentID)
	}
}

func (m *ConnectionManager) Remove(agentID string) {
	m.mu.Lock()
	if conn, ok := m.connections[agentID]; ok {
		delete(m.sessions, conn.SessionID)
		conn.Close()
		delete(m.connections, agentID)
	}
	m.mu.Unlock()

	if m.onDisconnect != nil {
		m.onDisconnect(agentID)
	}
}

func (m *ConnectionManager) Get(agentID string) *SSEConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[agentID]
}

func (m *ConnectionManager) GetBySession(sessionID string) *SSEConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *ConnectionManager) GetConnectedAgentIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	return ids
}

func (m *ConnectionManager) Broadcast(method string, params interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		conn.SendNotification(method, params)
	}
}

// ConnectionLimiter bounds SSE connections per agent and globally.
type ConnectionLimiter struct {
	mu               sync.RWMutex
	perAgentCount    map[string]int
	totalConnections int
	maxPerAgent      int
	maxTotal         int
}

const (
	MaxConnectionsPerAgent = 5
	MaxTotalConnections    = 100
)

func NewConnectionLimiter(maxPerAgent, maxTotal int) *ConnectionLimiter {
	return &ConnectionLimiter{perAgentCount: make(map[string]int), maxPerAgent: maxPerAgent, maxTotal: maxTotal}
}

func (cl *ConnectionLimiter) TryAcquire(agentID string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.totalConnections >= cl.maxTotal {
		return false
	}
	if cl.perAgentCount[agentID] >= cl.maxPerAgent {
		return false
	}
	cl.perAgentCount[agentID]++
	cl.totalConnections++
	return true
}

func (cl *ConnectionLimiter) Release(agentID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if count, ok := cl.perAgentCount[agentID]; ok && count > 0 {
		cl.perAgentCount[agentID]--
		if cl.perAgentCount[agentID] == 0 {
			delete(cl.perAgentCount, agentID)
		}
		cl.totalConnections--
	}
}

func (cl *ConnectionLimiter) HandleLimitExceeded(w http.ResponseWriter, agentID string) {
	cl.mu.RLock()
	currentCount := cl.perAgentCount[agentID]
	totalCount := cl.totalConnections
	cl.mu.RUnlock()

	var message string
	switch {
	case totalCount >= cl.maxTotal:
		message = fmt.Sprintf("global connection limit exceeded (%d/%d)", totalCount, cl.maxTotal)
	case currentCount >= cl.maxPerAgent:
		message = fmt.Sprintf("per-agent connection limit exceeded for %s (%d/%d)", agentID, currentCount, cl.maxPerAgent)
	default:
		message = "connection limit exceeded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "10")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error": "%s", "error_code": "ERR_429", "retry_after": 10}`, message)
}
