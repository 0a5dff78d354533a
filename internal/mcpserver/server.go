package mcpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marcus-mcp/marcus/internal/types"
)

// Server implements MCP over Streamable HTTP, dispatching each
// tools/call to its registered ToolDefinition.
type Server struct {
	connections       *ConnectionManager
	tools             *ToolRegistry
	connectionLimiter *ConnectionLimiter
	onToolCall        func(agentID string, toolName string)
}

func NewServer() *Server {
	return &Server{
		connections:       NewConnectionManager(),
		tools:             NewToolRegistry(),
		connectionLimiter: NewConnectionLimiter(MaxConnectionsPerAgent, MaxTotalConnections),
	}
}

func (s *Server) SetConnectionCallbacks(onConnect, onDisconnect func(agentID string)) {
	s.connections.SetCallbacks(onConnect, onDisconnect)
}

// SetToolCallCallback installs a hook invoked before every dispatch.
func (s *Server) SetToolCallCallback(callback func(agentID string, toolName string)) {
	s.onToolCall = callback
}

func (s *Server) RegisterTool(tool ToolDefinition) {
	s.tools.Register(tool)
}

func (s *Server) GetConnectedAgents() []string {
	return s.connections.GetConnectedAgentIDs()
}

func (s *Server) Broadcast(method string, params interface{}) {
	s.connections.Broadcast(method, params)
}

// ServeStreamableHTTP implements the 2025-03-26 MCP Streamable HTTP
// transport: a single endpoint handling GET (SSE stream), POST
// (JSON-RPC request/response), and DELETE (session termination).
func (s *Server) ServeStreamableHTTP(w http.ResponseWriter, r *http.Request) {
	agentID := r.Header.Get("X-Agent-ID")
	if agentID == "" {
		agentID = r.URL.Query().Get("agent_id")
	}
	if agentID == "" {
		http.Error(w, "X-Agent-ID header or agent_id query param required", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get("Mcp-Session-Id")

	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r, agentID)
	case http.MethodGet:
		s.handleGet(w, r, agentID, sessionID)
	case http.MethodDelete:
		s.handleDelete(w, sessionID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, agentID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req types.MCPRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONError(w, nil, -32700, "Parse error")
		return
	}

	if req.Method == "initialize" {
		resp := s.handleInitialize(&req)
		w.Header().Set("Mcp-Session-Id", fmt.Sprintf("%d", time.Now().UnixNano()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
		return
	}

	resp := s.handleRequest(agentID, &req)

	if req.ID == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	accept := r.Header.Get("Accept")
	if accept == "text/event-stream" {
		if conn := s.connections.Get(agentID); conn != nil {
			if err := conn.SendResponse(resp); err != nil {
				http.Error(w, "failed to send response", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, agentID, sessionID string) {
	if !s.connectionLimiter.TryAcquire(agentID) {
		s.connectionLimiter.HandleLimitExceeded(w, agentID)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	conn, err := NewSSEConnection(agentID, w)
	if err != nil {
		s.connectionLimiter.Release(agentID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessionID == "" {
		sessionID = conn.SessionID
	}
	w.Header().Set("Mcp-Session-Id", sessionID)

	s.connections.Add(agentID, conn)
	defer func() {
		s.connections.Remove(agentID)
		s.connectionLimiter.Release(agentID)
	}()
	conn.SetActive()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done:
			return
		case <-r.Context().Done():
			conn.Close()
			return
		case <-ticker.C:
			if conn.IsClosed() {
				return
			}
			if err := conn.Send("ping", map[string]int64{"time": time.Now().Unix()}); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, sessionID string) {
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id required for session termination", http.StatusBadRequest)
		return
	}
	if conn := s.connections.GetBySession(sessionID); conn != nil {
		s.connections.Remove(conn.AgentID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) sendJSONError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := types.MCPResponse{JSONRPC: "2.0", ID: id, Error: &types.MCPError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleRequest(agentID string, req *types.MCPRequest) types.MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(agentID, req)
	default:
		return types.MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &types.MCPError{Code: -32601, Message: fmt.Sprintf("Method not found: %s", req.Method)},
		}
	}
}

func (s *Server) handleInitialize(req *types.MCPRequest) types.MCPResponse {
	return types.MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]string{"name": "marcus", "version": "1.0.0"},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		},
	}
}

func (s *Server) handleToolsList(req *types.MCPRequest) types.MCPResponse {
	return types.MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": s.tools.List()}}
}

func (s *Server) handleToolsCall(agentID string, req *types.MCPRequest) types.MCPResponse {
	params, ok := req.Params.(map[string]interface{})
	if !ok {
		return types.MCPResponse{JSONRPC: "2.0", ID: req.ID, Error: &types.MCPError{Code: -32602, Message: "Invalid params"}}
	}

	toolName, _ := params["name"].(string)
	toolArgs, _ := params["arguments"].(map[string]interface{})

	if toolName == "" {
		return types.MCPResponse{JSONRPC: "2.0", ID: req.ID, Error: &types.MCPError{Code: -32602, Message: "Tool name required"}}
	}

	if s.onToolCall != nil {
		s.onToolCall(agentID, toolName)
	}

	result, err := s.tools.Execute(toolName, agentID, toolArgs)
	if err != nil {
		return types.MCPResponse{JSONRPC: "2.0", ID: req.ID, Error: &types.MCPError{Code: -32000, Message: err.Error()}}
	}

	resultText := fmt.Sprintf("%v", result)
	if jsonBytes, err := json.Marshal(result); err == nil {
		resultText = string(jsonBytes)
	}

	return types.MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": resultText}},
		},
	}
}
