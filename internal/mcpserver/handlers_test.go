package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/assignment"
	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/events"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/lifecycle"
	"github.com/marcus-mcp/marcus/internal/reconcile"
	"github.com/marcus-mcp/marcus/internal/registry"
	"github.com/marcus-mcp/marcus/internal/snapshot"
)

func setupServer(t *testing.T) (*Server, *Dependencies, *kanban.MemoryProvider) {
	s, deps, provider, _ := setupServerWithBus(t)
	return s, deps, provider
}

func setupServerWithBus(t *testing.T) (*Server, *Dependencies, *kanban.MemoryProvider, *events.Bus) {
	t.Helper()
	provider := kanban.NewMemoryProvider()
	led := ledger.New(t.TempDir() + "/ledger.json")
	require.NoError(t, led.Load())
	reg := registry.New()

	eng := assignment.New(provider, led, reg, nil, assignment.DefaultScoringConfig(), nil, nil, nil, nil, nil)
	lm := lifecycle.New(provider, led, reg, nil, nil, nil, nil, nil, nil)
	bus := events.NewBus(nil, nil)
	rec := events.NewRecorder(bus)
	recon := reconcile.New(provider, led, reg, rec, reconcile.DefaultConfig(), nil)
	agg := snapshot.New(provider, time.Minute, nil)

	deps := &Dependencies{
		Provider:   provider,
		Engine:     eng,
		Lifecycle:  lm,
		Registry:   reg,
		Reconciler: recon,
		Aggregator: agg,
		AI:         ai.NoopAdapter{},
		Events:     rec,
	}

	s := NewServer()
	RegisterTools(s, deps)
	return s, deps, provider, bus
}

// callTool invokes a registered tool and normalizes its result into a
// generic map the way the wire transport does (handleToolsCall JSON-
// marshals every result before putting it on the content field) —
// handlers may return a map, or a respfmt struct like ToolCallError.
func callTool(t *testing.T, s *Server, agentID, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	result, err := s.tools.Execute(name, agentID, args)
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestPing_EchoesInput(t *testing.T) {
	s, _, _ := setupServer(t)
	result := callTool(t, s, "agent-1", "ping", map[string]interface{}{"echo": "hello"})
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "online", result["status"])
	assert.Equal(t, "hello", result["echo"])
	assert.NotEmpty(t, result["timestamp"])
}

func TestRegisterAgent_ThenGetAgentStatus(t *testing.T) {
	s, deps, _ := setupServer(t)
	callTool(t, s, "", "register_agent", map[string]interface{}{
		"agent_id": "agent-1",
		"name":     "Ada",
		"role":     "backend",
		"skills":   []interface{}{"go"},
	})

	worker, ok := deps.Registry.Get("agent-1")
	require.True(t, ok)
	assert.Equal(t, "Ada", worker.Name)

	result := callTool(t, s, "", "get_agent_status", map[string]interface{}{"agent_id": "agent-1"})
	assert.Equal(t, true, result["success"])
}

func TestGetAgentStatus_UnknownAgentReturnsToolCallError(t *testing.T) {
	s, _, _ := setupServer(t)
	result := callTool(t, s, "", "get_agent_status", map[string]interface{}{"agent_id": "ghost"})
	assert.Equal(t, false, result["success"])
}

func TestListRegisteredAgents_ReturnsAllRegistered(t *testing.T) {
	s, _, _ := setupServer(t)
	callTool(t, s, "", "register_agent", map[string]interface{}{"agent_id": "a1", "name": "A", "role": "r", "skills": []interface{}{}})
	callTool(t, s, "", "register_agent", map[string]interface{}{"agent_id": "a2", "name": "B", "role": "r", "skills": []interface{}{}})

	result := callTool(t, s, "", "list_registered_agents", nil)
	agents, ok := result["agents"].([]interface{})
	require.True(t, ok)
	assert.Len(t, agents, 2)
}

func TestRequestNextTask_GrantsAndDenies(t *testing.T) {
	s, deps, provider := setupServer(t)
	callTool(t, s, "", "register_agent", map[string]interface{}{"agent_id": "a1", "name": "A", "role": "r", "skills": []interface{}{}, "capacity": float64(1)})
	provider.Seed(&domain.Task{ID: "t1", Name: "Task 1", Status: domain.StatusTODO, Priority: domain.PriorityMedium})

	result := callTool(t, s, "", "request_next_task", map[string]interface{}{"agent_id": "a1"})
	require.NotNil(t, result["task"])

	result2 := callTool(t, s, "", "request_next_task", map[string]interface{}{"agent_id": "a1"})
	assert.NotEmpty(t, result2["message"])

	_, ok := deps.Engine.Ledger.Get("a1")
	assert.True(t, ok)
}

func TestReportTaskProgress_RequiresOwnership(t *testing.T) {
	s, _, _ := setupServer(t)
	callTool(t, s, "", "register_agent", map[string]interface{}{"agent_id": "a1", "name": "A", "role": "r", "skills": []interface{}{}})
	result := callTool(t, s, "", "report_task_progress", map[string]interface{}{
		"agent_id": "a1", "task_id": "t-not-owned", "status": "in_progress", "progress": float64(10), "message": "working",
	})
	assert.Equal(t, false, result["success"])
}

func TestReportTaskProgress_CompletesOwnedTask(t *testing.T) {
	s, _, provider := setupServer(t)
	callTool(t, s, "", "register_agent", map[string]interface{}{"agent_id": "a1", "name": "A", "role": "r", "skills": []interface{}{}, "capacity": float64(1)})
	provider.Seed(&domain.Task{ID: "t1", Name: "Task 1", Status: domain.StatusTODO, Priority: domain.PriorityMedium})
	callTool(t, s, "", "request_next_task", map[string]interface{}{"agent_id": "a1"})

	result := callTool(t, s, "", "report_task_progress", map[string]interface{}{
		"agent_id": "a1", "task_id": "t1", "status": "completed", "message": "done",
	})
	assert.Equal(t, true, result["success"])
}

func TestGetProjectStatus_ComputesWhenNotCached(t *testing.T) {
	s, _, provider := setupServer(t)
	provider.Seed(&domain.Task{ID: "t1", Status: domain.StatusDone})
	result := callTool(t, s, "", "get_project_status", nil)
	assert.Equal(t, true, result["success"])
	assert.NotNil(t, result["snapshot"])
}

func TestCheckAssignmentHealth_ReportsInSyncInitially(t *testing.T) {
	s, _, _ := setupServer(t)
	result := callTool(t, s, "", "check_assignment_health", nil)
	health, ok := result["health"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "in_sync", health["sync_state"])
}

func TestCreateProject_FailsWithoutAIAdapterConfigured(t *testing.T) {
	s, _, _ := setupServer(t)
	result := callTool(t, s, "", "create_project", map[string]interface{}{
		"project_name": "p1", "description": "a small project",
	})
	assert.Equal(t, false, result["success"])
}

type fakeExpandAdapter struct {
	tasks []ai.ExpandedTask
}

func (f *fakeExpandAdapter) GenerateTaskInstructions(ctx context.Context, task *domain.Task, agent *domain.WorkerStatus) (string, error) {
	return "", nil
}

func (f *fakeExpandAdapter) AnalyzeBlocker(ctx context.Context, task *domain.Task, description, severity string) (string, error) {
	return "", nil
}

func (f *fakeExpandAdapter) ExpandProject(ctx context.Context, name, description string, opts ai.ExpansionOptions) (*ai.ExpansionResult, error) {
	return &ai.ExpansionResult{Tasks: f.tasks, Summary: "expanded " + name}, nil
}

func TestCreateProject_CreatesEachExpandedTask(t *testing.T) {
	s, deps, _ := setupServer(t)
	deps.AI = &fakeExpandAdapter{tasks: []ai.ExpandedTask{
		{Name: "task a", Priority: "HIGH"},
		{Name: "task b", Priority: "MEDIUM"},
	}}
	RegisterTools(s, deps)

	result := callTool(t, s, "", "create_project", map[string]interface{}{
		"project_name": "p1", "description": "a small project",
	})
	summary, ok := result["summary"].(map[string]interface{})
	require.True(t, ok, "expected summary map, got %T", result["summary"])
	assert.Equal(t, float64(2), summary["created_count"])
	assert.Empty(t, result["errors"])
}

func TestRegisterAgent_PublishesEventOnBus(t *testing.T) {
	s, _, _, bus := setupServerWithBus(t)
	ch := bus.Subscribe("all", nil)
	defer bus.Unsubscribe("all", ch)

	callTool(t, s, "", "register_agent", map[string]interface{}{
		"agent_id": "a1", "name": "Ada", "role": "backend", "skills": []interface{}{"go"},
	})

	select {
	case e := <-ch:
		assert.Equal(t, events.EventAgentRegistered, e.Type)
		assert.Equal(t, "a1", e.Target)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for agent_registered event")
	}
}
