package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/events"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/lifecycle"
	"github.com/marcus-mcp/marcus/internal/merrors"
	"github.com/marcus-mcp/marcus/internal/resilience"
	"github.com/marcus-mcp/marcus/internal/respfmt"
)

// RegisterTools wires the 11 tools in the spec's tool-surface table
// into s, dispatched against deps. Every handler runs its body
// through resilience.Scope so escaping errors are always rendered in
// the tool-call shape via respfmt.ToolCall, per §4.10's dispatcher
// contract ("converts any escaping exception via C3").
func RegisterTools(s *Server, deps *Dependencies) {
	if deps.AI == nil {
		deps.AI = ai.NoopAdapter{}
	}

	s.RegisterTool(ToolDefinition{
		Name:        "register_agent",
		Description: "Register a worker agent (or refresh its identity if already registered).",
		Parameters: map[string]ParameterDef{
			"agent_id": {Type: "string", Description: "Unique agent identifier", Required: true},
			"name":     {Type: "string", Description: "Human-readable agent name", Required: true},
			"role":     {Type: "string", Description: "Agent role, e.g. backend, frontend, qa", Required: true},
			"skills":   {Type: "array", Description: "Skill labels the agent can match against tasks", Required: true},
			"capacity": {Type: "number", Description: "Max concurrent tasks, default 1", Required: false},
		},
		Handler: scoped(deps, "register_agent", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			name, _ := params["name"].(string)
			role, _ := params["role"].(string)
			skills := stringSlice(params["skills"])
			if agentID == "" {
				agentID, _ = params["agent_id"].(string)
			}
			if agentID == "" || name == "" || role == "" {
				return nil, merrors.NewValidationError("agent_id, name, and role are required",
					merrors.Context{Operation: "register_agent"})
			}

			capacity := 1
			if c, ok := params["capacity"].(float64); ok && c > 0 {
				capacity = int(c)
			}
			worker := deps.Registry.Register(agentID, name, role, skills, capacity)
			deps.Events.RecordTaskEvent(events.EventAgentRegistered, agentID, "", map[string]any{"name": name, "role": role})
			return map[string]interface{}{"success": true, "agent": worker}, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_agent_status",
		Description: "Read one agent's registry entry and current assignment.",
		Parameters: map[string]ParameterDef{
			"agent_id": {Type: "string", Description: "Agent identifier", Required: true},
		},
		Handler: scoped(deps, "get_agent_status", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			if id, ok := params["agent_id"].(string); ok && id != "" {
				agentID = id
			}
			worker, ok := deps.Registry.Get(agentID)
			if !ok {
				return nil, merrors.NewValidationError(fmt.Sprintf("agent %s is not registered", agentID),
					merrors.Context{AgentID: agentID, Operation: "get_agent_status"})
			}
			result := map[string]interface{}{"success": true, "agent": worker}
			if assignment, ok := deps.Engine.Ledger.Get(agentID); ok {
				result["assignment"] = assignment
			}
			return result, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "list_registered_agents",
		Description: "Enumerate every registered agent.",
		Parameters:  map[string]ParameterDef{},
		Handler: scoped(deps, "list_registered_agents", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"success": true, "agents": deps.Registry.All()}, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "request_next_task",
		Description: "Request the best available task for the calling agent, per the composite scoring algorithm.",
		Parameters: map[string]ParameterDef{
			"agent_id": {Type: "string", Description: "Agent identifier", Required: true},
		},
		Handler: scoped(deps, "request_next_task", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			if id, ok := params["agent_id"].(string); ok && id != "" {
				agentID = id
			}
			result, err := deps.Engine.RequestNextTask(ctx, agentID)
			if err != nil {
				return nil, err
			}
			if result.NoTaskAvailable {
				deps.Events.RecordAssignment(agentID, "", false)
				return map[string]interface{}{"success": true, "message": result.Message}, nil
			}
			deps.Events.RecordAssignment(agentID, result.Task.ID, true)
			resp := map[string]interface{}{"success": true, "task": result.Task}
			if result.Instructions != "" {
				resp["instructions"] = result.Instructions
			}
			if result.SuggestedBranch != "" {
				resp["suggested_branch"] = result.SuggestedBranch
			}
			return resp, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "report_task_progress",
		Description: "Report progress on an assigned task (in_progress, blocked, or completed).",
		Parameters: map[string]ParameterDef{
			"agent_id": {Type: "string", Description: "Agent identifier", Required: true},
			"task_id":  {Type: "string", Description: "Task identifier", Required: true},
			"status":   {Type: "string", Description: "in_progress | completed | blocked", Required: true},
			"progress": {Type: "number", Description: "Percent complete, 0-100", Required: false},
			"message":  {Type: "string", Description: "Progress note", Required: false},
		},
		Handler: scoped(deps, "report_task_progress", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			if id, ok := params["agent_id"].(string); ok && id != "" {
				agentID = id
			}
			taskID, _ := params["task_id"].(string)
			status, _ := params["status"].(string)
			message, _ := params["message"].(string)
			progress := 0
			if p, ok := params["progress"].(float64); ok {
				progress = int(p)
			}
			if taskID == "" || status == "" {
				return nil, merrors.NewValidationError("task_id and status are required",
					merrors.Context{AgentID: agentID, Operation: "report_task_progress"})
			}

			if err := deps.Lifecycle.ReportProgress(ctx, agentID, taskID, lifecycle.ProgressStatus(status), progress, message); err != nil {
				return nil, err
			}
			deps.Events.RecordTaskEvent(events.EventProgressReported, agentID, taskID, map[string]any{"status": status, "progress": progress})
			return map[string]interface{}{"success": true}, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "report_blocker",
		Description: "Report a blocker on an assigned task and receive best-effort AI resolution suggestions.",
		Parameters: map[string]ParameterDef{
			"agent_id":           {Type: "string", Description: "Agent identifier", Required: true},
			"task_id":            {Type: "string", Description: "Task identifier", Required: true},
			"blocker_description": {Type: "string", Description: "What is blocking progress", Required: true},
			"severity":           {Type: "string", Description: "low | medium | high | critical", Required: true},
		},
		Handler: scoped(deps, "report_blocker", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			if id, ok := params["agent_id"].(string); ok && id != "" {
				agentID = id
			}
			taskID, _ := params["task_id"].(string)
			description, _ := params["blocker_description"].(string)
			severity, _ := params["severity"].(string)
			if taskID == "" || description == "" {
				return nil, merrors.NewValidationError("task_id and blocker_description are required",
					merrors.Context{AgentID: agentID, Operation: "report_blocker"})
			}

			report, err := deps.Lifecycle.ReportBlocker(ctx, agentID, taskID, description, severity)
			if err != nil {
				return nil, err
			}
			deps.Events.RecordTaskEvent(events.EventBlockerReported, agentID, taskID, map[string]any{"severity": severity})
			return map[string]interface{}{"success": true, "suggestions": report.Suggestions}, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_project_status",
		Description: "Read the cached project-health snapshot.",
		Parameters:  map[string]ParameterDef{},
		Handler: scoped(deps, "get_project_status", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			snap, ok := deps.Aggregator.Cached()
			if !ok {
				computed, err := deps.Aggregator.Compute(ctx)
				if err != nil {
					return nil, merrors.NewKanbanIntegrationError("kanban", "get_all_tasks",
						merrors.Context{Operation: "get_project_status"}, err)
				}
				snap = computed
			}
			return map[string]interface{}{"success": true, "snapshot": snap}, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "create_project",
		Description: "Expand a project description into tasks via the AI adapter, then create each task on the kanban board.",
		Parameters: map[string]ParameterDef{
			"project_name": {Type: "string", Description: "Project name", Required: true},
			"description":  {Type: "string", Description: "Project description / PRD text", Required: true},
			"options":      {Type: "object", Description: "Optional {max_tasks, target_hours} tuning", Required: false},
		},
		Handler: scoped(deps, "create_project", expandAndCreate(deps, false)),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "add_feature",
		Description: "Expand a feature description into tasks additively (same pipeline as create_project, scoped to one feature).",
		Parameters: map[string]ParameterDef{
			"feature_description": {Type: "string", Description: "Feature description", Required: true},
			"integration_point":   {Type: "string", Description: "Where this feature attaches to existing work", Required: false},
		},
		Handler: scoped(deps, "add_feature", expandAndCreate(deps, true)),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "ping",
		Description: "Liveness check.",
		Parameters: map[string]ParameterDef{
			"echo": {Type: "string", Description: "Value echoed back unchanged", Required: false},
		},
		Handler: scoped(deps, "ping", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			echo, _ := params["echo"].(string)
			return map[string]interface{}{
				"success":   true,
				"status":    "online",
				"echo":      echo,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, nil
		}),
	})

	s.RegisterTool(ToolDefinition{
		Name:        "check_assignment_health",
		Description: "Report the reconciliation monitor's current sync health.",
		Parameters:  map[string]ParameterDef{},
		Handler: scoped(deps, "check_assignment_health", func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"success": true, "health": deps.Reconciler.Health()}, nil
		}),
	})
}

// coreHandler is a tool body with a context already attached by
// scoped's resilience.Scope wrapper.
type coreHandler func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error)

// scoped adapts a coreHandler into a ToolHandler: it runs fn inside
// resilience.Scope under the tool's own name, and renders any
// escaping *merrors.MarcusError in the MCP tool-call error shape
// instead of letting the transport return a bare Go error string.
func scoped(deps *Dependencies, operation string, fn coreHandler) ToolHandler {
	return func(agentID string, params map[string]interface{}) (interface{}, error) {
		var result interface{}
		err := resilience.Scope(context.Background(), operation, resilience.Meta{AgentID: agentID}, func(ctx context.Context) error {
			r, err := fn(ctx, agentID, params)
			result = r
			return err
		})
		if err != nil {
			if me, ok := merrors.As(err); ok {
				return respfmt.ToolCall(me), nil
			}
			return nil, err
		}
		return result, nil
	}
}

// expandAndCreate builds the create_project/add_feature handler body:
// call C12's ExpandProject, then create every returned task via C4.
// additive selects which parameters are read (feature_description and
// integration_point, or project_name and description); both tools then
// run the same expand-then-create pipeline per SPEC_FULL §5.
func expandAndCreate(deps *Dependencies, additive bool) coreHandler {
	return func(ctx context.Context, agentID string, params map[string]interface{}) (interface{}, error) {
		var name, description string
		if additive {
			description, _ = params["feature_description"].(string)
			name = "feature addition"
			if ip, ok := params["integration_point"].(string); ok && ip != "" {
				description = fmt.Sprintf("%s (integrates with %s)", description, ip)
			}
		} else {
			name, _ = params["project_name"].(string)
			description, _ = params["description"].(string)
		}
		if description == "" {
			return nil, merrors.NewValidationError("description is required", merrors.Context{Operation: "create_project"})
		}

		var expansion *ai.ExpansionResult
		if err := deps.callAI(ctx, func(ctx context.Context) error {
			var innerErr error
			expansion, innerErr = deps.AI.ExpandProject(ctx, name, description, expansionOptionsFrom(params))
			return innerErr
		}); err != nil {
			return nil, merrors.NewAIProviderError("ai", "expand_project", merrors.Context{Operation: "create_project"}, err)
		}

		created := make([]*domain.Task, 0, len(expansion.Tasks))
		var failures []*merrors.MarcusError
		for _, t := range expansion.Tasks {
			task, err := deps.Provider.CreateTask(ctx, kanban.NewTaskInput{
				Name:           t.Name,
				Description:    t.Description,
				Priority:       domain.Priority(t.Priority),
				Labels:         t.Labels,
				Dependencies:   t.Dependencies,
				EstimatedHours: t.EstimatedHours,
			})
			if err != nil {
				failures = append(failures, merrors.NewKanbanIntegrationError("kanban", "create_task",
					merrors.Context{Operation: "create_project", Custom: map[string]any{"task_name": t.Name}}, err))
				continue
			}
			created = append(created, task)
			deps.Events.RecordTaskEvent(events.EventTaskCreated, agentID, task.ID, map[string]any{"name": task.Name})
		}

		return respfmt.Batch(map[string]interface{}{
			"created_count": len(created),
			"tasks":         created,
			"summary":       expansion.Summary,
		}, failures), nil
	}
}

// expansionOptionsFrom reads the optional {max_tasks, target_hours}
// tuning object create_project/add_feature may pass.
func expansionOptionsFrom(params map[string]interface{}) ai.ExpansionOptions {
	var opts ai.ExpansionOptions
	raw, ok := params["options"].(map[string]interface{})
	if !ok {
		return opts
	}
	if mt, ok := raw["max_tasks"].(float64); ok {
		opts.MaxTasks = int(mt)
	}
	if th, ok := raw["target_hours"].(float64); ok {
		opts.TargetHours = th
	}
	return opts
}

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
