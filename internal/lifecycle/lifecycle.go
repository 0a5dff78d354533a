// Package lifecycle implements the per-task state machine (C8):
// ReportProgress, ReportBlocker, and Release, each running through
// resilience.Scope and writing through kanban.Provider, ledger.Ledger,
// and registry.Registry, per §4.8.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/merrors"
	"github.com/marcus-mcp/marcus/internal/registry"
	"github.com/marcus-mcp/marcus/internal/resilience"
)

// ProgressStatus is the status argument to ReportProgress.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressBlocked    ProgressStatus = "blocked"
)

// Manager owns the C8 operations. Every method name matches §4.8.
type Manager struct {
	Provider  kanban.Provider
	Ledger    *ledger.Ledger
	Registry  *registry.Registry
	AI        ai.Adapter
	Retrier   *resilience.Retrier
	Breaker   *resilience.Breaker
	AIRetrier *resilience.Retrier
	AIBreaker *resilience.Breaker
	Logger    *log.Logger
}

// New builds a Manager. breaker should be named "kanban:{provider}"
// and aiBreaker "ai:{provider}", per §4.4 and SPEC_FULL §5.
func New(provider kanban.Provider, led *ledger.Ledger, reg *registry.Registry, adapter ai.Adapter, retrier *resilience.Retrier, breaker *resilience.Breaker, aiRetrier *resilience.Retrier, aiBreaker *resilience.Breaker, logger *log.Logger) *Manager {
	if adapter == nil {
		adapter = ai.NoopAdapter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		Provider: provider, Ledger: led, Registry: reg, AI: adapter,
		Retrier: retrier, Breaker: breaker,
		AIRetrier: aiRetrier, AIBreaker: aiBreaker,
		Logger: logger,
	}
}

func (m *Manager) callProvider(ctx context.Context, fn func(context.Context) error) error {
	run := fn
	if m.Breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return m.Breaker.Do(ctx, inner) }
	}
	if m.Retrier != nil {
		return m.Retrier.Do(ctx, "kanban_call", run)
	}
	return run(ctx)
}

// callAI mirrors callProvider for C12 AI adapter calls, wrapped by
// the "ai:{provider}" retrier/breaker pair per SPEC_FULL §5.
func (m *Manager) callAI(ctx context.Context, fn func(context.Context) error) error {
	run := fn
	if m.AIBreaker != nil {
		inner := run
		run = func(ctx context.Context) error { return m.AIBreaker.Do(ctx, inner) }
	}
	if m.AIRetrier != nil {
		return m.AIRetrier.Do(ctx, "ai_call", run)
	}
	return run(ctx)
}

// checkOwnership enforces "must match the ledger" from §4.8.
func (m *Manager) checkOwnership(agentID, taskID string) error {
	a, ok := m.Ledger.Get(agentID)
	if !ok || a.TaskID != taskID {
		return merrors.NewTaskAssignmentError(
			fmt.Sprintf("agent %s does not hold task %s", agentID, taskID),
			merrors.Context{AgentID: agentID, TaskID: taskID, Operation: "report_progress"})
	}
	return nil
}

// ReportProgress implements §4.8's progress report operation.
func (m *Manager) ReportProgress(ctx context.Context, agentID, taskID string, status ProgressStatus, progress int, message string) error {
	return resilience.Scope(ctx, "report_progress", resilience.Meta{AgentID: agentID, TaskID: taskID}, func(ctx context.Context) error {
		if err := m.checkOwnership(agentID, taskID); err != nil {
			return err
		}

		switch status {
		case ProgressInProgress:
			comment := fmt.Sprintf("progress: %d%% — %s", progress, message)
			if err := m.callProvider(ctx, func(ctx context.Context) error { return m.Provider.AddComment(ctx, taskID, comment) }); err != nil {
				return merrors.NewKanbanIntegrationError("kanban", "add_comment", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
			}
			return m.Ledger.UpdateHeartbeat(agentID, time.Now())

		case ProgressBlocked:
			blockedStatus := domain.StatusBlocked
			if err := m.callProvider(ctx, func(ctx context.Context) error {
				return m.Provider.UpdateTask(ctx, taskID, kanban.TaskUpdate{Status: &blockedStatus, Blocker: &message})
			}); err != nil {
				return merrors.NewKanbanIntegrationError("kanban", "update_task", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
			}
			return m.Ledger.UpdateHeartbeat(agentID, time.Now())

		case ProgressCompleted:
			doneStatus := domain.StatusDone
			if err := m.callProvider(ctx, func(ctx context.Context) error {
				return m.Provider.UpdateTask(ctx, taskID, kanban.TaskUpdate{Status: &doneStatus})
			}); err != nil {
				return merrors.NewKanbanIntegrationError("kanban", "update_task", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
			}
			summary := fmt.Sprintf("completed: %s", message)
			if err := m.callProvider(ctx, func(ctx context.Context) error { return m.Provider.AddComment(ctx, taskID, summary) }); err != nil {
				return merrors.NewKanbanIntegrationError("kanban", "add_comment", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
			}
			m.Registry.CompleteTask(agentID, taskID)
			return m.Ledger.Remove(agentID)

		default:
			return merrors.NewValidationError(fmt.Sprintf("unknown progress status %q", status),
				merrors.Context{AgentID: agentID, TaskID: taskID})
		}
	})
}

// BlockerReport is ReportBlocker's result: AI suggestions are
// best-effort and may be empty if the adapter failed.
type BlockerReport struct {
	Suggestions string
}

// ReportBlocker implements §4.8's blocker operation: mark BLOCKED,
// ask the AI adapter for suggestions (best-effort), comment with
// severity and suggestions.
func (m *Manager) ReportBlocker(ctx context.Context, agentID, taskID, description, severity string) (*BlockerReport, error) {
	var report BlockerReport
	err := resilience.Scope(ctx, "report_blocker", resilience.Meta{AgentID: agentID, TaskID: taskID}, func(ctx context.Context) error {
		if err := m.checkOwnership(agentID, taskID); err != nil {
			return err
		}

		blockedStatus := domain.StatusBlocked
		if err := m.callProvider(ctx, func(ctx context.Context) error {
			return m.Provider.UpdateTask(ctx, taskID, kanban.TaskUpdate{Status: &blockedStatus, Blocker: &description})
		}); err != nil {
			return merrors.NewKanbanIntegrationError("kanban", "update_task", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
		}

		var task *domain.Task
		if err := m.callProvider(ctx, func(ctx context.Context) error {
			t, err := m.Provider.GetTaskByID(ctx, taskID)
			task = t
			return err
		}); err != nil {
			m.Logger.Printf("[LIFECYCLE] could not fetch task %s for blocker analysis: %v", taskID, err)
		}

		var suggestions string
		if aiErr := m.callAI(ctx, func(ctx context.Context) error {
			var innerErr error
			suggestions, innerErr = m.AI.AnalyzeBlocker(ctx, task, description, severity)
			return innerErr
		}); aiErr != nil {
			m.Logger.Printf("[LIFECYCLE] AI blocker analysis unavailable for task %s: %v", taskID, aiErr)
			suggestions = ""
		}
		report.Suggestions = suggestions

		comment := fmt.Sprintf("blocked (%s): %s", severity, description)
		if suggestions != "" {
			comment += "\nsuggestions: " + suggestions
		}
		if err := m.callProvider(ctx, func(ctx context.Context) error { return m.Provider.AddComment(ctx, taskID, comment) }); err != nil {
			return merrors.NewKanbanIntegrationError("kanban", "add_comment", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
		}
		return m.Ledger.UpdateHeartbeat(agentID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Release implements §4.8's release operation, used by reconciliation
// and by an agent voluntarily giving up a task.
func (m *Manager) Release(ctx context.Context, agentID, taskID string) error {
	return resilience.Scope(ctx, "release_task", resilience.Meta{AgentID: agentID, TaskID: taskID}, func(ctx context.Context) error {
		todoStatus := domain.StatusTODO
		empty := ""
		if err := m.callProvider(ctx, func(ctx context.Context) error {
			return m.Provider.UpdateTask(ctx, taskID, kanban.TaskUpdate{Status: &todoStatus, AssignedTo: &empty})
		}); err != nil {
			return merrors.NewKanbanIntegrationError("kanban", "update_task", merrors.Context{AgentID: agentID, TaskID: taskID}, err)
		}
		m.Registry.ReleaseTask(agentID, taskID)
		return m.Ledger.Remove(agentID)
	})
}
