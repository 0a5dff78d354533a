// Package ai defines the narrow edge interface (C12) that C7/C8 use
// for task instructions, blocker analysis, and PRD expansion, plus a
// ClaudeAdapter implementation over anthropic-sdk-go.
package ai

import (
	"context"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// ExpandedTask is one task produced by ExpandProject, before it is
// turned into a kanban.NewTaskInput by the caller.
type ExpandedTask struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Labels         []string `json:"labels"`
	Dependencies   []string `json:"dependencies"`
	EstimatedHours float64  `json:"estimated_hours"`
	Priority       string   `json:"priority"`
}

// ExpansionResult is expand_project's return shape from §4.12.
type ExpansionResult struct {
	Tasks   []ExpandedTask `json:"tasks"`
	Summary string         `json:"summary"`
}

// ExpansionOptions tunes how a PRD is broken into tasks.
type ExpansionOptions struct {
	MaxTasks      int
	TargetHours   float64
	DefaultLabels []string
}

// Adapter is the narrow prompt interface used by C8/C10, per §4.12.
// generate_task_instructions and analyze_blocker are best-effort:
// callers treat a returned error as "no guidance available" and
// proceed, never as fatal. expand_project is fatal on failure.
type Adapter interface {
	GenerateTaskInstructions(ctx context.Context, task *domain.Task, agent *domain.WorkerStatus) (string, error)
	AnalyzeBlocker(ctx context.Context, task *domain.Task, description, severity string) (string, error)
	ExpandProject(ctx context.Context, name, description string, opts ExpansionOptions) (*ExpansionResult, error)
}

// NoopAdapter always fails; useful for tests that exercise the
// best-effort swallow-and-continue paths in C7/C8.
type NoopAdapter struct{}

func (NoopAdapter) GenerateTaskInstructions(ctx context.Context, task *domain.Task, agent *domain.WorkerStatus) (string, error) {
	return "", errUnconfigured
}

func (NoopAdapter) AnalyzeBlocker(ctx context.Context, task *domain.Task, description, severity string) (string, error) {
	return "", errUnconfigured
}

func (NoopAdapter) ExpandProject(ctx context.Context, name, description string, opts ExpansionOptions) (*ExpansionResult, error) {
	return nil, errUnconfigured
}
