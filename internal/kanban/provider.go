// Package kanban defines the narrow Provider contract the core
// depends on (§4.4) and ships a MemoryProvider reference
// implementation used by tests. Network-backed providers (Planka, GitHub Projects, Linear)
// are out of scope per spec.md §1; callers are expected to wrap any
// real Provider's methods in resilience.Retrier + resilience.Breaker
// named "kanban:{provider}" themselves, keeping this contract narrow.
package kanban

import (
	"context"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// TaskUpdate is a partial update: nil fields are left untouched.
type TaskUpdate struct {
	Status     *domain.Status
	Blocker    *string
	Progress   *int
	AssignedTo *string
}

// NewTaskInput describes a task to create; ID and timestamps are
// assigned by the provider.
type NewTaskInput struct {
	Name           string
	Description    string
	Priority       domain.Priority
	Labels         []string
	Dependencies   []string
	EstimatedHours float64
}

// Provider is the exact capability set named in §4.4. Every method
// the core calls through is expected to be idempotent where named
// (Connect/Disconnect) and to fail with a KanbanIntegrationError
// wrapping the underlying cause when the backend is unreachable —
// the wrapping itself is the caller's job (C7/C8), not the
// provider's, so this interface returns plain errors.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	GetAvailableTasks(ctx context.Context) ([]*domain.Task, error)
	GetAllTasks(ctx context.Context) ([]*domain.Task, error)
	GetTaskByID(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, update TaskUpdate) error
	AddComment(ctx context.Context, id string, text string) error
	CreateTask(ctx context.Context, input NewTaskInput) (*domain.Task, error)
	GetBoardSummary(ctx context.Context) (domain.BoardSummary, error)
}
