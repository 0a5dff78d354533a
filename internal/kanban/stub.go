package kanban

import (
	"context"
	"fmt"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// StubProvider documents the extension point for a real network-backed
// board (Planka, GitHub Projects, Linear). It implements Provider so
// the type checks, but every method returns an error naming which
// concrete backend should replace it — wiring in a real backend means
// writing a new file in this package that satisfies Provider and
// wrapping each method's board I/O with resilience.Retrier and a
// resilience.Breaker named "kanban:{provider}" at the call site in
// C7/C8, per §4.4's "every call is wrapped by C1" rule.
type StubProvider struct {
	Name string
}

func (s *StubProvider) unimplemented(method string) error {
	return fmt.Errorf("kanban: %s provider does not implement %s (extension point, not wired)", s.Name, method)
}

func (s *StubProvider) Connect(ctx context.Context) error    { return s.unimplemented("Connect") }
func (s *StubProvider) Disconnect(ctx context.Context) error { return s.unimplemented("Disconnect") }

func (s *StubProvider) GetAvailableTasks(ctx context.Context) ([]*domain.Task, error) {
	return nil, s.unimplemented("GetAvailableTasks")
}

func (s *StubProvider) GetAllTasks(ctx context.Context) ([]*domain.Task, error) {
	return nil, s.unimplemented("GetAllTasks")
}

func (s *StubProvider) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	return nil, s.unimplemented("GetTaskByID")
}

func (s *StubProvider) UpdateTask(ctx context.Context, id string, update TaskUpdate) error {
	return s.unimplemented("UpdateTask")
}

func (s *StubProvider) AddComment(ctx context.Context, id string, text string) error {
	return s.unimplemented("AddComment")
}

func (s *StubProvider) CreateTask(ctx context.Context, input NewTaskInput) (*domain.Task, error) {
	return nil, s.unimplemented("CreateTask")
}

func (s *StubProvider) GetBoardSummary(ctx context.Context) (domain.BoardSummary, error) {
	return domain.BoardSummary{}, s.unimplemented("GetBoardSummary")
}
