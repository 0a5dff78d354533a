package kanban

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// MemoryProvider is an in-process Provider backing tests and the
// default "memory" board. It has no external dependency
// and never fails except for the not-found cases named in §4.4.
type MemoryProvider struct {
	mu        sync.RWMutex
	connected bool
	tasks     map[string]*domain.Task
}

// NewMemoryProvider builds an empty board.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{tasks: make(map[string]*domain.Task)}
}

func (p *MemoryProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *MemoryProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// Seed inserts a task directly, for test setup; it bypasses
// CreateTask's id assignment so tests can control ids.
func (p *MemoryProvider) Seed(t *domain.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[t.ID] = t
}

func (p *MemoryProvider) GetAvailableTasks(ctx context.Context) ([]*domain.Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*domain.Task
	for _, t := range p.tasks {
		if t.Status == domain.StatusTODO && t.AssignedTo == "" {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (p *MemoryProvider) GetAllTasks(ctx context.Context) ([]*domain.Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*domain.Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, cloneTask(t))
	}
	return out, nil
}

func (p *MemoryProvider) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tasks[id]
	if !ok {
		return nil, fmt.Errorf("kanban: task %s not found", id)
	}
	return cloneTask(t), nil
}

func (p *MemoryProvider) UpdateTask(ctx context.Context, id string, update TaskUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[id]
	if !ok {
		return fmt.Errorf("kanban: task %s not found", id)
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Blocker != nil {
		t.Description = t.Description + "\nBLOCKED: " + *update.Blocker
	}
	if update.Progress != nil {
		// Boards without a native progress field emulate it via a
		// comment; MemoryProvider records it as metadata instead.
		t.ActualHours = float64(*update.Progress) / 100.0 * t.EstimatedHours
	}
	if update.AssignedTo != nil {
		t.AssignedTo = *update.AssignedTo
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (p *MemoryProvider) AddComment(ctx context.Context, id string, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tasks[id]; !ok {
		return fmt.Errorf("kanban: task %s not found", id)
	}
	return nil
}

func (p *MemoryProvider) CreateTask(ctx context.Context, input NewTaskInput) (*domain.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	t := &domain.Task{
		ID:             uuid.New().String(),
		Name:           input.Name,
		Description:    input.Description,
		Status:         domain.StatusTODO,
		Priority:       input.Priority,
		Labels:         input.Labels,
		Dependencies:   input.Dependencies,
		EstimatedHours: input.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.tasks[t.ID] = t
	return cloneTask(t), nil
}

func (p *MemoryProvider) GetBoardSummary(ctx context.Context) (domain.BoardSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var s domain.BoardSummary
	for _, t := range p.tasks {
		s.TotalCards++
		switch t.Status {
		case domain.StatusDone:
			s.DoneCount++
		case domain.StatusInProgress:
			s.InProgressCount++
		case domain.StatusBlocked:
			s.BlockedCount++
		case domain.StatusTODO:
			s.BacklogCount++
		}
	}
	return s, nil
}

func cloneTask(t *domain.Task) *domain.Task {
	cp := *t
	cp.Labels = append([]string(nil), t.Labels...)
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	return &cp
}
