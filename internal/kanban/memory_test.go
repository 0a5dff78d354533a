package kanban

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-mcp/marcus/internal/domain"
)

func TestMemoryProvider_CreateThenFetchRoundTrips(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	created, err := p.CreateTask(ctx, NewTaskInput{
		Name:     "wire the API client",
		Priority: domain.PriorityHigh,
		Labels:   []string{"backend"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTODO, created.Status)

	fetched, err := p.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)

	// Mutating the returned pointer must not affect internal state.
	fetched.Name = "mutated"
	again, err := p.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "wire the API client", again.Name)
}

func TestMemoryProvider_GetAvailableTasksExcludesAssigned(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	open, _ := p.CreateTask(ctx, NewTaskInput{Name: "open task"})
	assigned, _ := p.CreateTask(ctx, NewTaskInput{Name: "assigned task"})
	inProgress := domain.StatusInProgress
	agent := "agent-1"
	require.NoError(t, p.UpdateTask(ctx, assigned.ID, TaskUpdate{Status: &inProgress, AssignedTo: &agent}))

	available, err := p.GetAvailableTasks(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, open.ID, available[0].ID)
}

func TestMemoryProvider_GetBoardSummaryCountsByStatus(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	a, _ := p.CreateTask(ctx, NewTaskInput{Name: "a"})
	b, _ := p.CreateTask(ctx, NewTaskInput{Name: "b"})
	done := domain.StatusDone
	require.NoError(t, p.UpdateTask(ctx, b.ID, TaskUpdate{Status: &done}))

	summary, err := p.GetBoardSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCards)
	assert.Equal(t, 1, summary.DoneCount)
	assert.Equal(t, 1, summary.BacklogCount)
	_ = a
}

func TestMemoryProvider_GetTaskByIDNotFound(t *testing.T) {
	p := NewMemoryProvider()
	_, err := p.GetTaskByID(context.Background(), "missing")
	require.Error(t, err)
}
