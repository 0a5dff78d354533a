package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/registry"
)

type recordingSink struct {
	events []domain.ReconciliationEvent
}

func (s *recordingSink) RecordReconciliation(ctx context.Context, e domain.ReconciliationEvent) {
	s.events = append(s.events, e)
}

func setup(t *testing.T) (*Monitor, *kanban.MemoryProvider, *ledger.Ledger, *registry.Registry, *recordingSink) {
	t.Helper()
	provider := kanban.NewMemoryProvider()
	led := ledger.New(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, led.Load())
	reg := registry.New()
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour // loop is driven manually via Tick in tests
	mon := New(provider, led, reg, sink, cfg, nil)
	return mon, provider, led, reg, sink
}

func TestTick_DropsEntryWhenBoardReportsDone(t *testing.T) {
	mon, provider, led, reg, sink := setup(t)
	ctx := context.Background()

	task, err := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t", Priority: domain.PriorityMedium})
	require.NoError(t, err)
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	doneStatus := domain.StatusDone
	require.NoError(t, provider.UpdateTask(ctx, task.ID, kanban.TaskUpdate{Status: &doneStatus}))

	mon.Tick(ctx)

	_, ok := led.Get("a1")
	assert.False(t, ok)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "reconciliation_corrected", sink.events[0].Kind)
}

func TestTick_DropsEntryWhenTaskBackInTODO(t *testing.T) {
	mon, provider, led, reg, _ := setup(t)
	ctx := context.Background()

	task, err := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	require.NoError(t, err)
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	todo := domain.StatusTODO
	require.NoError(t, provider.UpdateTask(ctx, task.ID, kanban.TaskUpdate{Status: &todo}))

	mon.Tick(ctx)

	_, ok := led.Get("a1")
	assert.False(t, ok)
}

func TestTick_DropsEntryWhenReassignedToAnotherAgent(t *testing.T) {
	mon, provider, led, reg, _ := setup(t)
	ctx := context.Background()

	task, err := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	require.NoError(t, err)
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	other := "a2"
	inProgress := domain.StatusInProgress
	require.NoError(t, provider.UpdateTask(ctx, task.ID, kanban.TaskUpdate{Status: &inProgress, AssignedTo: &other}))

	mon.Tick(ctx)

	_, ok := led.Get("a1")
	assert.False(t, ok)
}

func TestTick_MarksSilentAgentBlockedAfterHeartbeatTimeout(t *testing.T) {
	mon, provider, led, reg, _ := setup(t)
	mon.Config.HeartbeatFloor = time.Millisecond
	mon.Config.DefaultAverageTaskTime = time.Millisecond
	ctx := context.Background()

	task, err := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	require.NoError(t, err)
	inProgress := domain.StatusInProgress
	require.NoError(t, provider.UpdateTask(ctx, task.ID, kanban.TaskUpdate{Status: &inProgress}))
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	time.Sleep(5 * time.Millisecond)
	mon.Tick(ctx)

	_, ok := led.Get("a1")
	assert.False(t, ok)

	final, err := provider.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, final.Status)
}

func TestTick_LeavesHealthyAssignmentsUntouched(t *testing.T) {
	mon, provider, led, reg, sink := setup(t)
	ctx := context.Background()

	task, err := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	require.NoError(t, err)
	inProgress := domain.StatusInProgress
	require.NoError(t, provider.UpdateTask(ctx, task.ID, kanban.TaskUpdate{Status: &inProgress}))
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	mon.Tick(ctx)

	_, ok := led.Get("a1")
	assert.True(t, ok)
	assert.Empty(t, sink.events)
	assert.Equal(t, string(SyncInSync), mon.Health().SyncState)
}

func TestRun_StopsPromptlyOnCancel(t *testing.T) {
	mon, _, _, _, _ := setup(t)
	mon.Config.TickInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
