package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/registry"
)

type failingAdapter struct{}

func (failingAdapter) GenerateTaskInstructions(ctx context.Context, task *domain.Task, agent *domain.WorkerStatus) (string, error) {
	return "", errors.New("provider down")
}
func (failingAdapter) AnalyzeBlocker(ctx context.Context, task *domain.Task, description, severity string) (string, error) {
	return "", errors.New("provider down")
}
func (failingAdapter) ExpandProject(ctx context.Context, name, description string, opts ai.ExpansionOptions) (*ai.ExpansionResult, error) {
	return nil, errors.New("provider down")
}

func setup(t *testing.T) (*Manager, *kanban.MemoryProvider, *ledger.Ledger, *registry.Registry) {
	t.Helper()
	provider := kanban.NewMemoryProvider()
	led := ledger.New(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, led.Load())
	reg := registry.New()
	mgr := New(provider, led, reg, failingAdapter{}, nil, nil, nil, nil, nil)
	return mgr, provider, led, reg
}

func TestLifecycle_ProgressThenCompletedClearsLedgerAndCounts(t *testing.T) {
	mgr, provider, led, reg := setup(t)
	ctx := context.Background()

	task, err := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t", Priority: domain.PriorityMedium})
	require.NoError(t, err)
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	require.NoError(t, mgr.ReportProgress(ctx, "a1", task.ID, ProgressInProgress, 50, "halfway"))
	require.NoError(t, mgr.ReportProgress(ctx, "a1", task.ID, ProgressCompleted, 100, "done"))

	_, ok := led.Get("a1")
	assert.False(t, ok)

	final, err := provider.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, final.Status)

	w, _ := reg.Get("a1")
	assert.Equal(t, 1, w.CompletedCount)
}

func TestLifecycle_ReportProgressRejectsWrongOwner(t *testing.T) {
	mgr, provider, led, reg := setup(t)
	ctx := context.Background()

	task, _ := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	err := mgr.ReportProgress(ctx, "a2", task.ID, ProgressInProgress, 10, "x")
	assert.Error(t, err)
}

func TestLifecycle_ReportBlockerSwallowsAIFailure(t *testing.T) {
	mgr, provider, led, reg := setup(t)
	ctx := context.Background()

	task, _ := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))

	report, err := mgr.ReportBlocker(ctx, "a1", task.ID, "missing credentials", "HIGH")
	require.NoError(t, err)
	assert.Empty(t, report.Suggestions)

	final, err := provider.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, final.Status)
}

func TestLifecycle_ReleaseClearsLedgerAndBoard(t *testing.T) {
	mgr, provider, led, reg := setup(t)
	ctx := context.Background()

	task, _ := provider.CreateTask(ctx, kanban.NewTaskInput{Name: "t"})
	reg.Register("a1", "A1", "dev", nil, 1)
	require.NoError(t, led.Add("a1", task.ID, domain.StatusInProgress))
	reg.AssignTask("a1", task.ID)

	require.NoError(t, mgr.Release(ctx, "a1", task.ID))

	_, ok := led.Get("a1")
	assert.False(t, ok)

	final, err := provider.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTODO, final.Status)
	assert.Empty(t, final.AssignedTo)
}
