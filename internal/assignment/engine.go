// Package assignment implements the Assignment Engine (C7): the hard
// core that picks the single best available task for an agent with
// strict at-most-one-owner guarantees under concurrent requests.
package assignment

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/git"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/merrors"
	"github.com/marcus-mcp/marcus/internal/registry"
	"github.com/marcus-mcp/marcus/internal/resilience"
)

// minRetries is the bounded retry floor from §4.7's failure semantics
// ("loser retries selection; bounded retries, >= 3").
const minRetries = 3

// Result is what RequestNextTask returns on every path, including the
// "no task available" case, which is a structured result, not an error.
type Result struct {
	Task            *domain.Task
	Instructions    string
	InstructionsErr error
	NoTaskAvailable bool
	Message         string
	SuggestedBranch string
}

// Engine holds the dependencies RequestNextTask reads and writes.
type Engine struct {
	Provider  kanban.Provider
	Ledger    *ledger.Ledger
	Registry  *registry.Registry
	AI        ai.Adapter
	Scoring   ScoringConfig
	Retrier   *resilience.Retrier
	Breaker   *resilience.Breaker
	AIRetrier *resilience.Retrier
	AIBreaker *resilience.Breaker
	Logger    *log.Logger

	commitMu sync.Mutex // the assignment lock (§4.7)

	reservedMu sync.Mutex
	reserved   map[string]bool
}

// New builds an Engine. breaker should be named "kanban:{provider}"
// and aiBreaker "ai:{provider}", per §4.4 and SPEC_FULL §5.
func New(provider kanban.Provider, led *ledger.Ledger, reg *registry.Registry, adapter ai.Adapter, scoring ScoringConfig, retrier *resilience.Retrier, breaker *resilience.Breaker, aiRetrier *resilience.Retrier, aiBreaker *resilience.Breaker, logger *log.Logger) *Engine {
	if adapter == nil {
		adapter = ai.NoopAdapter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		Provider:  provider,
		Ledger:    led,
		Registry:  reg,
		AI:        adapter,
		Scoring:   scoring,
		Retrier:   retrier,
		Breaker:   breaker,
		AIRetrier: aiRetrier,
		AIBreaker: aiBreaker,
		Logger:    logger,
		reserved:  make(map[string]bool),
	}
}

// RequestNextTask runs the 9-step selection/reservation/commit
// algorithm from §4.7. Bounded retry (>=3) on ledger commit races; if
// no selectable task remains at any attempt, returns a structured
// "no task available" result rather than an error.
func (e *Engine) RequestNextTask(ctx context.Context, agentID string) (*Result, error) {
	agent, ok := e.Registry.Get(agentID)
	if !ok {
		return nil, merrors.NewTaskAssignmentError(fmt.Sprintf("agent %s is not registered", agentID),
			merrors.Context{AgentID: agentID, Operation: "request_next_task"})
	}

	var lastErr error
	for attempt := 0; attempt < minRetries; attempt++ {
		result, retry, err := e.attempt(ctx, agentID, agent)
		if err != nil {
			lastErr = err
			if retry {
				continue
			}
			return nil, err
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, merrors.NewIntegrationError("request_next_task",
			merrors.Context{AgentID: agentID, Custom: map[string]any{"attempts": minRetries}}, lastErr).
			WithRemediation(merrors.Remediation{RetryStrategy: fmt.Sprintf("exhausted %d attempts", minRetries)})
	}
	return &Result{NoTaskAvailable: true, Message: "no task available"}, nil
}

// attempt runs steps 1-9 once. retry=true means the caller should
// reselect (a commit race was lost); err!=nil with retry=false is fatal.
func (e *Engine) attempt(ctx context.Context, agentID string, agent *domain.WorkerStatus) (*Result, bool, error) {
	available, err := e.fetchAvailable(ctx)
	if err != nil {
		return nil, false, err
	}

	all, err := e.fetchAll(ctx)
	if err != nil {
		return nil, false, err
	}
	byID := make(map[string]*domain.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	excluded := e.Ledger.GetAllAssignedTaskIDs()
	e.reservedMu.Lock()
	for id := range e.reserved {
		excluded[id] = true
	}
	e.reservedMu.Unlock()

	candidate := e.selectBest(available, byID, excluded, agent)
	if candidate == nil {
		return &Result{NoTaskAvailable: true, Message: "no task available"}, false, nil
	}

	e.reservedMu.Lock()
	e.reserved[candidate.ID] = true
	e.reservedMu.Unlock()
	defer func() {
		e.reservedMu.Lock()
		delete(e.reserved, candidate.ID)
		e.reservedMu.Unlock()
	}()

	committed, err := e.commit(ctx, agentID, candidate)
	if err != nil {
		if err == ledger.ErrAlreadyAssigned || err == ledger.ErrTaskAlreadyAssigned {
			return nil, true, err
		}
		return nil, false, err
	}

	e.Registry.AssignTask(agentID, committed.ID)

	var instructions string
	var iErr error
	if err := e.callAI(ctx, func(ctx context.Context) error {
		var innerErr error
		instructions, innerErr = e.AI.GenerateTaskInstructions(ctx, committed, agent)
		return innerErr
	}); err != nil {
		iErr = err
		e.Logger.Printf("[ASSIGNMENT] instructions unavailable for task %s: %v", committed.ID, iErr)
	}

	return &Result{
		Task:            committed,
		Instructions:    instructions,
		InstructionsErr: iErr,
		SuggestedBranch: git.BranchName(committed.ID, committed.Name),
	}, false, nil
}

// commit performs step 7 under the assignment lock: ledger insert,
// board update, and an assignment comment, compensating by removing
// the ledger entry if either board call fails, per §4.7's failure
// semantics and the create_task/add_comment Open Question decision.
func (e *Engine) commit(ctx context.Context, agentID string, task *domain.Task) (*domain.Task, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	if err := e.Ledger.Add(agentID, task.ID, domain.StatusInProgress); err != nil {
		return nil, err
	}

	status := domain.StatusInProgress
	update := kanban.TaskUpdate{Status: &status, AssignedTo: &agentID}
	if err := e.callProvider(ctx, func(ctx context.Context) error {
		return e.Provider.UpdateTask(ctx, task.ID, update)
	}); err != nil {
		e.Ledger.Remove(agentID)
		return nil, merrors.NewKanbanIntegrationError("kanban", "update_task",
			merrors.Context{AgentID: agentID, TaskID: task.ID}, err)
	}

	comment := fmt.Sprintf("assigned to %s", agentID)
	if err := e.callProvider(ctx, func(ctx context.Context) error {
		return e.Provider.AddComment(ctx, task.ID, comment)
	}); err != nil {
		e.Ledger.Remove(agentID)
		return nil, merrors.NewKanbanIntegrationError("kanban", "add_comment",
			merrors.Context{AgentID: agentID, TaskID: task.ID}, err)
	}

	task.Status = domain.StatusInProgress
	task.AssignedTo = agentID
	return task, nil
}

func (e *Engine) fetchAvailable(ctx context.Context) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := e.callProvider(ctx, func(ctx context.Context) error {
		t, err := e.Provider.GetAvailableTasks(ctx)
		tasks = t
		return err
	})
	if err != nil {
		return nil, merrors.NewKanbanIntegrationError("kanban", "get_available_tasks", merrors.Context{}, err)
	}
	return tasks, nil
}

func (e *Engine) fetchAll(ctx context.Context) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := e.callProvider(ctx, func(ctx context.Context) error {
		t, err := e.Provider.GetAllTasks(ctx)
		tasks = t
		return err
	})
	if err != nil {
		return nil, merrors.NewKanbanIntegrationError("kanban", "get_all_tasks", merrors.Context{}, err)
	}
	return tasks, nil
}

// callProvider runs fn through the retrier (if set) and breaker (if
// set), matching §4.4's "every call is wrapped by C1" rule without
// the Provider implementation itself knowing about retries.
func (e *Engine) callProvider(ctx context.Context, fn func(context.Context) error) error {
	run := fn
	if e.Breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return e.Breaker.Do(ctx, inner) }
	}
	if e.Retrier != nil {
		return e.Retrier.Do(ctx, "kanban_call", run)
	}
	return run(ctx)
}

// callAI mirrors callProvider for C12 AI adapter calls, wrapped by
// the "ai:{provider}" retrier/breaker pair per SPEC_FULL §5 instead
// of the kanban-named one above.
func (e *Engine) callAI(ctx context.Context, fn func(context.Context) error) error {
	run := fn
	if e.AIBreaker != nil {
		inner := run
		run = func(ctx context.Context) error { return e.AIBreaker.Do(ctx, inner) }
	}
	if e.AIRetrier != nil {
		return e.AIRetrier.Do(ctx, "ai_call", run)
	}
	return run(ctx)
}

// selectBest implements steps 2-5: exclusion, dependency filtering,
// scoring, and lexicographic tie-break.
func (e *Engine) selectBest(available []*domain.Task, byID map[string]*domain.Task, excluded map[string]bool, agent *domain.WorkerStatus) *domain.Task {
	now := time.Now()

	var candidates []*domain.Task
	for _, t := range available {
		if excluded[t.ID] {
			continue
		}
		if len(t.UnresolvedDependencies(byID)) > 0 {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	best := candidates[0]
	bestScore := e.Scoring.score(best, agent, now)
	for _, t := range candidates[1:] {
		s := e.Scoring.score(t, agent, now)
		if s > bestScore {
			best, bestScore = t, s
		}
	}
	return best
}
