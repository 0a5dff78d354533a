// Package registry implements the in-memory agent roster (C6): a
// map[agent_id]*WorkerStatus behind a RWMutex, with upsert semantics
// that refresh identity fields but never clobber live task/counter
// state, per §4.6.
package registry

import (
	"sync"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// Registry is the exclusive owner of the live agent roster.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*domain.WorkerStatus
}

func New() *Registry {
	return &Registry{agents: make(map[string]*domain.WorkerStatus)}
}

// Register inserts a new agent, or — if agentID is already present —
// refreshes name/role/skills/capacity while preserving current_tasks
// and the completed/performance counters, per §4.6's upsert rule.
func (r *Registry) Register(agentID, name, role string, skills []string, capacity int) *domain.WorkerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.agents[agentID]
	if !ok {
		w := &domain.WorkerStatus{
			AgentID:  agentID,
			Name:     name,
			Role:     role,
			Skills:   append([]string(nil), skills...),
			Capacity: capacity,
		}
		r.agents[agentID] = w
		return w
	}

	existing.Name = name
	existing.Role = role
	existing.Skills = append([]string(nil), skills...)
	existing.Capacity = capacity
	return existing
}

// Get returns the agent's live status, if registered.
func (r *Registry) Get(agentID string) (*domain.WorkerStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.agents[agentID]
	return w, ok
}

// All returns a defensive-copy snapshot of every registered agent.
func (r *Registry) All() []*domain.WorkerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.WorkerStatus, 0, len(r.agents))
	for _, w := range r.agents {
		cp := *w
		cp.Skills = append([]string(nil), w.Skills...)
		cp.CurrentTasks = append([]string(nil), w.CurrentTasks...)
		out = append(out, &cp)
	}
	return out
}

// Remove deletes an agent from the roster (used on explicit
// deregistration or shutdown cleanup).
func (r *Registry) Remove(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentID)
}

// AssignTask appends taskID to agentID's current_tasks, enforcing the
// |current_tasks| <= capacity invariant from §3.
func (r *Registry) AssignTask(agentID, taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.agents[agentID]
	if !ok || len(w.CurrentTasks) >= w.Capacity {
		return false
	}
	w.CurrentTasks = append(w.CurrentTasks, taskID)
	return true
}

// CompleteTask removes taskID from agentID's current_tasks and bumps
// the completed counter.
func (r *Registry) CompleteTask(agentID, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.agents[agentID]
	if !ok {
		return
	}
	w.CurrentTasks = removeString(w.CurrentTasks, taskID)
	w.CompletedCount++
}

// ReleaseTask removes taskID from agentID's current_tasks without
// crediting a completion (used on release/reassignment).
func (r *Registry) ReleaseTask(agentID, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.agents[agentID]
	if !ok {
		return
	}
	w.CurrentTasks = removeString(w.CurrentTasks, taskID)
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
