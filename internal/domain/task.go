// Package domain holds the shared data model (§3 of the spec): Task,
// WorkerStatus, Assignment, and the few small derived types that cut
// across kanban, ledger, registry, assignment, lifecycle, and
// snapshot. Grounded on the teacher's internal/tasks/types.go for
// field layout and its status-transition-table idiom.
package domain

import (
	"fmt"
	"time"
)

// Status is a task's lifecycle state on the board.
type Status string

const (
	StatusTODO       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusBlocked    Status = "BLOCKED"
	StatusDone       Status = "DONE"
)

// Priority ranks a task for scoring purposes; higher is more urgent.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// priorityWeight gives each Priority a numeric value for the
// composite scoring formula in C7.
var priorityWeight = map[Priority]float64{
	PriorityLow:    0.25,
	PriorityMedium: 0.5,
	PriorityHigh:   0.75,
	PriorityUrgent: 1.0,
}

// Weight returns p's numeric weight, defaulting to Medium's for an
// unrecognized value rather than panicking on bad board data.
func (p Priority) Weight() float64 {
	if w, ok := priorityWeight[p]; ok {
		return w
	}
	return priorityWeight[PriorityMedium]
}

// validTransitions mirrors the teacher's transition table idiom,
// restricted to the four Marcus statuses.
var validTransitions = map[Status][]Status{
	StatusTODO:       {StatusInProgress, StatusBlocked},
	StatusInProgress: {StatusBlocked, StatusDone, StatusTODO},
	StatusBlocked:    {StatusInProgress, StatusTODO},
	StatusDone:       {},
}

// Task is the unit of work mirrored from the kanban board, per §3.
type Task struct {
	ID             string            `json:"id"`
	ExternalRef    string            `json:"external_ref,omitempty"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Status         Status            `json:"status"`
	Priority       Priority          `json:"priority"`
	AssignedTo     string            `json:"assigned_to,omitempty"`
	Labels         []string          `json:"labels,omitempty"`
	Dependencies   []string          `json:"dependencies,omitempty"`
	EstimatedHours float64           `json:"estimated_hours,omitempty"`
	ActualHours    float64           `json:"actual_hours,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Validate enforces the invariants from spec §3: a DONE task must
// have non-negative actual hours, and assignment implies an active
// status (checked on transition, not on raw reads of board data).
func (t *Task) Validate() error {
	if t.Status == StatusDone && t.ActualHours < 0 {
		return fmt.Errorf("task %s: actual_hours must be >= 0 when DONE", t.ID)
	}
	if t.AssignedTo != "" && t.Status != StatusInProgress && t.Status != StatusBlocked {
		return fmt.Errorf("task %s: assigned_to set but status is %s", t.ID, t.Status)
	}
	return nil
}

// CanTransitionTo reports whether newStatus is reachable from t's
// current status.
func (t *Task) CanTransitionTo(newStatus Status) bool {
	for _, s := range validTransitions[t.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// HasLabel reports whether label (case-sensitive, matching board
// convention) is present.
func (t *Task) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// UnresolvedDependencies returns the subset of t.Dependencies whose
// corresponding task in byID is not DONE (or missing entirely, which
// is treated as unresolved — a dangling dependency should not let a
// task be assigned).
func (t *Task) UnresolvedDependencies(byID map[string]*Task) []string {
	var unresolved []string
	for _, dep := range t.Dependencies {
		d, ok := byID[dep]
		if !ok || d.Status != StatusDone {
			unresolved = append(unresolved, dep)
		}
	}
	return unresolved
}
