// Package snapshot implements the project-health aggregator (C11): a
// cached rollup of the kanban board into the shape spec.md §4.11
// names for dashboards and the get_project_status tool.
package snapshot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/kanban"
)

// RiskLevel classifies the board's overall health.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Snapshot is the computed rollup, per §4.11.
type Snapshot struct {
	Total           int       `json:"total"`
	Done            int       `json:"done"`
	InProgress      int       `json:"in_progress"`
	Blocked         int       `json:"blocked"`
	ProgressPercent float64   `json:"progress_percent"`
	TeamVelocity    float64   `json:"team_velocity"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ComputedAt      time.Time `json:"computed_at"`
}

// Aggregator computes and caches Snapshot, refreshed on a tick (default
// 5 minutes) or on demand via Compute.
type Aggregator struct {
	Provider kanban.Provider
	Interval time.Duration
	Logger   *log.Logger

	mu       sync.RWMutex
	cached   Snapshot
	hasValue bool
}

func New(provider kanban.Provider, interval time.Duration, logger *log.Logger) *Aggregator {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{Provider: provider, Interval: interval, Logger: logger}
}

// Run refreshes the cached snapshot on Interval until ctx is cancelled.
// An initial compute happens immediately so the first reader never
// blocks on the first tick.
func (a *Aggregator) Run(ctx context.Context) {
	if _, err := a.Compute(ctx); err != nil {
		a.Logger.Printf("[SNAPSHOT] initial compute failed: %v", err)
	}

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Compute(ctx); err != nil {
				a.Logger.Printf("[SNAPSHOT] compute failed: %v", err)
			}
		}
	}
}

// Compute builds a fresh Snapshot from the board and caches it.
func (a *Aggregator) Compute(ctx context.Context) (Snapshot, error) {
	tasks, err := a.Provider.GetAllTasks(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	s := Snapshot{ComputedAt: time.Now()}
	var completedLast7Days int
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	for _, t := range tasks {
		s.Total++
		switch t.Status {
		case domain.StatusDone:
			s.Done++
			if t.UpdatedAt.After(cutoff) {
				completedLast7Days++
			}
		case domain.StatusInProgress:
			s.InProgress++
		case domain.StatusBlocked:
			s.Blocked++
		}
	}

	if s.Total > 0 {
		s.ProgressPercent = float64(s.Done) / float64(s.Total) * 100
	}
	s.TeamVelocity = float64(completedLast7Days) / 7.0
	s.RiskLevel = computeRisk(s, tasks)

	a.mu.Lock()
	a.cached = s
	a.hasValue = true
	a.mu.Unlock()

	return s, nil
}

// computeRisk maps §4.11's thresholds: more than 5 blocked tasks, or
// any overdue task, is HIGH; more than 2 blocked is MEDIUM; else LOW.
func computeRisk(s Snapshot, tasks []*domain.Task) RiskLevel {
	if s.Blocked > 5 || hasOverdue(tasks) {
		return RiskHigh
	}
	if s.Blocked > 2 {
		return RiskMedium
	}
	return RiskLow
}

func hasOverdue(tasks []*domain.Task) bool {
	now := time.Now()
	for _, t := range tasks {
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != domain.StatusDone {
			return true
		}
	}
	return false
}

// Cached returns the most recently computed snapshot, if any.
func (a *Aggregator) Cached() (Snapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cached, a.hasValue
}
