// Package reconcile implements the background Reconciliation Monitor
// (C9): a periodic loop comparing the ledger with kanban truth and
// resolving drift, per §4.9.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-mcp/marcus/internal/domain"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/registry"
)

// SyncState is the health datum's coarse classification.
type SyncState string

const (
	SyncInSync   SyncState = "in_sync"
	SyncDrifting SyncState = "drifting"
	SyncDegraded SyncState = "degraded"
)

// EventSink receives one ReconciliationEvent per correction, for the
// realtime event log (C10) to append.
type EventSink interface {
	RecordReconciliation(ctx context.Context, e domain.ReconciliationEvent)
}

// Config tunes the tick period and heartbeat-timeout bounds from §4.9.
type Config struct {
	TickInterval          time.Duration
	HeartbeatMultiplier    float64
	HeartbeatFloor         time.Duration
	HeartbeatCeiling       time.Duration
	DefaultAverageTaskTime time.Duration
}

// DefaultConfig matches §4.9: 60s tick, 2x average task time bounded
// to [30m, 24h].
func DefaultConfig() Config {
	return Config{
		TickInterval:           60 * time.Second,
		HeartbeatMultiplier:    2.0,
		HeartbeatFloor:         30 * time.Minute,
		HeartbeatCeiling:       24 * time.Hour,
		DefaultAverageTaskTime: 2 * time.Hour,
	}
}

// Monitor runs the background reconciliation loop.
type Monitor struct {
	Provider kanban.Provider
	Ledger   *ledger.Ledger
	Registry *registry.Registry
	Sink     EventSink
	Config   Config
	Logger   *log.Logger

	health domain.HealthDatum
}

func New(provider kanban.Provider, led *ledger.Ledger, reg *registry.Registry, sink EventSink, cfg Config, logger *log.Logger) *Monitor {
	if cfg.TickInterval == 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		Provider: provider,
		Ledger:   led,
		Registry: reg,
		Sink:     sink,
		Config:   cfg,
		Logger:   logger,
		health:   domain.HealthDatum{SyncState: string(SyncInSync)},
	}
}

// Run executes the tick loop until ctx is cancelled. An in-flight
// tick is allowed to finish before the loop observes cancellation,
// per §4.9/§5.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation pass: the 4 steps from §4.9.
func (m *Monitor) Tick(ctx context.Context) {
	entries := m.Ledger.GetAll()
	corrections := 0

	for agentID, assignment := range entries {
		task, err := m.Provider.GetTaskByID(ctx, assignment.TaskID)
		if err != nil {
			m.Logger.Printf("[RECONCILE] could not fetch task %s for agent %s: %v", assignment.TaskID, agentID, err)
			continue
		}

		if m.isDrifted(task, agentID) {
			m.correct(ctx, agentID, assignment, "task reassigned or completed externally")
			corrections++
			continue
		}

		timeout := m.heartbeatTimeout(agentID)
		if time.Since(assignment.LastHeartbeat) > timeout {
			m.markSilent(ctx, agentID, assignment)
			corrections++
		}
	}

	m.updateHealth(corrections)
}

// isDrifted reports whether the board disagrees with the ledger: the
// task is DONE, back in TODO, or reassigned to a different agent.
func (m *Monitor) isDrifted(task *domain.Task, agentID string) bool {
	if task.Status == domain.StatusDone {
		return true
	}
	if task.Status == domain.StatusTODO {
		return true
	}
	if task.AssignedTo != "" && task.AssignedTo != agentID {
		return true
	}
	return false
}

func (m *Monitor) correct(ctx context.Context, agentID string, assignment domain.Assignment, reason string) {
	if err := m.Ledger.Remove(agentID); err != nil {
		m.Logger.Printf("[RECONCILE] failed to drop ledger entry for %s: %v", agentID, err)
		return
	}
	m.Registry.ReleaseTask(agentID, assignment.TaskID)
	m.emit(ctx, domain.ReconciliationEvent{
		EventID:     uuid.New().String(),
		AgentID:     agentID,
		TaskID:      assignment.TaskID,
		Kind:        "reconciliation_corrected",
		Description: reason,
		OccurredAt:  time.Now(),
	})
}

func (m *Monitor) markSilent(ctx context.Context, agentID string, assignment domain.Assignment) {
	blocked := domain.StatusBlocked
	reason := "agent silent"
	if err := m.Provider.UpdateTask(ctx, assignment.TaskID, kanban.TaskUpdate{Status: &blocked, Blocker: &reason}); err != nil {
		m.Logger.Printf("[RECONCILE] failed to mark task %s blocked: %v", assignment.TaskID, err)
		return
	}
	m.correct(ctx, agentID, assignment, fmt.Sprintf("heartbeat timeout: %s", reason))
}

// heartbeatTimeout computes the per-agent timeout from §4.9's formula:
// 2x average task time, floor 30m, ceiling 24h.
func (m *Monitor) heartbeatTimeout(agentID string) time.Duration {
	avg := m.Config.DefaultAverageTaskTime
	if w, ok := m.Registry.Get(agentID); ok && w.CompletedCount > 0 {
		// No per-agent timing history is tracked in this design beyond
		// the completed counter, so the configured default stands in
		// for "average task time" until a real timing series exists.
		_ = w
	}

	timeout := time.Duration(float64(avg) * m.Config.HeartbeatMultiplier)
	if timeout < m.Config.HeartbeatFloor {
		timeout = m.Config.HeartbeatFloor
	}
	if timeout > m.Config.HeartbeatCeiling {
		timeout = m.Config.HeartbeatCeiling
	}
	return timeout
}

func (m *Monitor) updateHealth(corrections int) {
	m.health.LastTick = time.Now()
	m.health.CorrectionsLastTick = corrections
	if corrections == 0 {
		m.health.DriftCount = 0
		m.health.SyncState = string(SyncInSync)
		return
	}
	m.health.DriftCount += corrections
	if m.health.DriftCount > 10 {
		m.health.SyncState = string(SyncDegraded)
	} else {
		m.health.SyncState = string(SyncDrifting)
	}
}

// Health returns the current sync-health datum.
func (m *Monitor) Health() domain.HealthDatum {
	return m.health
}

func (m *Monitor) emit(ctx context.Context, e domain.ReconciliationEvent) {
	if m.Sink == nil {
		return
	}
	m.Sink.RecordReconciliation(ctx, e)
}
