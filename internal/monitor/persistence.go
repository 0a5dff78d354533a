package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Load reads patterns, correlation groups, and metrics history from
// the snapshot file at cfg.SnapshotPath. A missing file starts the
// monitor empty, matching the teacher's persistence.Store.Load.
func (m *Monitor) Load() error {
	if m.cfg.SnapshotPath == "" {
		return nil
	}
	data, err := os.ReadFile(m.cfg.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("monitor: read snapshot: %w", err)
	}

	var state diskState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("monitor: decode snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if state.Patterns != nil {
		m.patterns = state.Patterns
	}
	if state.CorrelationGroups != nil {
		m.correlationGroups = state.CorrelationGroups
	}
	m.metricsHistory = state.MetricsHistory
	return nil
}

// Save atomically replaces the snapshot file: write to a temp file in
// the same directory, fsync, then rename over the target.
func (m *Monitor) Save() error {
	if m.cfg.SnapshotPath == "" {
		return nil
	}

	m.mu.Lock()
	state := diskState{
		Patterns:          m.patterns,
		CorrelationGroups: m.correlationGroups,
		MetricsHistory:    m.metricsHistory,
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("monitor: encode snapshot: %w", err)
	}

	dir := filepath.Dir(m.cfg.SnapshotPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("monitor: mkdir snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".monitor-snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("monitor: create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("monitor: write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("monitor: fsync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("monitor: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, m.cfg.SnapshotPath); err != nil {
		return fmt.Errorf("monitor: rename snapshot into place: %w", err)
	}
	return nil
}

// tick appends a metrics snapshot, prunes patterns older than
// PatternRetention and correlation groups older than
// CorrelationRetention, caps metrics history, and persists.
func (m *Monitor) tick() {
	m.mu.Lock()
	now := time.Now()

	snap := MetricsSnapshot{
		Timestamp:      now,
		Total:          m.total,
		ByType:         cloneCounts(m.byType),
		BySeverity:     cloneCounts(m.bySeverity),
		ByCategory:     cloneCounts(m.byCategory),
		CriticalCount:  m.criticalCount,
		RetryableCount: m.retryableCount,
	}
	m.metricsHistory = append(m.metricsHistory, snap)
	if len(m.metricsHistory) > m.cfg.MetricsHistoryCap {
		m.metricsHistory = m.metricsHistory[len(m.metricsHistory)-m.cfg.MetricsHistoryCap:]
	}

	patternCutoff := now.Add(-m.cfg.PatternRetention)
	for k, p := range m.patterns {
		if p.LastSeen.Before(patternCutoff) {
			delete(m.patterns, k)
		}
	}

	groupCutoff := now.Add(-m.cfg.CorrelationRetention)
	for k, g := range m.correlationGroups {
		if g.EndTime.Before(groupCutoff) {
			delete(m.correlationGroups, k)
		}
	}
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		m.logger.Printf("[MONITOR] snapshot save failed: %v", err)
	}
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Run starts the background snapshot/cleanup ticker; it blocks until
// ctx is cancelled. Intended to run in its own goroutine, mirroring
// the teacher's single periodic worker pattern.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.cfg.SnapshotInterval
	if interval <= 0 {
		interval = DefaultConfig().SnapshotInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()

			report := m.HealthReport()
			if report.Status == "poor" || report.Status == "critical" {
				if m.notifier != nil {
					if err := m.notifier.NotifyHealthDegraded(ctx, report); err != nil {
						m.logger.Printf("[MONITOR] health alert failed: %v", err)
					}
				}
			}
		}
	}
}
