// Package monitor implements the process-wide error monitor (C2):
// bounded error history, pattern detection, correlation grouping, and
// a derived health score, adapted from the teacher's alert-dedup style
// in internal/metrics.
package monitor

import (
	"time"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

// ErrorRecord is a single ingested observation, the monitor's internal
// shape of a merrors.MarcusError.
type ErrorRecord struct {
	CorrelationID   string            `json:"correlation_id"`
	ErrorCode       string            `json:"error_code"`
	ErrorType       string            `json:"error_type"`
	Severity        merrors.Severity  `json:"severity"`
	Category        merrors.Category  `json:"category"`
	Retryable       bool              `json:"retryable"`
	Timestamp       time.Time         `json:"timestamp"`
	Operation       string            `json:"operation"`
	AgentID         string            `json:"agent_id,omitempty"`
	TaskID          string            `json:"task_id,omitempty"`
	IntegrationName string            `json:"integration_name,omitempty"`
	CustomContext   map[string]any    `json:"custom_context,omitempty"`
}

func recordFrom(e *merrors.MarcusError) ErrorRecord {
	return ErrorRecord{
		CorrelationID:   e.Context.CorrelationID,
		ErrorCode:       e.Code,
		ErrorType:       string(e.Variant),
		Severity:        e.Severity,
		Category:        e.Category,
		Retryable:       e.Retryable,
		Timestamp:       timeOrNow(e.Context.Timestamp),
		Operation:       e.Context.Operation,
		AgentID:         e.Context.AgentID,
		TaskID:          e.Context.TaskID,
		IntegrationName: e.Context.IntegrationName,
		CustomContext:   e.Context.Custom,
	}
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// PatternType enumerates the four detectors in §4.2.
type PatternType string

const (
	PatternFrequency    PatternType = "frequency"
	PatternBurst        PatternType = "burst"
	PatternAgentSpecific PatternType = "agent_specific"
	PatternCascade      PatternType = "cascade"
)

// ErrorPattern is a derived, deduplicated-by-key pattern occurrence.
type ErrorPattern struct {
	PatternID          string           `json:"pattern_id"`
	PatternType        PatternType      `json:"pattern_type"`
	Description        string           `json:"description"`
	Frequency          int              `json:"frequency"`
	FirstSeen          time.Time        `json:"first_seen"`
	LastSeen           time.Time        `json:"last_seen"`
	Severity           merrors.Severity `json:"severity"`
	AffectedAgents     []string         `json:"affected_agents"`
	AffectedOperations []string         `json:"affected_operations"`
}

// CorrelationGroup tracks one operation|agent|integration key's
// recent errors.
type CorrelationGroup struct {
	GroupID        string    `json:"group_id"`
	CorrelationKey string    `json:"correlation_key"`
	ErrorIDs       []string  `json:"error_ids"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// HealthReport is the derived [0,100] score and supporting detail.
type HealthReport struct {
	Score                int               `json:"score"`
	Status               string            `json:"status"`
	ErrorRatePerMinute    float64           `json:"error_rate_per_minute"`
	CriticalErrorCount    int               `json:"critical_error_count"`
	ActivePatternCount    int               `json:"active_pattern_count"`
	TopErrorTypes         []CountEntry      `json:"top_error_types"`
	TopAgents             []CountEntry      `json:"top_error_prone_agents"`
	TopIntegrations       []CountEntry      `json:"top_error_prone_integrations"`
	Recommendations       []string          `json:"recommendations"`
	GeneratedAt           time.Time         `json:"generated_at"`
}

// CountEntry is a name/count pair used for health report top-N lists.
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Config tunes detector thresholds and background behavior; all
// fields default to the values named in §4.2.
type Config struct {
	HistorySize             int
	FrequencyThreshold      int
	FrequencyWindow         time.Duration
	BurstThreshold          int
	BurstWindow             time.Duration
	AgentErrorThreshold     int
	AgentWindow             time.Duration
	CascadeThreshold        int
	CascadeWindow           time.Duration
	CascadeLookback         int
	CorrelationTimeout      time.Duration
	SnapshotInterval        time.Duration
	PatternRetention        time.Duration
	CorrelationRetention    time.Duration
	MetricsHistoryCap       int
	SnapshotPath            string
}

// DefaultConfig matches the thresholds and windows from §4.2.
func DefaultConfig() Config {
	return Config{
		HistorySize:          10000,
		FrequencyThreshold:   10,
		FrequencyWindow:      10 * time.Minute,
		BurstThreshold:       15,
		BurstWindow:          5 * time.Minute,
		AgentErrorThreshold:  8,
		AgentWindow:          30 * time.Minute,
		CascadeThreshold:     5,
		CascadeWindow:        5 * time.Minute,
		CascadeLookback:      50,
		CorrelationTimeout:   15 * time.Minute,
		SnapshotInterval:     5 * time.Minute,
		PatternRetention:     7 * 24 * time.Hour,
		CorrelationRetention: 24 * time.Hour,
		MetricsHistoryCap:    1000,
	}
}

// MetricsSnapshot is one point of the periodic history persisted to
// disk alongside patterns.
type MetricsSnapshot struct {
	Timestamp       time.Time          `json:"timestamp"`
	Total           int                `json:"total"`
	ByType          map[string]int     `json:"by_type"`
	BySeverity      map[string]int     `json:"by_severity"`
	ByCategory      map[string]int     `json:"by_category"`
	CriticalCount   int                `json:"critical_count"`
	RetryableCount  int                `json:"retryable_count"`
}

// diskState is the persisted snapshot shape: patterns, correlation
// groups, and recent metrics history. The raw error ring is in-memory
// only, per §4.2.
type diskState struct {
	Patterns          map[string]*ErrorPattern     `json:"patterns"`
	CorrelationGroups map[string]*CorrelationGroup `json:"correlation_groups"`
	MetricsHistory    []MetricsSnapshot            `json:"metrics_history"`
}
