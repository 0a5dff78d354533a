package domain

import "time"

// Assignment is a ledger record: at most one per agent, per §3.
type Assignment struct {
	TaskID             string    `json:"task_id"`
	AssignedAt         time.Time `json:"assigned_at"`
	StatusAtAssignment Status    `json:"status_at_assignment"`
	LastHeartbeat      time.Time `json:"last_heartbeat"`
}

// BoardSummary is the aggregate the kanban provider reports for
// snapshotting, per §4.4's get_board_summary.
type BoardSummary struct {
	TotalCards      int `json:"total_cards"`
	DoneCount       int `json:"done_count"`
	InProgressCount int `json:"in_progress_count"`
	BacklogCount    int `json:"backlog_count"`
	BlockedCount    int `json:"blocked_count"`
}

// ReconciliationEvent records one correction C9 made between the
// ledger and the kanban board's truth.
type ReconciliationEvent struct {
	EventID     string    `json:"event_id"`
	AgentID     string    `json:"agent_id,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// HealthDatum is C9's self-reported sync health, per SPEC_FULL §4.
type HealthDatum struct {
	SyncState           string    `json:"sync_state"`
	LastTick            time.Time `json:"last_tick"`
	CorrectionsLastTick int       `json:"corrections_last_tick"`
	DriftCount          int       `json:"drift_count"`
}
