package domain

import "time"

// Mode selects whether a view follows the newest snapshot or a frozen cursor.
type Mode string

const (
	ModeLive   Mode = "live"   // Cursor pinned to the newest snapshot
	ModeReplay Mode = "replay" // Cursor controlled by the operator
)

// Snapshot is the full graph state captured at a step boundary.
// Snapshots are append-only; nothing rewrites or deletes them once stored.
type Snapshot struct {
	Step  int            `json:"step"`
	State map[string]any `json:"state"`
}

// Recording is the raw event log of a finished run, kept for offline replay.
type Recording struct {
	RunID      string    `json:"run_id"`
	Question   string    `json:"question,omitempty"`
	Events     []Event   `json:"events"`
	RecordedAt time.Time `json:"recorded_at"`
}
