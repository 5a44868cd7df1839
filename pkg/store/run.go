package store

import "time"

// Run statuses for the in-memory run state store.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// RunState is the active orchestration run tracked per session in memory.
type RunState struct {
	ID        string    `json:"id"` // run id
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Mode      string    `json:"mode"` // "quick" | "pro" | "ultra"
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	// Terminal summary once the run finishes.
	SourceCount int    `json:"source_count"`
	Answer      string `json:"answer,omitempty"`
	Error       string `json:"error,omitempty"`
}
