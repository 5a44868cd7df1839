package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RunNotification is the real-time payload pushed when a run finishes. It is
// ephemeral; nothing is persisted.
type RunNotification struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	RunID     string         `json:"run_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Status    string         `json:"status"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
