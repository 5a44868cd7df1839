package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	AttachmentStatusPending  = "pending"
	AttachmentStatusIndexed  = "indexed"
	AttachmentStatusFailed   = "failed"
	AttachmentStatusDeleting = "deleting"
)

// Attachment is a user-supplied document made searchable for Pro/Ultra runs.
type Attachment struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	FileName  string
	Content   string
	Status    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// AttachmentSegment is one embedded chunk of an attachment.
type AttachmentSegment struct {
	Id             uuid.UUID
	AttachmentId   uuid.UUID
	Document       string
	EmbeddingValue []float32
	ChunkIndex     int
	CreatedAt      time.Time
}
