package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BySessionID filters attachments owned by a session.
type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByAttachmentID filters segments of one attachment.
type ByAttachmentID struct {
	AttachmentID uuid.UUID
}

func (s ByAttachmentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("attachment_id = ?", s.AttachmentID)
}

// ByStatus filters attachments by ingestion status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
