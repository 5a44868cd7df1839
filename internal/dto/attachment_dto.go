package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateAttachmentRequest struct {
	SessionId string `json:"session_id" validate:"required,uuid4"`
	FileName  string `json:"file_name" validate:"required,min=1,max=255"`
	Content   string `json:"content" validate:"required,min=1"`
}

type AttachmentResponse struct {
	Id        uuid.UUID `json:"id"`
	SessionId uuid.UUID `json:"session_id"`
	FileName  string    `json:"file_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestAttachmentMessage is the payload published to the ingestion topic.
type IngestAttachmentMessage struct {
	AttachmentId uuid.UUID `json:"attachment_id"`
}
