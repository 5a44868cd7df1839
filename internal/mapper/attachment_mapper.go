package mapper

import (
	"ai-answer-engine-be/internal/entity"
	"ai-answer-engine-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type AttachmentMapper struct{}

func NewAttachmentMapper() *AttachmentMapper {
	return &AttachmentMapper{}
}

func (m *AttachmentMapper) ToModel(e *entity.Attachment) *model.Attachment {
	return &model.Attachment{
		Id:        e.Id,
		SessionId: e.SessionId,
		FileName:  e.FileName,
		Content:   e.Content,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (m *AttachmentMapper) ToEntity(md *model.Attachment) *entity.Attachment {
	return &entity.Attachment{
		Id:        md.Id,
		SessionId: md.SessionId,
		FileName:  md.FileName,
		Content:   md.Content,
		Status:    md.Status,
		CreatedAt: md.CreatedAt,
		UpdatedAt: md.UpdatedAt,
	}
}

type AttachmentSegmentMapper struct{}

func NewAttachmentSegmentMapper() *AttachmentSegmentMapper {
	return &AttachmentSegmentMapper{}
}

func (m *AttachmentSegmentMapper) ToModel(e *entity.AttachmentSegment) *model.AttachmentSegment {
	return &model.AttachmentSegment{
		Id:             e.Id,
		AttachmentId:   e.AttachmentId,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *AttachmentSegmentMapper) ToEntity(md *model.AttachmentSegment) *entity.AttachmentSegment {
	return &entity.AttachmentSegment{
		Id:             md.Id,
		AttachmentId:   md.AttachmentId,
		Document:       md.Document,
		EmbeddingValue: md.EmbeddingValue.Slice(),
		ChunkIndex:     md.ChunkIndex,
		CreatedAt:      md.CreatedAt,
	}
}
