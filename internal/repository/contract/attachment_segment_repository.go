package contract

import (
	"context"

	"ai-answer-engine-be/internal/entity"
	"ai-answer-engine-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredSegment pairs a segment with its cosine similarity to a query vector.
type ScoredSegment struct {
	Segment    *entity.AttachmentSegment
	FileName   string
	Similarity float64
}

type AttachmentSegmentRepository interface {
	CreateBulk(ctx context.Context, segments []*entity.AttachmentSegment) error
	DeleteByAttachmentId(ctx context.Context, attachmentId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AttachmentSegment, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore returns segments of the given attachments ranked
	// by cosine similarity, filtered by threshold.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, attachmentIds []uuid.UUID, limit int, threshold float64) ([]*ScoredSegment, error)
}
