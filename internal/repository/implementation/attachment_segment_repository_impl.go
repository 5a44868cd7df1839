package implementation

import (
	"context"

	"ai-answer-engine-be/internal/entity"
	"ai-answer-engine-be/internal/mapper"
	"ai-answer-engine-be/internal/model"
	"ai-answer-engine-be/internal/repository/contract"
	"ai-answer-engine-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type AttachmentSegmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AttachmentSegmentMapper
}

func NewAttachmentSegmentRepository(db *gorm.DB) contract.AttachmentSegmentRepository {
	return &AttachmentSegmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewAttachmentSegmentMapper(),
	}
}

func (r *AttachmentSegmentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AttachmentSegmentRepositoryImpl) CreateBulk(ctx context.Context, segments []*entity.AttachmentSegment) error {
	if len(segments) == 0 {
		return nil
	}
	models := make([]*model.AttachmentSegment, len(segments))
	for i, s := range segments {
		models[i] = r.mapper.ToModel(s)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*segments[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *AttachmentSegmentRepositoryImpl) DeleteByAttachmentId(ctx context.Context, attachmentId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentId).
		Delete(&model.AttachmentSegment{}).Error
}

func (r *AttachmentSegmentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AttachmentSegment, error) {
	var models []*model.AttachmentSegment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.AttachmentSegment, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *AttachmentSegmentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.AttachmentSegment{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore ranks segments of the given attachments by cosine
// similarity. pgvector's <=> operator is cosine distance, so similarity is
// 1 - distance.
func (r *AttachmentSegmentRepositoryImpl) SearchSimilarWithScore(
	ctx context.Context,
	embedding []float32,
	attachmentIds []uuid.UUID,
	limit int,
	threshold float64,
) ([]*contract.ScoredSegment, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.AttachmentSegment
		FileName   string
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("attachment_segments").
		Select("attachment_segments.*, attachments.file_name, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN attachments ON attachments.id = attachment_segments.attachment_id").
		Where("attachment_segments.deleted_at IS NULL").
		Where("attachments.deleted_at IS NULL").
		Where("attachments.status = ?", entity.AttachmentStatusIndexed).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	if len(attachmentIds) > 0 {
		query = query.Where("attachment_segments.attachment_id IN ?", attachmentIds)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredSegment, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredSegment{
			Segment:    r.mapper.ToEntity(&res.AttachmentSegment),
			FileName:   res.FileName,
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
