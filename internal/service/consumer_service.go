package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-answer-engine-be/internal/dto"
	"ai-answer-engine-be/internal/entity"
	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/internal/repository/implementation"
	"ai-answer-engine-be/internal/repository/specification"
	"ai-answer-engine-be/pkg/embedding"
	"ai-answer-engine-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chunk bounds for attachment ingestion. Characters, not tokens; conservative
// for embedding model context limits.
const (
	ingestChunkSize    = 1500
	ingestChunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	db                *gorm.DB
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	db *gorm.DB,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		db:                db,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestAttachmentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal ingest message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("ConsumerService", "Processing attachment ingestion", map[string]interface{}{"attachment_id": payload.AttachmentId})

	attachmentRepo := implementation.NewAttachmentRepository(cs.db)
	attachment, err := attachmentRepo.FindOne(ctx, specification.ByID{ID: payload.AttachmentId})
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to load attachment", map[string]interface{}{"attachment_id": payload.AttachmentId, "error": err.Error()})
		msg.Nack() // Nack for retriable errors
		return
	}
	if attachment == nil {
		cs.logger.Warn("ConsumerService", "Attachment not found, skipping", map[string]interface{}{"attachment_id": payload.AttachmentId})
		msg.Ack() // Deleted before ingestion? Ack.
		return
	}

	chunks := utils.SplitText(attachment.Content, ingestChunkSize, ingestChunkOverlap)
	cs.logger.Info("ConsumerService", "Attachment split into chunks", map[string]interface{}{
		"attachment_id": attachment.Id,
		"chunks":        len(chunks),
	})

	vectors, err := cs.embeddingProvider.EmbedDocuments(ctx, chunks)
	if err != nil {
		cs.logger.Error("ConsumerService", "Embedding failed", map[string]interface{}{"attachment_id": attachment.Id, "error": err.Error()})
		_ = attachmentRepo.UpdateStatus(ctx, attachment.Id, entity.AttachmentStatusFailed)
		msg.Nack()
		return
	}

	segments := make([]*entity.AttachmentSegment, 0, len(chunks))
	for i, chunk := range chunks {
		if i >= len(vectors) {
			break
		}
		segments = append(segments, &entity.AttachmentSegment{
			Id:             uuid.New(),
			AttachmentId:   attachment.Id,
			Document:       chunk,
			EmbeddingValue: vectors[i],
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})
	}

	// Replace old segments and write new ones atomically, then flip status.
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		segmentRepo := implementation.NewAttachmentSegmentRepository(tx)
		if err := segmentRepo.DeleteByAttachmentId(ctx, attachment.Id); err != nil {
			return err
		}
		return segmentRepo.CreateBulk(ctx, segments)
	})
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to store segments", map[string]interface{}{"attachment_id": attachment.Id, "error": err.Error()})
		msg.Nack()
		return
	}

	if err := attachmentRepo.UpdateStatus(ctx, attachment.Id, entity.AttachmentStatusIndexed); err != nil {
		cs.logger.Error("ConsumerService", "Failed to mark attachment indexed", map[string]interface{}{"attachment_id": attachment.Id, "error": err.Error()})
		msg.Nack()
		return
	}

	cs.logger.Info("ConsumerService", "Attachment indexed", map[string]interface{}{
		"attachment_id": attachment.Id,
		"segments":      len(segments),
	})
	msg.Ack()
}
