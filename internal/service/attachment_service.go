package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-answer-engine-be/internal/dto"
	"ai-answer-engine-be/internal/entity"
	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/internal/repository/contract"
	"ai-answer-engine-be/internal/repository/specification"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAttachmentService interface {
	Create(ctx context.Context, req *dto.CreateAttachmentRequest) (*dto.AttachmentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.AttachmentResponse, error)
	ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*dto.AttachmentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type attachmentService struct {
	attachmentRepo   contract.AttachmentRepository
	segmentRepo      contract.AttachmentSegmentRepository
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewAttachmentService(
	attachmentRepo contract.AttachmentRepository,
	segmentRepo contract.AttachmentSegmentRepository,
	publisherService IPublisherService,
	log logger.ILogger,
) IAttachmentService {
	return &attachmentService{
		attachmentRepo:   attachmentRepo,
		segmentRepo:      segmentRepo,
		publisherService: publisherService,
		logger:           log,
	}
}

// Create stores the attachment and queues it for embedding. Indexing happens
// asynchronously; status moves to indexed once segments are written.
func (s *attachmentService) Create(ctx context.Context, req *dto.CreateAttachmentRequest) (*dto.AttachmentResponse, error) {
	sessionId, err := uuid.Parse(req.SessionId)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	attachment := &entity.Attachment{
		Id:        uuid.New(),
		SessionId: sessionId,
		FileName:  req.FileName,
		Content:   req.Content,
		Status:    entity.AttachmentStatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}

	msg := dto.IngestAttachmentMessage{AttachmentId: attachment.Id}
	msgJson, _ := json.Marshal(msg)
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		s.logger.Error("AttachmentService", "Failed to queue attachment for ingestion", map[string]interface{}{
			"attachment_id": attachment.Id,
			"error":         err.Error(),
		})
		return nil, err
	}

	s.logger.Info("AttachmentService", "Attachment queued for ingestion", map[string]interface{}{
		"attachment_id": attachment.Id,
		"file_name":     attachment.FileName,
	})
	return toAttachmentResponse(attachment), nil
}

func (s *attachmentService) Show(ctx context.Context, id uuid.UUID) (*dto.AttachmentResponse, error) {
	attachment, err := s.attachmentRepo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "attachment not found")
	}
	return toAttachmentResponse(attachment), nil
}

func (s *attachmentService) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*dto.AttachmentResponse, error) {
	attachments, err := s.attachmentRepo.FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.AttachmentResponse, len(attachments))
	for i, a := range attachments {
		out[i] = toAttachmentResponse(a)
	}
	return out, nil
}

func (s *attachmentService) Delete(ctx context.Context, id uuid.UUID) error {
	attachment, err := s.attachmentRepo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if attachment == nil {
		return fiber.NewError(fiber.StatusNotFound, "attachment not found")
	}

	if err := s.segmentRepo.DeleteByAttachmentId(ctx, id); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	return s.attachmentRepo.Delete(ctx, id)
}

func toAttachmentResponse(a *entity.Attachment) *dto.AttachmentResponse {
	return &dto.AttachmentResponse{
		Id:        a.Id,
		SessionId: a.SessionId,
		FileName:  a.FileName,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}
