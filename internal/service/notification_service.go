package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-answer-engine-be/internal/model"
	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/pkg/events"
	pktNats "ai-answer-engine-be/pkg/nats"
	"ai-answer-engine-be/pkg/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationDelivery defines how to push real-time updates.
// Implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(sessionID uuid.UUID, notification model.RunNotification)
	Broadcast(notification model.RunNotification)
}

// NotificationService relays run lifecycle events from the bus to connected
// sessions.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "run-notifier-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	// NATS subjects include the stream prefix.
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	switch typeCode {
	case "RUN_COMPLETED":
		return s.handleRunCompleted(event)
	case "SYSTEM_BROADCAST":
		return s.handleSystemBroadcast(event)
	default:
		s.logger.Debug("NotificationService", "Ignoring event", map[string]interface{}{"type": typeCode})
		return nil
	}
}

func (s *NotificationService) handleRunCompleted(event events.Event) error {
	payload := event.Payload()

	sessionStr, _ := payload["session_id"].(string)
	sessionID, err := uuid.Parse(sessionStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Run completion without valid session_id", map[string]interface{}{"payload": payload})
		return nil
	}

	runID, _ := payload["run_id"].(string)
	query, _ := payload["query"].(string)
	status, _ := payload["status"].(string)

	title := "Search complete"
	message := fmt.Sprintf("Your %s search finished", payload["mode"])
	if status == store.RunStatusFailed {
		title = "Search failed"
		if errMsg, ok := payload["error"].(string); ok && errMsg != "" {
			message = errMsg
		}
	}

	metaJSON, _ := json.Marshal(payload)

	notif := model.RunNotification{
		ID:        uuid.New(),
		SessionID: sessionID,
		RunID:     runID,
		Title:     title,
		Message:   message,
		Status:    status,
		Metadata:  datatypes.JSON(metaJSON),
		CreatedAt: time.Now(),
	}

	s.logger.Info("NotificationService", "Delivering run completion", map[string]interface{}{
		"run_id":     runID,
		"session_id": sessionID,
		"query":      query,
	})

	if s.delivery != nil {
		s.delivery.Send(sessionID, notif)
	}
	return nil
}

func (s *NotificationService) handleSystemBroadcast(event events.Event) error {
	payload := event.Payload()
	title, _ := payload["title"].(string)
	message, _ := payload["message"].(string)
	if title == "" || message == "" {
		return nil
	}

	metaJSON, _ := json.Marshal(payload)

	notif := model.RunNotification{
		ID:        uuid.New(),
		Title:     title,
		Message:   message,
		Metadata:  datatypes.JSON(metaJSON),
		CreatedAt: time.Now(),
	}

	if s.delivery != nil {
		s.delivery.Broadcast(notif)
	}
	return nil
}
