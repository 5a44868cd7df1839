package service

import (
	"context"
	"sync"
	"time"

	"ai-answer-engine-be/internal/dto"
	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/internal/repository/memory"
	"ai-answer-engine-be/pkg/events"
	pktNats "ai-answer-engine-be/pkg/nats"
	"ai-answer-engine-be/pkg/orchestrator"
	"ai-answer-engine-be/pkg/pool"
	"ai-answer-engine-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISearchService interface {
	// StreamSearch starts a run and returns its state plus the live event
	// stream. The stream always terminates with an end event.
	StreamSearch(ctx context.Context, req *dto.SearchRequest) (*store.RunState, <-chan orchestrator.Event, error)

	// Search runs to completion and assembles a one-shot response.
	Search(ctx context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error)

	GetRun(runID string) (*store.RunState, error)
	ListRuns(sessionID string) []*store.RunState
}

type searchService struct {
	orchestrator *orchestrator.Orchestrator
	runRepo      *memory.RunRepository
	prioritizer  *pool.QueryPrioritizer
	natsPub      *pktNats.Publisher
	logger       logger.ILogger

	// slots bounds concurrent runs; waiters park here ordered by priority.
	slots   chan struct{}
	mu      sync.Mutex
	waiters map[*pool.PendingQuery]chan struct{}
}

func NewSearchService(
	orch *orchestrator.Orchestrator,
	runRepo *memory.RunRepository,
	prioritizer *pool.QueryPrioritizer,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
	maxConcurrentRuns int,
) ISearchService {
	if maxConcurrentRuns <= 0 {
		maxConcurrentRuns = 8
	}
	return &searchService{
		orchestrator: orch,
		runRepo:      runRepo,
		prioritizer:  prioritizer,
		natsPub:      natsPub,
		logger:       log,
		slots:        make(chan struct{}, maxConcurrentRuns),
		waiters:      make(map[*pool.PendingQuery]chan struct{}),
	}
}

// admit acquires a run slot. When saturated, the caller parks in the priority
// queue and is released in score order as slots free up.
func (s *searchService) admit(ctx context.Context, query string) (func(), error) {
	select {
	case s.slots <- struct{}{}:
	default:
		pending := s.prioritizer.Enqueue(query, pool.TierFree)
		ready := make(chan struct{})
		s.mu.Lock()
		s.waiters[pending] = ready
		s.mu.Unlock()

		s.logger.Info("SearchService", "Run queued, waiting for a slot", map[string]interface{}{
			"priority": pending.Priority,
			"pending":  s.prioritizer.Pending(),
		})

		select {
		case <-ready:
			// The releasing run handed us its slot.
		case <-ctx.Done():
			s.mu.Lock()
			delete(s.waiters, pending)
			s.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	s.prioritizer.SetResourcePressure(float64(len(s.slots)) / float64(cap(s.slots)))
	return s.release, nil
}

// release hands the slot to the highest-priority waiter, or frees it.
// Dequeued entries whose waiter already gave up are skipped.
func (s *searchService) release() {
	s.mu.Lock()
	for {
		pending := s.prioritizer.Dequeue()
		if pending == nil {
			break
		}
		ready, ok := s.waiters[pending]
		if !ok {
			continue
		}
		delete(s.waiters, pending)
		s.mu.Unlock()
		close(ready)
		return
	}
	s.mu.Unlock()
	<-s.slots
	s.prioritizer.SetResourcePressure(float64(len(s.slots)) / float64(cap(s.slots)))
}

func (s *searchService) StreamSearch(ctx context.Context, req *dto.SearchRequest) (*store.RunState, <-chan orchestrator.Event, error) {
	mode := orchestrator.Mode(req.Mode)
	if !mode.Valid() {
		mode = orchestrator.ModeQuick
	}

	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	release, err := s.admit(ctx, req.Query)
	if err != nil {
		return nil, nil, err
	}

	run := &store.RunState{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Query:     req.Query,
		Mode:      string(mode),
		Status:    store.RunStatusRunning,
		StartedAt: time.Now(),
	}
	s.runRepo.Save(run)

	history := make([]orchestrator.HistoryMessage, len(req.History))
	for i, h := range req.History {
		history[i] = orchestrator.HistoryMessage{Role: h.Role, Content: h.Content}
	}

	stream := s.orchestrator.Run(ctx, orchestrator.SearchRequest{
		RunID:         run.ID,
		Query:         req.Query,
		History:       history,
		Mode:          mode,
		AttachmentIDs: req.AttachmentIds,
		Instructions:  req.Instructions,
	})

	out := make(chan orchestrator.Event, cap(s.slots))
	go func() {
		defer close(out)
		defer release()

		for ev := range stream {
			s.observe(run, ev)
			select {
			case out <- ev:
			case <-ctx.Done():
				// Client is gone. Keep draining so the run winds down and
				// the slot frees; undeliverable events are dropped.
			}
		}
		s.finish(run)
	}()

	return run, out, nil
}

// observe folds stream events into the run state.
func (s *searchService) observe(run *store.RunState, ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventResponse:
		if answer, ok := ev.Data.(string); ok {
			run.Answer = answer
		}
	case orchestrator.EventError:
		run.Status = store.RunStatusFailed
		if msg, ok := ev.Data.(string); ok {
			run.Error = msg
		}
	case orchestrator.EventDone:
		if done, ok := ev.Data.(orchestrator.DoneData); ok {
			run.SourceCount = done.SourceCount
		}
	case orchestrator.EventEnd:
		if run.Status != store.RunStatusFailed {
			run.Status = store.RunStatusCompleted
		}
		run.EndedAt = time.Now()
	}
	s.runRepo.Save(run)
}

// finish announces the terminal run state on the event bus.
func (s *searchService) finish(run *store.RunState) {
	if s.natsPub == nil {
		return
	}

	evt := events.BaseEvent{
		Type: "RUN_COMPLETED",
		Data: map[string]interface{}{
			"run_id":       run.ID,
			"session_id":   run.SessionID,
			"query":        run.Query,
			"mode":         run.Mode,
			"status":       run.Status,
			"source_count": run.SourceCount,
			"error":        run.Error,
		},
		OccurredAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.natsPub.Publish(ctx, evt); err != nil {
		s.logger.Warn("SearchService", "Failed to publish run completion", map[string]interface{}{
			"run_id": run.ID,
			"error":  err.Error(),
		})
	}
}

func (s *searchService) Search(ctx context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	run, stream, err := s.StreamSearch(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.SearchResponse{RunId: run.ID, Mode: run.Mode}
	var runErr string

	for ev := range stream {
		switch ev.Type {
		case orchestrator.EventResponse:
			if answer, ok := ev.Data.(string); ok {
				resp.Answer = answer
			}
		case orchestrator.EventSources:
			if data, ok := ev.Data.(orchestrator.SourcesData); ok {
				resp.Sources = data.Sources
			}
		case orchestrator.EventFollowUps:
			resp.FollowUps = ev.Data
		case orchestrator.EventError:
			if msg, ok := ev.Data.(string); ok {
				runErr = msg
			}
		}
	}

	if runErr != "" {
		return nil, fiber.NewError(fiber.StatusBadGateway, runErr)
	}
	return resp, nil
}

func (s *searchService) GetRun(runID string) (*store.RunState, error) {
	run, ok := s.runRepo.Get(runID)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "run not found")
	}
	return run, nil
}

func (s *searchService) ListRuns(sessionID string) []*store.RunState {
	return s.runRepo.ListBySession(sessionID)
}
