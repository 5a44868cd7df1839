package controller

import (
	"context"
	"encoding/json"
	"time"

	"ai-answer-engine-be/internal/dto"
	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/internal/pkg/serverutils"
	"ai-answer-engine-be/internal/service"
	"ai-answer-engine-be/pkg/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ISearchController interface {
	RegisterRoutes(r fiber.Router)
	Search(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	ShowRun(ctx *fiber.Ctx) error
	ListRuns(ctx *fiber.Ctx) error
}

type searchController struct {
	searchService service.ISearchService
	logger        logger.ILogger
}

func NewSearchController(searchService service.ISearchService, log logger.ILogger) ISearchController {
	return &searchController{
		searchService: searchService,
		logger:        log,
	}
}

func (c *searchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/search/v1")
	h.Post("", c.Search)
	h.Get("/stream", c.Stream)
	h.Get("/runs", c.ListRuns)
	h.Get("/runs/:id", c.ShowRun)
}

// Search runs a query to completion and returns the assembled answer.
func (c *searchController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.searchService.Search(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}

// Stream upgrades to a websocket, reads one search request frame, and writes
// every pipeline event as a JSON frame. The "end" event is always the last
// frame before close.
func (c *searchController) Stream(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req dto.SearchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.writeStreamError(conn, "invalid request payload")
			return
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			c.writeStreamError(conn, err.Error())
			return
		}

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Cancel the run when the client goes away.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		run, stream, err := c.searchService.StreamSearch(runCtx, &req)
		if err != nil {
			c.writeStreamError(conn, err.Error())
			return
		}

		c.logger.Info("SearchController", "Streaming run", map[string]interface{}{
			"run_id": run.ID,
			"mode":   run.Mode,
		})

		for ev := range stream {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	})(ctx)
}

func (c *searchController) writeStreamError(conn *websocket.Conn, message string) {
	conn.WriteJSON(orchestrator.Event{Type: orchestrator.EventError, Data: message})
	conn.WriteJSON(orchestrator.Event{Type: orchestrator.EventEnd, Data: "done"})
}

func (c *searchController) ShowRun(ctx *fiber.Ctx) error {
	runID := ctx.Params("id")

	res, err := c.searchService.GetRun(runID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show run", res))
}

func (c *searchController) ListRuns(ctx *fiber.Ctx) error {
	sessionID := ctx.Query("session_id", "")
	if sessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id query parameter is required")
	}

	res := c.searchService.ListRuns(sessionID)

	return ctx.JSON(serverutils.SuccessResponse("Success list runs", res))
}
