package controller

import (
	"ai-answer-engine-be/internal/dto"
	"ai-answer-engine-be/internal/pkg/serverutils"
	"ai-answer-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAttachmentController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ListBySession(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type attachmentController struct {
	attachmentService service.IAttachmentService
}

func NewAttachmentController(attachmentService service.IAttachmentService) IAttachmentController {
	return &attachmentController{
		attachmentService: attachmentService,
	}
}

func (c *attachmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/attachment/v1")
	h.Post("", c.Create)
	h.Get("", c.ListBySession)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
}

func (c *attachmentController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateAttachmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.attachmentService.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create attachment", res))
}

func (c *attachmentController) Show(ctx *fiber.Ctx) error {
	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid attachment id")
	}

	res, err := c.attachmentService.Show(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show attachment", res))
}

func (c *attachmentController) ListBySession(ctx *fiber.Ctx) error {
	sessionParam := ctx.Query("session_id", "")
	sessionId, err := uuid.Parse(sessionParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "session_id query parameter is required")
	}

	res, err := c.attachmentService.ListBySession(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list attachments", res))
}

func (c *attachmentController) Delete(ctx *fiber.Ctx) error {
	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid attachment id")
	}

	err = c.attachmentService.Delete(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete attachment", nil))
}
