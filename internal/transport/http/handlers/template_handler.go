package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/transport/http/dto"
)

const exportFilename = "taskextreme_templates.json"

type TemplateHandler struct {
	service ports.TemplateService
	logger  *logger.Logger
}

func NewTemplateHandler(service ports.TemplateService, logger *logger.Logger) *TemplateHandler {
	return &TemplateHandler{service: service, logger: logger}
}

func (h *TemplateHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.service.List(c.UserContext()))
}

func (h *TemplateHandler) Groups(c *fiber.Ctx) error {
	return c.JSON(h.service.Grouped(c.UserContext()))
}

func (h *TemplateHandler) Get(c *fiber.Ctx) error {
	tpl, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "template_get_failed", err, "id", c.Params("id"))
	}
	return c.JSON(tpl)
}

func (h *TemplateHandler) Create(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("template_create_body_parse_failed", "error", err)
		return badRequest(c, "invalid request body")
	}
	tpl, err := h.service.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return respondError(c, h.logger, "template_create_failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

func (h *TemplateHandler) Update(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("template_update_body_parse_failed", "error", err)
		return badRequest(c, "invalid request body")
	}
	tpl, err := h.service.Update(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return respondError(c, h.logger, "template_update_failed", err, "id", c.Params("id"))
	}
	return c.JSON(tpl)
}

func (h *TemplateHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.logger, "template_delete_failed", err, "id", c.Params("id"))
	}
	return c.JSON(dto.SuccessResponse{Message: "template deleted"})
}

func (h *TemplateHandler) Duplicate(c *fiber.Ctx) error {
	tpl, err := h.service.Duplicate(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "template_duplicate_failed", err, "id", c.Params("id"))
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

func (h *TemplateHandler) Export(c *fiber.Ctx) error {
	data, err := h.service.Export(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "template_export_failed", err)
	}
	c.Attachment(exportFilename)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(data)
}

// Import takes the raw exported file as the request body.
func (h *TemplateHandler) Import(c *fiber.Ctx) error {
	if err := h.service.Import(c.UserContext(), c.Body()); err != nil {
		return respondError(c, h.logger, "template_import_failed", err)
	}
	return c.JSON(dto.SuccessResponse{Message: "Templates imported!"})
}

func (h *TemplateHandler) Apply(c *fiber.Ctx) error {
	var req dto.ApplyTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	tasks, err := h.service.Apply(c.UserContext(), c.Params("id"), req.Date)
	if err != nil {
		return respondError(c, h.logger, "template_apply_failed", err, "id", c.Params("id"))
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ApplyTemplateResponse{Created: len(tasks), Tasks: tasks})
}
