package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/transport/http/dto"
)

type PreferenceHandler struct {
	service ports.PreferenceService
	logger  *logger.Logger
}

func NewPreferenceHandler(service ports.PreferenceService, logger *logger.Logger) *PreferenceHandler {
	return &PreferenceHandler{service: service, logger: logger}
}

func (h *PreferenceHandler) GetTheme(c *fiber.Ctx) error {
	theme, err := h.service.Theme(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "preference_theme_get_failed", err)
	}
	return c.JSON(dto.ThemeRequest{Theme: theme})
}

func (h *PreferenceHandler) SetTheme(c *fiber.Ctx) error {
	var req dto.ThemeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.service.SetTheme(c.UserContext(), req.Theme); err != nil {
		return respondError(c, h.logger, "preference_theme_set_failed", err)
	}
	return c.JSON(req)
}

func (h *PreferenceHandler) GetView(c *fiber.Ctx) error {
	view, err := h.service.View(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "preference_view_get_failed", err)
	}
	return c.JSON(dto.ViewRequest{View: view})
}

func (h *PreferenceHandler) SetView(c *fiber.Ctx) error {
	var req dto.ViewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.service.SetView(c.UserContext(), req.View); err != nil {
		return respondError(c, h.logger, "preference_view_set_failed", err)
	}
	return c.JSON(req)
}

func (h *PreferenceHandler) GetChecked(c *fiber.Ctx) error {
	checked, err := h.service.Checked(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "preference_checked_get_failed", err)
	}
	return c.JSON(checked)
}

func (h *PreferenceHandler) SetChecked(c *fiber.Ctx) error {
	checked := map[string]bool{}
	if err := c.BodyParser(&checked); err != nil {
		return badRequest(c, "checked must be an object of id to boolean")
	}
	if err := h.service.SetChecked(c.UserContext(), checked); err != nil {
		return respondError(c, h.logger, "preference_checked_set_failed", err)
	}
	return c.JSON(checked)
}
