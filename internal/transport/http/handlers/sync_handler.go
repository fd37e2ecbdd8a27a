package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/transport/http/dto"
)

// SyncHandler exposes the pending queue and the connectivity state machine.
type SyncHandler struct {
	tasks        ports.TaskService
	connectivity ports.ConnectivityService
	logger       *logger.Logger
}

func NewSyncHandler(tasks ports.TaskService, connectivity ports.ConnectivityService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{tasks: tasks, connectivity: connectivity, logger: logger}
}

func (h *SyncHandler) Health(c *fiber.Ctx) error {
	status := h.connectivity.Status()
	return c.JSON(fiber.Map{
		"status":       "ok",
		"connectivity": status.State,
		"pending":      status.Pending,
	})
}

func (h *SyncHandler) Pending(c *fiber.Ctx) error {
	ops := h.tasks.Pending()
	return c.JSON(dto.PendingResponse{Count: len(ops), Operations: ops})
}

func (h *SyncHandler) Drain(c *fiber.Ctx) error {
	if err := h.tasks.Drain(c.UserContext()); err != nil {
		return respondError(c, h.logger, "sync_drain_failed", err)
	}
	ops := h.tasks.Pending()
	return c.JSON(dto.PendingResponse{Count: len(ops), Operations: ops})
}

func (h *SyncHandler) Connectivity(c *fiber.Ctx) error {
	return c.JSON(h.connectivity.Status())
}

func (h *SyncHandler) ConnectivityEvent(c *fiber.Ctx) error {
	var req dto.ConnectivityEventRequest
	if err := c.BodyParser(&req); err != nil || req.Online == nil {
		return badRequest(c, "online flag is required")
	}
	h.connectivity.HandleNetworkEvent(c.UserContext(), *req.Online)
	return c.JSON(h.connectivity.Status())
}
