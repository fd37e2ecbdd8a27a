package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/taskextreme/backend/internal/core/services"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/transport/http/dto"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrTaskInvalidInput),
		errors.Is(err, services.ErrTemplateInvalidInput),
		errors.Is(err, services.ErrImportFormat),
		errors.Is(err, services.ErrPreferenceInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrTemplateNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrStoreOutdated):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrQueueProcessing):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError logs client errors at warn and everything else at error.
func respondError(c *fiber.Ctx, log *logger.Logger, event string, err error, kv ...interface{}) error {
	code := statusFor(err)
	kv = append(kv, "status", code, "error", err)
	if code < fiber.StatusInternalServerError {
		log.Warnw(event, kv...)
	} else {
		log.Errorw(event, kv...)
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string, details ...string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, Details: details})
}
