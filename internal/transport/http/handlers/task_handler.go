package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/transport/http/dto"
)

type TaskHandler struct {
	service ports.TaskService
	logger  *logger.Logger
}

func NewTaskHandler(service ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

// queryFilters maps query parameters onto task fields.
var queryFilters = map[string]string{
	"category": domain.FieldCategory,
	"status":   domain.FieldStatus,
	"priority": domain.FieldPriority,
	"due_date": domain.FieldDueDate,
}

func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	query := domain.DefaultTaskQuery()
	query.Filter = map[string]any{}

	for param, field := range queryFilters {
		if v := c.Query(param); v != "" {
			query.Filter[field] = v
		}
	}
	if v := c.Query("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "completed must be true or false")
		}
		query.Filter[domain.FieldCompleted] = completed
	}
	if v := c.Query("sort_by"); v != "" {
		query.SortBy = domain.CanonicalField(v)
	}
	switch dir := domain.SortDirection(c.Query("sort_dir")); dir {
	case "":
	case domain.SortAsc, domain.SortDesc:
		query.SortDirection = dir
	default:
		return badRequest(c, "sort_dir must be asc or desc")
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		query.Limit = limit
	}

	tasks, err := h.service.GetAllTasks(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, "tasks_list_failed", err)
	}
	h.logger.Debugw("tasks_list_success", "count", len(tasks))
	return c.JSON(tasks)
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.TaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_create_body_parse_failed", "error", err)
		return badRequest(c, "invalid request body")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return h.save(c, &req, fiber.StatusCreated)
}

func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	var req dto.TaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_update_body_parse_failed", "error", err)
		return badRequest(c, "invalid request body")
	}
	req.ID = c.Params("id")
	return h.save(c, &req, fiber.StatusOK)
}

func (h *TaskHandler) save(c *fiber.Ctx, req *dto.TaskRequest, status int) error {
	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("task_save_validation_failed", "details", errs)
		return badRequest(c, "validation failed", errs...)
	}

	saved, err := h.service.SaveTask(c.UserContext(), req.ToTask())
	if err != nil {
		return respondError(c, h.logger, "task_save_failed", err, "id", req.ID)
	}
	h.logger.Infow("task_save_success", "id", saved.ID)
	return c.Status(status).JSON(saved)
}

func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteTask(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, "task_delete_failed", err, "id", id)
	}
	h.logger.Infow("task_delete_success", "id", id)
	return c.JSON(dto.SuccessResponse{Message: "task deleted"})
}

func (h *TaskHandler) ClearTasks(c *fiber.Ctx) error {
	if err := h.service.ClearTasks(c.UserContext()); err != nil {
		return respondError(c, h.logger, "tasks_clear_failed", err)
	}
	h.logger.Infow("tasks_clear_success")
	return c.JSON(dto.SuccessResponse{Message: "all tasks deleted"})
}
