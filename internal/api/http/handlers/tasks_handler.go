package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-manager/internal/api/dto"
	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/repository"
	"github.com/spec-kit/task-manager/internal/service"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	tasks       *service.TaskService
	queries     *service.QueryService
	stats       *service.StatisticsService
	clock       service.Clock
	dueSoonDays int
}

// TasksHandlerConfig bundles dependencies for the task handler.
type TasksHandlerConfig struct {
	Tasks       *service.TaskService
	Queries     *service.QueryService
	Statistics  *service.StatisticsService
	Clock       service.Clock
	DueSoonDays int
}

// NewTasksHandler constructs handler.
func NewTasksHandler(cfg TasksHandlerConfig) *TasksHandler {
	return &TasksHandler{
		tasks:       cfg.Tasks,
		queries:     cfg.Queries,
		stats:       cfg.Statistics,
		clock:       cfg.Clock,
		dueSoonDays: cfg.DueSoonDays,
	}
}

// Create handles POST /api/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.tasks.Create(c.UserContext(), req.UserID, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTaskResponse(task, h.clock.Now()))
}

// Update handles PUT /api/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.single(c, func() (*domain.Task, error) {
		return h.tasks.Update(c.UserContext(), c.Params("id"), service.TaskInput{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
		})
	})
}

// ChangeStatus handles PUT /api/tasks/:id/status.
func (h *TasksHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.ChangeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.single(c, func() (*domain.Task, error) {
		return h.tasks.ChangeStatus(c.UserContext(), c.Params("id"), domain.TaskStatus(enumValue(string(req.Status))))
	})
}

// Complete handles PUT /api/tasks/:id/complete.
func (h *TasksHandler) Complete(c *fiber.Ctx) error {
	return h.single(c, func() (*domain.Task, error) {
		return h.tasks.Complete(c.UserContext(), c.Params("id"))
	})
}

// ChangePriority handles PUT /api/tasks/:id/priority.
func (h *TasksHandler) ChangePriority(c *fiber.Ctx) error {
	var req dto.ChangePriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.single(c, func() (*domain.Task, error) {
		return h.tasks.ChangePriority(c.UserContext(), c.Params("id"), domain.TaskPriority(enumValue(string(req.Priority))))
	})
}

// Delete handles DELETE /api/tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	if err := h.tasks.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Get handles GET /api/tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	return h.single(c, func() (*domain.Task, error) {
		return h.tasks.GetByID(c.UserContext(), c.Params("id"))
	})
}

// BelongsTo handles GET /api/tasks/:taskId/belongs-to/:userId.
func (h *TasksHandler) BelongsTo(c *fiber.Ctx) error {
	taskID, userID := c.Params("taskId"), c.Params("userId")
	return respond(c, fiber.StatusOK, dto.OwnershipResponse{
		TaskID: taskID,
		UserID: userID,
		Owned:  h.tasks.IsOwnedBy(c.UserContext(), taskID, userID),
	})
}

// List handles GET /api/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.ListTasks(c.UserContext())
	})
}

// ListByOwner handles GET /api/tasks/user/:userId?order=.
func (h *TasksHandler) ListByOwner(c *fiber.Ctx) error {
	order := repository.TaskOrder(c.Query("order"))
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.TasksByOwner(c.UserContext(), c.Params("userId"), order)
	})
}

// ListByStatus handles GET /api/tasks/status/:status.
func (h *TasksHandler) ListByStatus(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.TasksByStatus(c.UserContext(), statusParam(c, "status"))
	})
}

// ListByPriority handles GET /api/tasks/priority/:priority.
func (h *TasksHandler) ListByPriority(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.TasksByPriority(c.UserContext(), priorityParam(c, "priority"))
	})
}

// ListByOwnerAndStatus handles GET /api/tasks/user/:userId/status/:status.
func (h *TasksHandler) ListByOwnerAndStatus(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.TasksByOwnerAndStatus(c.UserContext(), c.Params("userId"), statusParam(c, "status"))
	})
}

// ListCompletedByOwner handles GET /api/tasks/user/:userId/completed.
func (h *TasksHandler) ListCompletedByOwner(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.CompletedByOwner(c.UserContext(), c.Params("userId"))
	})
}

// ListPendingByOwner handles GET /api/tasks/user/:userId/pending.
func (h *TasksHandler) ListPendingByOwner(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.PendingByOwner(c.UserContext(), c.Params("userId"))
	})
}

// ListInProgressByOwner handles GET /api/tasks/user/:userId/in-progress.
func (h *TasksHandler) ListInProgressByOwner(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.InProgressByOwner(c.UserContext(), c.Params("userId"))
	})
}

// ListOverdue handles GET /api/tasks/overdue.
func (h *TasksHandler) ListOverdue(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.Overdue(c.UserContext())
	})
}

// ListOverdueByOwner handles GET /api/tasks/user/:userId/overdue.
func (h *TasksHandler) ListOverdueByOwner(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.OverdueByOwner(c.UserContext(), c.Params("userId"))
	})
}

// ListDueSoon handles GET /api/tasks/user/:userId/due-soon?days=.
func (h *TasksHandler) ListDueSoon(c *fiber.Ctx) error {
	days, err := intQuery(c, "days", h.dueSoonDays)
	if err != nil {
		return err
	}
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.DueSoon(c.UserContext(), c.Params("userId"), days)
	})
}

// SearchTitle handles GET /api/tasks/search/title?q=.
func (h *TasksHandler) SearchTitle(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.TitleContains(c.UserContext(), c.Query("q"))
	})
}

// SearchDescription handles GET /api/tasks/search/description?q=.
func (h *TasksHandler) SearchDescription(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.DescriptionContains(c.UserContext(), c.Query("q"))
	})
}

// SearchByOwner handles GET /api/tasks/user/:userId/search?q=.
func (h *TasksHandler) SearchByOwner(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.SearchByOwner(c.UserContext(), c.Params("userId"), c.Query("q"))
	})
}

// CreatedBetween handles GET /api/tasks/created-between?start=&end=.
func (h *TasksHandler) CreatedBetween(c *fiber.Ctx) error {
	start, err := timeQuery(c, "start")
	if err != nil {
		return err
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		return err
	}
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.CreatedBetween(c.UserContext(), start, end)
	})
}

// DueBetween handles GET /api/tasks/due-between?start=&end=.
func (h *TasksHandler) DueBetween(c *fiber.Ctx) error {
	start, err := timeQuery(c, "start")
	if err != nil {
		return err
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		return err
	}
	return h.many(c, func() ([]domain.Task, error) {
		return h.queries.DueBetween(c.UserContext(), start, end)
	})
}

// Summary handles GET /api/tasks/user/:userId/summary.
func (h *TasksHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.stats.UserSummary(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, summary)
}

// StatisticsByStatus handles GET /api/tasks/statistics/status.
func (h *TasksHandler) StatisticsByStatus(c *fiber.Ctx) error {
	counts, err := h.stats.CountByStatus(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, counts)
}

// StatisticsByPriority handles GET /api/tasks/statistics/priority.
func (h *TasksHandler) StatisticsByPriority(c *fiber.Ctx) error {
	counts, err := h.stats.CountByPriority(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, counts)
}

// CountByStatus handles GET /api/tasks/count/status/:status.
func (h *TasksHandler) CountByStatus(c *fiber.Ctx) error {
	return h.count(c, func() (int64, error) {
		return h.stats.CountTasksWithStatus(c.UserContext(), statusParam(c, "status"))
	})
}

// CountByOwner handles GET /api/tasks/count/user/:userId.
func (h *TasksHandler) CountByOwner(c *fiber.Ctx) error {
	return h.count(c, func() (int64, error) {
		return h.stats.CountByOwner(c.UserContext(), c.Params("userId"))
	})
}

// CountCompletedByOwner handles GET /api/tasks/count/user/:userId/completed.
func (h *TasksHandler) CountCompletedByOwner(c *fiber.Ctx) error {
	return h.count(c, func() (int64, error) {
		return h.stats.CountCompletedByOwner(c.UserContext(), c.Params("userId"))
	})
}

func (h *TasksHandler) single(c *fiber.Ctx, fetch func() (*domain.Task, error)) error {
	task, err := fetch()
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTaskResponse(task, h.clock.Now()))
}

func (h *TasksHandler) many(c *fiber.Ctx, fetch func() ([]domain.Task, error)) error {
	tasks, err := fetch()
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTaskResponses(tasks, h.clock.Now()))
}

func (h *TasksHandler) count(c *fiber.Ctx, fetch func() (int64, error)) error {
	count, err := fetch()
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.CountResponse{Count: count})
}
