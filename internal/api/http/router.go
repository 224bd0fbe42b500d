package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/task-manager/internal/api/http/handlers"
	"github.com/spec-kit/task-manager/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Users   *handlers.UsersHandler
	Tasks   *handlers.TasksHandler
	Metrics *observability.Metrics
	// LoginLimiter guards POST /api/users/login. Nil leaves it unthrottled.
	LoginLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes. Static segments are registered before
// the /:id catch-alls of each group.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/info", cfg.Health.Info)

	registerUserRoutes(api.Group("/users"), cfg.Users, cfg.LoginLimiter)
	registerTaskRoutes(api.Group("/tasks"), cfg.Tasks)
}

func registerUserRoutes(users fiber.Router, h *handlers.UsersHandler, loginLimiter fiber.Handler) {
	users.Get("/", h.List)
	users.Post("/", h.Create)
	if loginLimiter != nil {
		users.Post("/login", loginLimiter, h.Login)
	} else {
		users.Post("/login", h.Login)
	}

	users.Get("/active", h.ListActive)
	users.Get("/with-tasks", h.ListWithTasks)
	users.Get("/without-tasks", h.ListWithoutTasks)
	users.Get("/search", h.Search)
	users.Get("/statistics", h.Statistics)
	users.Get("/count/role/:role", h.CountByRole)
	users.Get("/exists/username/:username", h.ExistsByUsername)
	users.Get("/exists/email/:email", h.ExistsByEmail)
	users.Get("/username/:username", h.GetByUsername)
	users.Get("/email/:email", h.GetByEmail)
	users.Get("/role/:role", h.ListByRole)

	users.Get("/:id", h.Get)
	users.Put("/:id", h.Update)
	users.Put("/:id/password", h.ChangePassword)
	users.Put("/:id/status", h.SetEnabled)
	users.Delete("/:id", h.Delete)
}

func registerTaskRoutes(tasks fiber.Router, h *handlers.TasksHandler) {
	tasks.Get("/", h.List)
	tasks.Post("/", h.Create)

	tasks.Get("/overdue", h.ListOverdue)
	tasks.Get("/created-between", h.CreatedBetween)
	tasks.Get("/due-between", h.DueBetween)
	tasks.Get("/search/title", h.SearchTitle)
	tasks.Get("/search/description", h.SearchDescription)
	tasks.Get("/statistics/status", h.StatisticsByStatus)
	tasks.Get("/statistics/priority", h.StatisticsByPriority)
	tasks.Get("/count/status/:status", h.CountByStatus)
	tasks.Get("/count/user/:userId", h.CountByOwner)
	tasks.Get("/count/user/:userId/completed", h.CountCompletedByOwner)
	tasks.Get("/status/:status", h.ListByStatus)
	tasks.Get("/priority/:priority", h.ListByPriority)

	owner := tasks.Group("/user/:userId")
	owner.Get("/", h.ListByOwner)
	owner.Get("/status/:status", h.ListByOwnerAndStatus)
	owner.Get("/completed", h.ListCompletedByOwner)
	owner.Get("/pending", h.ListPendingByOwner)
	owner.Get("/in-progress", h.ListInProgressByOwner)
	owner.Get("/overdue", h.ListOverdueByOwner)
	owner.Get("/due-soon", h.ListDueSoon)
	owner.Get("/search", h.SearchByOwner)
	owner.Get("/summary", h.Summary)

	tasks.Get("/:taskId/belongs-to/:userId", h.BelongsTo)
	tasks.Get("/:id", h.Get)
	tasks.Put("/:id", h.Update)
	tasks.Put("/:id/status", h.ChangeStatus)
	tasks.Put("/:id/complete", h.Complete)
	tasks.Put("/:id/priority", h.ChangePriority)
	tasks.Delete("/:id", h.Delete)
}
