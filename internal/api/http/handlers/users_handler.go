package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-manager/internal/api/dto"
	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/observability"
	"github.com/spec-kit/task-manager/internal/service"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// UsersHandler exposes user management, lookups and login.
type UsersHandler struct {
	users   *service.UserService
	queries *service.QueryService
	stats   *service.StatisticsService
	metrics *observability.Metrics
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, queries *service.QueryService, stats *service.StatisticsService, metrics *observability.Metrics) *UsersHandler {
	return &UsersHandler{users: users, queries: queries, stats: stats, metrics: metrics}
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), service.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Enabled:   req.Enabled,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user))
}

// ChangePassword handles PUT /api/users/:id/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.ChangePassword(c.UserContext(), c.Params("id"), req.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user))
}

// SetEnabled handles PUT /api/users/:id/status.
func (h *UsersHandler) SetEnabled(c *fiber.Ctx) error {
	var req dto.SetEnabledRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Enabled == nil {
		return apperrors.NewValidationError("enabled", "required")
	}
	user, err := h.users.SetEnabled(c.UserContext(), c.Params("id"), *req.Enabled)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Login handles POST /api/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Identifier == "" || req.Password == "" {
		return apperrors.NewValidationError("identifier", "identifier and password required")
	}

	user, token, exp, err := h.users.Login(c.UserContext(), req.Identifier, req.Password)
	h.metrics.RecordLogin(err == nil)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	return h.single(c, func() (*domain.User, error) {
		return h.users.GetByID(c.UserContext(), c.Params("id"))
	})
}

// GetByUsername handles GET /api/users/username/:username.
func (h *UsersHandler) GetByUsername(c *fiber.Ctx) error {
	return h.single(c, func() (*domain.User, error) {
		return h.users.GetByUsername(c.UserContext(), c.Params("username"))
	})
}

// GetByEmail handles GET /api/users/email/:email.
func (h *UsersHandler) GetByEmail(c *fiber.Ctx) error {
	return h.single(c, func() (*domain.User, error) {
		return h.users.GetByEmail(c.UserContext(), c.Params("email"))
	})
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.User, error) {
		return h.queries.ListUsers(c.UserContext())
	})
}

// ListByRole handles GET /api/users/role/:role.
func (h *UsersHandler) ListByRole(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.User, error) {
		return h.queries.UsersByRole(c.UserContext(), roleParam(c, "role"))
	})
}

// ListActive handles GET /api/users/active.
func (h *UsersHandler) ListActive(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.User, error) {
		return h.queries.ActiveUsers(c.UserContext())
	})
}

// ListWithTasks handles GET /api/users/with-tasks.
func (h *UsersHandler) ListWithTasks(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.User, error) {
		return h.queries.UsersWithTasks(c.UserContext())
	})
}

// ListWithoutTasks handles GET /api/users/without-tasks.
func (h *UsersHandler) ListWithoutTasks(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.User, error) {
		return h.queries.UsersWithoutTasks(c.UserContext())
	})
}

// Search handles GET /api/users/search?q=.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	return h.many(c, func() ([]domain.User, error) {
		return h.queries.SearchUsers(c.UserContext(), c.Query("q"))
	})
}

// ExistsByUsername handles GET /api/users/exists/username/:username.
func (h *UsersHandler) ExistsByUsername(c *fiber.Ctx) error {
	exists, err := h.users.ExistsByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.ExistsResponse{Exists: exists})
}

// ExistsByEmail handles GET /api/users/exists/email/:email.
func (h *UsersHandler) ExistsByEmail(c *fiber.Ctx) error {
	exists, err := h.users.ExistsByEmail(c.UserContext(), c.Params("email"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.ExistsResponse{Exists: exists})
}

// Statistics handles GET /api/users/statistics.
func (h *UsersHandler) Statistics(c *fiber.Ctx) error {
	counts, err := h.stats.CountByRole(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, counts)
}

// CountByRole handles GET /api/users/count/role/:role.
func (h *UsersHandler) CountByRole(c *fiber.Ctx) error {
	count, err := h.stats.CountUsersWithRole(c.UserContext(), roleParam(c, "role"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.CountResponse{Count: count})
}

func (h *UsersHandler) single(c *fiber.Ctx, fetch func() (*domain.User, error)) error {
	user, err := fetch()
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user))
}

func (h *UsersHandler) many(c *fiber.Ctx, fetch func() ([]domain.User, error)) error {
	users, err := fetch()
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponses(users))
}
