package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-manager/internal/domain"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

func respond(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	return nil
}

// statusParam accepts "in-progress", "in_progress" and "IN_PROGRESS" alike.
func statusParam(c *fiber.Ctx, name string) domain.TaskStatus {
	return domain.TaskStatus(enumValue(c.Params(name)))
}

func priorityParam(c *fiber.Ctx, name string) domain.TaskPriority {
	return domain.TaskPriority(enumValue(c.Params(name)))
}

func roleParam(c *fiber.Ctx, name string) domain.UserRole {
	return domain.UserRole(enumValue(c.Params(name)))
}

func enumValue(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(raw, "-", "_"))
}

// timeQuery parses a required RFC3339 query parameter.
func timeQuery(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, apperrors.NewValidationError(name, "required")
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(name, "must be an RFC3339 timestamp")
	}
	return parsed.UTC(), nil
}

func intQuery(c *fiber.Ctx, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an integer")
	}
	return parsed, nil
}
