package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// CodeRateLimited is returned once a client exhausts its login budget.
const CodeRateLimited = "RATE_LIMITED"

// NewLoginRateLimiter limits requests per client IP using an in-memory store.
// rateFormatted follows the limiter syntax: "10-M", "100-H", "5-S". An empty
// rate disables limiting.
func NewLoginRateLimiter(rateFormatted string, logger *zap.Logger) (fiber.Handler, error) {
	if rateFormatted == "" {
		return func(c *fiber.Ctx) error { return c.Next() }, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *fiber.Ctx) error {
		ctx, err := instance.Increment(c.UserContext(), "login:"+c.IP(), 1)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))
		if ctx.Reached {
			return apperrors.NewDomainError(CodeRateLimited, "too many login attempts", fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}, nil
}
