package middlewares

import (
	"time"

	helper "schooldesk_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func rateLimiter(limit int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, message)
		},
	})
}

// Global limiter for ordinary endpoints
func GlobalRateLimiter() fiber.Handler {
	return rateLimiter(120, time.Minute, "too many requests, try again shortly")
}

// Uploads parse whole workbooks, so they get a tighter budget.
func UploadRateLimiter() fiber.Handler {
	return rateLimiter(10, time.Minute, "too many uploads, wait a minute and try again")
}
