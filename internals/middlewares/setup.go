package middlewares

import (
	"time"

	"schooldesk_backend/internals/middlewares/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
)

type Options struct {
	AllowOrigins   string
	TimeZone       string
	RequestTimeout time.Duration
}

// SetupMiddlewares installs the app-wide chain, outermost first.
func SetupMiddlewares(app *fiber.App, opt Options) {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 30 * time.Second
	}
	app.Use(RecoveryMiddleware())
	app.Use(RequestID(opt.RequestTimeout))
	app.Use(logger.LoggerMiddleware(opt.TimeZone))
	app.Use(CorsMiddleware(opt.AllowOrigins))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
	app.Use(GlobalRateLimiter())
}
