// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"schooldesk_backend/internals/constants"
	authMiddleware "schooldesk_backend/internals/middlewares/auth"
	routeDetails "schooldesk_backend/internals/route/details"

	"github.com/gofiber/fiber/v2"
)

var startTime time.Time

type Options struct {
	JWTSecret string
	// Ping reports the store's health; nil means always healthy.
	Ping func() error
}

func SetupRoutes(app *fiber.App, s routeDetails.Services, opt Options) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, opt.Ping)

	log.Println("[INFO] Setting up STAFF group...")
	api := app.Group("/api",
		authMiddleware.VerifySupabaseJWT(opt.JWTSecret),
		authMiddleware.OnlyRoles(constants.RoleErrorStaff("the school desk"), constants.StaffRoles...),
	)
	routeDetails.SchoolStaffRoutes(api, s)
}
