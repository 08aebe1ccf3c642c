package route

import (
	"schooldesk_backend/internals/constants"
	activityCtrl "schooldesk_backend/internals/features/school/activity_logs/controller"
	"schooldesk_backend/internals/features/school/activity_logs/service"
	authMiddleware "schooldesk_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
)

func ActivityLogRoutes(r fiber.Router, svc service.ActivityLogService) {
	h := activityCtrl.NewActivityLogController(svc)

	r.Get("/activity-logs",
		authMiddleware.OnlyRoles(constants.RoleErrorPrincipal("the activity log"), constants.PrincipalOnly...),
		h.List,
	)
}
