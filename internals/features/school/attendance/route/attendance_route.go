package route

import (
	attendanceCtrl "schooldesk_backend/internals/features/school/attendance/controller"
	"schooldesk_backend/internals/features/school/attendance/service"

	"github.com/gofiber/fiber/v2"
)

func AttendanceRoutes(r fiber.Router, svc service.AttendanceService) {
	h := attendanceCtrl.NewAttendanceController(svc)

	g := r.Group("/classes/:class_id/attendance")
	{
		g.Post("/", h.MarkDay)
		g.Get("/", h.Report)
		g.Get("/day", h.ListDay)
		g.Get("/export", h.Export)
	}
}
