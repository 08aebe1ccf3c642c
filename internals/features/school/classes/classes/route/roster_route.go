package route

import (
	classCtrl "schooldesk_backend/internals/features/school/classes/classes/controller"
	"schooldesk_backend/internals/features/school/classes/classes/service"

	"github.com/gofiber/fiber/v2"
)

// RosterRoutes mounts class and student endpoints on the staff group.
func RosterRoutes(r fiber.Router, svc service.RosterService) {
	h := classCtrl.NewRosterController(svc)

	classes := r.Group("/classes")
	{
		classes.Get("/", h.ListClasses)
		classes.Get("/:class_id", h.GetClass)
		classes.Get("/:class_id/students", h.ListStudents)
		classes.Post("/:class_id/students", h.CreateStudent)
	}

	students := r.Group("/students")
	{
		students.Get("/:student_id", h.GetStudent)
		students.Patch("/:student_id", h.PatchStudent)
		students.Delete("/:student_id", h.DeleteStudent)
	}
}
