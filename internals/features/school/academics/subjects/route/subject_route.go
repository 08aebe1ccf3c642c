package route

import (
	"schooldesk_backend/internals/constants"
	subjectCtrl "schooldesk_backend/internals/features/school/academics/subjects/controller"
	"schooldesk_backend/internals/features/school/academics/subjects/service"
	authMiddleware "schooldesk_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
)

func SubjectRoutes(r fiber.Router, svc service.SubjectService) {
	h := subjectCtrl.NewSubjectController(svc)

	r.Get("/classes/:class_id/subjects", h.ListForClass)
	r.Post("/subjects",
		authMiddleware.OnlyRoles(constants.RoleErrorPrincipal("subject setup"), constants.PrincipalOnly...),
		h.Create,
	)
}
