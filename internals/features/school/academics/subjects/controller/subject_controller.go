package controller

import (
	"schooldesk_backend/internals/features/school/academics/subjects/dto"
	"schooldesk_backend/internals/features/school/academics/subjects/model"
	"schooldesk_backend/internals/features/school/academics/subjects/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type SubjectController struct {
	Svc      service.SubjectService
	Validate *validator.Validate
}

func NewSubjectController(svc service.SubjectService) *SubjectController {
	return &SubjectController{Svc: svc, Validate: validator.New()}
}

// GET /api/classes/:class_id/subjects
func (ctrl *SubjectController) ListForClass(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	rows, err := ctrl.Svc.ListForClass(c.UserContext(), actor, classID)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []model.SubjectModel{}
	}
	return helper.JsonOK(c, "subjects", rows)
}

// POST /api/subjects (principal)
func (ctrl *SubjectController) Create(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	req.Normalize()
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.FromValidator(c, err)
	}

	m := req.ToModel()
	if err := ctrl.Svc.Create(c.UserContext(), actor, m); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "subject created", m)
}
