package controller

import (
	"strings"

	"schooldesk_backend/internals/features/school/exams/dto"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/exams/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ExamSetupController struct {
	Svc      service.ExamSetupService
	Validate *validator.Validate
}

func NewExamSetupController(svc service.ExamSetupService) *ExamSetupController {
	return &ExamSetupController{Svc: svc, Validate: validator.New()}
}

// GET /api/exam-types
func (ctrl *ExamSetupController) ListExamTypes(c *fiber.Ctx) error {
	rows, err := ctrl.Svc.ListExamTypes(c.UserContext())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []examModel.ExamTypeModel{}
	}
	return helper.JsonOK(c, "exam types", rows)
}

// GET /api/classes/:class_id/exam-configurations?year=
func (ctrl *ExamSetupController) ListConfigurations(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	rows, err := ctrl.Svc.ListConfigurations(c.UserContext(), actor, classID, strings.TrimSpace(c.Query("year")))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []examModel.ExamConfigurationModel{}
	}
	return helper.JsonOK(c, "exam configurations", rows)
}

// PUT /api/exam-configurations
func (ctrl *ExamSetupController) SetMaxMarks(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.SetMaxMarksRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.FromValidator(c, err)
	}
	cfg, err := ctrl.Svc.SetMaxMarks(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "max marks saved", cfg)
}
