package controller

import (
	"strings"

	"schooldesk_backend/internals/features/school/exams/dto"
	"schooldesk_backend/internals/features/school/exams/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type MarksController struct {
	Svc      service.MarksService
	Validate *validator.Validate
}

func NewMarksController(svc service.MarksService) *MarksController {
	return &MarksController{Svc: svc, Validate: validator.New()}
}

// GET /api/classes/:class_id/marks?exam_type_id=&subject_id=&year=
func (ctrl *MarksController) List(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	examTypeID, err := helper.RequireUUIDQuery(c, "exam_type_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	subjectID, err := helper.RequireUUIDQuery(c, "subject_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}

	sheet, err := ctrl.Svc.ListMarks(c.UserContext(), actor, classID, service.MarksQuery{
		ExamTypeID:   examTypeID,
		SubjectID:    subjectID,
		AcademicYear: strings.TrimSpace(c.Query("year")),
	})
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "marks", sheet)
}

// POST /api/classes/:class_id/marks
//
// Rejected as a whole when any entry is invalid; nothing is written then.
func (ctrl *MarksController) Save(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.SaveMarksRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.FromValidator(c, err)
	}

	res, err := ctrl.Svc.SaveMarks(c.UserContext(), actor, classID, req.ToInput())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "marks saved", res)
}
