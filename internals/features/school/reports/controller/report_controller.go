package controller

import (
	"strings"

	"schooldesk_backend/internals/constants"
	"schooldesk_backend/internals/features/school/reports/dto"
	"schooldesk_backend/internals/features/school/reports/formatter"
	"schooldesk_backend/internals/features/school/reports/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	Svc      service.ReportService
	Validate *validator.Validate
}

func NewReportController(svc service.ReportService) *ReportController {
	return &ReportController{Svc: svc, Validate: validator.New()}
}

func year(c *fiber.Ctx) string { return strings.TrimSpace(c.Query("year")) }

// GET /api/classes/:class_id/reports/marksheets?year=
func (ctrl *ReportController) ClassMarksheets(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	sheets, err := ctrl.Svc.ClassMarksheets(c.UserContext(), actor, classID, year(c))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if sheets == nil {
		sheets = []formatter.Marksheet{}
	}
	return helper.JsonOK(c, "marksheets", sheets)
}

// GET /api/classes/:class_id/reports/statistics?year=&exam_type_id=
func (ctrl *ReportController) ClassStatistics(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	examTypeID, err := helper.ParseUUIDQuery(c, "exam_type_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	stats, err := ctrl.Svc.ClassStatistics(c.UserContext(), actor, classID, year(c), examTypeID)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "class statistics", stats)
}

// GET /api/students/:student_id/marksheet?year=
func (ctrl *ReportController) StudentMarksheet(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	ms, err := ctrl.Svc.StudentMarksheet(c.UserContext(), actor, studentID, year(c))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "marksheet", ms)
}

// GET /api/students/:student_id/marksheet.pdf?year=
func (ctrl *ReportController) StudentMarksheetPDF(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	pdf, name, err := ctrl.Svc.StudentMarksheetPDF(c.UserContext(), actor, studentID, year(c))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.SendAttachment(c, constants.ContentTypeFromExt(name), name, pdf)
}

// GET /api/students/:student_id/report-remarks?year=
func (ctrl *ReportController) GetRemarks(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	r, err := ctrl.Svc.GetRemarks(c.UserContext(), actor, studentID, year(c))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "report remarks", r)
}

// PUT /api/students/:student_id/report-remarks
func (ctrl *ReportController) SaveRemarks(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.SaveRemarksRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.FromValidator(c, err)
	}
	r, err := ctrl.Svc.SaveRemarks(c.UserContext(), actor, studentID, req.ToInput())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "report remarks saved", r)
}
