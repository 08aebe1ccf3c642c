package controller

import (
	"bytes"
	"time"

	"schooldesk_backend/internals/constants"
	"schooldesk_backend/internals/features/school/attendance/dto"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	"schooldesk_backend/internals/features/school/attendance/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"
	"schooldesk_backend/internals/helpers/dbtime"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct {
	Svc      service.AttendanceService
	Validate *validator.Validate
}

func NewAttendanceController(svc service.AttendanceService) *AttendanceController {
	return &AttendanceController{Svc: svc, Validate: validator.New()}
}

// POST /api/classes/:class_id/attendance
func (ctrl *AttendanceController) MarkDay(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.MarkDayRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.FromValidator(c, err)
	}

	rows, err := ctrl.Svc.MarkDay(c.UserContext(), actor, classID, req.ToInput(dbtime.TodayInSchool(c)))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []attendanceModel.AttendanceRecordModel{}
	}
	return helper.JsonOK(c, "attendance saved", rows)
}

// GET /api/classes/:class_id/attendance/day?date=
func (ctrl *AttendanceController) ListDay(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	date, err := helper.ParseDateQuery(c, "date")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if date.IsZero() {
		date = dbtime.TodayInSchool(c)
	}
	rows, err := ctrl.Svc.ListDay(c.UserContext(), actor, classID, date)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []attendanceModel.AttendanceRecordModel{}
	}
	return helper.JsonOK(c, "attendance", rows)
}

// window reads ?from=&to=; with neither given the range ends today.
func window(c *fiber.Ctx) (time.Time, time.Time, error) {
	from, err := helper.ParseDateQuery(c, "from")
	if err != nil {
		return from, from, err
	}
	to, err := helper.ParseDateQuery(c, "to")
	if err != nil {
		return from, to, err
	}
	if to.IsZero() && from.IsZero() {
		to = dbtime.TodayInSchool(c)
	}
	return from, to, nil
}

// GET /api/classes/:class_id/attendance?from=&to=
func (ctrl *AttendanceController) Report(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	from, to, err := window(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	rep, err := ctrl.Svc.Report(c.UserContext(), actor, classID, from, to)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "attendance report", rep)
}

// GET /api/classes/:class_id/attendance/export?from=&to=
func (ctrl *AttendanceController) Export(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	from, to, err := window(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	rep, name, err := ctrl.Svc.Export(c.UserContext(), actor, classID, from, to)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var buf bytes.Buffer
	if err := rep.WriteCSV(&buf); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.SendAttachment(c, constants.ContentTypeFromExt(name), name, buf.Bytes())
}
