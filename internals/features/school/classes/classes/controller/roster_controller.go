package controller

import (
	"strings"

	"schooldesk_backend/internals/features/school/classes/classes/dto"
	"schooldesk_backend/internals/features/school/classes/classes/model"
	"schooldesk_backend/internals/features/school/classes/classes/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

/* ================= Controller & Constructor ================= */

type RosterController struct {
	Svc      service.RosterService
	Validate *validator.Validate
}

func NewRosterController(svc service.RosterService) *RosterController {
	return &RosterController{Svc: svc, Validate: validator.New()}
}

/* =========================== CLASSES =========================== */

// GET /api/classes?year=
func (ctrl *RosterController) ListClasses(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	rows, err := ctrl.Svc.ListClasses(c.UserContext(), actor, strings.TrimSpace(c.Query("year")))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "classes", dto.FromClassModels(rows))
}

// GET /api/classes/:class_id
func (ctrl *RosterController) GetClass(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	class, err := ctrl.Svc.GetClass(c.UserContext(), actor, classID)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "class", dto.FromClassModel(*class))
}

/* =========================== STUDENTS =========================== */

// GET /api/classes/:class_id/students
func (ctrl *RosterController) ListStudents(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	rows, err := ctrl.Svc.ListStudents(c.UserContext(), actor, classID)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []model.StudentModel{}
	}
	return helper.JsonOK(c, "students", rows)
}

// GET /api/students/:student_id
func (ctrl *RosterController) GetStudent(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	s, err := ctrl.Svc.GetStudent(c.UserContext(), actor, studentID)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "student", s)
}

// POST /api/classes/:class_id/students
func (ctrl *RosterController) CreateStudent(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}

	var req dto.CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	req.Normalize()
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.FromValidator(c, err)
	}

	m := req.ToModel()
	if err := ctrl.Svc.CreateStudent(c.UserContext(), actor, classID, m); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "student added", m)
}

// PATCH /api/students/:student_id
func (ctrl *RosterController) PatchStudent(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}

	var req dto.PatchStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	m, err := ctrl.Svc.UpdateStudent(c.UserContext(), actor, studentID, req.Apply)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "student updated", m)
}

// DELETE /api/students/:student_id
func (ctrl *RosterController) DeleteStudent(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctrl.Svc.DeleteStudent(c.UserContext(), actor, studentID); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonDeleted(c, "student removed", fiber.Map{"student_id": studentID})
}
