package controller

import (
	"bytes"
	"strings"

	"schooldesk_backend/internals/constants"
	"schooldesk_backend/internals/features/school/exams/reconcile"
	"schooldesk_backend/internals/features/school/exams/service"
	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"
	helperOSS "schooldesk_backend/internals/helpers/oss"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ImportController struct {
	Svc service.ImportService
}

func NewImportController(svc service.ImportService) *ImportController {
	return &ImportController{Svc: svc}
}

// readUpload pulls the sheet and the form fields of an import request.
func readUpload(c *fiber.Ctx) (service.ImportRequest, error) {
	fh, err := helperOSS.GetSheetFile(c)
	if err != nil {
		return service.ImportRequest{}, err
	}
	examTypeID, err := uuid.Parse(strings.TrimSpace(c.FormValue("exam_type_id")))
	if err != nil {
		return service.ImportRequest{}, fiber.NewError(fiber.StatusBadRequest, "exam_type_id is required")
	}
	body, err := helperOSS.ReadFileHeader(fh)
	if err != nil {
		return service.ImportRequest{}, fiber.NewError(fiber.StatusBadRequest, "cannot read the uploaded file")
	}
	if int64(len(body)) > helperOSS.MaxSheetUploadSize {
		return service.ImportRequest{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large (max 5 MB)")
	}
	return service.ImportRequest{
		ExamTypeID:   examTypeID,
		AcademicYear: strings.TrimSpace(c.FormValue("academic_year")),
		FileName:     fh.Filename,
		Body:         body,
	}, nil
}

type previewFn func(*fiber.Ctx, helperAuth.Actor, uuid.UUID, service.ImportRequest) (*service.Preview, error)

func (ctrl *ImportController) preview(c *fiber.Ctx, run previewFn) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	classID, err := helper.ParseUUIDParam(c, "class_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	req, err := readUpload(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	p, err := run(c, actor, classID, req)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "preview ready, confirm to apply", p)
}

// POST /api/classes/:class_id/marks/import (multipart: file, exam_type_id, academic_year)
func (ctrl *ImportController) PreviewMarks(c *fiber.Ctx) error {
	return ctrl.preview(c, func(c *fiber.Ctx, a helperAuth.Actor, id uuid.UUID, r service.ImportRequest) (*service.Preview, error) {
		return ctrl.Svc.PreviewMarks(c.UserContext(), a, id, r)
	})
}

// POST /api/classes/:class_id/non-scholastic/import
func (ctrl *ImportController) PreviewNonScholastic(c *fiber.Ctx) error {
	return ctrl.preview(c, func(c *fiber.Ctx, a helperAuth.Actor, id uuid.UUID, r service.ImportRequest) (*service.Preview, error) {
		return ctrl.Svc.PreviewNonScholastic(c.UserContext(), a, id, r)
	})
}

// GET /api/imports/:preview_id
func (ctrl *ImportController) Get(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "preview_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	p, err := ctrl.Svc.GetPreview(c.UserContext(), actor, id)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "preview", p)
}

// POST /api/imports/:preview_id/confirm
func (ctrl *ImportController) Confirm(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "preview_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	res, err := ctrl.Svc.Confirm(c.UserContext(), actor, id)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "import applied", res)
}

// DELETE /api/imports/:preview_id
func (ctrl *ImportController) Discard(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "preview_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctrl.Svc.Discard(c.UserContext(), actor, id); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonDeleted(c, "preview discarded", fiber.Map{"preview_id": id})
}

/* =========================== TEMPLATES =========================== */

type templateFn func(*fiber.Ctx, helperAuth.Actor, uuid.UUID, uuid.UUID, string) (*reconcile.Template, string, error)

func (ctrl *ImportController) template(c *fiber.Ctx, build templateFn) error {
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
	tpl, name, err := build(c, actor, classID, examTypeID, strings.TrimSpace(c.Query("year")))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var buf bytes.Buffer
	if err := tpl.WriteXLSX(&buf); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.SendAttachment(c, constants.ContentTypeFromExt(name), name, buf.Bytes())
}

// GET /api/classes/:class_id/marks/template?exam_type_id=&year=
func (ctrl *ImportController) MarksTemplate(c *fiber.Ctx) error {
	return ctrl.template(c, func(c *fiber.Ctx, a helperAuth.Actor, classID, examTypeID uuid.UUID, year string) (*reconcile.Template, string, error) {
		return ctrl.Svc.MarksTemplate(c.UserContext(), a, classID, examTypeID, year)
	})
}

// GET /api/classes/:class_id/non-scholastic/template?exam_type_id=&year=
func (ctrl *ImportController) NonScholasticTemplate(c *fiber.Ctx) error {
	return ctrl.template(c, func(c *fiber.Ctx, a helperAuth.Actor, classID, examTypeID uuid.UUID, year string) (*reconcile.Template, string, error) {
		return ctrl.Svc.NonScholasticTemplate(c.UserContext(), a, classID, examTypeID, year)
	})
}
