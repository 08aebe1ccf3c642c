package route

import (
	examCtrl "schooldesk_backend/internals/features/school/exams/controller"
	"schooldesk_backend/internals/features/school/exams/service"
	"schooldesk_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Setup   service.ExamSetupService
	Marks   service.MarksService
	Imports service.ImportService
}

func ExamRoutes(r fiber.Router, s Services) {
	setup := examCtrl.NewExamSetupController(s.Setup)
	marks := examCtrl.NewMarksController(s.Marks)
	imports := examCtrl.NewImportController(s.Imports)

	r.Get("/exam-types", setup.ListExamTypes)
	r.Put("/exam-configurations", setup.SetMaxMarks)

	classes := r.Group("/classes/:class_id")
	{
		classes.Get("/exam-configurations", setup.ListConfigurations)

		classes.Get("/marks", marks.List)
		classes.Post("/marks", marks.Save)

		classes.Get("/marks/template", imports.MarksTemplate)
		classes.Post("/marks/import", middlewares.UploadRateLimiter(), imports.PreviewMarks)
		classes.Get("/non-scholastic/template", imports.NonScholasticTemplate)
		classes.Post("/non-scholastic/import", middlewares.UploadRateLimiter(), imports.PreviewNonScholastic)
	}

	previews := r.Group("/imports")
	{
		previews.Get("/:preview_id", imports.Get)
		previews.Post("/:preview_id/confirm", imports.Confirm)
		previews.Delete("/:preview_id", imports.Discard)
	}
}
