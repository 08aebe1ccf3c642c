package route

import (
	reportCtrl "schooldesk_backend/internals/features/school/reports/controller"
	"schooldesk_backend/internals/features/school/reports/service"

	"github.com/gofiber/fiber/v2"
)

func ReportRoutes(r fiber.Router, svc service.ReportService) {
	h := reportCtrl.NewReportController(svc)

	classes := r.Group("/classes/:class_id/reports")
	{
		classes.Get("/marksheets", h.ClassMarksheets)
		classes.Get("/statistics", h.ClassStatistics)
	}

	students := r.Group("/students/:student_id")
	{
		students.Get("/marksheet", h.StudentMarksheet)
		students.Get("/marksheet.pdf", h.StudentMarksheetPDF)
		students.Get("/report-remarks", h.GetRemarks)
		students.Put("/report-remarks", h.SaveRemarks)
	}
}
