// internals/route/details/school_routes.go
package details

import (
	SubjectRoutes "schooldesk_backend/internals/features/school/academics/subjects/route"
	subjectService "schooldesk_backend/internals/features/school/academics/subjects/service"
	ActivityLogRoutes "schooldesk_backend/internals/features/school/activity_logs/route"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	AttendanceRoutes "schooldesk_backend/internals/features/school/attendance/route"
	attendanceService "schooldesk_backend/internals/features/school/attendance/service"
	ClassesRoutes "schooldesk_backend/internals/features/school/classes/classes/route"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	ExamRoutes "schooldesk_backend/internals/features/school/exams/route"
	examService "schooldesk_backend/internals/features/school/exams/service"
	ReportRoutes "schooldesk_backend/internals/features/school/reports/route"
	reportService "schooldesk_backend/internals/features/school/reports/service"

	"github.com/gofiber/fiber/v2"
)

// Services is everything the staff API is built from.
type Services struct {
	Roster     classService.RosterService
	Subjects   subjectService.SubjectService
	ExamSetup  examService.ExamSetupService
	Marks      examService.MarksService
	Imports    examService.ImportService
	Attendance attendanceService.AttendanceService
	Reports    reportService.ReportService
	Activity   activityService.ActivityLogService
}

/* ===================== STAFF (PRIVATE) ===================== */
// Principal and teachers; per-class access is checked in the services.
func SchoolStaffRoutes(r fiber.Router, s Services) {
	ClassesRoutes.RosterRoutes(r, s.Roster)
	SubjectRoutes.SubjectRoutes(r, s.Subjects)
	ExamRoutes.ExamRoutes(r, ExamRoutes.Services{
		Setup:   s.ExamSetup,
		Marks:   s.Marks,
		Imports: s.Imports,
	})
	AttendanceRoutes.AttendanceRoutes(r, s.Attendance)
	ReportRoutes.ReportRoutes(r, s.Reports)
	ActivityLogRoutes.ActivityLogRoutes(r, s.Activity)
}
