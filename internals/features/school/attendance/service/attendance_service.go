// file: internals/features/school/attendance/service/attendance_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/reports/formatter"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MaxReportRange bounds a report or export window.
const MaxReportRange = 366 * 24 * time.Hour

type DayEntry struct {
	StudentID uuid.UUID
	Status    string
	Remark    *string
}

type MarkDayInput struct {
	Date    time.Time
	Entries []DayEntry
}

type AttendanceService interface {
	// MarkDay replaces the class's whole register for one date.
	MarkDay(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, in MarkDayInput) ([]attendanceModel.AttendanceRecordModel, error)
	ListDay(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, date time.Time) ([]attendanceModel.AttendanceRecordModel, error)
	// Report tallies [from, to]. Zero bounds default to the month of to
	// (or of today).
	Report(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, from, to time.Time) (*formatter.AttendanceReport, error)
	// Export is Report plus a download file name for the CSV.
	Export(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, from, to time.Time) (*formatter.AttendanceReport, string, error)
}

type attendanceSvc struct {
	st       store.Store
	activity activityService.ActivityLogService
	cache    reportCache.ReportCache
	now      func() time.Time
}

func NewAttendanceService(st store.Store, activity activityService.ActivityLogService, cache reportCache.ReportCache) AttendanceService {
	if cache == nil {
		cache = reportCache.NewNoopCache()
	}
	return &attendanceSvc{st: st, activity: activity, cache: cache, now: time.Now}
}

func (s *attendanceSvc) MarkDay(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, in MarkDayInput) ([]attendanceModel.AttendanceRecordModel, error) {
	if in.Date.IsZero() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "date is required")
	}
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}
	rows, err := buildDay(students, in.Entries)
	if err != nil {
		return nil, err
	}

	day := attendanceModel.DateOnly(in.Date)
	if err := s.st.ReplaceAttendanceForDate(ctx, class.ClassID, day, rows); err != nil {
		log.Printf("[ATTENDANCE] ERROR replace class=%s date=%s err=%v", class.ClassID, day.Format("2006-01-02"), err)
		return nil, err
	}

	tally := make(map[string]int, len(attendanceModel.Statuses))
	for _, r := range rows {
		tally[r.AttendanceRecordStatus]++
	}
	log.Printf("[ATTENDANCE] class=%s date=%s marked=%d of %d", class.ClassID, day.Format("2006-01-02"), len(rows), len(students))
	// marksheets carry the attendance line
	if err := s.cache.InvalidateClass(ctx, class.ClassID); err != nil {
		log.Printf("[ATTENDANCE] WARN invalidate reports class=%s: %v", class.ClassID, err)
	}

	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionAttendanceMark,
		EntityType:  "class",
		EntityID:    &class.ClassID,
		Description: fmt.Sprintf("Marked attendance for %s on %s", class.DisplayName(), day.Format("02 Jan 2006")),
		Metadata:    map[string]any{"date": day.Format("2006-01-02"), "counts": tally},
	})
	return rows, nil
}

// buildDay checks every entry against the roster. A student listed twice
// keeps the later status.
func buildDay(students []classModel.StudentModel, entries []DayEntry) ([]attendanceModel.AttendanceRecordModel, error) {
	roster := make(map[uuid.UUID]struct{}, len(students))
	for _, st := range students {
		roster[st.StudentID] = struct{}{}
	}

	var problems []string
	rows := make([]attendanceModel.AttendanceRecordModel, 0, len(entries))
	pos := map[uuid.UUID]int{}
	for i, e := range entries {
		if _, ok := roster[e.StudentID]; !ok {
			problems = append(problems, fmt.Sprintf("entry %d: student %s is not in this class", i+1, e.StudentID))
			continue
		}
		status := strings.ToLower(strings.TrimSpace(e.Status))
		if !attendanceModel.ValidStatus(status) {
			problems = append(problems, fmt.Sprintf("entry %d: status %q must be one of %s", i+1, e.Status, strings.Join(attendanceModel.Statuses, ", ")))
			continue
		}
		row := attendanceModel.AttendanceRecordModel{
			AttendanceRecordStudentID: e.StudentID,
			AttendanceRecordStatus:    status,
			AttendanceRecordRemark:    e.Remark,
		}
		if j, dup := pos[e.StudentID]; dup {
			rows[j] = row
			continue
		}
		pos[e.StudentID] = len(rows)
		rows = append(rows, row)
	}
	if len(problems) > 0 {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, strings.Join(problems, "; "))
	}
	return rows, nil
}

func (s *attendanceSvc) ListDay(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, date time.Time) ([]attendanceModel.AttendanceRecordModel, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.now()
	}
	day := attendanceModel.DateOnly(date)
	return s.st.ListAttendance(ctx, class.ClassID, day, day)
}

func (s *attendanceSvc) window(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = s.now()
	}
	to = attendanceModel.DateOnly(to)
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	from = attendanceModel.DateOnly(from)
	if from.After(to) {
		return from, to, fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}
	if to.Sub(from) > MaxReportRange {
		return from, to, fiber.NewError(fiber.StatusBadRequest, "date range is limited to one year")
	}
	return from, to, nil
}

func (s *attendanceSvc) Report(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, from, to time.Time) (*formatter.AttendanceReport, error) {
	rep, _, err := s.report(ctx, actor, classID, from, to)
	return rep, err
}

func (s *attendanceSvc) Export(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, from, to time.Time) (*formatter.AttendanceReport, string, error) {
	rep, class, err := s.report(ctx, actor, classID, from, to)
	if err != nil {
		return nil, "", err
	}
	name := "attendance_" + strings.ReplaceAll(class.ClassLevel, " ", "-")
	if class.ClassSection != nil {
		name += "_" + *class.ClassSection
	}
	name += "_" + rep.From + "_" + rep.To + ".csv"
	return rep, name, nil
}

func (s *attendanceSvc) report(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, from, to time.Time) (*formatter.AttendanceReport, *classModel.ClassModel, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, nil, err
	}
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, nil, err
	}
	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.st.ListAttendance(ctx, class.ClassID, from, to)
	if err != nil {
		return nil, nil, err
	}

	roster := make([]formatter.AttendanceStudent, 0, len(students))
	for _, st := range students {
		roster = append(roster, formatter.AttendanceStudent{StudentID: st.StudentID, RollNumber: st.StudentRollNumber, Name: st.StudentName})
	}
	marks := make([]formatter.AttendanceMark, 0, len(records))
	for _, r := range records {
		marks = append(marks, formatter.AttendanceMark{StudentID: r.AttendanceRecordStudentID, Date: r.Day(), Status: r.AttendanceRecordStatus})
	}
	rep := formatter.BuildAttendanceReport(roster, marks, from, to)
	return &rep, class, nil
}
