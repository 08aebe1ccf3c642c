// file: internals/features/school/reports/service/report_service.go
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	"schooldesk_backend/internals/features/school/exams/aggregation"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/exams/statistics"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/reports/formatter"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"
	helperOSS "schooldesk_backend/internals/helpers/oss"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RemarksInput struct {
	AcademicYear   string
	Height         *string
	Weight         *string
	AttendanceText *string
	Remarks        *string
}

// StatisticsReport is ClassStatistics for one scope. Slot and ExamTypeID
// are empty for the overall total.
type StatisticsReport struct {
	ClassID      uuid.UUID        `json:"class_id"`
	AcademicYear string           `json:"academic_year"`
	ExamTypeID   *uuid.UUID       `json:"exam_type_id,omitempty"`
	Slot         aggregation.Slot `json:"slot,omitempty"`
	statistics.ClassStatistics
}

type ReportService interface {
	ClassMarksheets(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, academicYear string) ([]formatter.Marksheet, error)
	StudentMarksheet(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, academicYear string) (*formatter.Marksheet, error)
	// StudentMarksheetPDF renders the marksheet and returns the PDF with a
	// download file name.
	StudentMarksheetPDF(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, academicYear string) ([]byte, string, error)
	// ClassStatistics covers the exam type's slot, or the overall total
	// when examTypeID is nil.
	ClassStatistics(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, academicYear string, examTypeID *uuid.UUID) (*StatisticsReport, error)
	GetRemarks(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, academicYear string) (*examModel.ReportRemarkModel, error)
	SaveRemarks(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, in RemarksInput) (*examModel.ReportRemarkModel, error)
}

type reportSvc struct {
	st         store.Store
	activity   activityService.ActivityLogService
	cache      reportCache.ReportCache
	archive    helperOSS.Archiver
	schoolName string
}

func NewReportService(
	st store.Store,
	activity activityService.ActivityLogService,
	cache reportCache.ReportCache,
	archive helperOSS.Archiver,
	schoolName string,
) ReportService {
	if archive == nil {
		archive = helperOSS.NoopArchiver{}
	}
	return &reportSvc{st: st, activity: activity, cache: cache, archive: archive, schoolName: schoolName}
}

func yearFor(class *classModel.ClassModel, year string) string {
	if y := strings.TrimSpace(year); y != "" {
		return y
	}
	return class.ClassAcademicYear
}

/* ============================================
   Class snapshot
============================================ */

type studentReport struct {
	student   classModel.StudentModel
	aggregate aggregation.StudentAggregate
}

// classSnapshot is everything needed to aggregate one class for one year,
// read once.
type classSnapshot struct {
	class    *classModel.ClassModel
	year     string
	resolver *aggregation.SlotResolver
	students []studentReport

	activities []examModel.NonScholasticActivityModel
	// student -> activity -> exam type -> value
	values  map[uuid.UUID]map[uuid.UUID]map[uuid.UUID]examModel.StudentNonScholasticModel
	remarks map[uuid.UUID]*examModel.ReportRemarkModel
	// attendance tallies over the academic year, when it parses
	attendance map[uuid.UUID]formatter.AttendanceRow
}

func (s *reportSvc) snapshot(ctx context.Context, class *classModel.ClassModel, year string) (*classSnapshot, error) {
	snap := &classSnapshot{class: class, year: year}

	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.st.ListSubjects(ctx, class.ClassLevel)
	if err != nil {
		return nil, err
	}
	configs, err := s.st.ListExamConfigurations(ctx, class.ClassLevel, year)
	if err != nil {
		return nil, err
	}
	types, err := s.st.ListExamTypes(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]aggregation.ExamTypeRef, 0, len(types))
	for _, t := range types {
		refs = append(refs, t.Ref())
	}
	snap.resolver = aggregation.NewSlotResolver(refs)

	subjectRefs := make([]aggregation.SubjectRef, 0, len(subjects))
	for _, sub := range subjects {
		subjectRefs = append(subjectRefs, aggregation.SubjectRef{ID: sub.SubjectID, Name: sub.SubjectName, GroupName: sub.SubjectGroupName})
	}
	configRefs := make([]aggregation.ConfigRef, 0, len(configs))
	configIDs := make([]uuid.UUID, 0, len(configs))
	for _, c := range configs {
		configRefs = append(configRefs, aggregation.ConfigRef{
			ID:         c.ExamConfigurationID,
			SubjectID:  c.ExamConfigurationSubjectID,
			ExamTypeID: c.ExamConfigurationExamTypeID,
			MaxMarks:   c.ExamConfigurationMaxMarks,
		})
		configIDs = append(configIDs, c.ExamConfigurationID)
	}
	groups := aggregation.GroupSubjects(subjectRefs, configRefs)

	marks, err := s.st.ListStudentMarks(ctx, configIDs)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[uuid.UUID]map[uuid.UUID]aggregation.Mark, len(students))
	for _, m := range marks {
		if byStudent[m.StudentMarkStudentID] == nil {
			byStudent[m.StudentMarkStudentID] = map[uuid.UUID]aggregation.Mark{}
		}
		byStudent[m.StudentMarkStudentID][m.StudentMarkExamConfigurationID] = aggregation.Mark{
			MarksObtained: m.StudentMarkMarksObtained,
			IsAbsent:      m.StudentMarkIsAbsent,
		}
	}
	for _, st := range students {
		snap.students = append(snap.students, studentReport{
			student:   st,
			aggregate: aggregation.Aggregate(groups, snap.resolver, byStudent[st.StudentID]),
		})
	}
	return snap, nil
}

// loadExtras reads the parts only the printable marksheet needs.
func (s *reportSvc) loadExtras(ctx context.Context, snap *classSnapshot) error {
	activities, err := s.st.ListNonScholasticActivities(ctx, snap.class.ClassLevel)
	if err != nil {
		return err
	}
	sort.SliceStable(activities, func(i, j int) bool {
		a, b := activities[i], activities[j]
		if a.NonScholasticActivityDisplayOrder != b.NonScholasticActivityDisplayOrder {
			return a.NonScholasticActivityDisplayOrder < b.NonScholasticActivityDisplayOrder
		}
		if a.NonScholasticActivityCategory != b.NonScholasticActivityCategory {
			return a.NonScholasticActivityCategory < b.NonScholasticActivityCategory
		}
		return a.NonScholasticActivityName < b.NonScholasticActivityName
	})
	snap.activities = activities

	ids := make([]uuid.UUID, 0, len(snap.students))
	for _, sr := range snap.students {
		ids = append(ids, sr.student.StudentID)
	}
	values, err := s.st.ListStudentNonScholastic(ctx, ids, snap.year)
	if err != nil {
		return err
	}
	snap.values = map[uuid.UUID]map[uuid.UUID]map[uuid.UUID]examModel.StudentNonScholasticModel{}
	for _, v := range values {
		byActivity := snap.values[v.StudentNonScholasticStudentID]
		if byActivity == nil {
			byActivity = map[uuid.UUID]map[uuid.UUID]examModel.StudentNonScholasticModel{}
			snap.values[v.StudentNonScholasticStudentID] = byActivity
		}
		if byActivity[v.StudentNonScholasticActivityID] == nil {
			byActivity[v.StudentNonScholasticActivityID] = map[uuid.UUID]examModel.StudentNonScholasticModel{}
		}
		byActivity[v.StudentNonScholasticActivityID][v.StudentNonScholasticExamTypeID] = v
	}

	snap.remarks = make(map[uuid.UUID]*examModel.ReportRemarkModel, len(ids))
	for _, id := range ids {
		r, err := s.st.GetReportRemark(ctx, id, snap.year)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		default:
			snap.remarks[id] = r
		}
	}

	if from, to, ok := academicYearWindow(snap.year); ok {
		records, err := s.st.ListAttendance(ctx, snap.class.ClassID, from, to)
		if err != nil {
			return err
		}
		roster := make([]formatter.AttendanceStudent, 0, len(snap.students))
		for _, sr := range snap.students {
			roster = append(roster, formatter.AttendanceStudent{StudentID: sr.student.StudentID, RollNumber: sr.student.StudentRollNumber, Name: sr.student.StudentName})
		}
		att := make([]formatter.AttendanceMark, 0, len(records))
		for _, r := range records {
			att = append(att, formatter.AttendanceMark{StudentID: r.AttendanceRecordStudentID, Date: r.Day(), Status: r.AttendanceRecordStatus})
		}
		rep := formatter.BuildAttendanceReport(roster, att, from, to)
		snap.attendance = make(map[uuid.UUID]formatter.AttendanceRow, len(rep.Rows))
		for _, row := range rep.Rows {
			snap.attendance[row.StudentID] = row
		}
	}
	return nil
}

// academicYearWindow reads "2025-26" (or "2025-2026") as 1 April 2025 to
// 31 March 2026.
func academicYearWindow(year string) (time.Time, time.Time, bool) {
	var start int
	if _, err := fmt.Sscanf(strings.TrimSpace(year), "%4d", &start); err != nil || start < 1900 {
		return time.Time{}, time.Time{}, false
	}
	from := time.Date(start, time.April, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, -1), true
}

// nonScholasticFor picks, per activity, the value of the annual exam type
// when one is recorded, otherwise the value of the highest ranked exam type.
// Output follows snap.activities.
func (snap *classSnapshot) nonScholasticFor(studentID uuid.UUID, order map[uuid.UUID]int) []formatter.ActivityValue {
	annual, hasAnnual := snap.resolver.ExamTypeFor(aggregation.SlotAnnual)
	out := make([]formatter.ActivityValue, 0, len(snap.activities))
	for _, a := range snap.activities {
		av := formatter.ActivityValue{Category: a.NonScholasticActivityCategory, Activity: a.NonScholasticActivityName}
		byType := snap.values[studentID][a.NonScholasticActivityID]

		var (
			pick  examModel.StudentNonScholasticModel
			found bool
		)
		if v, ok := byType[annual]; hasAnnual && ok {
			pick, found = v, true
		} else {
			best := -1
			for typeID, v := range byType {
				if o := order[typeID]; !found || o > best {
					pick, found, best = v, true, o
				}
			}
		}
		if found {
			av.Recorded = true
			av.Grade = pick.StudentNonScholasticGrade
			av.NumericValue = pick.StudentNonScholasticNumericValue
			av.IsAbsent = pick.StudentNonScholasticIsAbsent
		}
		out = append(out, av)
	}
	return out
}

func (snap *classSnapshot) health(studentID uuid.UUID) formatter.Health {
	var h formatter.Health
	if r := snap.remarks[studentID]; r != nil {
		h.Height = deref(r.ReportRemarkHeight)
		h.Weight = deref(r.ReportRemarkWeight)
		h.Attendance = deref(r.ReportRemarkAttendanceText)
		h.Remarks = deref(r.ReportRemarkRemarks)
	}
	if h.Attendance == "" {
		if row, ok := snap.attendance[studentID]; ok && row.TotalDays > 0 {
			h.Attendance = fmt.Sprintf("%d/%d", row.Present+row.Late, row.TotalDays)
		}
	}
	return h
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *reportSvc) buildMarksheets(ctx context.Context, snap *classSnapshot) ([]formatter.Marksheet, error) {
	if err := s.loadExtras(ctx, snap); err != nil {
		return nil, err
	}
	types, err := s.st.ListExamTypes(ctx)
	if err != nil {
		return nil, err
	}
	// rank follows (display order, name) so equal display orders still
	// resolve the same way every time
	order := make(map[uuid.UUID]int, len(types))
	sort.SliceStable(types, func(i, j int) bool {
		if types[i].ExamTypeDisplayOrder != types[j].ExamTypeDisplayOrder {
			return types[i].ExamTypeDisplayOrder < types[j].ExamTypeDisplayOrder
		}
		return types[i].ExamTypeName < types[j].ExamTypeName
	})
	for i, t := range types {
		order[t.ExamTypeID] = i + 1
	}

	out := make([]formatter.Marksheet, 0, len(snap.students))
	for _, sr := range snap.students {
		st := sr.student
		info := formatter.StudentInfo{
			StudentID:     st.StudentID,
			ScholarNumber: st.StudentScholarNumber,
			RollNumber:    st.StudentRollNumber,
			Name:          st.StudentName,
			FatherName:    deref(st.StudentFatherName),
			MotherName:    deref(st.StudentMotherName),
			ClassName:     snap.class.DisplayName(),
			AcademicYear:  snap.year,
		}
		if st.StudentDateOfBirth != nil {
			info.DateOfBirth = time.Time(*st.StudentDateOfBirth).Format("02-01-2006")
		}
		out = append(out, formatter.BuildMarksheet(formatter.MarksheetInput{
			SchoolName:    s.schoolName,
			Student:       info,
			Aggregate:     sr.aggregate,
			NonScholastic: snap.nonScholasticFor(st.StudentID, order),
			Health:        snap.health(st.StudentID),
		}))
	}
	return out, nil
}

/* ============================================
   Marksheets
============================================ */

func (s *reportSvc) classMarksheets(ctx context.Context, class *classModel.ClassModel, year string) ([]formatter.Marksheet, error) {
	key := reportCache.Key(class.ClassID, "marksheets", year)
	var cached []formatter.Marksheet
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Printf("[CACHE] WARN get %s: %v", key, err)
	} else if ok {
		return cached, nil
	}

	snap, err := s.snapshot(ctx, class, year)
	if err != nil {
		return nil, err
	}
	sheets, err := s.buildMarksheets(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, sheets); err != nil {
		log.Printf("[CACHE] WARN set %s: %v", key, err)
	}
	return sheets, nil
}

func (s *reportSvc) ClassMarksheets(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, academicYear string) ([]formatter.Marksheet, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	return s.classMarksheets(ctx, class, yearFor(class, academicYear))
}

func (s *reportSvc) StudentMarksheet(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, academicYear string) (*formatter.Marksheet, error) {
	st, class, err := classService.StudentForActor(ctx, s.st, actor, studentID)
	if err != nil {
		return nil, err
	}
	sheets, err := s.classMarksheets(ctx, class, yearFor(class, academicYear))
	if err != nil {
		return nil, err
	}
	for i := range sheets {
		if sheets[i].Student.StudentID == st.StudentID {
			return &sheets[i], nil
		}
	}
	return nil, fiber.NewError(fiber.StatusNotFound, "student not found")
}

func (s *reportSvc) StudentMarksheetPDF(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, academicYear string) ([]byte, string, error) {
	ms, err := s.StudentMarksheet(ctx, actor, studentID, academicYear)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := ms.WritePDF(&buf); err != nil {
		log.Printf("[REPORT] ERROR pdf student=%s: %v", studentID, err)
		return nil, "", err
	}
	name := fmt.Sprintf("marksheet_%s_%s.pdf", strings.ReplaceAll(ms.Student.ScholarNumber, "/", "-"), ms.Student.AcademicYear)
	if key, err := s.archive.Archive(ctx, "reports/marksheets", name, buf.Bytes()); err != nil {
		log.Printf("[REPORT] WARN archive %s: %v", name, err)
	} else if key != "" {
		log.Printf("[REPORT] archived %s as %s", name, key)
	}
	return buf.Bytes(), name, nil
}

/* ============================================
   Statistics
============================================ */

func (s *reportSvc) ClassStatistics(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, academicYear string, examTypeID *uuid.UUID) (*StatisticsReport, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	year := yearFor(class, academicYear)
	scope := "overall"
	if examTypeID != nil {
		if _, err := s.st.GetExamType(ctx, *examTypeID); errors.Is(err, store.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "exam type not found")
		} else if err != nil {
			return nil, err
		}
		scope = examTypeID.String()
	}

	key := reportCache.Key(class.ClassID, "statistics", year, scope)
	var cached StatisticsReport
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Printf("[CACHE] WARN get %s: %v", key, err)
	} else if ok {
		return &cached, nil
	}

	snap, err := s.snapshot(ctx, class, year)
	if err != nil {
		return nil, err
	}
	out := &StatisticsReport{ClassID: class.ClassID, AcademicYear: year, ExamTypeID: examTypeID}
	var slot *aggregation.Slot
	if examTypeID != nil {
		sl, ok := snap.resolver.SlotOf(*examTypeID)
		if !ok {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "exam type does not map to a report column")
		}
		slot, out.Slot = &sl, sl
	}

	entries := make([]statistics.Entry, 0, len(snap.students))
	for _, sr := range snap.students {
		st := sr.student
		entries = append(entries, statistics.EntryFromAggregate(st.StudentID, st.StudentName, st.StudentRollNumber, sr.aggregate, slot))
	}
	out.ClassStatistics = statistics.Compute(entries)
	if out.ClassAverage != nil {
		avg := formatter.Round2(*out.ClassAverage)
		out.ClassAverage = &avg
	}
	if out.Topper != nil {
		out.Topper.Percentage = formatter.Round2(out.Topper.Percentage)
	}

	if err := s.cache.Set(ctx, key, out); err != nil {
		log.Printf("[CACHE] WARN set %s: %v", key, err)
	}
	return out, nil
}

/* ============================================
   Remarks
============================================ */

func (s *reportSvc) GetRemarks(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, academicYear string) (*examModel.ReportRemarkModel, error) {
	st, class, err := classService.StudentForActor(ctx, s.st, actor, studentID)
	if err != nil {
		return nil, err
	}
	year := yearFor(class, academicYear)
	r, err := s.st.GetReportRemark(ctx, st.StudentID, year)
	if errors.Is(err, store.ErrNotFound) {
		return &examModel.ReportRemarkModel{ReportRemarkStudentID: st.StudentID, ReportRemarkAcademicYear: year}, nil
	}
	return r, err
}

func (s *reportSvc) SaveRemarks(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, in RemarksInput) (*examModel.ReportRemarkModel, error) {
	st, class, err := classService.StudentForActor(ctx, s.st, actor, studentID)
	if err != nil {
		return nil, err
	}
	r := &examModel.ReportRemarkModel{
		ReportRemarkStudentID:      st.StudentID,
		ReportRemarkAcademicYear:   yearFor(class, in.AcademicYear),
		ReportRemarkHeight:         in.Height,
		ReportRemarkWeight:         in.Weight,
		ReportRemarkAttendanceText: in.AttendanceText,
		ReportRemarkRemarks:        in.Remarks,
	}
	if err := s.st.UpsertReportRemark(ctx, r); err != nil {
		return nil, err
	}
	log.Printf("[REPORT] remarks saved student=%s year=%s", st.StudentID, r.ReportRemarkAcademicYear)

	if err := s.cache.InvalidateClass(ctx, class.ClassID); err != nil {
		log.Printf("[CACHE] WARN invalidate class=%s: %v", class.ClassID, err)
	}
	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionReportRemarkSave,
		EntityType:  "student",
		EntityID:    &st.StudentID,
		Description: fmt.Sprintf("Updated report remarks of %s (%s)", st.StudentName, r.ReportRemarkAcademicYear),
	})
	return r, nil
}
