// file: internals/features/school/exams/service/marks_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/exams/reconcile"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/google/uuid"
)

/* ============================================
   Types
============================================ */

type MarksQuery struct {
	ExamTypeID   uuid.UUID
	SubjectID    uuid.UUID
	AcademicYear string
}

type MarksSheetRow struct {
	StudentID     uuid.UUID `json:"student_id"`
	ScholarNumber string    `json:"scholar_number"`
	RollNumber    int       `json:"roll_number"`
	Name          string    `json:"name"`
	MarksObtained *float64  `json:"marks_obtained"`
	IsAbsent      bool      `json:"is_absent"`
	Recorded      bool      `json:"recorded"`
}

// MarksSheet is one subject x exam type for a class, one row per student in
// roll order. Configuration is nil until a max has been set.
type MarksSheet struct {
	ClassID       uuid.UUID                         `json:"class_id"`
	SubjectID     uuid.UUID                         `json:"subject_id"`
	ExamTypeID    uuid.UUID                         `json:"exam_type_id"`
	AcademicYear  string                            `json:"academic_year"`
	Configuration *examModel.ExamConfigurationModel `json:"configuration"`
	Rows          []MarksSheetRow                   `json:"rows"`
}

type MarkEntry struct {
	StudentID     uuid.UUID
	MarksObtained *float64
	IsAbsent      bool
}

type SaveMarksInput struct {
	MarksQuery
	// MaxMarks is only used when no configuration exists yet.
	MaxMarks *float64
	Entries  []MarkEntry
}

type SaveMarksResult struct {
	Configuration examModel.ExamConfigurationModel `json:"configuration"`
	ConfigCreated bool                             `json:"configuration_created"`
	Saved         int                              `json:"saved"`
	Skipped       int                              `json:"skipped"`
	Warnings      []string                         `json:"warnings"`
}

type MarksService interface {
	ListMarks(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, q MarksQuery) (*MarksSheet, error)
	// SaveMarks is manual entry for one subject and exam type. Until a
	// configuration exists a max must be supplied; otherwise the request
	// fails with a configuration_missing validation error.
	SaveMarks(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, in SaveMarksInput) (*SaveMarksResult, error)
}

type marksSvc struct {
	st       store.Store
	activity activityService.ActivityLogService
	cache    reportCache.ReportCache
}

func NewMarksService(st store.Store, activity activityService.ActivityLogService, cache reportCache.ReportCache) MarksService {
	return &marksSvc{st: st, activity: activity, cache: cache}
}

/* ============================================
   Read
============================================ */

func (s *marksSvc) ListMarks(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, q MarksQuery) (*MarksSheet, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	subject, err := subjectForClass(ctx, s.st, class, q.SubjectID)
	if err != nil {
		return nil, err
	}
	if _, err := examTypeByID(ctx, s.st, q.ExamTypeID); err != nil {
		return nil, err
	}
	year := academicYearFor(class, q.AcademicYear)

	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}
	out := &MarksSheet{
		ClassID:      class.ClassID,
		SubjectID:    subject.SubjectID,
		ExamTypeID:   q.ExamTypeID,
		AcademicYear: year,
		Rows:         make([]MarksSheetRow, 0, len(students)),
	}

	byStudent := map[uuid.UUID]examModel.StudentMarkModel{}
	cfg, err := s.st.GetExamConfiguration(ctx, examModel.ExamConfigurationKey{
		ClassLevel: class.ClassLevel, SubjectID: subject.SubjectID, ExamTypeID: q.ExamTypeID, AcademicYear: year,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		out.Configuration = cfg
		marks, err := s.st.ListStudentMarks(ctx, []uuid.UUID{cfg.ExamConfigurationID})
		if err != nil {
			return nil, err
		}
		for _, m := range marks {
			byStudent[m.StudentMarkStudentID] = m
		}
	}

	for _, st := range students {
		row := MarksSheetRow{
			StudentID:     st.StudentID,
			ScholarNumber: st.StudentScholarNumber,
			RollNumber:    st.StudentRollNumber,
			Name:          st.StudentName,
		}
		if m, ok := byStudent[st.StudentID]; ok {
			row.Recorded = true
			row.IsAbsent = m.StudentMarkIsAbsent
			row.MarksObtained = m.StudentMarkMarksObtained
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

/* ============================================
   Write
============================================ */

func (s *marksSvc) SaveMarks(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, in SaveMarksInput) (*SaveMarksResult, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	subject, err := subjectForClass(ctx, s.st, class, in.SubjectID)
	if err != nil {
		return nil, err
	}
	examType, err := examTypeByID(ctx, s.st, in.ExamTypeID)
	if err != nil {
		return nil, err
	}
	year := academicYearFor(class, in.AcademicYear)
	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}

	res := &SaveMarksResult{Warnings: []string{}}
	cfg := examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   class.ClassLevel,
		ExamConfigurationSubjectID:    subject.SubjectID,
		ExamConfigurationExamTypeID:   examType.ExamTypeID,
		ExamConfigurationAcademicYear: year,
	}
	existing, err := s.st.GetExamConfiguration(ctx, cfg.Key())
	switch {
	case errors.Is(err, store.ErrNotFound):
		if in.MaxMarks == nil {
			return nil, reconcile.ValidationErrors{{
				Column:  "max_marks",
				Kind:    reconcile.KindConfigurationMissing,
				Message: fmt.Sprintf("%s has no maximum marks for %s yet; provide max_marks", subject.SubjectName, examType.ExamTypeName),
			}}
		}
		if *in.MaxMarks <= 0 {
			return nil, reconcile.ValidationErrors{{
				Column: "max_marks", Kind: reconcile.KindInvalidMax, Message: "max marks must be a positive number",
			}}
		}
		cfg.ExamConfigurationMaxMarks = *in.MaxMarks
		res.ConfigCreated = true
	case err != nil:
		return nil, err
	default:
		cfg = *existing
		if in.MaxMarks != nil && *in.MaxMarks != existing.ExamConfigurationMaxMarks {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"max marks %s ignored; the configured maximum %s is kept",
				fmtNum(*in.MaxMarks), fmtNum(existing.ExamConfigurationMaxMarks)))
		}
	}

	rows, skipped, err := validateEntries(students, in.Entries, cfg.ExamConfigurationMaxMarks)
	if err != nil {
		return nil, err
	}
	res.Skipped = skipped

	err = s.st.WithinTx(ctx, func(tx store.Store) error {
		if res.ConfigCreated {
			if err := tx.UpsertExamConfiguration(ctx, &cfg); err != nil {
				return err
			}
		}
		for i := range rows {
			rows[i].StudentMarkExamConfigurationID = cfg.ExamConfigurationID
		}
		return tx.UpsertStudentMarks(ctx, rows)
	})
	if err != nil {
		log.Printf("[MARKS] ERROR save class=%s subject=%s type=%s err=%v", class.ClassID, subject.SubjectID, examType.ExamTypeID, err)
		return nil, err
	}
	res.Configuration = cfg
	res.Saved = len(rows)
	log.Printf("[MARKS] saved class=%s subject=%q type=%q year=%s rows=%d config_created=%v",
		class.ClassID, subject.SubjectName, examType.ExamTypeName, year, len(rows), res.ConfigCreated)

	if res.ConfigCreated {
		reportCache.InvalidateLevel(ctx, s.cache, s.st, class.ClassLevel, year)
	} else if err := s.cache.InvalidateClass(ctx, class.ClassID); err != nil {
		log.Printf("[CACHE] WARN invalidate class=%s: %v", class.ClassID, err)
	}

	id := cfg.ExamConfigurationID
	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionMarksSave,
		EntityType:  "exam_configuration",
		EntityID:    &id,
		Description: fmt.Sprintf("Entered %s %s marks for %d students of %s", subject.SubjectName, examType.ExamTypeName, len(rows), class.DisplayName()),
		Metadata:    map[string]any{"class_id": class.ClassID, "rows": len(rows), "configuration_created": res.ConfigCreated},
	})
	return res, nil
}

// validateEntries turns manual entries into upsert rows. Entries with
// neither a mark nor absence are left alone; a repeated student keeps the
// later entry.
func validateEntries(students []classModel.StudentModel, entries []MarkEntry, limit float64) ([]examModel.StudentMarkModel, int, error) {
	roster := make(map[uuid.UUID]classModel.StudentModel, len(students))
	for _, st := range students {
		roster[st.StudentID] = st
	}

	var (
		errs    reconcile.ValidationErrors
		rows    []examModel.StudentMarkModel
		skipped int
	)
	pos := map[uuid.UUID]int{}
	for i, e := range entries {
		st, ok := roster[e.StudentID]
		if !ok {
			errs = append(errs, &reconcile.ValidationError{
				Row: i + 1, Column: "student_id", Kind: reconcile.KindUnknownStudent,
				Message: fmt.Sprintf("student %s is not in this class", e.StudentID),
			})
			continue
		}
		label := fmt.Sprintf("%s (%s)", st.StudentName, st.StudentScholarNumber)
		switch {
		case e.IsAbsent && e.MarksObtained != nil:
			errs = append(errs, &reconcile.ValidationError{
				Row: i + 1, Column: label, Kind: reconcile.KindInvalidNumber,
				Message: "a student is either absent or has marks, not both",
			})
			continue
		case !e.IsAbsent && e.MarksObtained == nil:
			skipped++
			continue
		case e.MarksObtained != nil && *e.MarksObtained < 0:
			errs = append(errs, &reconcile.ValidationError{
				Row: i + 1, Column: label, Kind: reconcile.KindNegative,
				Message: fmt.Sprintf("marks cannot be negative (%s)", fmtNum(*e.MarksObtained)),
			})
			continue
		case e.MarksObtained != nil && *e.MarksObtained > limit:
			errs = append(errs, &reconcile.ValidationError{
				Row: i + 1, Column: label, Kind: reconcile.KindExceedsMax,
				Message: fmt.Sprintf("%s exceeds maximum %s", fmtNum(*e.MarksObtained), fmtNum(limit)),
			})
			continue
		}

		row := examModel.StudentMarkModel{
			StudentMarkStudentID: e.StudentID,
			StudentMarkIsAbsent:  e.IsAbsent,
		}
		if e.MarksObtained != nil {
			v := *e.MarksObtained
			row.StudentMarkMarksObtained = &v
		}
		if j, dup := pos[e.StudentID]; dup {
			rows[j] = row
			continue
		}
		pos[e.StudentID] = len(rows)
		rows = append(rows, row)
	}
	if len(errs) > 0 {
		return nil, 0, errs
	}
	return rows, skipped, nil
}
