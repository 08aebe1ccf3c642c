// file: internals/features/school/exams/service/exam_setup_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ConfigurationInput struct {
	ClassID      uuid.UUID
	SubjectID    uuid.UUID
	ExamTypeID   uuid.UUID
	AcademicYear string
	MaxMarks     float64
}

type ExamSetupService interface {
	ListExamTypes(ctx context.Context) ([]examModel.ExamTypeModel, error)
	ListConfigurations(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, academicYear string) ([]examModel.ExamConfigurationModel, error)
	// SetMaxMarks creates or edits a configuration. Lowering the max below a
	// mark already recorded against it is refused.
	SetMaxMarks(ctx context.Context, actor helperAuth.Actor, in ConfigurationInput) (*examModel.ExamConfigurationModel, error)
}

type examSetupSvc struct {
	st       store.Store
	activity activityService.ActivityLogService
	cache    reportCache.ReportCache
}

func NewExamSetupService(st store.Store, activity activityService.ActivityLogService, cache reportCache.ReportCache) ExamSetupService {
	return &examSetupSvc{st: st, activity: activity, cache: cache}
}

func (s *examSetupSvc) ListExamTypes(ctx context.Context) ([]examModel.ExamTypeModel, error) {
	return s.st.ListExamTypes(ctx)
}

func (s *examSetupSvc) ListConfigurations(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, academicYear string) ([]examModel.ExamConfigurationModel, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	return s.st.ListExamConfigurations(ctx, class.ClassLevel, academicYearFor(class, academicYear))
}

func (s *examSetupSvc) SetMaxMarks(ctx context.Context, actor helperAuth.Actor, in ConfigurationInput) (*examModel.ExamConfigurationModel, error) {
	if in.MaxMarks <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "max_marks must be greater than 0")
	}
	class, err := classService.ClassForActor(ctx, s.st, actor, in.ClassID)
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

	cfg := &examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   class.ClassLevel,
		ExamConfigurationSubjectID:    subject.SubjectID,
		ExamConfigurationExamTypeID:   examType.ExamTypeID,
		ExamConfigurationAcademicYear: year,
		ExamConfigurationMaxMarks:     in.MaxMarks,
	}

	var previous *float64
	err = s.st.WithinTx(ctx, func(tx store.Store) error {
		cur, err := tx.GetExamConfiguration(ctx, cfg.Key())
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		default:
			prev := cur.ExamConfigurationMaxMarks
			previous = &prev
			marks, err := tx.ListStudentMarks(ctx, []uuid.UUID{cur.ExamConfigurationID})
			if err != nil {
				return err
			}
			if hi, ok := highestMark(marks); ok && hi > in.MaxMarks {
				return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf(
					"max marks %s is below the highest recorded mark %s", fmtNum(in.MaxMarks), fmtNum(hi)))
			}
		}
		return tx.UpsertExamConfiguration(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[EXAM] configuration=%s level=%s subject=%s type=%s year=%s max=%s",
		cfg.ExamConfigurationID, class.ClassLevel, subject.SubjectName, examType.ExamTypeName, year, fmtNum(in.MaxMarks))

	reportCache.InvalidateLevel(ctx, s.cache, s.st, class.ClassLevel, year)

	meta := map[string]any{"max_marks": in.MaxMarks, "class_level": class.ClassLevel, "academic_year": year}
	if previous != nil {
		meta["previous_max_marks"] = *previous
	}
	id := cfg.ExamConfigurationID
	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionConfigUpdate,
		EntityType:  "exam_configuration",
		EntityID:    &id,
		Description: fmt.Sprintf("Set %s %s max marks to %s for class %s", subject.SubjectName, examType.ExamTypeName, fmtNum(in.MaxMarks), class.ClassLevel),
		Metadata:    meta,
	})
	return cfg, nil
}

func highestMark(marks []examModel.StudentMarkModel) (float64, bool) {
	var (
		hi    float64
		found bool
	)
	for _, m := range marks {
		if m.StudentMarkMarksObtained == nil {
			continue
		}
		if !found || *m.StudentMarkMarksObtained > hi {
			hi, found = *m.StudentMarkMarksObtained, true
		}
	}
	return hi, found
}

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
