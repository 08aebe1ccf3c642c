// file: internals/features/school/exams/service/common.go
package service

import (
	"context"
	"errors"
	"strings"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// academicYearFor defaults an empty year to the class's own session.
func academicYearFor(class *classModel.ClassModel, year string) string {
	if y := strings.TrimSpace(year); y != "" {
		return y
	}
	return class.ClassAcademicYear
}

func examTypeByID(ctx context.Context, st store.Store, id uuid.UUID) (*examModel.ExamTypeModel, error) {
	et, err := st.GetExamType(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "exam type not found")
	}
	return et, err
}

// subjectForClass loads a subject and checks it belongs to the class level.
func subjectForClass(ctx context.Context, st store.Store, class *classModel.ClassModel, id uuid.UUID) (*subjectModel.SubjectModel, error) {
	s, err := st.GetSubject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "subject not found")
	}
	if err != nil {
		return nil, err
	}
	if s.SubjectClassLevel != class.ClassLevel {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "subject "+s.SubjectName+" is not taught in class "+class.ClassLevel)
	}
	return s, nil
}

// configsForExamType keeps the configurations of one exam type keyed by
// subject.
func configsForExamType(configs []examModel.ExamConfigurationModel, examTypeID uuid.UUID) map[uuid.UUID]examModel.ExamConfigurationModel {
	out := make(map[uuid.UUID]examModel.ExamConfigurationModel, len(configs))
	for _, c := range configs {
		if c.ExamConfigurationExamTypeID == examTypeID {
			out[c.ExamConfigurationSubjectID] = c
		}
	}
	return out
}

func studentIDs(students []classModel.StudentModel) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.StudentID)
	}
	return ids
}
