// file: internals/features/school/academics/subjects/service/subject_service.go
package service

import (
	"context"
	"errors"
	"log"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SubjectService interface {
	// ListForClass returns the subjects of the class's level in display order.
	ListForClass(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID) ([]subjectModel.SubjectModel, error)
	// Create is principal-only; the group name defaults from the subject name.
	Create(ctx context.Context, actor helperAuth.Actor, m *subjectModel.SubjectModel) error
}

type subjectSvc struct {
	st       store.Store
	activity activityService.ActivityLogService
}

func NewSubjectService(st store.Store, activity activityService.ActivityLogService) SubjectService {
	return &subjectSvc{st: st, activity: activity}
}

func (s *subjectSvc) ListForClass(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID) ([]subjectModel.SubjectModel, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	return s.st.ListSubjects(ctx, class.ClassLevel)
}

func (s *subjectSvc) Create(ctx context.Context, actor helperAuth.Actor, m *subjectModel.SubjectModel) error {
	if !actor.IsPrincipal() {
		return fiber.NewError(fiber.StatusForbidden, "only the principal can add subjects")
	}
	m.SubjectID = uuid.Nil
	m.SubjectClassLevel = classModel.NormalizeClassLevel(m.SubjectClassLevel)
	if m.SubjectClassLevel == "" {
		return fiber.NewError(fiber.StatusBadRequest, "subject_class_level is required")
	}
	if err := s.st.CreateSubject(ctx, m); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fiber.NewError(fiber.StatusConflict, "a subject with this name already exists for the class level")
		}
		log.Printf("[SUBJECT] ERROR create level=%s name=%q err=%v", m.SubjectClassLevel, m.SubjectName, err)
		return err
	}
	log.Printf("[SUBJECT] created subject=%s level=%s group=%q", m.SubjectID, m.SubjectClassLevel, m.SubjectGroupName)

	id := m.SubjectID
	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionSubjectCreate,
		EntityType:  "subject",
		EntityID:    &id,
		Description: "Added subject " + m.SubjectName + " for class " + m.SubjectClassLevel,
		Metadata:    map[string]any{"group_name": m.SubjectGroupName},
	})
	return nil
}
