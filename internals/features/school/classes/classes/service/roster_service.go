// file: internals/features/school/classes/classes/service/roster_service.go
package service

import (
	"context"
	"errors"
	"log"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

/* ============================================
   Access (shared by every class-scoped service)
============================================ */

// ClassForActor loads a class the actor may work on. The principal sees
// every class; a teacher only the classes they are class teacher of.
func ClassForActor(ctx context.Context, st store.Store, actor helperAuth.Actor, classID uuid.UUID) (*classModel.ClassModel, error) {
	c, err := st.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "class not found")
		}
		return nil, err
	}
	if actor.IsPrincipal() {
		return c, nil
	}
	if c.ClassTeacherID == nil || *c.ClassTeacherID != actor.UserID {
		log.Printf("[ROSTER] DENY class=%s actor=%s", classID, actor.UserID)
		return nil, fiber.NewError(fiber.StatusForbidden, "you are not the class teacher of this class")
	}
	return c, nil
}

// StudentForActor loads a student together with their class, applying the
// same access rule.
func StudentForActor(ctx context.Context, st store.Store, actor helperAuth.Actor, studentID uuid.UUID) (*classModel.StudentModel, *classModel.ClassModel, error) {
	s, err := st.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, "student not found")
		}
		return nil, nil, err
	}
	c, err := ClassForActor(ctx, st, actor, s.StudentClassID)
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}

/* ============================================
   Roster
============================================ */

type RosterService interface {
	ListClasses(ctx context.Context, actor helperAuth.Actor, academicYear string) ([]classModel.ClassModel, error)
	GetClass(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID) (*classModel.ClassModel, error)
	ListStudents(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID) ([]classModel.StudentModel, error)
	GetStudent(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID) (*classModel.StudentModel, error)
	CreateStudent(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, s *classModel.StudentModel) error
	// UpdateStudent loads the student, lets apply edit it and saves it.
	UpdateStudent(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, apply func(*classModel.StudentModel)) (*classModel.StudentModel, error)
	DeleteStudent(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID) error
}

type rosterSvc struct {
	st       store.Store
	activity activityService.ActivityLogService
	cache    reportCache.ReportCache
}

func NewRosterService(st store.Store, activity activityService.ActivityLogService, cache reportCache.ReportCache) RosterService {
	if cache == nil {
		cache = reportCache.NewNoopCache()
	}
	return &rosterSvc{st: st, activity: activity, cache: cache}
}

// dropReports: roll numbers and the student list feed every cached
// marksheet and statistic of the class.
func (s *rosterSvc) dropReports(ctx context.Context, classID uuid.UUID) {
	if err := s.cache.InvalidateClass(ctx, classID); err != nil {
		log.Printf("[ROSTER] WARN invalidate reports class=%s: %v", classID, err)
	}
}

func (s *rosterSvc) ListClasses(ctx context.Context, actor helperAuth.Actor, academicYear string) ([]classModel.ClassModel, error) {
	f := store.ClassFilter{AcademicYear: academicYear}
	if !actor.IsPrincipal() {
		id := actor.UserID
		f.TeacherID = &id
	}
	return s.st.ListClasses(ctx, f)
}

func (s *rosterSvc) GetClass(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID) (*classModel.ClassModel, error) {
	return ClassForActor(ctx, s.st, actor, classID)
}

func (s *rosterSvc) ListStudents(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID) ([]classModel.StudentModel, error) {
	if _, err := ClassForActor(ctx, s.st, actor, classID); err != nil {
		return nil, err
	}
	return s.st.ListStudents(ctx, classID)
}

func (s *rosterSvc) GetStudent(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID) (*classModel.StudentModel, error) {
	st, _, err := StudentForActor(ctx, s.st, actor, studentID)
	return st, err
}

func (s *rosterSvc) CreateStudent(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, m *classModel.StudentModel) error {
	class, err := ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return err
	}
	m.StudentID = uuid.Nil
	m.StudentClassID = class.ClassID
	if err := s.st.CreateStudent(ctx, m); err != nil {
		log.Printf("[ROSTER] ERROR create student class=%s scholar=%s err=%v", classID, m.StudentScholarNumber, err)
		return err
	}
	log.Printf("[ROSTER] created student=%s class=%s roll=%d", m.StudentID, classID, m.StudentRollNumber)
	s.dropReports(ctx, class.ClassID)

	id := m.StudentID
	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionStudentCreate,
		EntityType:  "student",
		EntityID:    &id,
		Description: "Added " + m.StudentName + " to " + class.DisplayName(),
		Metadata:    map[string]any{"scholar_number": m.StudentScholarNumber, "class_id": classID},
	})
	return nil
}

func (s *rosterSvc) UpdateStudent(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID, apply func(*classModel.StudentModel)) (*classModel.StudentModel, error) {
	m, class, err := StudentForActor(ctx, s.st, actor, studentID)
	if err != nil {
		return nil, err
	}
	apply(m)
	m.StudentID = studentID
	m.StudentClassID = class.ClassID
	if err := s.st.UpdateStudent(ctx, m); err != nil {
		log.Printf("[ROSTER] ERROR update student=%s err=%v", studentID, err)
		return nil, err
	}
	s.dropReports(ctx, class.ClassID)

	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionStudentUpdate,
		EntityType:  "student",
		EntityID:    &studentID,
		Description: "Updated " + m.StudentName,
	})
	return m, nil
}

func (s *rosterSvc) DeleteStudent(ctx context.Context, actor helperAuth.Actor, studentID uuid.UUID) error {
	m, class, err := StudentForActor(ctx, s.st, actor, studentID)
	if err != nil {
		return err
	}
	if err := s.st.DeleteStudent(ctx, studentID); err != nil {
		log.Printf("[ROSTER] ERROR delete student=%s err=%v", studentID, err)
		return err
	}
	log.Printf("[ROSTER] deleted student=%s class=%s, roster renumbered", studentID, class.ClassID)
	s.dropReports(ctx, class.ClassID)

	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      activityModel.ActionStudentDelete,
		EntityType:  "student",
		EntityID:    &studentID,
		Description: "Removed " + m.StudentName + " from " + class.DisplayName(),
		Metadata:    map[string]any{"scholar_number": m.StudentScholarNumber},
	})
	return nil
}
