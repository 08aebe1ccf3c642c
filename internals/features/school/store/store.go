// file: internals/features/school/store/store.go
package store

import (
	"context"
	"time"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"

	"github.com/google/uuid"
)

type ClassFilter struct {
	// TeacherID limits the result to classes owned by that teacher.
	TeacherID *uuid.UUID
	// AcademicYear, when set, limits to one session.
	AcademicYear string
}

type ActivityLogFilter struct {
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	Since      *time.Time
	Offset     int
	Limit      int
}

// Store is the data contract the report pipeline depends on. Every list is
// returned in a deterministic order. Missing single rows return ErrNotFound.
type Store interface {
	// classes & roster
	ListClasses(ctx context.Context, f ClassFilter) ([]classModel.ClassModel, error)
	GetClass(ctx context.Context, classID uuid.UUID) (*classModel.ClassModel, error)
	ListStudents(ctx context.Context, classID uuid.UUID) ([]classModel.StudentModel, error)
	GetStudent(ctx context.Context, studentID uuid.UUID) (*classModel.StudentModel, error)
	CreateStudent(ctx context.Context, s *classModel.StudentModel) error
	UpdateStudent(ctx context.Context, s *classModel.StudentModel) error
	// DeleteStudent removes the student with their attendance, marks,
	// non-scholastic rows and report remarks.
	DeleteStudent(ctx context.Context, studentID uuid.UUID) error
	// RenumberRollNumbers reassigns roll numbers 1..N by name.
	RenumberRollNumbers(ctx context.Context, classID uuid.UUID) error

	// subjects & exam setup
	ListSubjects(ctx context.Context, classLevel string) ([]subjectModel.SubjectModel, error)
	GetSubject(ctx context.Context, subjectID uuid.UUID) (*subjectModel.SubjectModel, error)
	CreateSubject(ctx context.Context, s *subjectModel.SubjectModel) error
	ListExamTypes(ctx context.Context) ([]examModel.ExamTypeModel, error)
	GetExamType(ctx context.Context, examTypeID uuid.UUID) (*examModel.ExamTypeModel, error)
	GetExamConfiguration(ctx context.Context, key examModel.ExamConfigurationKey) (*examModel.ExamConfigurationModel, error)
	GetExamConfigurationByID(ctx context.Context, configID uuid.UUID) (*examModel.ExamConfigurationModel, error)
	ListExamConfigurations(ctx context.Context, classLevel, academicYear string) ([]examModel.ExamConfigurationModel, error)
	// UpsertExamConfiguration inserts or updates by the (level, subject,
	// exam type, year) tuple and fills the stored id back into c.
	UpsertExamConfiguration(ctx context.Context, c *examModel.ExamConfigurationModel) error

	// marks
	ListStudentMarks(ctx context.Context, configIDs []uuid.UUID) ([]examModel.StudentMarkModel, error)
	// UpsertStudentMarks overwrites by (student, configuration).
	UpsertStudentMarks(ctx context.Context, rows []examModel.StudentMarkModel) error
	ListNonScholasticActivities(ctx context.Context, classLevel string) ([]examModel.NonScholasticActivityModel, error)
	ListStudentNonScholastic(ctx context.Context, studentIDs []uuid.UUID, academicYear string) ([]examModel.StudentNonScholasticModel, error)
	// UpsertStudentNonScholastic overwrites by (student, activity, year, exam type).
	UpsertStudentNonScholastic(ctx context.Context, rows []examModel.StudentNonScholasticModel) error
	GetReportRemark(ctx context.Context, studentID uuid.UUID, academicYear string) (*examModel.ReportRemarkModel, error)
	UpsertReportRemark(ctx context.Context, r *examModel.ReportRemarkModel) error

	// attendance (dates are calendar days, inclusive range)
	ListAttendance(ctx context.Context, classID uuid.UUID, from, to time.Time) ([]attendanceModel.AttendanceRecordModel, error)
	ReplaceAttendanceForDate(ctx context.Context, classID uuid.UUID, date time.Time, rows []attendanceModel.AttendanceRecordModel) error

	// audit
	AppendActivityLog(ctx context.Context, e *activityModel.ActivityLogModel) error
	ListActivityLogs(ctx context.Context, f ActivityLogFilter) ([]activityModel.ActivityLogModel, int64, error)

	// WithinTx runs fn against a store whose writes commit together or not
	// at all.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
