// file: internals/features/school/store/storetest/contract.go

// Package storetest runs the same referential checks against every
// store.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture is a store plus the seeding hooks the Store interface does not
// expose. Every call to the factory may share a database, so seeded names
// are made unique per run.
type Fixture struct {
	Store       store.Store
	AddClass    func(t *testing.T, c classModel.ClassModel) classModel.ClassModel
	AddExamType func(t *testing.T, e examModel.ExamTypeModel) examModel.ExamTypeModel
	AddActivity func(t *testing.T, a examModel.NonScholasticActivityModel) examModel.NonScholasticActivityModel
}

type seeded struct {
	st       store.Store
	class    classModel.ClassModel
	exam     examModel.ExamTypeModel
	config   examModel.ExamConfigurationModel
	activity examModel.NonScholasticActivityModel
	student  classModel.StudentModel
}

func seed(t *testing.T, fx Fixture) seeded {
	t.Helper()
	ctx := context.Background()
	tag := uuid.NewString()[:8]
	level := "lvl-" + tag
	year := "2025-26"

	class := fx.AddClass(t, classModel.ClassModel{ClassLevel: level, ClassAcademicYear: year})
	exam := fx.AddExamType(t, examModel.ExamTypeModel{ExamTypeName: "Annual " + tag, ExamTypeDisplayOrder: 4})
	activity := fx.AddActivity(t, examModel.NonScholasticActivityModel{
		NonScholasticActivityClassLevel: level,
		NonScholasticActivityCategory:   "Co-Scholastic",
		NonScholasticActivityName:       "Art",
	})

	subject := subjectModel.SubjectModel{SubjectClassLevel: level, SubjectName: "Maths"}
	require.NoError(t, fx.Store.CreateSubject(ctx, &subject))
	config := examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   level,
		ExamConfigurationSubjectID:    subject.SubjectID,
		ExamConfigurationExamTypeID:   exam.ExamTypeID,
		ExamConfigurationAcademicYear: year,
		ExamConfigurationMaxMarks:     100,
	}
	require.NoError(t, fx.Store.UpsertExamConfiguration(ctx, &config))

	student := classModel.StudentModel{StudentClassID: class.ClassID, StudentScholarNumber: "S-1", StudentName: "Asha"}
	require.NoError(t, fx.Store.CreateStudent(ctx, &student))

	return seeded{st: fx.Store, class: class, exam: exam, config: config, activity: activity, student: student}
}

func fptr(v float64) *float64 { return &v }
func sptr(s string) *string    { return &s }

var day = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

// Run checks that writes referencing missing rows fail with ErrNotFound and
// leave nothing behind, and that deleting a student removes its children.
func Run(t *testing.T, newFixture func(t *testing.T) Fixture) {
	t.Run("student needs a known class", func(t *testing.T) {
		fx := newFixture(t)
		st := classModel.StudentModel{StudentClassID: uuid.New(), StudentScholarNumber: "S-9", StudentName: "Nobody"}
		err := fx.Store.CreateStudent(context.Background(), &st)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("exam configuration needs a known subject and exam type", func(t *testing.T) {
		s := seed(t, newFixture(t))
		ctx := context.Background()

		orphanSubject := s.config
		orphanSubject.ExamConfigurationID = uuid.Nil
		orphanSubject.ExamConfigurationSubjectID = uuid.New()
		assert.ErrorIs(t, s.st.UpsertExamConfiguration(ctx, &orphanSubject), store.ErrNotFound)

		orphanExam := s.config
		orphanExam.ExamConfigurationID = uuid.Nil
		orphanExam.ExamConfigurationExamTypeID = uuid.New()
		assert.ErrorIs(t, s.st.UpsertExamConfiguration(ctx, &orphanExam), store.ErrNotFound)

		configs, err := s.st.ListExamConfigurations(ctx, s.class.ClassLevel, s.class.ClassAcademicYear)
		require.NoError(t, err)
		assert.Len(t, configs, 1)
	})

	t.Run("marks need a known student and configuration", func(t *testing.T) {
		s := seed(t, newFixture(t))
		ctx := context.Background()
		good := examModel.StudentMarkModel{
			StudentMarkStudentID:           s.student.StudentID,
			StudentMarkExamConfigurationID: s.config.ExamConfigurationID,
			StudentMarkMarksObtained:       fptr(88),
		}

		orphanStudent := good
		orphanStudent.StudentMarkStudentID = uuid.New()
		err := s.st.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{good, orphanStudent})
		assert.ErrorIs(t, err, store.ErrNotFound)

		orphanConfig := good
		orphanConfig.StudentMarkExamConfigurationID = uuid.New()
		err = s.st.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{good, orphanConfig})
		assert.ErrorIs(t, err, store.ErrNotFound)

		marks, err := s.st.ListStudentMarks(ctx, []uuid.UUID{s.config.ExamConfigurationID})
		require.NoError(t, err)
		assert.Empty(t, marks)
	})

	t.Run("non-scholastic values need a known student, activity and exam type", func(t *testing.T) {
		s := seed(t, newFixture(t))
		ctx := context.Background()
		good := examModel.StudentNonScholasticModel{
			StudentNonScholasticStudentID:    s.student.StudentID,
			StudentNonScholasticActivityID:   s.activity.NonScholasticActivityID,
			StudentNonScholasticAcademicYear: s.class.ClassAcademicYear,
			StudentNonScholasticExamTypeID:   s.exam.ExamTypeID,
			StudentNonScholasticGrade:        sptr("A"),
		}

		orphans := map[string]func(*examModel.StudentNonScholasticModel){
			"student":   func(m *examModel.StudentNonScholasticModel) { m.StudentNonScholasticStudentID = uuid.New() },
			"activity":  func(m *examModel.StudentNonScholasticModel) { m.StudentNonScholasticActivityID = uuid.New() },
			"exam type": func(m *examModel.StudentNonScholasticModel) { m.StudentNonScholasticExamTypeID = uuid.New() },
		}
		for name, breakRef := range orphans {
			bad := good
			breakRef(&bad)
			err := s.st.UpsertStudentNonScholastic(ctx, []examModel.StudentNonScholasticModel{good, bad})
			assert.ErrorIs(t, err, store.ErrNotFound, name)
		}

		rows, err := s.st.ListStudentNonScholastic(ctx, []uuid.UUID{s.student.StudentID}, s.class.ClassAcademicYear)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("report remark needs a known student", func(t *testing.T) {
		s := seed(t, newFixture(t))
		err := s.st.UpsertReportRemark(context.Background(), &examModel.ReportRemarkModel{
			ReportRemarkStudentID:    uuid.New(),
			ReportRemarkAcademicYear: s.class.ClassAcademicYear,
			ReportRemarkRemarks:      sptr("Good"),
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("attendance needs a known class and student", func(t *testing.T) {
		s := seed(t, newFixture(t))
		ctx := context.Background()
		present := attendanceModel.AttendanceRecordModel{
			AttendanceRecordStudentID: s.student.StudentID,
			AttendanceRecordStatus:    attendanceModel.StatusPresent,
		}

		err := s.st.ReplaceAttendanceForDate(ctx, uuid.New(), day, []attendanceModel.AttendanceRecordModel{present})
		assert.ErrorIs(t, err, store.ErrNotFound)

		orphan := present
		orphan.AttendanceRecordStudentID = uuid.New()
		err = s.st.ReplaceAttendanceForDate(ctx, s.class.ClassID, day, []attendanceModel.AttendanceRecordModel{present, orphan})
		assert.ErrorIs(t, err, store.ErrNotFound)

		rows, err := s.st.ListAttendance(ctx, s.class.ClassID, day, day)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("deleting a student removes its rows", func(t *testing.T) {
		s := seed(t, newFixture(t))
		ctx := context.Background()
		require.NoError(t, s.st.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{{
			StudentMarkStudentID:           s.student.StudentID,
			StudentMarkExamConfigurationID: s.config.ExamConfigurationID,
			StudentMarkMarksObtained:       fptr(88),
		}}))
		require.NoError(t, s.st.UpsertStudentNonScholastic(ctx, []examModel.StudentNonScholasticModel{{
			StudentNonScholasticStudentID:    s.student.StudentID,
			StudentNonScholasticActivityID:   s.activity.NonScholasticActivityID,
			StudentNonScholasticAcademicYear: s.class.ClassAcademicYear,
			StudentNonScholasticExamTypeID:   s.exam.ExamTypeID,
			StudentNonScholasticGrade:        sptr("A"),
		}}))
		require.NoError(t, s.st.UpsertReportRemark(ctx, &examModel.ReportRemarkModel{
			ReportRemarkStudentID:    s.student.StudentID,
			ReportRemarkAcademicYear: s.class.ClassAcademicYear,
			ReportRemarkRemarks:      sptr("Good"),
		}))
		require.NoError(t, s.st.ReplaceAttendanceForDate(ctx, s.class.ClassID, day, []attendanceModel.AttendanceRecordModel{{
			AttendanceRecordStudentID: s.student.StudentID,
			AttendanceRecordStatus:    attendanceModel.StatusPresent,
		}}))

		require.NoError(t, s.st.DeleteStudent(ctx, s.student.StudentID))

		marks, err := s.st.ListStudentMarks(ctx, []uuid.UUID{s.config.ExamConfigurationID})
		require.NoError(t, err)
		assert.Empty(t, marks)
		values, err := s.st.ListStudentNonScholastic(ctx, []uuid.UUID{s.student.StudentID}, s.class.ClassAcademicYear)
		require.NoError(t, err)
		assert.Empty(t, values)
		_, err = s.st.GetReportRemark(ctx, s.student.StudentID, s.class.ClassAcademicYear)
		assert.ErrorIs(t, err, store.ErrNotFound)
		rows, err := s.st.ListAttendance(ctx, s.class.ClassID, day, day)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
