package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/store"
	"schooldesk_backend/internals/features/school/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

type fixture struct {
	s       *Store
	class   classModel.ClassModel
	subject subjectModel.SubjectModel
	exam    examModel.ExamTypeModel
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := New()
	class := s.AddClass(classModel.ClassModel{ClassLevel: "5th", ClassAcademicYear: "2025-26"})
	exam, err := s.AddExamType(examModel.ExamTypeModel{ExamTypeName: "Annual Exam", ExamTypeDisplayOrder: 4})
	require.NoError(t, err)
	subject := subjectModel.SubjectModel{SubjectClassLevel: "5th", SubjectName: "Maths"}
	require.NoError(t, s.CreateSubject(context.Background(), &subject))
	return fixture{s: s, class: class, subject: subject, exam: exam}
}

func (fx fixture) addStudent(t *testing.T, scholar, name string) classModel.StudentModel {
	t.Helper()
	st := classModel.StudentModel{StudentClassID: fx.class.ClassID, StudentScholarNumber: scholar, StudentName: name}
	require.NoError(t, fx.s.CreateStudent(context.Background(), &st))
	return st
}

func rollsByName(t *testing.T, s *Store, classID uuid.UUID) map[string]int {
	t.Helper()
	roster, err := s.ListStudents(context.Background(), classID)
	require.NoError(t, err)
	out := map[string]int{}
	for _, it := range roster {
		out[it.StudentName] = it.StudentRollNumber
	}
	return out
}

func TestCreateStudent_RollNumbersFollowNames(t *testing.T) {
	fx := newFixture(t)
	fx.addStudent(t, "S-3", "Charu")
	fx.addStudent(t, "S-1", "asha")
	created := fx.addStudent(t, "S-2", "Bilal")

	assert.Equal(t, 2, created.StudentRollNumber)
	assert.Equal(t, map[string]int{"asha": 1, "Bilal": 2, "Charu": 3}, rollsByName(t, fx.s, fx.class.ClassID))
}

func TestCreateStudent_DuplicateScholarConflicts(t *testing.T) {
	fx := newFixture(t)
	fx.addStudent(t, "S-1", "Asha")

	dup := classModel.StudentModel{StudentClassID: fx.class.ClassID, StudentScholarNumber: " S-1 ", StudentName: "Other"}
	err := fx.s.CreateStudent(context.Background(), &dup)
	assert.True(t, errors.Is(err, store.ErrConflict))
}

func TestDeleteStudent_CascadesAndRenumbers(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	asha := fx.addStudent(t, "S-1", "Asha")
	bilal := fx.addStudent(t, "S-2", "Bilal")
	fx.addStudent(t, "S-3", "Charu")

	cfg := examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   "5th",
		ExamConfigurationSubjectID:    fx.subject.SubjectID,
		ExamConfigurationExamTypeID:   fx.exam.ExamTypeID,
		ExamConfigurationAcademicYear: "2025-26",
		ExamConfigurationMaxMarks:     100,
	}
	require.NoError(t, fx.s.UpsertExamConfiguration(ctx, &cfg))
	require.NoError(t, fx.s.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{
		{StudentMarkStudentID: bilal.StudentID, StudentMarkExamConfigurationID: cfg.ExamConfigurationID, StudentMarkMarksObtained: fptr(40)},
		{StudentMarkStudentID: asha.StudentID, StudentMarkExamConfigurationID: cfg.ExamConfigurationID, StudentMarkMarksObtained: fptr(70)},
	}))
	day := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, fx.s.ReplaceAttendanceForDate(ctx, fx.class.ClassID, day, []attendanceModel.AttendanceRecordModel{
		{AttendanceRecordStudentID: bilal.StudentID, AttendanceRecordStatus: "present"},
		{AttendanceRecordStudentID: asha.StudentID, AttendanceRecordStatus: "late"},
	}))
	require.NoError(t, fx.s.UpsertReportRemark(ctx, &examModel.ReportRemarkModel{ReportRemarkStudentID: bilal.StudentID, ReportRemarkAcademicYear: "2025-26"}))

	require.NoError(t, fx.s.DeleteStudent(ctx, bilal.StudentID))

	assert.Equal(t, map[string]int{"Asha": 1, "Charu": 2}, rollsByName(t, fx.s, fx.class.ClassID))

	marks, err := fx.s.ListStudentMarks(ctx, []uuid.UUID{cfg.ExamConfigurationID})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, asha.StudentID, marks[0].StudentMarkStudentID)

	att, err := fx.s.ListAttendance(ctx, fx.class.ClassID, day, day)
	require.NoError(t, err)
	require.Len(t, att, 1)
	assert.Equal(t, asha.StudentID, att[0].AttendanceRecordStudentID)

	_, err = fx.s.GetReportRemark(ctx, bilal.StudentID, "2025-26")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, fx.s.DeleteStudent(ctx, bilal.StudentID), store.ErrNotFound)
}

func TestUpsertStudentMarks_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	asha := fx.addStudent(t, "S-1", "Asha")
	cfg := examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   "5th",
		ExamConfigurationSubjectID:    fx.subject.SubjectID,
		ExamConfigurationExamTypeID:   fx.exam.ExamTypeID,
		ExamConfigurationAcademicYear: "2025-26",
		ExamConfigurationMaxMarks:     50,
	}
	require.NoError(t, fx.s.UpsertExamConfiguration(ctx, &cfg))

	batch := []examModel.StudentMarkModel{
		{StudentMarkStudentID: asha.StudentID, StudentMarkExamConfigurationID: cfg.ExamConfigurationID, StudentMarkMarksObtained: fptr(31)},
	}
	require.NoError(t, fx.s.UpsertStudentMarks(ctx, batch))
	first, err := fx.s.ListStudentMarks(ctx, []uuid.UUID{cfg.ExamConfigurationID})
	require.NoError(t, err)

	require.NoError(t, fx.s.UpsertStudentMarks(ctx, batch))
	second, err := fx.s.ListStudentMarks(ctx, []uuid.UUID{cfg.ExamConfigurationID})
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].StudentMarkID, second[0].StudentMarkID)
	assert.Equal(t, 31.0, *second[0].StudentMarkMarksObtained)

	// switching to absent clears the value
	require.NoError(t, fx.s.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{
		{StudentMarkStudentID: asha.StudentID, StudentMarkExamConfigurationID: cfg.ExamConfigurationID, StudentMarkIsAbsent: true},
	}))
	third, err := fx.s.ListStudentMarks(ctx, []uuid.UUID{cfg.ExamConfigurationID})
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.True(t, third[0].StudentMarkIsAbsent)
	assert.Nil(t, third[0].StudentMarkMarksObtained)
}

func TestUpsertStudentMarks_RejectsAbsentWithValue(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	asha := fx.addStudent(t, "S-1", "Asha")
	cfg := examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   "5th",
		ExamConfigurationSubjectID:    fx.subject.SubjectID,
		ExamConfigurationExamTypeID:   fx.exam.ExamTypeID,
		ExamConfigurationAcademicYear: "2025-26",
		ExamConfigurationMaxMarks:     50,
	}
	require.NoError(t, fx.s.UpsertExamConfiguration(ctx, &cfg))

	err := fx.s.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{
		{StudentMarkStudentID: asha.StudentID, StudentMarkExamConfigurationID: cfg.ExamConfigurationID, StudentMarkMarksObtained: fptr(10), StudentMarkIsAbsent: true},
	})
	assert.ErrorIs(t, err, examModel.ErrMarkAbsentWithValue)
}

func TestUpsertExamConfiguration_KeepsIDOnUpdate(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	cfg := examModel.ExamConfigurationModel{
		ExamConfigurationClassLevel:   "5th",
		ExamConfigurationSubjectID:    fx.subject.SubjectID,
		ExamConfigurationExamTypeID:   fx.exam.ExamTypeID,
		ExamConfigurationAcademicYear: "2025-26",
		ExamConfigurationMaxMarks:     50,
	}
	require.NoError(t, fx.s.UpsertExamConfiguration(ctx, &cfg))

	again := cfg
	again.ExamConfigurationID = uuid.Nil
	again.ExamConfigurationMaxMarks = 80
	require.NoError(t, fx.s.UpsertExamConfiguration(ctx, &again))

	assert.Equal(t, cfg.ExamConfigurationID, again.ExamConfigurationID)
	got, err := fx.s.GetExamConfiguration(ctx, cfg.Key())
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.ExamConfigurationMaxMarks)
}

func TestReplaceAttendanceForDate_ReplacesOnlyThatDay(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	asha := fx.addStudent(t, "S-1", "Asha")
	bilal := fx.addStudent(t, "S-2", "Bilal")
	d1 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	require.NoError(t, fx.s.ReplaceAttendanceForDate(ctx, fx.class.ClassID, d1, []attendanceModel.AttendanceRecordModel{
		{AttendanceRecordStudentID: asha.StudentID, AttendanceRecordStatus: "present"},
		{AttendanceRecordStudentID: bilal.StudentID, AttendanceRecordStatus: "absent"},
	}))
	require.NoError(t, fx.s.ReplaceAttendanceForDate(ctx, fx.class.ClassID, d2, []attendanceModel.AttendanceRecordModel{
		{AttendanceRecordStudentID: asha.StudentID, AttendanceRecordStatus: "present"},
	}))
	require.NoError(t, fx.s.ReplaceAttendanceForDate(ctx, fx.class.ClassID, d1, []attendanceModel.AttendanceRecordModel{
		{AttendanceRecordStudentID: bilal.StudentID, AttendanceRecordStatus: "Excused"},
	}))

	day1, err := fx.s.ListAttendance(ctx, fx.class.ClassID, d1, d1)
	require.NoError(t, err)
	require.Len(t, day1, 1)
	assert.Equal(t, bilal.StudentID, day1[0].AttendanceRecordStudentID)
	assert.Equal(t, attendanceModel.StatusExcused, day1[0].AttendanceRecordStatus)

	both, err := fx.s.ListAttendance(ctx, fx.class.ClassID, d1, d2)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestReplaceAttendanceForDate_BadStatusWritesNothing(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	asha := fx.addStudent(t, "S-1", "Asha")
	d := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fx.s.ReplaceAttendanceForDate(ctx, fx.class.ClassID, d, []attendanceModel.AttendanceRecordModel{
		{AttendanceRecordStudentID: asha.StudentID, AttendanceRecordStatus: "present"},
	}))

	err := fx.s.ReplaceAttendanceForDate(ctx, fx.class.ClassID, d, []attendanceModel.AttendanceRecordModel{
		{AttendanceRecordStudentID: asha.StudentID, AttendanceRecordStatus: "holiday"},
	})
	require.Error(t, err)

	rows, err := fx.s.ListAttendance(ctx, fx.class.ClassID, d, d)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, attendanceModel.StatusPresent, rows[0].AttendanceRecordStatus)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	boom := errors.New("boom")

	err := fx.s.WithinTx(ctx, func(tx store.Store) error {
		st := classModel.StudentModel{StudentClassID: fx.class.ClassID, StudentScholarNumber: "S-9", StudentName: "Ghost"}
		require.NoError(t, tx.CreateStudent(ctx, &st))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	roster, err := fx.s.ListStudents(ctx, fx.class.ClassID)
	require.NoError(t, err)
	assert.Empty(t, roster)

	require.NoError(t, fx.s.WithinTx(ctx, func(tx store.Store) error {
		st := classModel.StudentModel{StudentClassID: fx.class.ClassID, StudentScholarNumber: "S-9", StudentName: "Kept"}
		return tx.CreateStudent(ctx, &st)
	}))
	roster, err = fx.s.ListStudents(ctx, fx.class.ClassID)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestListClasses_TeacherScope(t *testing.T) {
	s := New()
	teacher := uuid.New()
	mine := s.AddClass(classModel.ClassModel{ClassLevel: "5th", ClassAcademicYear: "2025-26", ClassTeacherID: &teacher})
	s.AddClass(classModel.ClassModel{ClassLevel: "6th", ClassAcademicYear: "2025-26"})

	all, err := s.ListClasses(context.Background(), store.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := s.ListClasses(context.Background(), store.ClassFilter{TeacherID: &teacher})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ClassID, scoped[0].ClassID)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Fixture {
		s := New()
		return storetest.Fixture{
			Store:    s,
			AddClass: func(t *testing.T, c classModel.ClassModel) classModel.ClassModel { return s.AddClass(c) },
			AddExamType: func(t *testing.T, e examModel.ExamTypeModel) examModel.ExamTypeModel {
				out, err := s.AddExamType(e)
				require.NoError(t, err)
				return out
			},
			AddActivity: func(t *testing.T, a examModel.NonScholasticActivityModel) examModel.NonScholasticActivityModel {
				return s.AddNonScholasticActivity(a)
			},
		}
	})
}
