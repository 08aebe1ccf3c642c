package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"schooldesk_backend/internals/constants"
	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	attendanceService "schooldesk_backend/internals/features/school/attendance/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	"schooldesk_backend/internals/features/school/exams/aggregation"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/reports/formatter"
	"schooldesk_backend/internals/features/school/store/memstore"
	helperAuth "schooldesk_backend/internals/helpers/auth"
	helperOSS "schooldesk_backend/internals/helpers/oss"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func sptr(s string) *string    { return &s }

type fixture struct {
	st       *memstore.Store
	svc      ReportService
	archive  *helperOSS.MockArchiver
	teacher  helperAuth.Actor
	class    classModel.ClassModel
	unitTest examModel.ExamTypeModel
	annual   examModel.ExamTypeModel
	asha     classModel.StudentModel
	bilal    classModel.StudentModel
}

// newFixture: Science (theory 80 + internal 20) and Maths (100), both only
// configured for the annual exam.
//
//	Asha:  science 60 + 18, maths 90 -> 168/200
//	Bilal: science AB + AB, maths 30 -> 30/200
func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWithCache(t, reportCache.NewNoopCache())
}

func newFixtureWithCache(t *testing.T, cache reportCache.ReportCache) fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	teacher := helperAuth.Actor{UserID: uuid.New(), Role: constants.RoleTeacher}
	class := st.AddClass(classModel.ClassModel{ClassLevel: "5th", ClassAcademicYear: "2025-26", ClassTeacherID: &teacher.UserID})

	unitTest, err := st.AddExamType(examModel.ExamTypeModel{ExamTypeName: "Unit Test", ExamTypeDisplayOrder: 1})
	require.NoError(t, err)
	annual, err := st.AddExamType(examModel.ExamTypeModel{ExamTypeName: "Annual Exam", ExamTypeDisplayOrder: 4})
	require.NoError(t, err)

	subject := func(name string, order int) subjectModel.SubjectModel {
		s := subjectModel.SubjectModel{SubjectClassLevel: "5th", SubjectName: name, SubjectDisplayOrder: order}
		require.NoError(t, st.CreateSubject(ctx, &s))
		return s
	}
	theory := subject("Science Theory", 1)
	internal := subject("Science Internal", 2)
	maths := subject("Maths", 3)

	config := func(s subjectModel.SubjectModel, maxMarks float64) uuid.UUID {
		c := examModel.ExamConfigurationModel{
			ExamConfigurationClassLevel:   "5th",
			ExamConfigurationSubjectID:    s.SubjectID,
			ExamConfigurationExamTypeID:   annual.ExamTypeID,
			ExamConfigurationAcademicYear: "2025-26",
			ExamConfigurationMaxMarks:     maxMarks,
		}
		require.NoError(t, st.UpsertExamConfiguration(ctx, &c))
		return c.ExamConfigurationID
	}
	theoryCfg, internalCfg, mathsCfg := config(theory, 80), config(internal, 20), config(maths, 100)

	asha := classModel.StudentModel{StudentClassID: class.ClassID, StudentScholarNumber: "S-1", StudentName: "Asha"}
	require.NoError(t, st.CreateStudent(ctx, &asha))
	bilal := classModel.StudentModel{StudentClassID: class.ClassID, StudentScholarNumber: "S-2", StudentName: "Bilal"}
	require.NoError(t, st.CreateStudent(ctx, &bilal))

	mark := func(student classModel.StudentModel, cfg uuid.UUID, v *float64) examModel.StudentMarkModel {
		return examModel.StudentMarkModel{
			StudentMarkStudentID:           student.StudentID,
			StudentMarkExamConfigurationID: cfg,
			StudentMarkMarksObtained:       v,
			StudentMarkIsAbsent:            v == nil,
		}
	}
	require.NoError(t, st.UpsertStudentMarks(ctx, []examModel.StudentMarkModel{
		mark(asha, theoryCfg, fptr(60)),
		mark(asha, internalCfg, fptr(18)),
		mark(asha, mathsCfg, fptr(90)),
		mark(bilal, theoryCfg, nil),
		mark(bilal, internalCfg, nil),
		mark(bilal, mathsCfg, fptr(30)),
	}))

	archive := &helperOSS.MockArchiver{}
	svc := NewReportService(st, activityService.NewActivityLogService(st), cache, archive, "Sunrise Public School")
	return fixture{
		st:       st,
		svc:      svc,
		archive:  archive,
		teacher:  teacher,
		class:    class,
		unitTest: unitTest,
		annual:   annual,
		asha:     asha,
		bilal:    bilal,
	}
}

func TestClassMarksheets_GroupsAndTotals(t *testing.T) {
	fx := newFixture(t)
	sheets, err := fx.svc.ClassMarksheets(context.Background(), fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	asha := sheets[0]
	assert.Equal(t, "Sunrise Public School", asha.SchoolName)
	assert.Equal(t, "Asha", asha.Student.Name)
	require.Len(t, asha.Subjects, 2)
	assert.Equal(t, "Science", asha.Subjects[0].Name)
	assert.Equal(t, "Maths", asha.Subjects[1].Name)

	science := asha.Subjects[0].Cells[aggregation.SlotAnnual]
	assert.Equal(t, aggregation.Num(100), science.Max)
	assert.Equal(t, aggregation.Num(78), science.Obtained)
	assert.Equal(t, aggregation.NotApplicable(), asha.Subjects[0].Cells[aggregation.SlotUnitTest].Obtained)

	assert.Equal(t, 200.0, asha.GrandTotal.TotalMax)
	assert.Equal(t, 168.0, asha.GrandTotal.TotalObtained)
	require.NotNil(t, asha.GrandTotal.Percentage)
	assert.Equal(t, 84.0, *asha.GrandTotal.Percentage)
	assert.NotEmpty(t, asha.TotalInWords)

	bilal := sheets[1]
	assert.Equal(t, aggregation.Absent(), bilal.Subjects[0].Cells[aggregation.SlotAnnual].Obtained)
	assert.Equal(t, 30.0, bilal.GrandTotal.TotalObtained)
}

func TestClassStatistics_OverallAndPerSlot(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	overall, err := fx.svc.ClassStatistics(ctx, fx.teacher, fx.class.ClassID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, overall.Students)
	assert.Equal(t, 2, overall.Attempted)
	require.NotNil(t, overall.ClassAverage)
	assert.Equal(t, 49.5, *overall.ClassAverage)
	require.NotNil(t, overall.Topper)
	assert.Equal(t, fx.asha.StudentID, overall.Topper.StudentID)

	annualID := fx.annual.ExamTypeID
	annual, err := fx.svc.ClassStatistics(ctx, fx.teacher, fx.class.ClassID, "", &annualID)
	require.NoError(t, err)
	assert.Equal(t, aggregation.SlotAnnual, annual.Slot)
	assert.Equal(t, 2, annual.Attempted)

	unitID := fx.unitTest.ExamTypeID
	unit, err := fx.svc.ClassStatistics(ctx, fx.teacher, fx.class.ClassID, "", &unitID)
	require.NoError(t, err)
	assert.Equal(t, 0, unit.Attempted)
	assert.Nil(t, unit.ClassAverage)
	assert.Nil(t, unit.Topper)
}

func TestClassStatistics_UnknownExamType(t *testing.T) {
	fx := newFixture(t)
	id := uuid.New()
	_, err := fx.svc.ClassStatistics(context.Background(), fx.teacher, fx.class.ClassID, "", &id)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}

func TestStudentMarksheet_RemarksAttendanceAndActivities(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	art := fx.st.AddNonScholasticActivity(examModel.NonScholasticActivityModel{
		NonScholasticActivityClassLevel: "5th",
		NonScholasticActivityCategory:   "Co-Scholastic",
		NonScholasticActivityName:       "Art",
	})
	require.NoError(t, fx.st.UpsertStudentNonScholastic(ctx, []examModel.StudentNonScholasticModel{{
		StudentNonScholasticStudentID:    fx.asha.StudentID,
		StudentNonScholasticActivityID:   art.NonScholasticActivityID,
		StudentNonScholasticAcademicYear: "2025-26",
		StudentNonScholasticExamTypeID:   fx.annual.ExamTypeID,
		StudentNonScholasticGrade:        sptr("A+"),
	}}))
	require.NoError(t, fx.st.ReplaceAttendanceForDate(ctx, fx.class.ClassID, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		[]attendanceModel.AttendanceRecordModel{
			{AttendanceRecordStudentID: fx.asha.StudentID, AttendanceRecordStatus: attendanceModel.StatusPresent},
			{AttendanceRecordStudentID: fx.bilal.StudentID, AttendanceRecordStatus: attendanceModel.StatusAbsent},
		}))

	_, err := fx.svc.SaveRemarks(ctx, fx.teacher, fx.asha.StudentID, RemarksInput{Height: sptr("140 cm"), Remarks: sptr("Keep it up")})
	require.NoError(t, err)

	ms, err := fx.svc.StudentMarksheet(ctx, fx.teacher, fx.asha.StudentID, "")
	require.NoError(t, err)
	assert.Equal(t, "140 cm", ms.Health.Height)
	assert.Equal(t, "Keep it up", ms.Health.Remarks)
	assert.Equal(t, "1/1", ms.Health.Attendance)
	require.Len(t, ms.NonScholastic, 1)
	assert.Equal(t, "A+", ms.NonScholastic[0].Items[0].Value)

	bilal, err := fx.svc.StudentMarksheet(ctx, fx.teacher, fx.bilal.StudentID, "")
	require.NoError(t, err)
	assert.Equal(t, "0/1", bilal.Health.Attendance)
	assert.Equal(t, aggregation.TokenNoData, bilal.NonScholastic[0].Items[0].Value)

	remarks, err := fx.svc.GetRemarks(ctx, fx.teacher, fx.bilal.StudentID, "")
	require.NoError(t, err)
	assert.Nil(t, remarks.ReportRemarkHeight)
	assert.Equal(t, "2025-26", remarks.ReportRemarkAcademicYear)
}

func TestStudentMarksheetPDF_ArchivesCopy(t *testing.T) {
	fx := newFixture(t)
	pdf, name, err := fx.svc.StudentMarksheetPDF(context.Background(), fx.teacher, fx.asha.StudentID, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, "marksheet_S-1_2025-26.pdf", name)
	require.Len(t, fx.archive.Calls, 1)
	assert.Equal(t, "reports/marksheets", fx.archive.Calls[0].Dir)
}

func TestStudentMarksheet_OtherTeacherIsForbidden(t *testing.T) {
	fx := newFixture(t)
	stranger := helperAuth.Actor{UserID: uuid.New(), Role: constants.RoleTeacher}
	_, err := fx.svc.StudentMarksheet(context.Background(), stranger, fx.asha.StudentID, "")
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusForbidden, fe.Code)
}

func TestCachedReports_FollowRosterChanges(t *testing.T) {
	cache := reportCache.NewMemoryCache(time.Minute)
	fx := newFixtureWithCache(t, cache)
	ctx := context.Background()

	sheets, err := fx.svc.ClassMarksheets(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	stats, err := fx.svc.ClassStatistics(ctx, fx.teacher, fx.class.ClassID, "", nil)
	require.NoError(t, err)
	require.NotNil(t, stats.Topper)
	assert.Equal(t, fx.asha.StudentID, stats.Topper.StudentID)

	roster := classService.NewRosterService(fx.st, activityService.NewActivityLogService(fx.st), cache)
	require.NoError(t, roster.DeleteStudent(ctx, fx.teacher, fx.asha.StudentID))

	sheets, err = fx.svc.ClassMarksheets(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Bilal", sheets[0].Student.Name)
	assert.Equal(t, 1, sheets[0].Student.RollNumber)

	stats, err = fx.svc.ClassStatistics(ctx, fx.teacher, fx.class.ClassID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Students)
	require.NotNil(t, stats.Topper)
	assert.Equal(t, fx.bilal.StudentID, stats.Topper.StudentID)
	assert.Equal(t, 1, stats.Topper.RollNumber)
}

func TestCachedReports_FollowNewStudent(t *testing.T) {
	cache := reportCache.NewMemoryCache(time.Minute)
	fx := newFixtureWithCache(t, cache)
	ctx := context.Background()

	_, err := fx.svc.ClassMarksheets(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)

	roster := classService.NewRosterService(fx.st, activityService.NewActivityLogService(fx.st), cache)
	aarav := classModel.StudentModel{StudentScholarNumber: "S-3", StudentName: "Aarav"}
	require.NoError(t, roster.CreateStudent(ctx, fx.teacher, fx.class.ClassID, &aarav))

	sheets, err := fx.svc.ClassMarksheets(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, sheets, 3)
	assert.Equal(t, "Aarav", sheets[0].Student.Name)
	assert.Equal(t, aarav.StudentID, sheets[0].Student.StudentID)
	assert.Equal(t, 2, sheets[1].Student.RollNumber)
}

func TestCachedMarksheets_FollowAttendance(t *testing.T) {
	cache := reportCache.NewMemoryCache(time.Minute)
	fx := newFixtureWithCache(t, cache)
	ctx := context.Background()

	sheets, err := fx.svc.ClassMarksheets(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Empty(t, sheets[0].Health.Attendance)

	attendance := attendanceService.NewAttendanceService(fx.st, activityService.NewActivityLogService(fx.st), cache)
	_, err = attendance.MarkDay(ctx, fx.teacher, fx.class.ClassID, attendanceService.MarkDayInput{
		Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Entries: []attendanceService.DayEntry{
			{StudentID: fx.asha.StudentID, Status: attendanceModel.StatusPresent},
			{StudentID: fx.bilal.StudentID, Status: attendanceModel.StatusAbsent},
		},
	})
	require.NoError(t, err)

	sheets, err = fx.svc.ClassMarksheets(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "1/1", sheets[0].Health.Attendance)
	assert.Equal(t, "0/1", sheets[1].Health.Attendance)
}

func TestStudentMarksheet_NonScholasticOrderIsStable(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	yoga := fx.st.AddNonScholasticActivity(examModel.NonScholasticActivityModel{
		NonScholasticActivityClassLevel: "5th",
		NonScholasticActivityCategory:   "Co-Scholastic",
		NonScholasticActivityName:       "Yoga",
	})
	art := fx.st.AddNonScholasticActivity(examModel.NonScholasticActivityModel{
		NonScholasticActivityClassLevel: "5th",
		NonScholasticActivityCategory:   "Co-Scholastic",
		NonScholasticActivityName:       "Art",
	})
	// same display order, no annual value: the later name wins
	sportsMeet, err := fx.st.AddExamType(examModel.ExamTypeModel{ExamTypeName: "Sports Meet", ExamTypeDisplayOrder: 7})
	require.NoError(t, err)
	winterFair, err := fx.st.AddExamType(examModel.ExamTypeModel{ExamTypeName: "Winter Fair", ExamTypeDisplayOrder: 7})
	require.NoError(t, err)

	value := func(activity uuid.UUID, examType uuid.UUID, grade string) examModel.StudentNonScholasticModel {
		return examModel.StudentNonScholasticModel{
			StudentNonScholasticStudentID:    fx.asha.StudentID,
			StudentNonScholasticActivityID:   activity,
			StudentNonScholasticAcademicYear: "2025-26",
			StudentNonScholasticExamTypeID:   examType,
			StudentNonScholasticGrade:        sptr(grade),
		}
	}
	require.NoError(t, fx.st.UpsertStudentNonScholastic(ctx, []examModel.StudentNonScholasticModel{
		value(art.NonScholasticActivityID, sportsMeet.ExamTypeID, "B"),
		value(art.NonScholasticActivityID, winterFair.ExamTypeID, "C"),
		value(yoga.NonScholasticActivityID, winterFair.ExamTypeID, "A"),
		value(yoga.NonScholasticActivityID, sportsMeet.ExamTypeID, "D"),
	}))

	for i := 0; i < 20; i++ {
		ms, err := fx.svc.StudentMarksheet(ctx, fx.teacher, fx.asha.StudentID, "")
		require.NoError(t, err)
		require.Len(t, ms.NonScholastic, 1)
		assert.Equal(t, []formatter.NonScholasticItem{
			{Activity: "Art", Value: "C"},
			{Activity: "Yoga", Value: "A"},
		}, ms.NonScholastic[0].Items)
	}
}
