package service

import (
	"context"
	"testing"

	"schooldesk_backend/internals/constants"
	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/exams/reconcile"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/store"
	"schooldesk_backend/internals/features/school/store/memstore"
	helperAuth "schooldesk_backend/internals/helpers/auth"
	helperOSS "schooldesk_backend/internals/helpers/oss"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

type fixture struct {
	st        *memstore.Store
	activity  activityService.ActivityLogService
	principal helperAuth.Actor
	teacher   helperAuth.Actor
	class     classModel.ClassModel
	annual    examModel.ExamTypeModel
	maths     subjectModel.SubjectModel
	asha      classModel.StudentModel
	bilal     classModel.StudentModel
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	teacher := helperAuth.Actor{UserID: uuid.New(), Role: constants.RoleTeacher}

	class := st.AddClass(classModel.ClassModel{ClassLevel: "5th", ClassAcademicYear: "2025-26", ClassTeacherID: &teacher.UserID})
	annual, err := st.AddExamType(examModel.ExamTypeModel{ExamTypeName: "Annual Exam", ExamTypeDisplayOrder: 4})
	require.NoError(t, err)
	maths := subjectModel.SubjectModel{SubjectClassLevel: "5th", SubjectName: "Maths"}
	require.NoError(t, st.CreateSubject(ctx, &maths))

	asha := classModel.StudentModel{StudentClassID: class.ClassID, StudentScholarNumber: "S-101", StudentName: "Asha"}
	require.NoError(t, st.CreateStudent(ctx, &asha))
	bilal := classModel.StudentModel{StudentClassID: class.ClassID, StudentScholarNumber: "S-102", StudentName: "Bilal"}
	require.NoError(t, st.CreateStudent(ctx, &bilal))

	return fixture{
		st:        st,
		activity:  activityService.NewActivityLogService(st),
		principal: helperAuth.Actor{UserID: uuid.New(), Role: constants.RolePrincipal},
		teacher:   teacher,
		class:     class,
		annual:    annual,
		maths:     maths,
		asha:      asha,
		bilal:     bilal,
	}
}

func (fx fixture) marks() MarksService {
	return NewMarksService(fx.st, fx.activity, reportCache.NewNoopCache())
}

func (fx fixture) imports(archive helperOSS.Archiver) ImportService {
	return NewImportService(fx.st, fx.activity, reportCache.NewNoopCache(), NewMemoryPreviewStore(), archive, 0)
}

func (fx fixture) query() MarksQuery {
	return MarksQuery{ExamTypeID: fx.annual.ExamTypeID, SubjectID: fx.maths.SubjectID}
}

func fiberCode(t *testing.T, err error) int {
	t.Helper()
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	return fe.Code
}

func logCount(t *testing.T, fx fixture, action string) int64 {
	t.Helper()
	fx.activity.Wait()
	_, total, err := fx.st.ListActivityLogs(context.Background(), store.ActivityLogFilter{Action: action, Limit: 50})
	require.NoError(t, err)
	return total
}

/* ============================================
   Manual marks
============================================ */

func TestSaveMarks_MissingConfigurationNeedsMax(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.marks().SaveMarks(context.Background(), fx.teacher, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		Entries:    []MarkEntry{{StudentID: fx.asha.StudentID, MarksObtained: fptr(40)}},
	})
	verrs, ok := reconcile.AsValidation(err)
	require.True(t, ok)
	assert.True(t, verrs.HasKind(reconcile.KindConfigurationMissing))
}

func TestSaveMarks_CreatesConfigurationAndKeepsItsMax(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	svc := fx.marks()

	res, err := svc.SaveMarks(ctx, fx.teacher, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		MaxMarks:   fptr(50),
		Entries: []MarkEntry{
			{StudentID: fx.asha.StudentID, MarksObtained: fptr(42)},
			{StudentID: fx.bilal.StudentID, IsAbsent: true},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.ConfigCreated)
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, 50.0, res.Configuration.ExamConfigurationMaxMarks)

	res, err = svc.SaveMarks(ctx, fx.teacher, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		MaxMarks:   fptr(80),
		Entries: []MarkEntry{
			{StudentID: fx.asha.StudentID, MarksObtained: fptr(45)},
			{StudentID: fx.bilal.StudentID},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.ConfigCreated)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Warnings, 1)

	sheet, err := svc.ListMarks(ctx, fx.principal, fx.class.ClassID, fx.query())
	require.NoError(t, err)
	require.NotNil(t, sheet.Configuration)
	assert.Equal(t, 50.0, sheet.Configuration.ExamConfigurationMaxMarks)
	require.Len(t, sheet.Rows, 2)
	require.NotNil(t, sheet.Rows[0].MarksObtained)
	assert.Equal(t, 45.0, *sheet.Rows[0].MarksObtained)
	assert.True(t, sheet.Rows[1].IsAbsent)

	assert.Equal(t, int64(2), logCount(t, fx, activityModel.ActionMarksSave))
}

func TestSaveMarks_RejectsWholeBatch(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	svc := fx.marks()

	_, err := svc.SaveMarks(ctx, fx.teacher, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		MaxMarks:   fptr(50),
		Entries: []MarkEntry{
			{StudentID: fx.asha.StudentID, MarksObtained: fptr(40)},
			{StudentID: fx.bilal.StudentID, MarksObtained: fptr(51)},
			{StudentID: uuid.New(), MarksObtained: fptr(10)},
		},
	})
	verrs, ok := reconcile.AsValidation(err)
	require.True(t, ok)
	assert.True(t, verrs.HasKind(reconcile.KindExceedsMax))
	assert.True(t, verrs.HasKind(reconcile.KindUnknownStudent))

	configs, err := fx.st.ListExamConfigurations(ctx, "5th", "2025-26")
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestSaveMarks_OtherTeacherIsForbidden(t *testing.T) {
	fx := newFixture(t)
	stranger := helperAuth.Actor{UserID: uuid.New(), Role: constants.RoleTeacher}
	_, err := fx.marks().SaveMarks(context.Background(), stranger, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		MaxMarks:   fptr(50),
	})
	assert.Equal(t, fiber.StatusForbidden, fiberCode(t, err))
}

/* ============================================
   Configuration edits
============================================ */

func TestSetMaxMarks_RefusesBelowRecordedMark(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.marks().SaveMarks(ctx, fx.teacher, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		MaxMarks:   fptr(100),
		Entries:    []MarkEntry{{StudentID: fx.asha.StudentID, MarksObtained: fptr(72)}},
	})
	require.NoError(t, err)

	setup := NewExamSetupService(fx.st, fx.activity, reportCache.NewNoopCache())
	in := ConfigurationInput{ClassID: fx.class.ClassID, SubjectID: fx.maths.SubjectID, ExamTypeID: fx.annual.ExamTypeID, MaxMarks: 70}
	_, err = setup.SetMaxMarks(ctx, fx.principal, in)
	assert.Equal(t, fiber.StatusUnprocessableEntity, fiberCode(t, err))

	in.MaxMarks = 80
	cfg, err := setup.SetMaxMarks(ctx, fx.principal, in)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.ExamConfigurationMaxMarks)

	configs, err := setup.ListConfigurations(ctx, fx.teacher, fx.class.ClassID, "")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 80.0, configs[0].ExamConfigurationMaxMarks)
}

func TestSetMaxMarks_UnknownSubject(t *testing.T) {
	fx := newFixture(t)
	setup := NewExamSetupService(fx.st, fx.activity, reportCache.NewNoopCache())
	_, err := setup.SetMaxMarks(context.Background(), fx.principal, ConfigurationInput{
		ClassID: fx.class.ClassID, SubjectID: uuid.New(), ExamTypeID: fx.annual.ExamTypeID, MaxMarks: 50,
	})
	assert.Equal(t, fiber.StatusNotFound, fiberCode(t, err))
}

/* ============================================
   Spreadsheet import
============================================ */

const marksCSV = "Scholar No,Student Name,Maths - Max Marks,Maths - Obtain Marks\n" +
	"S-101,Asha,50,40\n" +
	"S-102,Bilal,50,AB\n"

func TestImportMarks_PreviewThenConfirm(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	archive := &helperOSS.MockArchiver{}
	svc := fx.imports(archive)

	prev, err := svc.PreviewMarks(ctx, fx.teacher, fx.class.ClassID, ImportRequest{
		ExamTypeID: fx.annual.ExamTypeID, FileName: "marks.csv", Body: []byte(marksCSV),
	})
	require.NoError(t, err)
	require.NotNil(t, prev.Marks)
	require.Len(t, prev.Marks.Proposals, 1)
	assert.Len(t, prev.Marks.Rows, 2)
	assert.Len(t, archive.Calls, 1)

	// nothing is written before confirm
	configs, err := fx.st.ListExamConfigurations(ctx, "5th", "2025-26")
	require.NoError(t, err)
	assert.Empty(t, configs)

	res, err := svc.Confirm(ctx, fx.teacher, prev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ConfigsCreated)
	assert.Equal(t, 2, res.Rows)

	sheet, err := fx.marks().ListMarks(ctx, fx.teacher, fx.class.ClassID, fx.query())
	require.NoError(t, err)
	require.NotNil(t, sheet.Configuration)
	assert.Equal(t, 50.0, sheet.Configuration.ExamConfigurationMaxMarks)
	require.NotNil(t, sheet.Rows[0].MarksObtained)
	assert.Equal(t, 40.0, *sheet.Rows[0].MarksObtained)
	assert.True(t, sheet.Rows[1].IsAbsent)

	_, err = svc.Confirm(ctx, fx.teacher, prev.ID)
	assert.Equal(t, fiber.StatusNotFound, fiberCode(t, err))
	assert.Equal(t, int64(1), logCount(t, fx, activityModel.ActionMarksImport))
}

func TestImportMarks_ConfigurationLoweredSincePreview(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	svc := fx.imports(nil)

	prev, err := svc.PreviewMarks(ctx, fx.teacher, fx.class.ClassID, ImportRequest{
		ExamTypeID: fx.annual.ExamTypeID, FileName: "marks.csv", Body: []byte(marksCSV),
	})
	require.NoError(t, err)

	setup := NewExamSetupService(fx.st, fx.activity, reportCache.NewNoopCache())
	_, err = setup.SetMaxMarks(ctx, fx.principal, ConfigurationInput{
		ClassID: fx.class.ClassID, SubjectID: fx.maths.SubjectID, ExamTypeID: fx.annual.ExamTypeID, MaxMarks: 30,
	})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, fx.teacher, prev.ID)
	assert.Equal(t, fiber.StatusConflict, fiberCode(t, err))

	configs, err := fx.st.ListExamConfigurations(ctx, "5th", "2025-26")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	marks, err := fx.st.ListStudentMarks(ctx, []uuid.UUID{configs[0].ExamConfigurationID})
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestImportMarks_InvalidFileWritesNothing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	body := "Scholar No,Student Name,Maths - Max Marks,Maths - Obtain Marks\n" +
		"S-101,Asha,50,55\n" +
		"S-999,Ghost,50,10\n"

	_, err := fx.imports(nil).PreviewMarks(ctx, fx.teacher, fx.class.ClassID, ImportRequest{
		ExamTypeID: fx.annual.ExamTypeID, FileName: "marks.csv", Body: []byte(body),
	})
	verrs, ok := reconcile.AsValidation(err)
	require.True(t, ok)
	assert.True(t, verrs.HasKind(reconcile.KindExceedsMax))
	assert.True(t, verrs.HasKind(reconcile.KindUnknownStudent))
}

func TestImportMarks_UnsupportedFile(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.imports(nil).PreviewMarks(context.Background(), fx.teacher, fx.class.ClassID, ImportRequest{
		ExamTypeID: fx.annual.ExamTypeID, FileName: "marks.pdf", Body: []byte("%PDF"),
	})
	assert.Equal(t, fiber.StatusUnsupportedMediaType, fiberCode(t, err))
}

func TestImportPreview_DiscardAndAccess(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	svc := fx.imports(nil)

	prev, err := svc.PreviewMarks(ctx, fx.teacher, fx.class.ClassID, ImportRequest{
		ExamTypeID: fx.annual.ExamTypeID, FileName: "marks.csv", Body: []byte(marksCSV),
	})
	require.NoError(t, err)

	stranger := helperAuth.Actor{UserID: uuid.New(), Role: constants.RoleTeacher}
	_, err = svc.GetPreview(ctx, stranger, prev.ID)
	assert.Equal(t, fiber.StatusForbidden, fiberCode(t, err))

	require.NoError(t, svc.Discard(ctx, fx.principal, prev.ID))
	_, err = svc.GetPreview(ctx, fx.teacher, prev.ID)
	assert.Equal(t, fiber.StatusNotFound, fiberCode(t, err))
}

func TestImportNonScholastic_PreviewThenConfirm(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	art := fx.st.AddNonScholasticActivity(examModel.NonScholasticActivityModel{
		NonScholasticActivityClassLevel: "5th",
		NonScholasticActivityCategory:   "Co-Scholastic",
		NonScholasticActivityName:       "Art",
	})
	body := reconcile.HeaderScholarNo + "," + reconcile.HeaderStudentName + "," +
		reconcile.ActivityHeader(art.NonScholasticActivityCategory, art.NonScholasticActivityName, false) + "\n" +
		"S-101,Asha,A\n" +
		"S-102,Bilal,b\n"

	svc := fx.imports(nil)
	prev, err := svc.PreviewNonScholastic(ctx, fx.teacher, fx.class.ClassID, ImportRequest{
		ExamTypeID: fx.annual.ExamTypeID, FileName: "activities.csv", Body: []byte(body),
	})
	require.NoError(t, err)
	require.NotNil(t, prev.NonScholastic)

	res, err := svc.Confirm(ctx, fx.teacher, prev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	rows, err := fx.st.ListStudentNonScholastic(ctx, []uuid.UUID{fx.asha.StudentID, fx.bilal.StudentID}, "2025-26")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, fx.annual.ExamTypeID, r.StudentNonScholasticExamTypeID)
		require.NotNil(t, r.StudentNonScholasticGrade)
	}
}

func TestMarksTemplate_PrefillsExistingValues(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.marks().SaveMarks(ctx, fx.teacher, fx.class.ClassID, SaveMarksInput{
		MarksQuery: fx.query(),
		MaxMarks:   fptr(50),
		Entries: []MarkEntry{
			{StudentID: fx.asha.StudentID, MarksObtained: fptr(42)},
			{StudentID: fx.bilal.StudentID, IsAbsent: true},
		},
	})
	require.NoError(t, err)

	tpl, name, err := fx.imports(nil).MarksTemplate(ctx, fx.teacher, fx.class.ClassID, fx.annual.ExamTypeID, "")
	require.NoError(t, err)
	assert.Equal(t, "marks_5th_Annual-Exam_2025-26.xlsx", name)
	assert.Equal(t, []string{
		reconcile.HeaderScholarNo, reconcile.HeaderStudentName,
		reconcile.MaxMarksHeader("Maths"), reconcile.ObtainMarksHeader("Maths"),
	}, tpl.Headers)
	require.Len(t, tpl.Rows, 2)
	assert.Equal(t, []any{"S-101", "Asha", 50.0, 42.0}, tpl.Rows[0])
	assert.Equal(t, []any{"S-102", "Bilal", 50.0, "AB"}, tpl.Rows[1])
}
