package reconcile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type marksFixture struct {
	asha, bilal StudentRef
	maths, hin  SubjectRef
}

func newMarksFixture() marksFixture {
	return marksFixture{
		asha:  StudentRef{ID: uuid.New(), ScholarNumber: "S-101", Name: "Asha"},
		bilal: StudentRef{ID: uuid.New(), ScholarNumber: "S-102", Name: "Bilal"},
		maths: SubjectRef{ID: uuid.New(), Name: "Maths"},
		hin:   SubjectRef{ID: uuid.New(), Name: "Hindi"},
	}
}

func csvSheet(t *testing.T, body string) *Sheet {
	t.Helper()
	sh, err := ReadSheet("marks.csv", strings.NewReader(body))
	require.NoError(t, err)
	return sh
}

func (fx marksFixture) input(sh *Sheet, configs ...ConfigRef) MarksInput {
	return MarksInput{
		ClassLevel:   "5th",
		AcademicYear: "2025-26",
		ExamTypeID:   uuid.New(),
		Students:     []StudentRef{fx.asha, fx.bilal},
		Subjects:     []SubjectRef{fx.maths, fx.hin},
		Configs:      configs,
		Sheet:        sh,
	}
}

func TestReconcileMarks_HappyPath(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}
	sh := csvSheet(t, "Scholar No,Student Name,Maths - Max Marks,Maths - Obtain Marks\n"+
		"S-101,Asha,100,88\n"+
		"s-102 ,Bilal,100,ab\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg))
	require.NoError(t, err)
	require.Len(t, prev.Rows, 2)
	assert.Equal(t, 2, prev.Students)
	assert.Empty(t, prev.Proposals)

	assert.Equal(t, fx.asha.ID, prev.Rows[0].StudentID)
	assert.Equal(t, cfg.ID, prev.Rows[0].ConfigID)
	require.NotNil(t, prev.Rows[0].MarksObtained)
	assert.Equal(t, 88.0, *prev.Rows[0].MarksObtained)

	assert.True(t, prev.Rows[1].IsAbsent)
	assert.Nil(t, prev.Rows[1].MarksObtained)
}

func TestReconcileMarks_ExceedsMaxRejectsWholeFile(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}
	sh := csvSheet(t, "Scholar No,Student Name,Maths - Obtain Marks\n"+
		"S-101,Asha,90\n"+
		"S-102,Bilal,105\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg))
	assert.Nil(t, prev)
	verrs, ok := AsValidation(err)
	require.True(t, ok)
	require.Len(t, verrs, 1)
	assert.Equal(t, KindExceedsMax, verrs[0].Kind)
	assert.Equal(t, 3, verrs[0].Row)
	assert.Equal(t, "Maths - Obtain Marks", verrs[0].Column)
	assert.Contains(t, verrs[0].Error(), "row 3")
}

func TestReconcileMarks_ProposesConfigFromUploadedMax(t *testing.T) {
	fx := newMarksFixture()
	sh := csvSheet(t, "Scholar No,Student Name,Hindi - Max Marks,Hindi - Obtain Marks\n"+
		"S-101,Asha,50,41\n")

	prev, err := ReconcileMarks(fx.input(sh))
	require.NoError(t, err)
	require.Len(t, prev.Proposals, 1)
	assert.Equal(t, fx.hin.ID, prev.Proposals[0].SubjectID)
	assert.Equal(t, 50.0, prev.Proposals[0].MaxMarks)
	assert.Equal(t, uuid.Nil, prev.Rows[0].ConfigID)
}

func TestReconcileMarks_ConfigurationMissing(t *testing.T) {
	fx := newMarksFixture()
	sh := csvSheet(t, "Scholar No,Student Name,Hindi - Obtain Marks\nS-101,Asha,41\n")

	_, err := ReconcileMarks(fx.input(sh))
	verrs, ok := AsValidation(err)
	require.True(t, ok)
	assert.True(t, verrs.HasKind(KindConfigurationMissing))
}

func TestReconcileMarks_ExistingConfigWinsOverUploadedMax(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 80}
	sh := csvSheet(t, "Scholar No,Student Name,Maths - Max Marks,Maths - Obtain Marks\nS-101,Asha,100,90\n")

	_, err := ReconcileMarks(fx.input(sh, cfg))
	verrs, ok := AsValidation(err)
	require.True(t, ok)
	assert.True(t, verrs.HasKind(KindExceedsMax), "90 is checked against the configured 80")
}

func TestReconcileMarks_MaxMismatchIsWarning(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 80}
	sh := csvSheet(t, "Scholar No,Student Name,Maths - Max Marks,Maths - Obtain Marks\nS-101,Asha,100,70\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg))
	require.NoError(t, err)
	require.Len(t, prev.Warnings, 1)
	assert.Contains(t, prev.Warnings[0], "configured value kept")
	assert.Empty(t, prev.Proposals)
}

func TestReconcileMarks_Errors(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}

	tests := []struct {
		name string
		body string
		kind ErrorKind
	}{
		{"missing identity", "Roll,Maths - Obtain Marks\n1,40\n", KindMissingIdentity},
		{"unknown student", "Scholar No,Maths - Obtain Marks\nS-999,40\n", KindUnknownStudent},
		{"unknown subject", "Scholar No,Sanskrit - Obtain Marks\nS-101,40\n", KindUnknownSubject},
		{"not a number", "Scholar No,Maths - Obtain Marks\nS-101,forty\n", KindInvalidNumber},
		{"negative", "Scholar No,Maths - Obtain Marks\nS-101,-1\n", KindNegative},
		{"NaN mark", "Scholar No,Maths - Obtain Marks\nS-101,NaN\n", KindInvalidNumber},
		{"Inf mark", "Scholar No,Maths - Obtain Marks\nS-101,Inf\n", KindInvalidNumber},
		{"-Inf mark", "Scholar No,Maths - Obtain Marks\nS-101,-Inf\n", KindInvalidNumber},
		{"hex float mark", "Scholar No,Maths - Obtain Marks\nS-101,0x1p3\n", KindInvalidNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReconcileMarks(fx.input(csvSheet(t, tt.body), cfg))
			verrs, ok := AsValidation(err)
			require.True(t, ok)
			assert.True(t, verrs.HasKind(tt.kind), verrs.Error())
		})
	}
}

func TestReconcileMarks_NonFiniteMaxIsRejected(t *testing.T) {
	fx := newMarksFixture()
	for _, raw := range []string{"NaN", "Inf", "+Inf", "-Inf"} {
		t.Run(raw, func(t *testing.T) {
			sh := csvSheet(t, "Scholar No,Student Name,Hindi - Max Marks,Hindi - Obtain Marks\n"+
				"S-101,Asha,"+raw+",5000\n")
			prev, err := ReconcileMarks(fx.input(sh))
			assert.Nil(t, prev)
			verrs, ok := AsValidation(err)
			require.True(t, ok)
			assert.True(t, verrs.HasKind(KindInvalidMax), verrs.Error())
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"88", 88, true},
		{" 7.5 ", 7.5, true},
		{"1e2", 100, true},
		{"NaN", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"+Infinity", 0, false},
		{"-Inf", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestReconcileMarks_SkipsEmptyColumnsAndBlankRows(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}
	sh := csvSheet(t, "Scholar No,Student Name,Sanskrit - Obtain Marks,Maths - Obtain Marks\n"+
		",,,\n"+
		"S-101,Asha,,55\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sanskrit - Obtain Marks"}, prev.SkippedColumns)
	require.Len(t, prev.Rows, 1)
	assert.Equal(t, 3, prev.Rows[0].Row)
}

func TestReconcileMarks_DuplicateRowsLastWins(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}
	sh := csvSheet(t, "Scholar No,Maths - Obtain Marks\nS-101,40\nS-101,45\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg))
	require.NoError(t, err)
	require.Len(t, prev.Rows, 1)
	assert.Equal(t, 45.0, *prev.Rows[0].MarksObtained)
	assert.Equal(t, 1, prev.Students)
	assert.Len(t, prev.Warnings, 1)
}

func TestReconcileMarks_HeaderNormalisation(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}
	// full-width letters, en dash and extra spaces
	sh := csvSheet(t, "\ufeffSCHOLAR  NO,ＭＡＴＨＳ \u2013 obtain   marks\nS-101,12\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg))
	require.NoError(t, err)
	require.Len(t, prev.Rows, 1)
	assert.Equal(t, fx.maths.ID, prev.Rows[0].SubjectID)
}

func TestReconcileMarks_RowsNeverAbsentWithValue(t *testing.T) {
	fx := newMarksFixture()
	cfg := ConfigRef{ID: uuid.New(), SubjectID: fx.maths.ID, MaxMarks: 100}
	hcfg := ConfigRef{ID: uuid.New(), SubjectID: fx.hin.ID, MaxMarks: 50}
	sh := csvSheet(t, "Scholar No,Maths - Obtain Marks,Hindi - Obtain Marks\n"+
		"S-101,A,0\nS-102,Absent,50\n")

	prev, err := ReconcileMarks(fx.input(sh, cfg, hcfg))
	require.NoError(t, err)
	require.Len(t, prev.Rows, 4)
	for _, r := range prev.Rows {
		assert.False(t, r.IsAbsent && r.MarksObtained != nil)
		assert.True(t, r.IsAbsent || r.MarksObtained != nil)
	}
}

func TestReconcileMarks_XLSXTemplateRoundTrip(t *testing.T) {
	fx := newMarksFixture()
	max := 100.0
	obt := 64.0
	tpl := NewMarksTemplate(
		[]TemplateStudent{{ScholarNumber: "S-101", Name: "Asha"}, {ScholarNumber: "S-102", Name: "Bilal"}},
		[]TemplateSubject{{ID: fx.maths.ID.String(), Name: "Maths", MaxMarks: &max}},
		map[string]map[string]MarksCell{
			"S-101": {fx.maths.ID.String(): {MarksObtained: &obt}},
			"S-102": {fx.maths.ID.String(): {IsAbsent: true}},
		},
	)
	var buf bytes.Buffer
	require.NoError(t, tpl.WriteXLSX(&buf))

	sh, err := ReadSheet("marks.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Scholar No", "Student Name", "Maths - Max Marks", "Maths - Obtain Marks"}, sh.Headers)

	prev, err := ReconcileMarks(fx.input(sh))
	require.NoError(t, err)
	require.Len(t, prev.Proposals, 1)
	require.Len(t, prev.Rows, 2)
	assert.Equal(t, 64.0, *prev.Rows[0].MarksObtained)
	assert.True(t, prev.Rows[1].IsAbsent)
}

func TestReadSheet_UnsupportedFormat(t *testing.T) {
	_, err := ReadSheet("marks.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadSheet_EmptyFile(t *testing.T) {
	_, err := ReadSheet("marks.csv", strings.NewReader(""))
	_, ok := AsValidation(err)
	assert.True(t, ok)
}
