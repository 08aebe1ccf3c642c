package aggregation

import (
	"testing"

	"schooldesk_backend/internals/features/school/exams/grading"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

type fixture struct {
	unit, term1, term2, annual uuid.UUID
	resolver                   *SlotResolver
}

func newFixture() fixture {
	fx := fixture{unit: uuid.New(), term1: uuid.New(), term2: uuid.New(), annual: uuid.New()}
	fx.resolver = NewSlotResolver([]ExamTypeRef{
		{ID: fx.unit, Name: "Unit Test", DisplayOrder: 1},
		{ID: fx.term1, Name: "I-Term", DisplayOrder: 2},
		{ID: fx.term2, Name: "Half Yearly", DisplayOrder: 3},
		{ID: fx.annual, Name: "Annual Exam", DisplayOrder: 4},
	})
	return fx
}

func TestAggregate_SentinelsAndTotals(t *testing.T) {
	fx := newFixture()
	mathUnit, mathTerm1, mathAnnual := uuid.New(), uuid.New(), uuid.New()
	groups := []SubjectGroup{{
		Key: "maths", Name: "Maths",
		Components: []Component{
			{ConfigID: mathUnit, ExamTypeID: fx.unit, MaxMarks: 20},
			{ConfigID: mathTerm1, ExamTypeID: fx.term1, MaxMarks: 80},
			{ConfigID: mathAnnual, ExamTypeID: fx.annual, MaxMarks: 100},
		},
	}}
	marks := map[uuid.UUID]Mark{
		mathUnit:   {MarksObtained: f(15)},
		mathTerm1:  {IsAbsent: true},
		mathAnnual: {MarksObtained: f(60)},
	}

	agg := Aggregate(groups, fx.resolver, marks)
	require.Len(t, agg.Subjects, 1)
	row := agg.Subjects[0]

	assert.Equal(t, Num(20), row.Cells[SlotUnitTest].Max)
	assert.Equal(t, Num(15), row.Cells[SlotUnitTest].Obtained)

	assert.Equal(t, Num(80), row.Cells[SlotTerm1].Max)
	assert.Equal(t, Absent(), row.Cells[SlotTerm1].Obtained)

	assert.Equal(t, NotApplicable(), row.Cells[SlotTerm2].Max)
	assert.Equal(t, NotApplicable(), row.Cells[SlotTerm2].Obtained)

	// absent counts as 0 obtained, its max still counts
	assert.Equal(t, 200.0, row.TotalMax)
	assert.Equal(t, 75.0, row.TotalObtained)
	require.NotNil(t, row.Percentage)
	assert.InDelta(t, 37.5, *row.Percentage, 1e-9)
	assert.Equal(t, grading.GradeD, row.Grade)

	assert.True(t, agg.Attempted)
	assert.Equal(t, 200.0, agg.Grand.TotalMax)
	assert.Equal(t, grading.DivisionThird, agg.Grand.Division)
	assert.Nil(t, agg.Grand.Slots[SlotTerm2].Percentage)
}

func TestAggregate_PartialAbsenceIsNotAB(t *testing.T) {
	fx := newFixture()
	theory, internal := uuid.New(), uuid.New()
	groups := []SubjectGroup{{
		Key: "science", Name: "Science",
		Components: []Component{
			{ConfigID: theory, ExamTypeID: fx.annual, MaxMarks: 80},
			{ConfigID: internal, ExamTypeID: fx.annual, MaxMarks: 20},
		},
	}}

	agg := Aggregate(groups, fx.resolver, map[uuid.UUID]Mark{
		theory:   {IsAbsent: true},
		internal: {MarksObtained: f(18)},
	})
	cell := agg.Subjects[0].Cells[SlotAnnual]
	assert.Equal(t, Num(100), cell.Max)
	assert.Equal(t, Num(18), cell.Obtained)
}

func TestAggregate_NoMarksAtAll(t *testing.T) {
	fx := newFixture()
	cfg := uuid.New()
	groups := []SubjectGroup{{Key: "english", Name: "English", Components: []Component{
		{ConfigID: cfg, ExamTypeID: fx.unit, MaxMarks: 25},
	}}}

	agg := Aggregate(groups, fx.resolver, nil)
	cell := agg.Subjects[0].Cells[SlotUnitTest]
	// configured but nothing entered: max counts, obtained is a plain zero
	assert.Equal(t, Num(25), cell.Max)
	assert.Equal(t, Num(0), cell.Obtained)
	assert.False(t, agg.Attempted)
	require.NotNil(t, agg.Grand.Percentage)
	assert.Equal(t, 0.0, *agg.Grand.Percentage)
}

func TestAggregate_NoConfigurationGivesNoGrade(t *testing.T) {
	fx := newFixture()
	agg := Aggregate([]SubjectGroup{{Key: "art", Name: "Art"}}, fx.resolver, nil)
	row := agg.Subjects[0]
	assert.Nil(t, row.Percentage)
	assert.Equal(t, "", row.Grade)
	assert.Equal(t, "", agg.Grand.Grade)
	assert.Equal(t, "", agg.Grand.Division)
}

func TestAggregate_PreservesGroupOrder(t *testing.T) {
	fx := newFixture()
	groups := []SubjectGroup{{Key: "zoology", Name: "Zoology"}, {Key: "art", Name: "Art"}, {Key: "maths", Name: "Maths"}}
	agg := Aggregate(groups, fx.resolver, nil)
	names := make([]string, 0, len(agg.Subjects))
	for _, s := range agg.Subjects {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Zoology", "Art", "Maths"}, names)
}

func TestGroupSubjects_MergesByGroupName(t *testing.T) {
	fx := newFixture()
	theory, internal, maths := uuid.New(), uuid.New(), uuid.New()
	subjects := []SubjectRef{
		{ID: theory, Name: "Science Theory", GroupName: "Science"},
		{ID: maths, Name: "Maths"},
		{ID: internal, Name: "Science Internal", GroupName: " science "},
	}
	configs := []ConfigRef{
		{ID: uuid.New(), SubjectID: theory, ExamTypeID: fx.annual, MaxMarks: 80},
		{ID: uuid.New(), SubjectID: internal, ExamTypeID: fx.annual, MaxMarks: 20},
		{ID: uuid.New(), SubjectID: maths, ExamTypeID: fx.annual, MaxMarks: 100},
	}

	groups := GroupSubjects(subjects, configs)
	require.Len(t, groups, 2)
	assert.Equal(t, "Science", groups[0].Name)
	assert.Len(t, groups[0].Components, 2)
	assert.Equal(t, "Maths", groups[1].Name)
}

func TestDefaultGroupName(t *testing.T) {
	assert.Equal(t, "Math", DefaultGroupName("Math Internal"))
	assert.Equal(t, "Math", DefaultGroupName(" Math Theory "))
	assert.Equal(t, "Hindi", DefaultGroupName("Hindi"))
	assert.Equal(t, "Internal", DefaultGroupName("Internal"))
}

func TestAggregate_InternalAndTheoryCombine(t *testing.T) {
	fx := newFixture()
	internal, theory := uuid.New(), uuid.New()
	internalCfg, theoryCfg := uuid.New(), uuid.New()
	subjects := []SubjectRef{
		{ID: internal, Name: "Math Internal", GroupName: DefaultGroupName("Math Internal")},
		{ID: theory, Name: "Math Theory", GroupName: DefaultGroupName("Math Theory")},
	}
	configs := []ConfigRef{
		{ID: internalCfg, SubjectID: internal, ExamTypeID: fx.unit, MaxMarks: 20},
		{ID: theoryCfg, SubjectID: theory, ExamTypeID: fx.unit, MaxMarks: 80},
	}

	agg := Aggregate(GroupSubjects(subjects, configs), fx.resolver, map[uuid.UUID]Mark{
		internalCfg: {MarksObtained: f(15)},
		theoryCfg:   {MarksObtained: f(60)},
	})
	require.Len(t, agg.Subjects, 1)
	assert.Equal(t, "Math", agg.Subjects[0].Name)
	assert.Equal(t, Num(100), agg.Subjects[0].Cells[SlotUnitTest].Max)
	assert.Equal(t, Num(75), agg.Subjects[0].Cells[SlotUnitTest].Obtained)
}

func TestAggregate_OnlyComponentAbsentInAnnual(t *testing.T) {
	fx := newFixture()
	cfg := uuid.New()
	groups := []SubjectGroup{{Key: "evs", Name: "EVS", Components: []Component{
		{ConfigID: cfg, ExamTypeID: fx.annual, MaxMarks: 50},
	}}}
	agg := Aggregate(groups, fx.resolver, map[uuid.UUID]Mark{cfg: {IsAbsent: true}})
	cell := agg.Subjects[0].Cells[SlotAnnual]
	assert.Equal(t, Absent(), cell.Obtained)
	assert.Equal(t, Num(50), cell.Max)
	assert.False(t, agg.Attempted)
}

func TestAggregate_RealZeroIsNotAbsent(t *testing.T) {
	fx := newFixture()
	cfg := uuid.New()
	groups := []SubjectGroup{{Key: "evs", Name: "EVS", Components: []Component{
		{ConfigID: cfg, ExamTypeID: fx.annual, MaxMarks: 50},
	}}}
	agg := Aggregate(groups, fx.resolver, map[uuid.UUID]Mark{cfg: {MarksObtained: f(0)}})
	assert.Equal(t, Num(0), agg.Subjects[0].Cells[SlotAnnual].Obtained)
	assert.True(t, agg.Attempted)
}

func TestSlotResolver_ExplicitSlotWins(t *testing.T) {
	explicit, named := uuid.New(), uuid.New()
	r := NewSlotResolver([]ExamTypeRef{
		{ID: named, Name: "Annual", DisplayOrder: 1},
		{ID: explicit, Name: "Year End", Slot: SlotAnnual, DisplayOrder: 2},
	})
	id, ok := r.ExamTypeFor(SlotAnnual)
	require.True(t, ok)
	assert.Equal(t, explicit, id)
}

func TestSlotResolver_KeywordAmbiguityTakesFirstInDisplayOrder(t *testing.T) {
	// "Unit Test" and "Unit Test 2" both contain "unit"; the earlier one is used
	// and the later one never contributes to any slot.
	first, second := uuid.New(), uuid.New()
	r := NewSlotResolver([]ExamTypeRef{
		{ID: second, Name: "Unit Test 2", DisplayOrder: 5},
		{ID: first, Name: "Unit Test", DisplayOrder: 1},
	})
	id, ok := r.ExamTypeFor(SlotUnitTest)
	require.True(t, ok)
	assert.Equal(t, first, id)
	_, ok = r.SlotOf(second)
	assert.False(t, ok)
}

func TestSlotResolver_TermKeywords(t *testing.T) {
	t1, t2 := uuid.New(), uuid.New()
	r := NewSlotResolver([]ExamTypeRef{
		{ID: t1, Name: "First Term", DisplayOrder: 1},
		{ID: t2, Name: "Second Term", DisplayOrder: 2},
	})
	got1, _ := r.ExamTypeFor(SlotTerm1)
	got2, _ := r.ExamTypeFor(SlotTerm2)
	assert.Equal(t, t1, got1)
	assert.Equal(t, t2, got2)
	_, ok := r.ExamTypeFor(SlotAnnual)
	assert.False(t, ok)
}

func TestSlotResolver_Aliases(t *testing.T) {
	id := uuid.New()
	r := NewSlotResolver([]ExamTypeRef{{ID: id, Name: "SA-2", Aliases: []string{"Final"}}})
	got, ok := r.ExamTypeFor(SlotAnnual)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestValue_JSON(t *testing.T) {
	b, err := sonic.Marshal([]Value{Num(12.5), NotApplicable(), Absent(), NoData()})
	require.NoError(t, err)
	assert.JSONEq(t, `[12.5,"NA","AB","-"]`, string(b))

	var back []Value
	require.NoError(t, sonic.Unmarshal(b, &back))
	assert.Equal(t, Absent(), back[2])
}
