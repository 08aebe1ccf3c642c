package statistics

import (
	"testing"

	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(v float64) *float64 { return &v }

func TestCompute_AverageOnlyOverAttempted(t *testing.T) {
	entries := []Entry{
		{StudentID: uuid.New(), Name: "Asha", Percentage: p(80), Attempted: true},
		{StudentID: uuid.New(), Name: "Bilal", Percentage: p(60), Attempted: true},
		{StudentID: uuid.New(), Name: "Chetan", Percentage: p(0), Attempted: false},
	}
	st := Compute(entries)
	assert.Equal(t, 3, st.Students)
	assert.Equal(t, 2, st.Attempted)
	require.NotNil(t, st.ClassAverage)
	assert.InDelta(t, 70.0, *st.ClassAverage, 1e-9)
}

func TestCompute_TopperTieGoesToFirst(t *testing.T) {
	first := uuid.New()
	entries := []Entry{
		{StudentID: uuid.New(), Name: "Asha", Percentage: p(71), Attempted: true},
		{StudentID: first, Name: "Bilal", Percentage: p(92), Attempted: true, RollNumber: 2},
		{StudentID: uuid.New(), Name: "Chetan", Percentage: p(92), Attempted: true, RollNumber: 3},
	}
	st := Compute(entries)
	require.NotNil(t, st.Topper)
	assert.Equal(t, first, st.Topper.StudentID)
	assert.Equal(t, 92.0, st.Topper.Percentage)
}

func TestCompute_NobodyAttempted(t *testing.T) {
	st := Compute([]Entry{{Name: "Asha", Attempted: false}})
	assert.Nil(t, st.ClassAverage)
	assert.Nil(t, st.Topper)
	assert.Equal(t, 0, st.Attempted)
}

func TestCompute_SubjectExtremes(t *testing.T) {
	entries := []Entry{
		{Attempted: true, Percentage: p(50), Subjects: []SubjectScore{
			{Key: "maths", Name: "Maths", Obtained: p(40)},
			{Key: "art", Name: "Art", Obtained: nil},
		}},
		{Attempted: true, Percentage: p(50), Subjects: []SubjectScore{
			{Key: "maths", Name: "Maths", Obtained: p(95)},
			{Key: "art", Name: "Art", Obtained: nil},
		}},
		{Attempted: true, Percentage: p(50), Subjects: []SubjectScore{
			{Key: "maths", Name: "Maths", Obtained: p(12)},
			{Key: "art", Name: "Art", Obtained: nil},
		}},
	}
	st := Compute(entries)
	require.Len(t, st.Subjects, 2)

	assert.Equal(t, aggregation.Num(95), st.Subjects[0].Highest)
	assert.Equal(t, aggregation.Num(12), st.Subjects[0].Lowest)
	assert.Equal(t, 3, st.Subjects[0].Entries)

	assert.Equal(t, aggregation.NoData(), st.Subjects[1].Highest)
	assert.Equal(t, aggregation.NoData(), st.Subjects[1].Lowest)
	assert.Equal(t, "-", st.Subjects[1].Highest.String())
}

func TestEntryFromAggregate_SlotScope(t *testing.T) {
	unit, annual := uuid.New(), uuid.New()
	resolver := aggregation.NewSlotResolver([]aggregation.ExamTypeRef{
		{ID: unit, Name: "Unit Test", DisplayOrder: 1},
		{ID: annual, Name: "Annual", DisplayOrder: 2},
	})
	unitCfg, annualCfg := uuid.New(), uuid.New()
	groups := []aggregation.SubjectGroup{{Key: "maths", Name: "Maths", Components: []aggregation.Component{
		{ConfigID: unitCfg, ExamTypeID: unit, MaxMarks: 20},
		{ConfigID: annualCfg, ExamTypeID: annual, MaxMarks: 80},
	}}}
	agg := aggregation.Aggregate(groups, resolver, map[uuid.UUID]aggregation.Mark{
		unitCfg:   {IsAbsent: true},
		annualCfg: {MarksObtained: p(40)},
	})

	slot := aggregation.SlotUnitTest
	e := EntryFromAggregate(uuid.New(), "Asha", 1, agg, &slot)
	assert.False(t, e.Attempted, "absent for the whole unit test")
	assert.Nil(t, e.Subjects[0].Obtained)

	overall := EntryFromAggregate(uuid.New(), "Asha", 1, agg, nil)
	assert.True(t, overall.Attempted)
	require.NotNil(t, overall.Percentage)
	assert.InDelta(t, 40.0, *overall.Percentage, 1e-9)
	require.NotNil(t, overall.Subjects[0].Obtained)
	assert.Equal(t, 40.0, *overall.Subjects[0].Obtained)
}
