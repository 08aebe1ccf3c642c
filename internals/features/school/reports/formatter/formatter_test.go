package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2025, 7, d, 8, 0, 0, 0, time.UTC) }

func TestBuildAttendanceReport_CountsAndSummary(t *testing.T) {
	asha := AttendanceStudent{StudentID: uuid.New(), RollNumber: 1, Name: "Asha"}
	bilal := AttendanceStudent{StudentID: uuid.New(), RollNumber: 2, Name: `Bilal "Bil" Khan`}

	marks := []AttendanceMark{
		{StudentID: asha.StudentID, Date: day(2), Status: "present"},
		{StudentID: bilal.StudentID, Date: day(2), Status: "absent"},
		{StudentID: asha.StudentID, Date: day(1), Status: "late"},
		{StudentID: bilal.StudentID, Date: day(1), Status: "excused"},
		{StudentID: asha.StudentID, Date: day(3), Status: "absent"},
		// outside the range
		{StudentID: asha.StudentID, Date: day(9), Status: "present"},
	}

	rep := BuildAttendanceReport([]AttendanceStudent{asha, bilal}, marks, day(1), day(3))
	assert.Equal(t, "2025-07-01", rep.From)
	assert.Equal(t, "2025-07-03", rep.To)

	require.Len(t, rep.Rows, 2)
	a := rep.Rows[0]
	assert.Equal(t, 3, a.TotalDays)
	assert.Equal(t, 1, a.Present)
	assert.Equal(t, 1, a.Late)
	assert.Equal(t, 1, a.Absent)
	require.NotNil(t, a.Percentage)
	assert.Equal(t, 66.67, *a.Percentage)

	b := rep.Rows[1]
	assert.Equal(t, 2, b.TotalDays)
	require.NotNil(t, b.Percentage)
	assert.Equal(t, 0.0, *b.Percentage)

	require.Len(t, rep.Days, 3)
	assert.Equal(t, "2025-07-01", rep.Days[0].Date)
	assert.Equal(t, 1, rep.Days[0].Late)
	assert.Equal(t, 1, rep.Days[0].Excused)
	assert.Equal(t, 2, rep.Days[0].Total)
	assert.Equal(t, "2025-07-03", rep.Days[2].Date)
	assert.Equal(t, 1, rep.Days[2].Total)
}

func TestAttendanceReport_WriteCSVQuotesNames(t *testing.T) {
	asha := AttendanceStudent{StudentID: uuid.New(), RollNumber: 1, Name: "Asha"}
	bilal := AttendanceStudent{StudentID: uuid.New(), RollNumber: 2, Name: `Khan, Bilal "B"`}
	rep := BuildAttendanceReport([]AttendanceStudent{asha, bilal}, []AttendanceMark{
		{StudentID: asha.StudentID, Date: day(1), Status: "present"},
	}, day(1), day(1))

	var buf bytes.Buffer
	require.NoError(t, rep.WriteCSV(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Roll Number,Name,Total Days,Present,Absent,Late,Excused,Attendance %", lines[0])
	assert.Equal(t, `1,"Asha",1,1,0,0,0,100.00`, lines[1])
	assert.Equal(t, `2,"Khan, Bilal ""B""",0,0,0,0,0,-`, lines[2])
	assert.Nil(t, rep.Rows[1].Percentage)
}

func pct(v float64) *float64 { return &v }

func TestBuildMarksheet_RoundsAndDerivesResult(t *testing.T) {
	agg := aggregation.StudentAggregate{
		Subjects: []aggregation.SubjectRow{{
			Key:  "maths",
			Name: "Maths",
			Cells: map[aggregation.Slot]aggregation.SlotCell{
				aggregation.SlotAnnual: {Max: aggregation.Num(300), Obtained: aggregation.Num(100)},
			},
			TotalMax:      300,
			TotalObtained: 100,
			Percentage:    pct(33.333333),
			Grade:         "D",
		}},
		Grand: aggregation.GrandTotal{
			Slots: map[aggregation.Slot]aggregation.SlotTotal{
				aggregation.SlotAnnual: {Max: 300, Obtained: 100, Percentage: pct(33.333333)},
			},
			TotalMax:      300,
			TotalObtained: 100,
			Percentage:    pct(33.333333),
			Grade:         "D",
			Division:      "3rd",
		},
		Attempted: true,
	}
	grade := "A"
	ms := BuildMarksheet(MarksheetInput{
		SchoolName: "Springfield Public School",
		Student:    StudentInfo{Name: "Asha", AcademicYear: "2025-26"},
		Aggregate:  agg,
		NonScholastic: []ActivityValue{
			{Category: "Co-Curricular", Activity: "Music", Grade: &grade, Recorded: true},
			{Category: "Health", Activity: "Yoga", IsAbsent: true, Recorded: true},
			{Category: "Co-Curricular", Activity: "Art"},
		},
	})

	assert.Equal(t, 33.33, *ms.Subjects[0].Percentage)
	assert.Equal(t, 33.33, *ms.GrandTotal.Percentage)
	assert.Equal(t, 33.33, *ms.GrandTotal.Slots[aggregation.SlotAnnual].Percentage)
	assert.Equal(t, "3rd", ms.Division)
	assert.Equal(t, "Promoted", ms.Result)
	assert.Equal(t, "One Hundred", ms.TotalInWords)
	require.Len(t, ms.Slots, 4)

	require.Len(t, ms.NonScholastic, 2)
	assert.Equal(t, "Co-Curricular", ms.NonScholastic[0].Category)
	assert.Equal(t, []NonScholasticItem{{Activity: "Music", Value: "A"}, {Activity: "Art", Value: "-"}}, ms.NonScholastic[0].Items)
	assert.Equal(t, "AB", ms.NonScholastic[1].Items[0].Value)

	// the input aggregate is left untouched
	assert.Equal(t, 33.333333, *agg.Grand.Percentage)
}

func TestBuildMarksheet_FailedStudentIsDetained(t *testing.T) {
	ms := BuildMarksheet(MarksheetInput{Aggregate: aggregation.StudentAggregate{
		Grand: aggregation.GrandTotal{TotalMax: 100, TotalObtained: 20, Percentage: pct(20), Grade: "F", Division: "Detain"},
	}})
	assert.Equal(t, "Detained", ms.Result)
	assert.Equal(t, "Detain", ms.Division)
}

func TestBuildMarksheet_NoMarksHasNoResult(t *testing.T) {
	ms := BuildMarksheet(MarksheetInput{})
	assert.Equal(t, "", ms.Result)
	assert.Equal(t, "", ms.TotalInWords)
}

func TestTotalInWords(t *testing.T) {
	assert.Equal(t, "Four Hundred Twelve Point Five", TotalInWords(412.5))
	assert.Equal(t, "Seventy Five", TotalInWords(75))
	assert.Equal(t, "Zero", TotalInWords(0))
}

func TestMarksheet_WritePDF(t *testing.T) {
	ms := BuildMarksheet(MarksheetInput{
		SchoolName: "Springfield Public School",
		Student:    StudentInfo{Name: "Asha", ScholarNumber: "S-1", RollNumber: 1, ClassName: "5th A", AcademicYear: "2025-26"},
		Health:     Health{Height: "132 cm", Remarks: "Keeps up the good work."},
	})
	var buf bytes.Buffer
	require.NoError(t, ms.WritePDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
