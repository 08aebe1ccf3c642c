// file: internals/features/school/reports/formatter/marksheet.go
package formatter

import (
	"math"
	"strconv"
	"strings"

	"schooldesk_backend/internals/features/school/exams/aggregation"
	"schooldesk_backend/internals/features/school/exams/grading"

	"github.com/divan/num2words"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func round2Ptr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := Round2(*p)
	return &v
}

/* ============================================
   INPUT
============================================ */

type StudentInfo struct {
	StudentID     uuid.UUID `json:"student_id"`
	ScholarNumber string    `json:"scholar_number"`
	RollNumber    int       `json:"roll_number"`
	Name          string    `json:"name"`
	FatherName    string    `json:"father_name,omitempty"`
	MotherName    string    `json:"mother_name,omitempty"`
	DateOfBirth   string    `json:"date_of_birth,omitempty"`
	ClassName     string    `json:"class_name"`
	AcademicYear  string    `json:"academic_year"`
}

// ActivityValue is one activity of the class level with the student's
// stored value. Recorded is false when the student has no entry.
type ActivityValue struct {
	Category     string
	Activity     string
	Grade        *string
	NumericValue *float64
	IsAbsent     bool
	Recorded     bool
}

type Health struct {
	Height     string `json:"height,omitempty"`
	Weight     string `json:"weight,omitempty"`
	Attendance string `json:"attendance,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
}

type MarksheetInput struct {
	SchoolName    string
	Student       StudentInfo
	Aggregate     aggregation.StudentAggregate
	NonScholastic []ActivityValue // display order
	Health        Health
}

/* ============================================
   OUTPUT
============================================ */

type SlotHeader struct {
	Slot  aggregation.Slot `json:"slot"`
	Label string           `json:"label"`
}

type NonScholasticItem struct {
	Activity string `json:"activity"`
	Value    string `json:"value"`
}

type NonScholasticCategory struct {
	Category string              `json:"category"`
	Items    []NonScholasticItem `json:"items"`
}

type Marksheet struct {
	SchoolName    string                   `json:"school_name"`
	Student       StudentInfo              `json:"student"`
	Slots         []SlotHeader             `json:"slots"`
	Subjects      []aggregation.SubjectRow `json:"subjects"`
	GrandTotal    aggregation.GrandTotal   `json:"grand_total"`
	TotalInWords  string                   `json:"total_in_words"`
	Division      string                   `json:"division"`
	Result        string                   `json:"result"`
	NonScholastic []NonScholasticCategory  `json:"non_scholastic"`
	Health        Health                   `json:"health"`
}

// BuildMarksheet lays out an aggregate for printing. Nothing is computed
// here beyond rounding, the total in words and the result string.
func BuildMarksheet(in MarksheetInput) Marksheet {
	ms := Marksheet{
		SchoolName:    in.SchoolName,
		Student:       in.Student,
		Slots:         make([]SlotHeader, 0, len(aggregation.Slots)),
		Subjects:      make([]aggregation.SubjectRow, 0, len(in.Aggregate.Subjects)),
		Division:      in.Aggregate.Grand.Division,
		Result:        grading.PromotionResult(in.Aggregate.Grand.Grade),
		NonScholastic: groupNonScholastic(in.NonScholastic),
		Health:        in.Health,
	}
	for _, s := range aggregation.Slots {
		ms.Slots = append(ms.Slots, SlotHeader{Slot: s, Label: s.Label()})
	}
	for _, row := range in.Aggregate.Subjects {
		row.Percentage = round2Ptr(row.Percentage)
		ms.Subjects = append(ms.Subjects, row)
	}

	g := in.Aggregate.Grand
	slots := make(map[aggregation.Slot]aggregation.SlotTotal, len(g.Slots))
	for k, v := range g.Slots {
		v.Percentage = round2Ptr(v.Percentage)
		slots[k] = v
	}
	g.Slots = slots
	g.Percentage = round2Ptr(g.Percentage)
	ms.GrandTotal = g

	if g.TotalMax > 0 {
		ms.TotalInWords = TotalInWords(g.TotalObtained)
	}
	return ms
}

// TotalInWords spells a mark total, e.g. 412.5 -> "Four Hundred Twelve
// Point Five".
func TotalInWords(v float64) string {
	v = Round2(v)
	whole := int(math.Floor(v))
	words := titleCase(num2words.Convert(whole))

	frac := strconv.FormatFloat(v-float64(whole), 'f', 2, 64) // "0.50"
	frac = strings.TrimRight(strings.TrimPrefix(frac, "0."), "0")
	if frac == "" {
		return words
	}
	digits := make([]string, 0, len(frac))
	for _, ch := range frac {
		digits = append(digits, titleCase(num2words.Convert(int(ch-'0'))))
	}
	return words + " Point " + strings.Join(digits, " ")
}

func titleCase(s string) string {
	parts := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func groupNonScholastic(values []ActivityValue) []NonScholasticCategory {
	out := []NonScholasticCategory{}
	idx := map[string]int{}
	for _, v := range values {
		i, ok := idx[v.Category]
		if !ok {
			i = len(out)
			idx[v.Category] = i
			out = append(out, NonScholasticCategory{Category: v.Category})
		}
		out[i].Items = append(out[i].Items, NonScholasticItem{Activity: v.Activity, Value: activityText(v)})
	}
	return out
}

func activityText(v ActivityValue) string {
	switch {
	case !v.Recorded:
		return aggregation.TokenNoData
	case v.IsAbsent:
		return aggregation.TokenAbsent
	case v.Grade != nil:
		return *v.Grade
	case v.NumericValue != nil:
		return strconv.FormatFloat(Round2(*v.NumericValue), 'f', -1, 64)
	default:
		return aggregation.TokenNoData
	}
}
