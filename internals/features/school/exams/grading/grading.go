// file: internals/features/school/exams/grading/grading.go
package grading

import "strings"

/* ============================================
   Grade table (scholastic)
   >85 A+ | >=76 A | >=66 B+ | >=56 B | >=51 C+ | >=46 C | >=33 D | else F
============================================ */

const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeBPlus = "B+"
	GradeB     = "B"
	GradeCPlus = "C+"
	GradeC     = "C"
	GradeD     = "D"
	GradeF     = "F"
)

// PercentageToGrade maps an aggregate percentage to a letter grade.
// nil means nothing was configured/entered and yields "".
func PercentageToGrade(p *float64) string {
	if p == nil {
		return ""
	}
	v := *p
	switch {
	case v > 85:
		return GradeAPlus
	case v >= 76:
		return GradeA
	case v >= 66:
		return GradeBPlus
	case v >= 56:
		return GradeB
	case v >= 51:
		return GradeCPlus
	case v >= 46:
		return GradeC
	case v >= 33:
		return GradeD
	default:
		return GradeF
	}
}

/* ============================================
   Division table (promotion). Cut points differ from the grade table
   on purpose; keep the two functions separate.
============================================ */

const (
	DivisionFirst  = "1st"
	DivisionSecond = "2nd"
	DivisionThird  = "3rd"
	DivisionDetain = "Detain"
)

func PercentageToDivision(p *float64) string {
	if p == nil {
		return ""
	}
	v := *p
	switch {
	case v >= 60:
		return DivisionFirst
	case v >= 45:
		return DivisionSecond
	case v >= 33:
		return DivisionThird
	default:
		return DivisionDetain
	}
}

// Percentage returns obtained/max*100, or nil when max is not positive.
func Percentage(obtained, max float64) *float64 {
	if max <= 0 {
		return nil
	}
	p := obtained / max * 100
	return &p
}

const (
	ResultPromoted = "Promoted"
	ResultDetained = "Detained"
)

// PromotionResult is driven only by whether the aggregate grade is F.
func PromotionResult(grade string) string {
	switch grade {
	case "":
		return ""
	case GradeF:
		return ResultDetained
	default:
		return ResultPromoted
	}
}

/* ============================================
   Non-scholastic grade scale
============================================ */

var NonScholasticGrades = []string{GradeAPlus, GradeA, GradeB, GradeC, GradeD}

// ParseNonScholasticGrade normalises "a+", " B " etc. to the canonical grade.
func ParseNonScholasticGrade(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, g := range NonScholasticGrades {
		if s == g {
			return g, true
		}
	}
	return "", false
}
