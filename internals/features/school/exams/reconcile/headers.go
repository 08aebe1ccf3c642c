// file: internals/features/school/exams/reconcile/headers.go
package reconcile

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

/* ============================================
   Column contract
============================================ */

const (
	HeaderScholarNo   = "Scholar No"
	HeaderStudentName = "Student Name"

	suffixMaxMarks    = " - Max Marks"
	suffixObtainMarks = " - Obtain Marks"
	suffixGrade       = " - Grade"
	suffixNumeric     = " - Numeric"
)

func MaxMarksHeader(subject string) string    { return subject + suffixMaxMarks }
func ObtainMarksHeader(subject string) string { return subject + suffixObtainMarks }

func ActivityHeader(category, activity string, numeric bool) string {
	if numeric {
		return category + " - " + activity + suffixNumeric
	}
	return category + " - " + activity + suffixGrade
}

var identityHeaders = []string{"scholar no", "scholar no.", "scholar number"}

var dashReplacer = strings.NewReplacer("\u2013", "-", "\u2014", "-", "\u2212", "-")

// normalize folds a header or name for comparison: NFKC, unified dashes,
// collapsed whitespace, lower case.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = dashReplacer.Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// cutSuffix strips a normalized suffix from a normalized header.
func cutSuffix(header, suffix string) (string, bool) {
	suf := normalize(suffix)
	if !strings.HasSuffix(header, suf) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimSuffix(header, suf)), true
}

func findIdentityColumn(headers []string) int {
	for i, h := range headers {
		n := normalize(h)
		for _, id := range identityHeaders {
			if n == id {
				return i
			}
		}
	}
	return -1
}

func isStudentNameColumn(h string) bool {
	return normalize(h) == normalize(HeaderStudentName)
}

/* ============================================
   Cell parsing
============================================ */

func isAbsentToken(v string, allowSingleA bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ab", "absent":
		return true
	case "a":
		return allowSingleA
	}
	return false
}

// parseNumber accepts plain decimals only; NaN, Inf and hex floats are
// not marks.
func parseNumber(v string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func scholarKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
