// file: internals/features/school/exams/reconcile/nonscholastic.go
package reconcile

import (
	"fmt"

	"schooldesk_backend/internals/features/school/exams/grading"

	"github.com/google/uuid"
)

type ActivityRef struct {
	ID        uuid.UUID
	Category  string
	Name      string
	IsNumeric bool
	MaxValue  *float64
}

type NonScholasticInput struct {
	ClassLevel   string
	AcademicYear string
	ExamTypeID   uuid.UUID
	Students     []StudentRef
	Activities   []ActivityRef
	Sheet        *Sheet
}

// NonScholasticRow holds either Grade or NumericValue, or neither when
// the student was absent.
type NonScholasticRow struct {
	StudentID    uuid.UUID `json:"student_id"`
	ActivityID   uuid.UUID `json:"activity_id"`
	Grade        *string   `json:"grade"`
	NumericValue *float64  `json:"numeric_value"`
	IsAbsent     bool      `json:"is_absent"`
	Row          int       `json:"row"`
}

type NonScholasticPreview struct {
	ClassLevel     string             `json:"class_level"`
	AcademicYear   string             `json:"academic_year"`
	ExamTypeID     uuid.UUID          `json:"exam_type_id"`
	Rows           []NonScholasticRow `json:"rows"`
	Students       int                `json:"students"`
	Warnings       []string           `json:"warnings"`
	SkippedColumns []string           `json:"skipped_columns"`
}

func activityKey(category, name string) string {
	return normalize(category + " - " + name)
}

type activityColumn struct {
	activity ActivityRef
	col      int
	numeric  bool
}

// ReconcileNonScholastic validates a non-scholastic upload. Grade columns
// accept the A+..D scale; "A" is a grade there, so only "AB"/"absent"
// mean absent.
func ReconcileNonScholastic(in NonScholasticInput) (*NonScholasticPreview, error) {
	if in.Sheet == nil {
		return nil, &ValidationError{Kind: KindInvalidFile, Message: "no sheet"}
	}
	sh := in.Sheet
	var c collector

	idCol := findIdentityColumn(sh.Headers)
	if idCol < 0 {
		c.add(1, HeaderScholarNo, KindMissingIdentity, "required column %q not found", HeaderScholarNo)
		return nil, c.err()
	}

	prev := &NonScholasticPreview{
		ClassLevel:   in.ClassLevel,
		AcademicYear: in.AcademicYear,
		ExamTypeID:   in.ExamTypeID,
		Rows:         []NonScholasticRow{},
	}

	byKey := make(map[string]ActivityRef, len(in.Activities))
	for _, a := range in.Activities {
		byKey[activityKey(a.Category, a.Name)] = a
	}

	var cols []activityColumn
	for i, h := range sh.Headers {
		if i == idCol || isStudentNameColumn(h) || h == "" {
			continue
		}
		n := normalize(h)
		name, isGrade := cutSuffix(n, suffixGrade)
		isNumeric := false
		if !isGrade {
			name, isNumeric = cutSuffix(n, suffixNumeric)
		}
		if !sh.Populated(i) {
			prev.SkippedColumns = append(prev.SkippedColumns, h)
			continue
		}
		if !isGrade && !isNumeric {
			prev.Warnings = append(prev.Warnings, fmt.Sprintf("column %q ignored", h))
			continue
		}
		act, ok := byKey[name]
		if !ok {
			c.add(0, h, KindUnknownActivity, "no activity %q for class %s", name, in.ClassLevel)
			continue
		}
		if act.IsNumeric != isNumeric {
			c.add(0, h, KindColumnMismatch, "%s - %s is recorded as %s", act.Category, act.Name, kindLabel(act.IsNumeric))
			continue
		}
		cols = append(cols, activityColumn{activity: act, col: i, numeric: isNumeric})
	}

	studentsByScholar := make(map[string]StudentRef, len(in.Students))
	for _, s := range in.Students {
		studentsByScholar[scholarKey(s.ScholarNumber)] = s
	}

	type key struct{ student, activity uuid.UUID }
	pos := map[key]int{}
	seenScholar := map[string]int{}

	for r := range sh.Rows {
		rowNo := SheetRowNumber(r)
		scholar := sh.Cell(r, idCol)
		if scholar == "" {
			continue
		}
		st, ok := studentsByScholar[scholarKey(scholar)]
		if !ok {
			c.add(rowNo, sh.Headers[idCol], KindUnknownStudent, "no student with scholar number %q in this class", scholar)
			continue
		}
		if first, dup := seenScholar[scholarKey(scholar)]; dup {
			prev.Warnings = append(prev.Warnings, fmt.Sprintf(
				"row %d repeats scholar number %s from row %d; later values win", rowNo, scholar, first))
		} else {
			seenScholar[scholarKey(scholar)] = rowNo
			prev.Students++
		}

		for _, ac := range cols {
			raw := sh.Cell(r, ac.col)
			if raw == "" {
				continue
			}
			header := sh.Headers[ac.col]
			row := NonScholasticRow{StudentID: st.ID, ActivityID: ac.activity.ID, Row: rowNo}

			switch {
			case isAbsentToken(raw, ac.numeric):
				row.IsAbsent = true
			case ac.numeric:
				v, ok := parseNumber(raw)
				if !ok {
					c.add(rowNo, header, KindInvalidNumber, "%q is not a number", raw)
					continue
				}
				if v < 0 {
					c.add(rowNo, header, KindNegative, "value cannot be negative (%s)", raw)
					continue
				}
				if ac.activity.MaxValue != nil && v > *ac.activity.MaxValue {
					c.add(rowNo, header, KindExceedsMax, "%s exceeds maximum %s", fmtNum(v), fmtNum(*ac.activity.MaxValue))
					continue
				}
				row.NumericValue = &v
			default:
				g, ok := grading.ParseNonScholasticGrade(raw)
				if !ok {
					c.add(rowNo, header, KindInvalidGrade, "%q is not one of %v", raw, grading.NonScholasticGrades)
					continue
				}
				row.Grade = &g
			}

			k := key{st.ID, ac.activity.ID}
			if i, dup := pos[k]; dup {
				prev.Rows[i] = row
				continue
			}
			pos[k] = len(prev.Rows)
			prev.Rows = append(prev.Rows, row)
		}
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return prev, nil
}

func kindLabel(numeric bool) string {
	if numeric {
		return "numeric"
	}
	return "grade"
}
