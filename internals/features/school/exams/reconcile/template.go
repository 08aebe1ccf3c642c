// file: internals/features/school/exams/reconcile/template.go
package reconcile

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// Template is an upload/download sheet in the same column contract the
// reconciler reads.
type Template struct {
	SheetName string
	Headers   []string
	Rows      [][]any
}

type TemplateStudent struct {
	ScholarNumber string
	Name          string
}

type TemplateSubject struct {
	ID       string
	Name     string
	MaxMarks *float64
}

// MarksCell is an existing value keyed by scholar number and subject id.
type MarksCell struct {
	MarksObtained *float64
	IsAbsent      bool
}

// NewMarksTemplate lays out one Max/Obtain column pair per subject with the
// roster pre-filled. existing[scholar][subjectID] fills known marks.
func NewMarksTemplate(students []TemplateStudent, subjects []TemplateSubject, existing map[string]map[string]MarksCell) *Template {
	t := &Template{SheetName: "Marks", Headers: []string{HeaderScholarNo, HeaderStudentName}}
	for _, s := range subjects {
		t.Headers = append(t.Headers, MaxMarksHeader(s.Name), ObtainMarksHeader(s.Name))
	}
	for _, st := range students {
		row := []any{st.ScholarNumber, st.Name}
		for _, s := range subjects {
			var maxCell, obt any
			if s.MaxMarks != nil {
				maxCell = *s.MaxMarks
			}
			if cell, ok := existing[st.ScholarNumber][s.ID]; ok {
				switch {
				case cell.IsAbsent:
					obt = "AB"
				case cell.MarksObtained != nil:
					obt = *cell.MarksObtained
				}
			}
			row = append(row, maxCell, obt)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

type TemplateActivity struct {
	ID        string
	Category  string
	Name      string
	IsNumeric bool
}

type NonScholasticCell struct {
	Grade        *string
	NumericValue *float64
	IsAbsent     bool
}

func NewNonScholasticTemplate(students []TemplateStudent, activities []TemplateActivity, existing map[string]map[string]NonScholasticCell) *Template {
	t := &Template{SheetName: "Non-Scholastic", Headers: []string{HeaderScholarNo, HeaderStudentName}}
	for _, a := range activities {
		t.Headers = append(t.Headers, ActivityHeader(a.Category, a.Name, a.IsNumeric))
	}
	for _, st := range students {
		row := []any{st.ScholarNumber, st.Name}
		for _, a := range activities {
			var v any
			if cell, ok := existing[st.ScholarNumber][a.ID]; ok {
				switch {
				case cell.IsAbsent:
					v = "AB"
				case cell.Grade != nil:
					v = *cell.Grade
				case cell.NumericValue != nil:
					v = *cell.NumericValue
				}
			}
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteXLSX renders the template as a single-sheet workbook.
func (t *Template) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	name := t.SheetName
	if name == "" {
		name = "Sheet1"
	}
	if name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	}

	for i, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
