// file: internals/features/school/exams/reconcile/sheet.go
package reconcile

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is the first worksheet of an upload: one header row plus data rows.
// Row i of Rows is spreadsheet row i+2.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the trimmed value at (row, col), "" when out of range.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[row][col])
}

// Populated reports whether any data row has a value in col.
func (s *Sheet) Populated(col int) bool {
	for i := range s.Rows {
		if s.Cell(i, col) != "" {
			return true
		}
	}
	return false
}

func SheetRowNumber(i int) int { return i + 2 }

var ErrUnsupportedFormat = errors.New("unsupported file format, upload .xlsx or .csv")

// ReadSheet parses an .xlsx (first worksheet) or .csv upload.
func ReadSheet(filename string, r io.Reader) (*Sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &ValidationError{Kind: KindInvalidFile, Message: "cannot read file: " + err.Error()}
	}

	// leading blank rows are tolerated
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, &ValidationError{Kind: KindInvalidFile, Message: "file has no header row"}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return &Sheet{Headers: headers, Rows: rows[1:]}, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(name)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
