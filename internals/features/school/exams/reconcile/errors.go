// file: internals/features/school/exams/reconcile/errors.go
package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindInvalidFile          ErrorKind = "invalid_file"
	KindMissingIdentity      ErrorKind = "missing_identity_column"
	KindUnknownStudent       ErrorKind = "unknown_student"
	KindUnknownSubject       ErrorKind = "unknown_subject"
	KindUnknownActivity      ErrorKind = "unknown_activity"
	KindInvalidNumber        ErrorKind = "invalid_number"
	KindInvalidGrade         ErrorKind = "invalid_grade"
	KindInvalidMax           ErrorKind = "invalid_max_marks"
	KindExceedsMax           ErrorKind = "exceeds_max"
	KindNegative             ErrorKind = "negative_value"
	KindConfigurationMissing ErrorKind = "configuration_missing"
	KindColumnMismatch       ErrorKind = "column_kind_mismatch"
)

// ValidationError points at one offending cell or column. Row is the
// 1-based spreadsheet row (header is row 1); 0 means the whole column/file.
type ValidationError struct {
	Row     int       `json:"row,omitempty"`
	Column  string    `json:"column,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	case e.Column != "":
		return fmt.Sprintf("column %q: %s", e.Column, e.Message)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return e.Message
}

// ValidationErrors is returned when a file has one or more problems. The
// whole file is rejected.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("%d validation errors: %s", len(es), strings.Join(parts, "; "))
}

// HasKind reports whether any error in the set is of kind k.
func (es ValidationErrors) HasKind(k ErrorKind) bool {
	for _, e := range es {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// AsValidation unwraps err into the list of validation errors, if any.
func AsValidation(err error) (ValidationErrors, bool) {
	var many ValidationErrors
	if errors.As(err, &many) {
		return many, true
	}
	var one *ValidationError
	if errors.As(err, &one) {
		return ValidationErrors{one}, true
	}
	return nil, false
}

// collector caps the number of reported problems so a badly broken file
// does not produce thousands of entries.
type collector struct {
	errs ValidationErrors
}

const maxReportedErrors = 50

func (c *collector) add(row int, column string, kind ErrorKind, format string, args ...any) {
	if len(c.errs) >= maxReportedErrors {
		return
	}
	c.errs = append(c.errs, &ValidationError{Row: row, Column: column, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}
