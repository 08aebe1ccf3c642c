// file: internals/features/school/store/errors.go
package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// StoreError wraps a failed data-store round trip.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// wrap maps driver errors onto the package sentinels. Unique and foreign key
// violations come back as ErrConflict / ErrNotFound so callers never see
// driver types.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	switch pgCode(err) {
	case "23505":
		return &StoreError{Op: op, Err: fmt.Errorf("%w: %v", ErrConflict, err)}
	case "23503":
		return &StoreError{Op: op, Err: fmt.Errorf("%w: referenced row missing: %v", ErrNotFound, err)}
	}
	return &StoreError{Op: op, Err: err}
}

func pgCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
