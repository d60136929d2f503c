package repo

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")
	// ErrMissingReference is a foreign key violation.
	ErrMissingReference = errors.New("missing reference")
)

// ReferenceError is a foreign key violation on Column (for example
// "linha_id" or "etapa_id"). Column is empty when the store cannot tell.
// It matches ErrMissingReference with errors.Is.
type ReferenceError struct {
	Table  string
	Column string
	Err    error
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("%s: %s.%s", ErrMissingReference, e.Table, e.Column)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrMissingReference
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// MissingColumn returns the referencing column of a foreign key violation,
// or "" when err is not one.
func MissingColumn(err error) string {
	var ref *ReferenceError
	if errors.As(err, &ref) {
		return ref.Column
	}
	return ""
}
