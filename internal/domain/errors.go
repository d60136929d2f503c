package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified failure. Code is a stable machine-readable token,
// Message is safe to show to callers.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

var (
	ErrNoMatchingProduct         = &Error{Kind: KindNotFound, Code: "no_matching_product"}
	ErrNoCompletedProductPending = &Error{Kind: KindNotFound, Code: "no_completed_product_pending"}
	ErrProductNotFound           = &Error{Kind: KindNotFound, Code: "product_not_found"}
	ErrNoOpenAlert               = &Error{Kind: KindNotFound, Code: "no_open_alert"}
	ErrLineNotFound              = &Error{Kind: KindNotFound, Code: "line_not_found"}
	ErrStageNotFound             = &Error{Kind: KindNotFound, Code: "stage_not_found"}
	ErrSerialAlreadyInUse        = &Error{Kind: KindConflict, Code: "serial_already_in_use"}
)

// Wrap returns a copy of sentinel carrying a caller-facing message.
func Wrap(sentinel *Error, format string, args ...any) *Error {
	cp := *sentinel
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message, Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Outcome is the metrics label for err.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
