package services

import (
	"networked/repository"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Error is a failure the caller caused. Anything else returned by a service
// is an internal failure.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// FieldErrors builds a validation error scoped to form fields.
func FieldErrors(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Please correct the highlighted fields", Fields: fields}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// AsError unwraps err to a service error, if it is one.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err is a service error of kind k.
func IsKind(err error, k Kind) bool {
	se, ok := AsError(err)
	return ok && se.Kind == k
}

// orNotFound maps a missing document to a not-found error with msg and wraps
// anything else with op.
func orNotFound(err error, msg, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound(msg)
	}
	return errors.Wrap(err, op)
}
