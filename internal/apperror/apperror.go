// Package apperror defines the closed set of domain failures the job
// application workflow can report and the HTTP status each one maps to.
package apperror

import (
	"errors"
	"net/http"
)

// Kind identifies a domain failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserNotFound
	KindUserAlreadyExists
	KindApplicationNotFound
	KindForbiddenApplicationAccess
	KindNoApplicationsFound
	KindFileNotValid
	KindInvalidStatus
	KindInvalidInput
)

var kindStatuses = map[Kind]int{
	KindUserNotFound:               http.StatusNotFound,
	KindUserAlreadyExists:          http.StatusConflict,
	KindApplicationNotFound:        http.StatusNotFound,
	KindForbiddenApplicationAccess: http.StatusForbidden,
	KindNoApplicationsFound:        http.StatusNotFound,
	KindFileNotValid:               http.StatusBadRequest,
	KindInvalidStatus:              http.StatusBadRequest,
	KindInvalidInput:               http.StatusBadRequest,
}

// HTTPStatus returns the status code the HTTP boundary renders for the kind.
// Unknown kinds are internal failures.
func (k Kind) HTTPStatus() int {
	if status, ok := kindStatuses[k]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// Error is a domain failure. Two errors are considered equal by errors.Is
// when their kinds match, so a sentinel matches an error carrying a more
// specific message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates a domain failure of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain failure that keeps err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain failure of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

var (
	ErrUserNotFound               = New(KindUserNotFound, "User not found")
	ErrUserAlreadyExists          = New(KindUserAlreadyExists, "User already exists.")
	ErrApplicationNotFound        = New(KindApplicationNotFound, "Application not found.")
	ErrForbiddenApplicationAccess = New(KindForbiddenApplicationAccess, "Application access has been denied")
	ErrNoApplicationsFound        = New(KindNoApplicationsFound, "No applications found for user")
	ErrFileNotValid               = New(KindFileNotValid, "File is not valid")
	ErrInvalidStatus              = New(KindInvalidStatus, "Invalid status")
	ErrInvalidInput               = New(KindInvalidInput, "Invalid input")
)

// KindOf returns the kind of the first domain failure in err's chain,
// or KindUnknown when there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return KindUnknown
}

// MessageOf returns the client-facing message of the first domain failure
// in err's chain. Unknown failures get a generic message so internal details
// are not exposed.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	return http.StatusText(http.StatusInternalServerError)
}
