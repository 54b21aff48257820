package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation.
type Kind int

const (
	KindFailure Kind = iota
	KindNotFound
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	default:
		return "failure"
	}
}

// Error is returned by the services for expected failures. It carries the
// message shown to API clients and the status code that goes with it.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for e.
func (e *Error) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Failure reports a generic error. status defaults to 400 when zero.
func Failure(status int, format string, args ...any) *Error {
	return &Error{Kind: KindFailure, Message: fmt.Sprintf(format, args...), Status: status}
}

// Invalid wraps a validation error as a bad request.
func Invalid(err error) *Error {
	return &Error{Kind: KindBadRequest, Message: err.Error(), Err: err}
}

// Reject is Invalid with a message of its own in place of the error text.
func Reject(err error, format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...), Err: err}
}

func EventNotFound(id int64) *Error {
	return NotFound("Event with ID %d not found.", id)
}

func ExpenseNotFound(id int64) *Error {
	return NotFound("Expense with ID %d not found.", id)
}

// KindOf reports the kind of err. Errors that are not *Error are failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailure
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsBadRequest reports whether err is a bad request error.
func IsBadRequest(err error) bool {
	return err != nil && KindOf(err) == KindBadRequest
}
