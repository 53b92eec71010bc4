package appointment

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes a service operation returns.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
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
		return "unexpected"
	}
}

// Error is returned by every Service operation that rejects a request.
type Error struct {
	Kind    ErrorKind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Anything that is not an *Error is unexpected.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func validationError(message, details string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func notFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func conflictError(message, details string) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

func unexpectedError(op string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: op, Err: err}
}

// outcome labels a result for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
