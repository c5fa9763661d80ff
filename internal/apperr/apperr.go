// Package apperr holds the typed error shared by the stores, engines and
// HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindReferenceNotFound
	KindAmbiguous
	KindConflict
	KindHasDependents
	KindInvalidMove
	KindNotFound
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReferenceNotFound:
		return "reference_not_found"
	case KindAmbiguous:
		return "ambiguous_reference"
	case KindConflict:
		return "conflict"
	case KindHasDependents:
		return "has_dependents"
	case KindInvalidMove:
		return "invalid_move"
	case KindNotFound:
		return "not_found"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

// Error returns the human message. The cause is only appended for
// infrastructure failures so row messages stay stable.
func (e *Error) Error() string {
	if e.Cause == nil || e.Kind != KindInfrastructure {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(KindValidation, "VALIDATION", message)
}

func Required(field string) *Error {
	return New(KindValidation, "REQUIRED", field+" required")
}

func RefNotFound(message string) *Error {
	return New(KindReferenceNotFound, "REFERENCE_NOT_FOUND", message)
}

func Ambiguous(message string) *Error {
	return New(KindAmbiguous, "AMBIGUOUS_REFERENCE", message)
}

func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: message, Cause: cause}
}

func HasDependents(message string) *Error {
	return New(KindHasDependents, "HAS_DEPENDENTS", message)
}

func InvalidMove(message string) *Error {
	return New(KindInvalidMove, "INVALID_MOVE", message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, "NOT_FOUND", message)
}

func Infrastructure(message string, cause error) *Error {
	return &Error{Kind: KindInfrastructure, Code: "INTERNAL", Message: message, Cause: cause}
}

// KindOf reports the Kind of the first *Error in err's chain. Untyped
// errors are treated as infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRowScoped reports whether err describes bad input rather than a
// failing store.
func IsRowScoped(err error) bool {
	k := KindOf(err)
	return k != 0 && k != KindInfrastructure
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindReferenceNotFound, KindAmbiguous, KindHasDependents, KindInvalidMove:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case 0:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the machine-readable code carried by err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}
