package engine

import (
	"errors"
	"fmt"

	"github.com/resultdb/resultdb/internal/model"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a lookup matched zero rows. Internal
	// to the engine: it drives the insert path and never reaches the
	// caller of a get-or-create variant.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeMultipleMatches indicates a lookup matched more than one
	// row for a supposedly unique natural key. A broken invariant;
	// always fatal, never silently resolved to the first match.
	ErrCodeMultipleMatches ErrorCode = "MULTIPLE_MATCHES"

	// ErrCodeCycleDetected indicates an entity reference graph loops
	// back onto an entity still being resolved.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeInvalidFields indicates a field mapping doesn't satisfy
	// the entity's declared schema.
	ErrCodeInvalidFields ErrorCode = "INVALID_FIELDS"
)

// Error is a structured engine error.
type Error struct {
	Code    ErrorCode
	Kind    model.Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a zero-match lookup.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsMultipleMatches reports whether err is a broken-uniqueness lookup.
func IsMultipleMatches(err error) bool {
	return hasCode(err, ErrCodeMultipleMatches)
}

// IsCycle reports whether err is a rejected cyclic reference graph.
func IsCycle(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsInvalidFields reports whether err is a schema-validation failure.
func IsInvalidFields(err error) bool {
	return hasCode(err, ErrCodeInvalidFields)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func notFoundError(kind model.Kind) *Error {
	return &Error{Code: ErrCodeNotFound, Kind: kind, Message: "no matching row"}
}

func multipleMatchesError(kind model.Kind, n int) *Error {
	return &Error{
		Code:    ErrCodeMultipleMatches,
		Kind:    kind,
		Message: fmt.Sprintf("%d rows match a unique natural key", n),
	}
}

func cycleError(kind model.Kind) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Kind:    kind,
		Message: "entity reference graph contains a cycle",
	}
}

func invalidFieldsError(kind model.Kind, err error) *Error {
	return &Error{Code: ErrCodeInvalidFields, Kind: kind, Message: err.Error(), Err: err}
}
