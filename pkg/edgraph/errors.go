package edgraph

import (
	"fmt"

	"github.com/google/uuid"
)

// Error codes for structured error reporting.
const (
	ErrCodeWrongPinOwner        = "WRONG_PIN_OWNER"
	ErrCodeNullLink             = "NULL_LINK"
	ErrCodeDirectionMismatch    = "DIRECTION_MISMATCH"
	ErrCodeSelfLoop             = "SELF_LOOP"
	ErrCodeCycleDetected        = "CYCLE_DETECTED"
	ErrCodeScheduleInconsistent = "SCHEDULE_INCONSISTENT"
	ErrCodeDuplicateNode        = "DUPLICATE_NODE"
	ErrCodeDeprecatedNode       = "DEPRECATED_NODE"
	ErrCodePrunedNode           = "PRUNED_NODE"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeEvaluation           = "EVALUATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeParse                = "PARSE_ERROR"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeStore                = "STORE_ERROR"
)

// Error is the structured error type for graph operations.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  uuid.UUID      `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e.NodeID != uuid.Nil {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches the offending node's ID.
func (e *Error) WithNode(id uuid.UUID) *Error {
	e.NodeID = id
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}
