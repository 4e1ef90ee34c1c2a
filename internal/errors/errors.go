package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a daychain error code.
type ErrorCode string

const (
	ErrValidation       ErrorCode = "VALIDATION"        // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrNotRunning       ErrorCode = "NOT_RUNNING"       // 409
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrDuplicateEvent   ErrorCode = "DUPLICATE_EVENT"   // 409
	ErrNothingToSplit   ErrorCode = "NOTHING_TO_SPLIT"  // 422
	ErrInconsistentEdit ErrorCode = "INCONSISTENT_EDIT" // 422
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// DaychainError represents a structured error with code, status, and details.
// Every code except ErrInternal is recoverable: the operation was rejected and
// nothing was written.
type DaychainError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DaychainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidation creates a 400 error for malformed or missing input.
func NewValidation(msg string) *DaychainError {
	return &DaychainError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an entity that is no longer present.
func NewNotFound(kind, id string) *DaychainError {
	return &DaychainError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *DaychainError {
	return &DaychainError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotRunning creates a 409 error for timer operations that need an active session.
func NewNotRunning() *DaychainError {
	return &DaychainError{
		Code:    ErrNotRunning,
		Status:  409,
		Message: "no task is running",
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *DaychainError {
	return &DaychainError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewDuplicateEvent creates a 409 error when a calendar occurrence was already imported.
func NewDuplicateEvent(key string) *DaychainError {
	return &DaychainError{
		Code:    ErrDuplicateEvent,
		Status:  409,
		Message: fmt.Sprintf("calendar event already imported: %s", key),
		Details: map[string]any{"key": key},
	}
}

// NewNothingToSplit creates a 422 error when a plan item has no remaining time.
func NewNothingToSplit(planID string, remainingMin int) *DaychainError {
	return &DaychainError{
		Code:    ErrNothingToSplit,
		Status:  422,
		Message: fmt.Sprintf("plan item %s has no remaining estimate to split", planID),
		Details: map[string]any{"plan_id": planID, "remaining_min": remainingMin},
	}
}

// NewInconsistentEdit creates a 422 error when a session edit would end before it starts.
func NewInconsistentEdit(sessionID string) *DaychainError {
	return &DaychainError{
		Code:    ErrInconsistentEdit,
		Status:  422,
		Message: fmt.Sprintf("session %s: end must be after start", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled via context.
func NewCancelled(op string) *DaychainError {
	return &DaychainError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *DaychainError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &DaychainError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is a DaychainError with the given code.
// Wrapped errors are unwrapped.
func Is(err error, code ErrorCode) bool {
	var dErr *DaychainError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As returns the DaychainError in err's chain, if any.
func As(err error) (*DaychainError, bool) {
	var dErr *DaychainError
	ok := stderrors.As(err, &dErr)
	return dErr, ok
}
