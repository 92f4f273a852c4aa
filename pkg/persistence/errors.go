// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrEmptyOwner indicates a document was saved without an owner.
	ErrEmptyOwner = errors.New("workflow owner cannot be empty")

	// ErrOwnerMismatch indicates a save targeted a workflow stored under another owner.
	ErrOwnerMismatch = errors.New("workflow belongs to another owner")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "WorkflowByID", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsValidationError reports whether err was caused by an invalid document.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyOwner)
}

// IsOwnerMismatch reports whether err was caused by saving over another owner's workflow.
func IsOwnerMismatch(err error) bool {
	return errors.Is(err, ErrOwnerMismatch)
}
