package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("WorkflowByID", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, persistence.IsWorkflowNotFound(fmt.Errorf("wrapped: %w", workflowErr)))
		assert.False(t, persistence.IsWorkflowNotFound(persistence.ErrEmptyOwner))
	})

	t.Run("validation errors are detected through wrapping", func(t *testing.T) {
		err := persistence.NewWorkflowError("SaveWorkflow", "", persistence.ErrEmptyOwner)

		assert.True(t, persistence.IsValidationError(err))
		assert.False(t, persistence.IsValidationError(persistence.ErrWorkflowNotFound))
	})

	t.Run("owner mismatch is detected through wrapping", func(t *testing.T) {
		err := fmt.Errorf("save: %w", persistence.NewWorkflowError("Save", "workflow-123", persistence.ErrOwnerMismatch))

		assert.True(t, persistence.IsOwnerMismatch(err))
		assert.False(t, persistence.IsValidationError(err))
		assert.False(t, persistence.IsOwnerMismatch(persistence.ErrWorkflowNotFound))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("DeleteWorkflow", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "DeleteWorkflow")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})
}
