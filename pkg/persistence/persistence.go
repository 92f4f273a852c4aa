// Package persistence provides the storage abstraction for saved workflow documents.
package persistence

import (
	"context"

	"github.com/dukex/flowcanvas/pkg/models"
)

type Persistence interface {
	// SaveWorkflow stores doc. A document without id gets a new one, which
	// is written back to doc.ID.
	SaveWorkflow(ctx context.Context, doc *models.WorkflowDocument) error
	// WorkflowsByOwner returns the documents of owner, oldest first.
	WorkflowsByOwner(ctx context.Context, owner string) ([]*models.WorkflowDocument, error)
	WorkflowByID(ctx context.Context, id string) (*models.WorkflowDocument, error)
	DeleteWorkflow(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
