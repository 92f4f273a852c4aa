// Package file provides file-based persistence implementation for workflow documents.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) SaveWorkflow(ctx context.Context, doc *models.WorkflowDocument) error {
	return fp.workflowRepo.Save(ctx, doc)
}

func (fp *Persistence) WorkflowsByOwner(ctx context.Context, owner string) ([]*models.WorkflowDocument, error) {
	return fp.workflowRepo.ByOwner(ctx, owner)
}

func (fp *Persistence) WorkflowByID(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	return fp.workflowRepo.GetByID(ctx, id)
}

func (fp *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	return fp.workflowRepo.Delete(ctx, id)
}

func (fp *Persistence) DeleteAll(ctx context.Context) error {
	return fp.workflowRepo.DeleteAll(ctx)
}
