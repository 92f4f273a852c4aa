package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/google/uuid"
)

// record is the on-disk form of a saved document.
type record struct {
	Document  models.WorkflowDocument `json:"document"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// WorkflowRepository stores one JSON file per workflow under root/workflows.
type WorkflowRepository struct {
	root string // File system root for storing workflows
	mu   sync.Mutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) file(id string) string {
	return path.Join(wr.dir(), id+".json")
}

// Save writes doc, assigning a new id when it has none. An existing workflow
// is only overwritten by its owner.
func (wr *WorkflowRepository) Save(_ context.Context, doc *models.WorkflowDocument) error {
	if doc.Owner == "" {
		return persistence.NewWorkflowError("Save", doc.ID.String(), persistence.ErrEmptyOwner)
	}

	if doc.ID == "" {
		doc.ID = models.DocumentID(uuid.NewString())
	}

	if filepath.Base(doc.ID.String()) != doc.ID.String() {
		return persistence.NewWorkflowError("Save", doc.ID.String(), fs.ErrInvalid)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	rec := record{Document: *doc, CreatedAt: now, UpdatedAt: now}

	if existing, err := wr.read(doc.ID.String()); err == nil {
		if existing.Document.Owner != doc.Owner {
			return persistence.NewWorkflowError("Save", doc.ID.String(), persistence.ErrOwnerMismatch)
		}

		rec.CreatedAt = existing.CreatedAt
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", doc.ID, err)
	}

	err = os.WriteFile(wr.file(doc.ID.String()), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", doc.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) read(id string) (*record, error) {
	if filepath.Base(id) != id {
		return nil, persistence.ErrWorkflowNotFound
	}

	body, err := os.ReadFile(wr.file(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var rec record

	err = json.Unmarshal(body, &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", id, err)
	}

	return &rec, nil
}

// GetByID returns the workflow or an error matching persistence.ErrWorkflowNotFound.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDocument, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	rec, err := wr.read(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return &rec.Document, nil
}

func (wr *WorkflowRepository) all() ([]*record, error) {
	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	records := make([]*record, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		rec, err := wr.read(file[:len(file)-5]) // Remove .json extension
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

// ByOwner returns the documents of owner ordered by creation time.
func (wr *WorkflowRepository) ByOwner(_ context.Context, owner string) ([]*models.WorkflowDocument, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	records, err := wr.all()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	docs := make([]*models.WorkflowDocument, 0)

	for _, rec := range records {
		if rec.Document.Owner == owner {
			docs = append(docs, &rec.Document)
		}
	}

	return docs, nil
}

// Delete removes the workflow file.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if _, err := wr.read(id); err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	err := os.Remove(wr.file(id))
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// DeleteAll removes every stored workflow.
func (wr *WorkflowRepository) DeleteAll(_ context.Context) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.RemoveAll(wr.dir())
	if err != nil {
		return fmt.Errorf("failed to delete workflows: %w", err)
	}

	return nil
}
