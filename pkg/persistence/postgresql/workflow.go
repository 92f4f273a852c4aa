package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

type scanner interface {
	Scan(dest ...any) error
}

// ByOwner returns the workflows of owner ordered by creation time.
func (r *WorkflowRepository) ByOwner(ctx context.Context, owner string) ([]*models.WorkflowDocument, error) {
	query := `
		SELECT
			id
		  , name
		  , owner
		  , steps
		  , edges
		FROM workflows
		WHERE owner = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func(ctx context.Context, r *WorkflowRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	docs := make([]*models.WorkflowDocument, 0)

	for rows.Next() {
		doc, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return docs, nil
}

// GetByID returns the workflow or an error matching persistence.ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	query := `
		SELECT
			id
		  , name
		  , owner
		  , steps
		  , edges
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	row := r.db.QueryRowContext(ctx, query, id)

	doc, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return doc, nil
}

func (r *WorkflowRepository) scanWorkflow(row scanner) (*models.WorkflowDocument, error) {
	var (
		doc   models.WorkflowDocument
		id    string
		steps []byte
		edges []byte
	)

	err := row.Scan(&id, &doc.Name, &doc.Owner, &steps, &edges)
	if err != nil {
		return nil, err
	}

	doc.ID = models.DocumentID(id)

	// Steps and Edges tolerate malformed content
	_ = json.Unmarshal(steps, &doc.Workflow)
	_ = json.Unmarshal(edges, &doc.Edges)

	return &doc, nil
}

// Save upserts a workflow, assigning a new id when it has none. An existing
// row is only updated when it belongs to the same owner.
func (r *WorkflowRepository) Save(ctx context.Context, doc *models.WorkflowDocument) error {
	if doc.Owner == "" {
		return persistence.NewWorkflowError("Save", doc.ID.String(), persistence.ErrEmptyOwner)
	}

	if doc.ID == "" {
		doc.ID = models.DocumentID(uuid.NewString())
	}

	steps, err := json.Marshal(doc.Workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	edges, err := json.Marshal(doc.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO workflows (id, name, owner, steps, edges, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , steps = EXCLUDED.steps
		  , edges = EXCLUDED.edges
		  , updated_at = EXCLUDED.updated_at
		  , deleted_at = NULL
		WHERE workflows.owner = EXCLUDED.owner
	`

	result, err := r.db.ExecContext(ctx, query, doc.ID.String(), doc.Name, doc.Owner, steps, edges, now)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Save", doc.ID.String(), persistence.ErrOwnerMismatch)
	}

	return nil
}

// Delete soft deletes a workflow.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflows SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// DeleteAll soft deletes every workflow.
func (r *WorkflowRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workflows SET deleted_at = $1 WHERE deleted_at IS NULL`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete workflows: %w", err)
	}

	return nil
}
