package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowcanvas_test"),
			postgres.WithUsername("flowcanvas"),
			postgres.WithPassword("flowcanvas"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func sampleDocument(owner string) *models.WorkflowDocument {
	return &models.WorkflowDocument{
		Name:  "Inbox to Notion",
		Owner: owner,
		Workflow: models.Steps{
			{ID: "n1", Type: models.KindTrigger, Service: "gmail", Action: "new_email"},
			{ID: "n2", Type: models.KindAction, Service: "notion", Action: "create_page", Extra: map[string]any{"parentId": "p-1"}},
		},
		Edges: models.Edges{{Source: "n1", Target: "n2"}},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflows')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflows table should exist")

	var version int

	err = db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestPersistence_WorkflowLifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	doc := sampleDocument("ana")
	require.NoError(t, p.SaveWorkflow(ctx, doc))
	require.NotEmpty(t, doc.ID)

	loaded, err := p.WorkflowByID(ctx, doc.ID.String())
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	doc.Name = "Renamed"
	require.NoError(t, p.SaveWorkflow(ctx, doc))

	second := sampleDocument("ana")
	require.NoError(t, p.SaveWorkflow(ctx, second))
	require.NoError(t, p.SaveWorkflow(ctx, sampleDocument("bob")))

	docs, err := p.WorkflowsByOwner(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Renamed", docs[0].Name)
	assert.Equal(t, second.ID, docs[1].ID)

	require.NoError(t, p.DeleteWorkflow(ctx, doc.ID.String()))

	_, err = p.WorkflowByID(ctx, doc.ID.String())
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.DeleteWorkflow(ctx, doc.ID.String())
	assert.True(t, persistence.IsWorkflowNotFound(err))

	require.NoError(t, p.DeleteAll(ctx))

	docs, err = p.WorkflowsByOwner(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestPersistence_SaveRequiresOwner(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.SaveWorkflow(ctx, &models.WorkflowDocument{Name: "x"})
	require.ErrorIs(t, err, persistence.ErrEmptyOwner)
}

func TestPersistence_SaveKeepsOwner(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	doc := sampleDocument("alice")
	require.NoError(t, p.SaveWorkflow(ctx, doc))

	takeover := sampleDocument("mallory")
	takeover.ID = doc.ID
	takeover.Name = "mine now"

	err := p.SaveWorkflow(ctx, takeover)
	require.ErrorIs(t, err, persistence.ErrOwnerMismatch)

	loaded, err := p.WorkflowByID(ctx, doc.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Owner)
	assert.Equal(t, "Inbox to Notion", loaded.Name)

	docs, err := p.WorkflowsByOwner(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
