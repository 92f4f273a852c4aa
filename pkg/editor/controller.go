// Package editor wires the graph, the inspector, the log channel and the
// backend client into one editing session.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/codec"
	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/inspector"
	"github.com/dukex/flowcanvas/pkg/logchannel"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/registry"
)

var (
	ErrClosed           = errors.New("editor is closed")
	ErrNoWorkflowID     = errors.New("workflow has not been saved")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrNegativeSchedule = errors.New("schedule must not be negative")
	ErrMissingOwner     = errors.New("owner is required")
)

// Backend is the remote side of the editor. *client.Client implements it.
type Backend interface {
	Save(ctx context.Context, doc models.WorkflowDocument) (models.MessageResponse, error)
	Run(ctx context.Context, doc models.WorkflowDocument, headers http.Header) (models.RunResult, error)
	Workflows(ctx context.Context, owner string) ([]models.WorkflowDocument, error)
	Delete(ctx context.Context, id string) (models.MessageResponse, error)
	Schedule(ctx context.Context, id string, minutes int) (models.MessageResponse, error)
}

// Dependencies are the collaborators of a Controller. Credentials,
// Generator and Notifier may be nil.
type Dependencies struct {
	Backend     Backend
	Subscriber  logchannel.Subscriber
	Registry    *registry.Registry
	Credentials credentials.Store
	Generator   inspector.Generator
	Notifier    Notifier
}

// Config holds the session settings.
type Config struct {
	Owner     string
	Name      string
	Inspector inspector.Options
	MaxLines  int
}

// Controller serializes editor events. Network calls run outside the lock;
// their results are dropped when the controller was closed meanwhile.
type Controller struct {
	store     *graph.Store
	inspector *inspector.Inspector
	logs      *logchannel.Channel
	backend   Backend
	registry  *registry.Registry
	creds     credentials.Store
	notifier  Notifier
	logger    *slog.Logger

	mu         sync.Mutex
	closed     bool
	owner      string
	name       string
	workflowID models.DocumentID
}

// New creates an editor session with an empty graph.
func New(log *slog.Logger, deps Dependencies, cfg Config, opts ...logchannel.Option) *Controller {
	logger := log.With("module", "editor")

	reg := deps.Registry
	if reg == nil {
		reg = registry.NewDefaultRegistry(log)
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = LogNotifier(logger)
	}

	store := graph.NewStore(graph.WithLogger(log))

	if cfg.MaxLines > 0 {
		opts = append(opts, logchannel.WithMaxLines(cfg.MaxLines))
	}

	return &Controller{
		store:     store,
		inspector: inspector.New(log, store, reg, deps.Credentials, deps.Generator, cfg.Inspector),
		logs:      logchannel.New(log, deps.Subscriber, opts...),
		backend:   deps.Backend,
		registry:  reg,
		creds:     deps.Credentials,
		notifier:  notifier,
		logger:    logger,
		owner:     cfg.Owner,
		name:      cfg.Name,
	}
}

// Graph exposes the graph store for reads.
func (c *Controller) Graph() *graph.Store {
	return c.store
}

// Inspector exposes the panel state.
func (c *Controller) Inspector() *inspector.Inspector {
	return c.inspector
}

// Logs exposes the execution log channel.
func (c *Controller) Logs() *logchannel.Channel {
	return c.logs
}

// SetName renames the workflow.
func (c *Controller) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.name = name
}

// Name returns the workflow name.
func (c *Controller) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.name
}

// WorkflowID returns the id of the loaded workflow, empty for a new one.
func (c *Controller) WorkflowID() models.DocumentID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.workflowID
}

// DropTool places a new node for service at position.
func (c *Controller) DropTool(service string, position models.Position) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ""
	}

	var kind models.Kind
	if tool, ok := c.registry.Tool(service); ok {
		kind = tool.Kind
	}

	return c.store.AddNode(kind, service, "", position)
}

// ClickNode opens or focuses the panel of a node.
func (c *Controller) ClickNode(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.inspector.Open(id)
}

// MoveNode drags a node to a new position.
func (c *Controller) MoveNode(id string, position models.Position) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.store.MoveNode(id, position)
}

// Connect draws an edge.
func (c *Controller) Connect(source, target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	_, ok := c.store.Connect(source, target)

	return ok
}

// PressKey forwards a keyboard shortcut to the inspector.
func (c *Controller) PressKey(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.inspector.HandleKey(key)
}

// EditField commits one field edit according to the inspector policy.
func (c *Controller) EditField(id, field string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.inspector.Commit(id, field, value)
}

// SavePanel commits buffered panel edits.
func (c *Controller) SavePanel(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.inspector.Save(id)
}

// CancelPanel discards buffered panel edits.
func (c *Controller) CancelPanel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inspector.Cancel(id)
}

// ClosePanel closes a panel.
func (c *Controller) ClosePanel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inspector.Close(id)
}

// DeleteNode removes a node, its edges and its panel.
func (c *Controller) DeleteNode(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.inspector.Delete(id)
}

// Document encodes the current graph.
func (c *Controller) Document() models.WorkflowDocument {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.documentLocked()
}

func (c *Controller) documentLocked() models.WorkflowDocument {
	doc := codec.EncodeGraph(c.store, c.name, c.owner)
	doc.ID = c.workflowID

	return doc
}

// snapshot returns the document to send, or ErrClosed.
func (c *Controller) snapshot() (models.WorkflowDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return models.WorkflowDocument{}, ErrClosed
	}

	if c.owner == "" {
		return models.WorkflowDocument{}, ErrMissingOwner
	}

	return c.documentLocked(), nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Save sends the current graph to the backend. A failure leaves the graph
// untouched.
func (c *Controller) Save(ctx context.Context) error {
	doc, err := c.snapshot()
	if err != nil {
		return err
	}

	resp, err := c.backend.Save(ctx, doc)

	return c.report(ctx, "save", resp.Message, err)
}

// Run sends the current graph for execution with one token header per
// connected integration, then follows the execution log.
func (c *Controller) Run(ctx context.Context) (models.RunResult, error) {
	doc, err := c.snapshot()
	if err != nil {
		return models.RunResult{}, err
	}

	headers, err := client.CredentialHeaders(ctx, c.creds, c.registry.AuthProviders())
	if err != nil {
		return models.RunResult{}, c.report(ctx, "run", "", err)
	}

	res, err := c.backend.Run(ctx, doc, headers)
	if err != nil {
		return models.RunResult{}, c.report(ctx, "run", "", err)
	}

	if c.isClosed() {
		c.logger.DebugContext(ctx, "run response ignored, editor closed", "execution_id", res.WorkflowID)

		return res, nil
	}

	if res.WorkflowID == "" {
		c.logger.WarnContext(ctx, "run response without execution id")
	} else if err := c.logs.Open(ctx, res.WorkflowID); errors.Is(err, logchannel.ErrShutdown) {
		c.logger.DebugContext(ctx, "run response ignored, editor closed", "execution_id", res.WorkflowID)

		return res, nil
	} else if err != nil {
		c.logger.WarnContext(ctx, "log subscription failed", "execution_id", res.WorkflowID, "error", err)
	}

	_ = c.report(ctx, "run", res.Render(), nil)

	return res, nil
}

// Workflows lists the workflows saved by the session owner.
func (c *Controller) Workflows(ctx context.Context) ([]models.WorkflowDocument, error) {
	c.mu.Lock()
	owner := c.owner
	c.mu.Unlock()

	if owner == "" {
		return nil, ErrMissingOwner
	}

	docs, err := c.backend.Workflows(ctx, owner)
	if err != nil {
		return nil, c.report(ctx, "list", "", err)
	}

	return docs, nil
}

// Load replaces the graph with doc. Open panels are discarded.
func (c *Controller) Load(doc models.WorkflowDocument) {
	nodes, edges := codec.Decode(doc)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.store.ReplaceAll(nodes, edges)
	c.name = doc.Name
	c.workflowID = doc.ID

	if doc.Owner != "" {
		c.owner = doc.Owner
	}

	c.logger.Info("workflow loaded", "workflow_id", doc.ID, "steps", len(nodes), "edges", len(edges))
}

// LoadByID fetches the owner's workflows and loads the one with id.
func (c *Controller) LoadByID(ctx context.Context, id string) error {
	docs, err := c.Workflows(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if doc.ID.String() == id {
			c.Load(doc)

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
}

// DeleteWorkflow removes a saved workflow from the backend. The graph is
// not changed.
func (c *Controller) DeleteWorkflow(ctx context.Context, id string) error {
	if c.isClosed() {
		return ErrClosed
	}

	resp, err := c.backend.Delete(ctx, id)
	if err == nil {
		c.mu.Lock()
		if c.workflowID.String() == id {
			c.workflowID = ""
		}
		c.mu.Unlock()
	}

	return c.report(ctx, "delete", resp.Message, err)
}

// Schedule asks the backend to run the saved workflow id after minutes. An
// empty id uses the loaded workflow.
func (c *Controller) Schedule(ctx context.Context, id string, minutes int) error {
	if minutes < 0 {
		return ErrNegativeSchedule
	}

	if c.isClosed() {
		return ErrClosed
	}

	if id == "" {
		id = c.WorkflowID().String()
	}

	if id == "" {
		return ErrNoWorkflowID
	}

	resp, err := c.backend.Schedule(ctx, id, minutes)

	return c.report(ctx, "schedule", resp.Message, err)
}

// Close unmounts the session: the log subscription is closed and later
// network responses are ignored.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	c.mu.Unlock()

	c.inspector.CloseAll()

	return c.logs.Shutdown()
}

// report turns the outcome of a backend call into a notice. Responses for a
// closed editor produce none.
func (c *Controller) report(ctx context.Context, op, message string, err error) error {
	if c.isClosed() {
		return err
	}

	if err != nil {
		c.logger.ErrorContext(ctx, "backend call failed", "op", op, "error", err)
		c.notifier.Notify(Notice{Level: LevelError, Op: op, Message: failureMessage(op, err)})

		return err
	}

	if message != "" {
		c.notifier.Notify(Notice{Level: LevelInfo, Op: op, Message: message})
	}

	return nil
}
