// Package inspector manages the configuration panels opened for graph nodes.
//
// Panels hold node ids only. The graph is changed exclusively through the
// commit actions of this package: Commit (immediate policy), Save (buffered
// policy), SavePrompt and Delete.
package inspector

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/registry"
)

// CommitPolicy decides when field edits reach the graph.
type CommitPolicy int

const (
	// CommitImmediate writes every edit through to the graph.
	CommitImmediate CommitPolicy = iota
	// CommitBuffered keeps edits in the panel until Save, Cancel drops them.
	CommitBuffered
)

func (p CommitPolicy) String() string {
	if p == CommitBuffered {
		return "buffered"
	}

	return "immediate"
}

// Mode decides how many panels can be open.
type Mode int

const (
	// ModeSidebar keeps any number of panels open side by side.
	ModeSidebar Mode = iota
	// ModeModal keeps a single panel; its node is the active node.
	ModeModal
)

func (m Mode) String() string {
	if m == ModeModal {
		return "modal"
	}

	return "sidebar"
}

// KeyDelete removes the active node in modal mode.
const KeyDelete = "Delete"

// Generator produces text for the prompt editor.
type Generator interface {
	Generate(ctx context.Context, prompt string) (models.GenerateResult, error)
}

// Options selects the inspector configuration.
type Options struct {
	Policy CommitPolicy
	Mode   Mode
}

// Panel is the state of one open inspector panel.
type Panel struct {
	NodeID string
	buffer models.Patch
	prompt *PromptState
}

// Dirty reports whether the panel holds uncommitted edits.
func (p *Panel) Dirty() bool {
	return len(p.buffer) > 0
}

// Inspector is safe for concurrent use.
type Inspector struct {
	store       *graph.Store
	registry    *registry.Registry
	credentials credentials.Store
	generator   Generator
	opts        Options
	logger      *slog.Logger

	mu     sync.Mutex
	panels map[string]*Panel
	order  []string
}

// New creates an inspector over store and registers it as a store observer,
// so deleted nodes and replaced graphs close their panels. creds and gen may
// be nil.
func New(
	log *slog.Logger,
	store *graph.Store,
	reg *registry.Registry,
	creds credentials.Store,
	gen Generator,
	opts Options,
) *Inspector {
	i := &Inspector{
		store:       store,
		registry:    reg,
		credentials: creds,
		generator:   gen,
		opts:        opts,
		logger:      log.With("module", "inspector", "policy", opts.Policy.String(), "mode", opts.Mode.String()),
		panels:      make(map[string]*Panel),
	}

	store.Observe(i)

	return i
}

// Options returns the configuration chosen at construction.
func (i *Inspector) Options() Options {
	return i.opts
}

// Open opens the panel for id, or focuses it when already open. In modal
// mode the previous panel is discarded with its buffered edits.
func (i *Inspector) Open(id string) bool {
	if !i.store.Has(id) {
		return false
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.panels[id]; ok {
		i.focus(id)

		return true
	}

	if i.opts.Mode == ModeModal {
		clear(i.panels)
		i.order = i.order[:0]
	}

	i.panels[id] = &Panel{NodeID: id}
	i.order = append(i.order, id)

	return true
}

func (i *Inspector) focus(id string) {
	i.order = slices.DeleteFunc(i.order, func(n string) bool { return n == id })
	i.order = append(i.order, id)
}

// Close closes the panel for id, dropping buffered edits.
func (i *Inspector) Close(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.closeLocked(id)
}

func (i *Inspector) closeLocked(id string) {
	if _, ok := i.panels[id]; !ok {
		return
	}

	delete(i.panels, id)
	i.order = slices.DeleteFunc(i.order, func(n string) bool { return n == id })
}

// CloseAll closes every panel.
func (i *Inspector) CloseAll() {
	i.mu.Lock()
	defer i.mu.Unlock()

	clear(i.panels)
	i.order = nil
}

// IsOpen reports whether a panel is open for id.
func (i *Inspector) IsOpen(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, ok := i.panels[id]

	return ok
}

// Panels returns the ids of open panels, most recently focused last.
func (i *Inspector) Panels() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return slices.Clone(i.order)
}

// Active returns the node targeted by keyboard shortcuts. Only modal mode
// has one.
func (i *Inspector) Active() (string, bool) {
	if i.opts.Mode != ModeModal {
		return "", false
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.order) != 1 {
		return "", false
	}

	return i.order[0], true
}

// FieldSet describes the panel content for id.
func (i *Inspector) FieldSet(ctx context.Context, id string) (FieldSet, bool) {
	node, ok := i.store.Node(id)
	if !ok {
		return FieldSet{}, false
	}

	i.mu.Lock()

	panel, open := i.panels[id]

	var (
		dirty  bool
		prompt *PromptState
	)

	if open {
		node.Apply(panel.buffer)
		dirty = panel.Dirty()

		if panel.prompt != nil {
			p := *panel.prompt
			prompt = &p
		}
	}

	i.mu.Unlock()

	fs := FieldSet{
		NodeID:        node.ID,
		Type:          node.Kind,
		Service:       node.Service,
		Action:        node.Action,
		ActionChoices: i.registry.Actions(node.Service),
		Dirty:         dirty,
	}

	if len(node.Extra) > 0 {
		fs.Extra = maps.Clone(node.Extra)
	}

	if needsCredentialStatus(node) {
		status := credentials.StatusOf(ctx, i.credentials, i.provider(node.Service))
		fs.SubPanels = append(fs.SubPanels, SubPanel{Kind: SubPanelCredential, Credential: &status})
	}

	if needsParentID(node) {
		fs.SubPanels = append(fs.SubPanels, SubPanel{
			Kind:  SubPanelParentID,
			Field: models.FieldParentID,
			Value: node.StringField(models.FieldParentID),
		})
	}

	if needsPrompt(node) {
		if prompt == nil {
			saved := node.StringField(models.FieldPrompt)
			prompt = &PromptState{Saved: saved, Draft: saved}
		}

		fs.SubPanels = append(fs.SubPanels, SubPanel{Kind: SubPanelPrompt, Prompt: prompt})
	}

	return fs, true
}

func (i *Inspector) provider(service string) string {
	if p, ok := i.registry.AuthProvider(service); ok {
		return p
	}

	return service
}

// Commit records an edit of one field. With CommitImmediate the graph is
// updated right away; with CommitBuffered the edit waits in the open panel.
// Edits to nodes that no longer exist are ignored and reported with false.
func (i *Inspector) Commit(id, field string, value any) bool {
	if i.opts.Policy == CommitImmediate {
		return i.store.UpdateNode(id, models.Patch{field: value})
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	panel, ok := i.panels[id]
	if !ok {
		i.logger.Debug("buffered edit ignored, panel not open", "node_id", id, "field", field)

		return false
	}

	if panel.buffer == nil {
		panel.buffer = make(models.Patch)
	}

	panel.buffer[field] = value

	return true
}

// Save commits the buffered edits of the panel in a single update. Modal
// panels close afterwards.
func (i *Inspector) Save(id string) bool {
	i.mu.Lock()

	panel, ok := i.panels[id]
	if !ok {
		i.mu.Unlock()

		return false
	}

	patch := panel.buffer
	panel.buffer = nil

	if i.opts.Mode == ModeModal {
		i.closeLocked(id)
	}

	i.mu.Unlock()

	if len(patch) == 0 {
		return i.store.Has(id)
	}

	return i.store.UpdateNode(id, patch)
}

// Cancel discards buffered edits. Modal panels close.
func (i *Inspector) Cancel(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	panel, ok := i.panels[id]
	if !ok {
		return
	}

	panel.buffer = nil

	if i.opts.Mode == ModeModal {
		i.closeLocked(id)
	}
}

// Delete removes the node and its edges from the graph. The panel is closed
// through the store notification.
func (i *Inspector) Delete(id string) bool {
	deleted := i.store.DeleteNode(id)

	// the node may already be gone while its panel is still listed
	i.Close(id)

	return deleted
}

// HandleKey applies a keyboard shortcut. Delete removes the active node and
// only works in modal mode.
func (i *Inspector) HandleKey(key string) bool {
	if key != KeyDelete {
		return false
	}

	id, ok := i.Active()
	if !ok {
		return false
	}

	return i.Delete(id)
}

// SetPromptDraft changes the prompt editor text without touching the node.
func (i *Inspector) SetPromptDraft(id, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	state, err := i.promptLocked(id)
	if err != nil {
		return err
	}

	state.Draft = text

	return nil
}

// SavePrompt writes the prompt draft to the node. This is an explicit commit
// and bypasses the panel buffer.
func (i *Inspector) SavePrompt(id string) error {
	i.mu.Lock()

	state, err := i.promptLocked(id)
	if err != nil {
		i.mu.Unlock()

		return err
	}

	draft := state.Draft
	state.Saved = draft
	i.mu.Unlock()

	if !i.store.UpdateNode(id, models.Patch{models.FieldPrompt: draft}) {
		return ErrPanelNotOpen
	}

	return nil
}

// ExecutePrompt sends the prompt draft to the generator and shows the answer
// in the panel. The node is left unchanged.
func (i *Inspector) ExecutePrompt(ctx context.Context, id string) (string, error) {
	i.mu.Lock()

	state, err := i.promptLocked(id)
	if err != nil {
		i.mu.Unlock()

		return "", err
	}

	prompt := state.Draft
	i.mu.Unlock()

	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	if i.generator == nil {
		return "", ErrNoGenerator
	}

	output, genErr := i.generate(ctx, prompt)
	if genErr != nil {
		i.logger.WarnContext(ctx, "prompt execution failed", "node_id", id, "error", genErr)
	}

	i.mu.Lock()
	if panel, ok := i.panels[id]; ok && panel.prompt != nil {
		panel.prompt.Output = output
	}
	i.mu.Unlock()

	return output, genErr
}

func (i *Inspector) generate(ctx context.Context, prompt string) (string, error) {
	res, err := i.generator.Generate(ctx, prompt)
	if err != nil {
		return OutputContactError, err
	}

	switch {
	case res.Result != "":
		return res.Result, nil
	case res.Error != "":
		return res.Error, nil
	default:
		return OutputNoResponse, nil
	}
}

// promptLocked returns the prompt editor of an open openai panel, creating it
// from the node on first use.
func (i *Inspector) promptLocked(id string) (*PromptState, error) {
	panel, ok := i.panels[id]
	if !ok {
		return nil, ErrPanelNotOpen
	}

	if panel.prompt != nil {
		return panel.prompt, nil
	}

	node, ok := i.store.Node(id)
	if !ok {
		return nil, ErrPanelNotOpen
	}

	node.Apply(panel.buffer)

	if !needsPrompt(node) {
		return nil, ErrNotPromptNode
	}

	saved := node.StringField(models.FieldPrompt)
	panel.prompt = &PromptState{Saved: saved, Draft: saved}

	return panel.prompt, nil
}

// Revoke clears the stored token of provider.
func (i *Inspector) Revoke(ctx context.Context, provider string) error {
	if i.credentials == nil {
		return ErrNoCredentials
	}

	if err := i.credentials.Clear(ctx, provider); err != nil {
		return err
	}

	i.logger.InfoContext(ctx, "credential revoked", "provider", provider)

	return nil
}

// NodeRemoved closes the panel of a deleted node.
func (i *Inspector) NodeRemoved(id string) {
	i.Close(id)
}

// GraphReplaced closes every panel, their ids may no longer exist.
func (i *Inspector) GraphReplaced() {
	i.CloseAll()
}
