// Package registry keeps the table of known integrations ("tools") that the
// editor offers: their default role, advisory action list and the credential
// provider they authenticate with.
package registry

import (
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/dukex/flowcanvas/pkg/models"
)

// Tool describes one integration.
type Tool struct {
	ID           string      `json:"id"`
	Label        string      `json:"label"`
	Kind         models.Kind `json:"type"`
	Actions      []string    `json:"actions"`
	AuthProvider string      `json:"auth_provider,omitempty"` // empty when no credential is needed
}

// Registry is safe for concurrent use. Unknown services are never an error:
// lookups fall back to permissive defaults.
type Registry struct {
	logger *slog.Logger
	mu     sync.RWMutex
	tools  map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(log *slog.Logger, tools ...Tool) *Registry {
	r := &Registry{
		logger: log.With("module", "registry"),
		tools:  make(map[string]Tool, len(tools)),
	}

	for _, t := range tools {
		r.RegisterTool(t)
	}

	return r
}

// NewDefaultRegistry creates a registry with the built-in tools.
func NewDefaultRegistry(log *slog.Logger) *Registry {
	return NewRegistry(log, Builtin()...)
}

// RegisterTool adds or replaces a tool.
func (r *Registry) RegisterTool(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.ID]; exists {
		r.logger.Debug("Replacing registered tool", "tool", tool.ID)
	}

	tool.Actions = slices.Clone(tool.Actions)
	r.tools[tool.ID] = tool
}

// Tool returns the tool registered for service.
func (r *Registry) Tool(service string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[service]
	if !ok {
		return Tool{}, false
	}

	t.Actions = slices.Clone(t.Actions)

	return t, true
}

// Actions returns the advisory action list for service. Unregistered
// services, and registered ones without actions, get the default action only.
func (r *Registry) Actions(service string) []string {
	t, ok := r.Tool(service)
	if !ok || len(t.Actions) == 0 {
		return []string{models.DefaultAction}
	}

	return t.Actions
}

// AuthProvider returns the credential provider of service, if any.
func (r *Registry) AuthProvider(service string) (string, bool) {
	t, ok := r.Tool(service)
	if !ok || t.AuthProvider == "" {
		return "", false
	}

	return t.AuthProvider, true
}

// AuthProviders returns every distinct credential provider, sorted.
func (r *Registry) AuthProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []string

	for _, t := range r.tools {
		if t.AuthProvider != "" && !slices.Contains(providers, t.AuthProvider) {
			providers = append(providers, t.AuthProvider)
		}
	}

	sort.Strings(providers)

	return providers
}

// Tools returns every registered tool ordered by id.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		t.Actions = slices.Clone(t.Actions)
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// HealthCheck reports whether any tool is registered.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.tools) == 0 {
		return "No tools registered", false
	}

	return "Registry is healthy", true
}
