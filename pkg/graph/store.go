// Package graph holds the canonical in-memory workflow graph edited by the canvas.
package graph

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/google/uuid"
)

// Observer is told about node lifetime changes that invalidate references
// held outside the store, such as open inspector panels.
type Observer interface {
	NodeRemoved(id string)
	GraphReplaced()
}

// IDGenerator allocates node identifiers.
type IDGenerator func() string

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store owns node and edge identity. Every edge references nodes present in
// the store; DeleteNode removes a node together with its edges.
type Store struct {
	mu        sync.RWMutex
	order     []string
	nodes     map[string]*models.Node
	edges     []models.Edge
	observers []Observer
	newID     IDGenerator
	logger    *slog.Logger
}

// NewStore creates an empty graph.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:  make(map[string]*models.Node),
		newID:  uuid.NewString,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("module", "graph")

	return s
}

// Observe registers an observer.
func (s *Store) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, o)
}

// AddNode inserts a new node and returns its id. An empty action becomes
// models.DefaultAction and an empty or unknown kind is derived from the service.
func (s *Store) AddNode(kind models.Kind, service, action string, position models.Position) string {
	if !kind.Valid() {
		kind = models.DefaultKind(service)
	}

	if action == "" {
		action = models.DefaultAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.nodes[id] != nil {
		id = s.newID()
	}

	s.nodes[id] = &models.Node{
		ID:       id,
		Position: position,
		Kind:     kind,
		Service:  service,
		Action:   action,
	}
	s.order = append(s.order, id)

	s.logger.Debug("node added", "node_id", id, "service", service, "kind", kind)

	return id
}

// UpdateNode merges patch into the node. Unknown ids are ignored and
// reported with false.
func (s *Store) UpdateNode(id string, patch models.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		s.logger.Debug("update ignored, node not found", "node_id", id)

		return false
	}

	node.Apply(patch)

	return true
}

// MoveNode changes the editor position of a node.
func (s *Store) MoveNode(id string, position models.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return false
	}

	node.Position = position

	return true
}

// DeleteNode removes the node and every edge touching it.
func (s *Store) DeleteNode(id string) bool {
	s.mu.Lock()

	if _, ok := s.nodes[id]; !ok {
		s.mu.Unlock()

		return false
	}

	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == id })
	s.edges = slices.DeleteFunc(s.edges, func(e models.Edge) bool { return e.References(id) })

	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	s.logger.Debug("node deleted", "node_id", id)

	for _, o := range observers {
		o.NodeRemoved(id)
	}

	return true
}

// Connect appends an edge between two existing nodes. Duplicate edges are
// allowed; edges to unknown nodes are refused.
func (s *Store) Connect(source, target string) (models.Edge, bool) {
	return s.AddEdge(models.Edge{Source: source, Target: target})
}

// AddEdge appends a fully specified edge, see Connect.
func (s *Store) AddEdge(edge models.Edge) (models.Edge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nodes[edge.Source] == nil || s.nodes[edge.Target] == nil {
		s.logger.Debug("edge refused, endpoint missing", "source", edge.Source, "target", edge.Target)

		return models.Edge{}, false
	}

	s.edges = append(s.edges, edge)

	return edge, true
}

// ReplaceAll swaps the whole graph. Edges whose endpoints are not among
// nodes are dropped. Observers are told that every outside reference is
// stale.
func (s *Store) ReplaceAll(nodes []models.Node, edges []models.Edge) {
	s.mu.Lock()

	s.nodes = make(map[string]*models.Node, len(nodes))
	s.order = make([]string, 0, len(nodes))

	for _, n := range nodes {
		node := n.Clone()
		if _, dup := s.nodes[node.ID]; !dup {
			s.order = append(s.order, node.ID)
		}

		s.nodes[node.ID] = &node
	}

	s.edges = make([]models.Edge, 0, len(edges))

	dropped := 0

	for _, e := range edges {
		if s.nodes[e.Source] == nil || s.nodes[e.Target] == nil {
			dropped++

			continue
		}

		s.edges = append(s.edges, e)
	}

	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("dangling edges dropped on replace", "count", dropped)
	}

	for _, o := range observers {
		o.GraphReplaced()
	}
}

// Node returns a copy of the node.
func (s *Store) Node(id string) (models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return models.Node{}, false
	}

	return node.Clone(), true
}

// Has reports whether the node exists.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.nodes[id]

	return ok
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}

	return out
}

// Edges returns a copy of the edge list.
func (s *Store) Edges() []models.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.edges)
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}
