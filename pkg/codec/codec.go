// Package codec converts between the editor graph and the WorkflowDocument
// wire format consumed and produced by the backend.
package codec

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/dukex/flowcanvas/pkg/models"
)

// Layout used when a document is decoded. Positions are not persisted, so
// reloaded graphs are stacked vertically in step order.
const (
	LayoutStartX = 300
	LayoutStartY = 100
	LayoutPitch  = 120
)

// Graph is the read side of a graph store.
type Graph interface {
	Nodes() []models.Node
	Edges() []models.Edge
}

// Encode maps nodes to steps, dropping editor-only fields, and copies edges verbatim.
func Encode(nodes []models.Node, edges []models.Edge, name, owner string) models.WorkflowDocument {
	steps := make(models.Steps, 0, len(nodes))
	for _, n := range nodes {
		steps = append(steps, EncodeNode(n))
	}

	out := make(models.Edges, len(edges))
	copy(out, edges)

	return models.WorkflowDocument{
		Name:     name,
		Owner:    owner,
		Workflow: steps,
		Edges:    out,
	}
}

// EncodeGraph encodes the current state of g.
func EncodeGraph(g Graph, name, owner string) models.WorkflowDocument {
	return Encode(g.Nodes(), g.Edges(), name, owner)
}

// EncodeNode maps a single node to its step.
func EncodeNode(n models.Node) models.Step {
	var extra map[string]any
	if len(n.Extra) > 0 {
		extra = maps.Clone(n.Extra)
	}

	return models.Step{
		ID:      n.ID,
		Type:    n.Kind,
		Service: n.Service,
		Action:  n.Action,
		Extra:   extra,
	}
}

// Decode builds nodes and edges from a document. It never fails: a missing
// workflow is an empty graph and a missing edge list is empty. Edges whose
// endpoints are not among the decoded nodes are dropped.
func Decode(doc models.WorkflowDocument) ([]models.Node, []models.Edge) {
	nodes := make([]models.Node, 0, len(doc.Workflow))
	ids := make(map[string]struct{}, len(doc.Workflow))

	for i, step := range doc.Workflow {
		node := DecodeStep(step, i)
		nodes = append(nodes, node)
		ids[node.ID] = struct{}{}
	}

	edges := make([]models.Edge, 0, len(doc.Edges))

	for _, e := range doc.Edges {
		_, hasSource := ids[e.Source]
		_, hasTarget := ids[e.Target]

		if hasSource && hasTarget {
			edges = append(edges, e)
		}
	}

	return nodes, edges
}

// DecodeStep maps the step at index to a node positioned by the layout rule.
func DecodeStep(step models.Step, index int) models.Node {
	id := step.ID
	if id == "" {
		id = strconv.Itoa(index)
	}

	kind := step.Type
	if !kind.Valid() {
		kind = models.DefaultKind(step.Service)
	}

	action := step.Action
	if action == "" {
		action = models.DefaultAction
	}

	var extra map[string]any
	if len(step.Extra) > 0 {
		extra = maps.Clone(step.Extra)
	}

	return models.Node{
		ID:       id,
		Position: LayoutPosition(index),
		Kind:     kind,
		Service:  step.Service,
		Action:   action,
		Extra:    extra,
	}
}

// LayoutPosition returns the position of the step at index.
func LayoutPosition(index int) models.Position {
	return models.Position{
		X: LayoutStartX,
		Y: float64(LayoutStartY + index*LayoutPitch),
	}
}

// Parse reads a document from raw JSON. Mis-shaped workflow or edge fields
// are tolerated; only input that is not a JSON object is an error.
func Parse(data []byte) (models.WorkflowDocument, error) {
	var doc models.WorkflowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.WorkflowDocument{}, fmt.Errorf("failed to parse workflow document: %w", err)
	}

	return doc, nil
}

// Equivalent reports whether two documents describe the same workflow:
// same name and owner, same step ids in order with identical fields, and the
// same edge multiset.
func Equivalent(a, b models.WorkflowDocument) bool {
	if a.Name != b.Name || a.Owner != b.Owner || len(a.Workflow) != len(b.Workflow) || len(a.Edges) != len(b.Edges) {
		return false
	}

	for i := range a.Workflow {
		if !stepEqual(a.Workflow[i], b.Workflow[i]) {
			return false
		}
	}

	remaining := slices.Clone(b.Edges)
	for _, e := range a.Edges {
		idx := slices.Index(remaining, e)
		if idx < 0 {
			return false
		}

		remaining = slices.Delete(remaining, idx, idx+1)
	}

	return true
}

func stepEqual(a, b models.Step) bool {
	if a.ID != b.ID || a.Type != b.Type || a.Service != b.Service || a.Action != b.Action {
		return false
	}

	if len(a.Extra) != len(b.Extra) {
		return false
	}

	for k, v := range a.Extra {
		other, ok := b.Extra[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(other) {
			return false
		}
	}

	return true
}
