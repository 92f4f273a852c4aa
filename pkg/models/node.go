// Package models defines the core domain models for the workflow graph editor
package models

import (
	"encoding/json"
	"maps"
)

// Kind represents the role of a node in a workflow.
type Kind string

const (
	KindTrigger Kind = "trigger" // Starts an execution
	KindAction  Kind = "action"  // Performs a side-effecting operation
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindTrigger || k == KindAction
}

// DefaultAction is used whenever a node is created or loaded without an action.
const DefaultAction = "default_action"

// Well-known field names of a node. Every other field lives in Node.Extra.
const (
	FieldType    = "type"
	FieldService = "service"
	FieldAction  = "action"

	FieldParentID = "parentId" // Notion target page
	FieldPrompt   = "prompt"   // OpenAI generation prompt
)

// Built-in services. The set is a soft registry: any other string is accepted.
const (
	ServiceGmail        = "gmail"
	ServiceNotion       = "notion"
	ServiceYouTube      = "youtube"
	ServiceGoogleSheets = "googlesheets"
	ServiceSlack        = "slack"
	ServiceFacebook     = "facebook"
	ServiceYahooFinance = "yahoofinance"
	ServiceOpenAI       = "openai"
	ServiceTwilio       = "twilio"
)

// DefaultKind returns the kind a freshly created node gets for the given service.
func DefaultKind(service string) Kind {
	if service == ServiceGmail {
		return KindTrigger
	}

	return KindAction
}

// Position is an editor-only coordinate with no meaning for execution.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a step of the workflow while it is being edited.
type Node struct {
	ID       string         `json:"id"`
	Position Position       `json:"position"`
	Kind     Kind           `json:"type"`
	Service  string         `json:"service"`
	Action   string         `json:"action"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// IsTrigger reports whether the node starts an execution.
func (n Node) IsTrigger() bool {
	return n.Kind == KindTrigger
}

// Field returns the current value of a field by its wire name.
func (n Node) Field(name string) (any, bool) {
	switch name {
	case FieldType:
		return string(n.Kind), true
	case FieldService:
		return n.Service, true
	case FieldAction:
		return n.Action, true
	default:
		v, ok := n.Extra[name]

		return v, ok
	}
}

// StringField returns a field as a string, empty when absent or not a string.
func (n Node) StringField(name string) string {
	v, _ := n.Field(name)
	s, _ := v.(string)

	return s
}

// Apply merges a patch into the node. A type other than trigger or action
// leaves the kind unchanged.
func (n *Node) Apply(patch Patch) {
	for field, value := range patch {
		switch field {
		case FieldType:
			if kind := Kind(asString(value)); kind.Valid() {
				n.Kind = kind
			}
		case FieldService:
			n.Service = asString(value)
		case FieldAction:
			n.Action = asString(value)
		default:
			if n.Extra == nil {
				n.Extra = make(map[string]any)
			}

			n.Extra[field] = value
		}
	}
}

// Clone returns a copy that shares no mutable state with n.
func (n Node) Clone() Node {
	if n.Extra != nil {
		n.Extra = maps.Clone(n.Extra)
	}

	return n
}

// Patch is a partial set of node fields keyed by wire name.
type Patch map[string]any

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// UnmarshalJSON accepts string or numeric ids and endpoints.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == nil {
		return ErrNotAnObject
	}

	*e = Edge{
		ID:           stringOrNumber(raw["id"]),
		Source:       stringOrNumber(raw["source"]),
		Target:       stringOrNumber(raw["target"]),
		SourceHandle: stringOrNumber(raw["sourceHandle"]),
		TargetHandle: stringOrNumber(raw["targetHandle"]),
	}

	return nil
}

// References reports whether the edge touches the node.
func (e Edge) References(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

func asString(v any) string {
	s, _ := v.(string)

	return s
}
