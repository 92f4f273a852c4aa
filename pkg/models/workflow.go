package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
)

// ErrNotAnObject is returned when a step or edge element is not a JSON object.
var ErrNotAnObject = errors.New("element is not an object")

// WorkflowDocument is the persisted and executed form of a workflow.
type WorkflowDocument struct {
	ID       DocumentID `json:"id,omitempty"`
	Name     string     `json:"name"             validate:"required"`
	Owner    string     `json:"owner"            validate:"required"`
	Workflow Steps      `json:"workflow"`
	Edges    Edges      `json:"edges"`
}

// Step mirrors the semantic fields of a Node. Extra keys are flattened into
// the step object on the wire.
type Step struct {
	ID      string
	Type    Kind
	Service string
	Action  string
	Extra   map[string]any
}

var stepKeys = []string{"id", FieldType, FieldService, FieldAction}

// MarshalJSON flattens Extra next to the well-known keys.
func (s Step) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+len(stepKeys))
	for k, v := range s.Extra {
		out[k] = v
	}

	out["id"] = s.ID
	out[FieldType] = string(s.Type)
	out[FieldService] = s.Service
	out[FieldAction] = s.Action

	return json.Marshal(out)
}

// UnmarshalJSON collects every unknown key into Extra.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == nil {
		return ErrNotAnObject
	}

	s.ID = stringOrNumber(raw["id"])
	s.Type = Kind(asString(raw[FieldType]))
	s.Service = asString(raw[FieldService])
	s.Action = asString(raw[FieldAction])

	for _, k := range stepKeys {
		delete(raw, k)
	}

	s.Extra = nil
	if len(raw) > 0 {
		s.Extra = maps.Clone(raw)
	}

	return nil
}

// Steps is the ordered step list of a document. Older save paths stored it
// double-encoded as a JSON string; both shapes are accepted. Anything else
// decodes to an empty list so a bad document still loads.
type Steps []Step

// UnmarshalJSON accepts an array, a JSON string holding an array, or null.
// Elements that are not step objects are skipped.
func (s *Steps) UnmarshalJSON(data []byte) error {
	*s = nil

	for _, elem := range unwrapElements(data) {
		var step Step
		if err := json.Unmarshal(elem, &step); err != nil {
			continue
		}

		*s = append(*s, step)
	}

	return nil
}

// MarshalJSON never emits null.
func (s Steps) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]Step(s))
}

// Edges is the edge list of a document, tolerant in the same way as Steps.
type Edges []Edge

// UnmarshalJSON accepts an array, a JSON string holding an array, or null.
// Elements that are not edge objects or lack an endpoint are skipped.
func (e *Edges) UnmarshalJSON(data []byte) error {
	*e = nil

	for _, elem := range unwrapElements(data) {
		var edge Edge
		if err := json.Unmarshal(elem, &edge); err != nil || edge.Source == "" || edge.Target == "" {
			continue
		}

		*e = append(*e, edge)
	}

	return nil
}

// MarshalJSON never emits null.
func (e Edges) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]Edge(e))
}

// unwrapElements returns the raw elements of an array, or of a JSON string
// holding one. Any other shape yields nothing.
func unwrapElements(data []byte) []json.RawMessage {
	data, ok := unwrapArray(data)
	if !ok {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}

	return elems
}

// unwrapArray strips one level of string encoding and reports whether
// anything is left to decode.
func unwrapArray(data []byte) ([]byte, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, false
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, false
		}

		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 {
			return nil, false
		}
	}

	return data, true
}

// DocumentID is the backend-assigned workflow id. Backends have used both
// integer and string ids, so both are accepted and kept as a string.
type DocumentID string

// UnmarshalJSON accepts a string or a number.
func (id *DocumentID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}

	*id = DocumentID(stringOrNumber(v))

	return nil
}

func (id DocumentID) String() string {
	return string(id)
}

func stringOrNumber(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
