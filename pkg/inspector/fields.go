package inspector

import (
	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/dukex/flowcanvas/pkg/models"
)

// SubPanelKind identifies a conditional section of a panel.
type SubPanelKind string

const (
	SubPanelCredential SubPanelKind = "credential_status"
	SubPanelParentID   SubPanelKind = "parent_id"
	SubPanelPrompt     SubPanelKind = "prompt"
)

// SubPanel is a section shown only for some (type, service) combinations.
type SubPanel struct {
	Kind SubPanelKind `json:"kind"`

	// Credential status, for SubPanelCredential.
	Credential *credentials.Status `json:"credential,omitempty"`

	// Editable field name and its current value, for SubPanelParentID.
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	// Prompt editor state, for SubPanelPrompt.
	Prompt *PromptState `json:"prompt,omitempty"`
}

// PromptState is the local state of a prompt editor. Output is never written
// to the node.
type PromptState struct {
	Saved  string `json:"saved"`
	Draft  string `json:"draft"`
	Output string `json:"output,omitempty"`
}

// FieldSet is what a panel renders for a node: the always-present fields,
// the advisory action choices and the conditional sub-panels. Values include
// any uncommitted buffered edits.
type FieldSet struct {
	NodeID        string         `json:"node_id"`
	Type          models.Kind    `json:"type"`
	Service       string         `json:"service"`
	Action        string         `json:"action"`
	ActionChoices []string       `json:"action_choices"`
	Extra         map[string]any `json:"extra,omitempty"`
	SubPanels     []SubPanel     `json:"sub_panels,omitempty"`
	Dirty         bool           `json:"dirty"`
}

// Has reports whether the field set contains a sub-panel of kind.
func (f FieldSet) Has(kind SubPanelKind) bool {
	_, ok := f.SubPanel(kind)

	return ok
}

// SubPanel returns the sub-panel of kind.
func (f FieldSet) SubPanel(kind SubPanelKind) (SubPanel, bool) {
	for _, sp := range f.SubPanels {
		if sp.Kind == kind {
			return sp, true
		}
	}

	return SubPanel{}, false
}

// needsCredentialStatus covers gmail triggers and notion actions.
func needsCredentialStatus(node models.Node) bool {
	switch node.Service {
	case models.ServiceGmail:
		return node.Kind == models.KindTrigger
	case models.ServiceNotion:
		return node.Kind == models.KindAction
	default:
		return false
	}
}

// The parentId field is shown for notion nodes of any kind.
func needsParentID(node models.Node) bool {
	return node.Service == models.ServiceNotion
}

func needsPrompt(node models.Node) bool {
	return node.Service == models.ServiceOpenAI
}
