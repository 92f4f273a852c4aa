package inspector

import "errors"

var (
	ErrPanelNotOpen  = errors.New("inspector panel is not open")
	ErrNotPromptNode = errors.New("node has no prompt editor")
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrNoGenerator   = errors.New("no generator configured")
	ErrNoCredentials = errors.New("no credential store configured")
)

// Output shown by the prompt editor when the generator gives nothing usable.
const (
	OutputNoResponse   = "No response"
	OutputContactError = "Error contacting backend"
)
