package models

import (
	"encoding/json"
	"strings"
)

// RunResult is the backend answer to a run request. WorkflowID is the
// execution identifier that scopes the live log subscription.
type RunResult struct {
	WorkflowID string `json:"workflow_id"`
	Message    string `json:"message,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw payload for rendering and tolerates numeric
// workflow ids.
func (r *RunResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		WorkflowID any    `json:"workflow_id"`
		Message    string `json:"message"`
		Subject    string `json:"subject"`
		Body       string `json:"body"`
	}

	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.WorkflowID = stringOrNumber(wire.WorkflowID)
	r.Message = wire.Message
	r.Subject = wire.Subject
	r.Body = wire.Body
	r.Raw = append(json.RawMessage(nil), data...)

	return nil
}

// Render returns the text shown to the user: subject and body when present,
// otherwise the message, otherwise the raw payload.
func (r RunResult) Render() string {
	if r.Subject != "" || r.Body != "" {
		return strings.TrimSpace("Subject: " + r.Subject + "\n\n" + r.Body)
	}

	if r.Message != "" {
		return r.Message
	}

	if len(r.Raw) > 0 {
		var pretty any
		if err := json.Unmarshal(r.Raw, &pretty); err == nil {
			if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				return string(out)
			}
		}

		return string(r.Raw)
	}

	out, _ := json.MarshalIndent(r, "", "  ")

	return string(out)
}

// MessageResponse is the generic backend acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ScheduleRequest asks the backend to run a stored workflow after a delay.
type ScheduleRequest struct {
	WorkflowID DocumentID `json:"workflow_id" validate:"required"`
	Schedule   int        `json:"schedule"    validate:"min=0"` // minutes
}

// GenerateRequest is sent to the prompt generation collaborator.
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// GenerateResult carries either a generated text or an error message.
type GenerateResult struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// LogKey is the key under which the log lines of an execution are stored.
func LogKey(executionID string) string {
	return "workflow:" + executionID + ":log"
}
