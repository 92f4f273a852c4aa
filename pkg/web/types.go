// Package web provides the HTTP request and response types of the workflow API.
package web

import "github.com/dukex/flowcanvas/pkg/models"

// SaveWorkflowRequest is the document posted to /workflows/save.
type SaveWorkflowRequest = models.WorkflowDocument

// SaveWorkflowResponse acknowledges a save and carries the stored id.
type SaveWorkflowResponse struct {
	Message string            `json:"message"`
	ID      models.DocumentID `json:"id"`
}

// RunWorkflowResponse carries the execution id that scopes the log stream.
type RunWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	Message    string `json:"message"`
}

// ScheduleResponse acknowledges a delayed run.
type ScheduleResponse struct {
	Message string `json:"message"`
	RunAt   string `json:"run_at"`
}

// toolStubs maps a service to the label of its placeholder endpoint.
var toolStubs = map[string]string{
	models.ServiceGoogleSheets: "Google Sheets",
	models.ServiceSlack:        "Slack",
	models.ServiceFacebook:     "Facebook",
	models.ServiceYahooFinance: "Yahoo Finance",
	models.ServiceOpenAI:       "OpenAI",
	models.ServiceTwilio:       "Twilio",
}
