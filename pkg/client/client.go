// Package client talks to the workflow backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	// DefaultBaseURL is the workflow API of a local backend.
	DefaultBaseURL = "http://localhost:8000/workflows"

	defaultTimeoutSeconds = 30
	maxErrorBodyBytes     = 4096
)

var ErrEmptyWorkflowID = errors.New("workflow id cannot be empty")

// APIError is returned for non-2xx backend responses.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client is the backend collaborator of the editor.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for baseURL, DefaultBaseURL when empty.
func New(log *slog.Logger, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger:  log.With("module", "client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root used by the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Save stores the document under its owner.
func (c *Client) Save(ctx context.Context, doc models.WorkflowDocument) (models.MessageResponse, error) {
	var out models.MessageResponse

	err := c.do(ctx, "save", http.MethodPost, "save", doc, nil, &out)

	return out, err
}

// Run asks the backend to execute the document. headers carries one token
// header per connected integration.
func (c *Client) Run(ctx context.Context, doc models.WorkflowDocument, headers http.Header) (models.RunResult, error) {
	var out models.RunResult

	err := c.do(ctx, "run", http.MethodPost, "run", doc, headers, &out)

	return out, err
}

// Workflows lists the documents saved by owner. A response that is not a
// JSON array is treated as an empty list.
func (c *Client) Workflows(ctx context.Context, owner string) ([]models.WorkflowDocument, error) {
	var raw json.RawMessage

	if err := c.do(ctx, "list", http.MethodGet, "user/"+url.PathEscape(owner), nil, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.logger.WarnContext(ctx, "workflow list is not an array", "owner", owner)

		return []models.WorkflowDocument{}, nil
	}

	var docs []models.WorkflowDocument
	if err := json.Unmarshal(trimmed, &docs); err != nil {
		c.logger.WarnContext(ctx, "workflow list could not be decoded", "owner", owner, "error", err)

		return []models.WorkflowDocument{}, nil
	}

	return docs, nil
}

// Delete removes a saved workflow.
func (c *Client) Delete(ctx context.Context, id string) (models.MessageResponse, error) {
	var out models.MessageResponse

	if id == "" {
		return out, ErrEmptyWorkflowID
	}

	err := c.do(ctx, "delete", http.MethodDelete, "delete/"+url.PathEscape(id), nil, nil, &out)

	return out, err
}

// ClearAll removes every saved workflow.
func (c *Client) ClearAll(ctx context.Context) (models.MessageResponse, error) {
	var out models.MessageResponse

	err := c.do(ctx, "clear_all", http.MethodDelete, "clear_all", nil, nil, &out)

	return out, err
}

// Schedule asks the backend to run a saved workflow after the given minutes.
func (c *Client) Schedule(ctx context.Context, id string, minutes int) (models.MessageResponse, error) {
	var out models.MessageResponse

	if id == "" {
		return out, ErrEmptyWorkflowID
	}

	req := models.ScheduleRequest{WorkflowID: models.DocumentID(id), Schedule: minutes}
	err := c.do(ctx, "schedule", http.MethodPost, "schedule", req, nil, &out)

	return out, err
}

// Generate runs the prompt through the text generation tool.
func (c *Client) Generate(ctx context.Context, prompt string) (models.GenerateResult, error) {
	var out models.GenerateResult

	err := c.do(ctx, "generate", http.MethodPost, "tools/openai/generate", models.GenerateRequest{Prompt: prompt}, nil, &out)

	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, headers http.Header, out any) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "backend request", "op", op, "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return nil
}

// errorMessage extracts a readable message from problem+json or
// {message}/{error} bodies.
func errorMessage(data []byte) string {
	var body struct {
		Detail  string `json:"detail"`
		Title   string `json:"title"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}

	for _, s := range []string{body.Detail, body.Message, body.Error, body.Title} {
		if s != "" {
			return s
		}
	}

	return ""
}

// TokenHeader is the request header carrying the token of provider.
func TokenHeader(provider string) string {
	return "x-" + provider + "-token"
}

// CredentialHeaders builds one token header per connected provider.
// Providers without a token are skipped.
func CredentialHeaders(ctx context.Context, store credentials.Store, providers []string) (http.Header, error) {
	headers := http.Header{}
	if store == nil {
		return headers, nil
	}

	for _, p := range providers {
		token, ok, err := store.Get(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s credential: %w", p, err)
		}

		if ok && token != "" {
			headers.Set(TokenHeader(p), token)
		}
	}

	return headers, nil
}
