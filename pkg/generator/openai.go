// Package generator produces text for prompt nodes through the OpenAI chat
// completions API.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-4.1-mini"
	defaultTemperature = 0.6
	defaultMaxTokens   = 300
	defaultTimeout     = 60 * time.Second
)

var (
	ErrMissingAPIKey = errors.New("openai api key is not set")
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
)

type Option func(*OpenAI)

// WithEndpoint points the generator at another chat completions endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *OpenAI) {
		o.endpoint = endpoint
	}
}

func WithModel(model string) Option {
	return func(o *OpenAI) {
		o.model = model
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *OpenAI) {
		o.http = hc
	}
}

type OpenAI struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
	logger      *slog.Logger
}

func NewOpenAI(log *slog.Logger, apiKey string, opts ...Option) *OpenAI {
	o := &OpenAI{
		apiKey:      apiKey,
		endpoint:    DefaultEndpoint,
		model:       DefaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		http:        &http.Client{Timeout: defaultTimeout},
		logger:      log.With("module", "generator"),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user message and returns the first
// choice.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (models.GenerateResult, error) {
	if o.apiKey == "" {
		return models.GenerateResult{}, ErrMissingAPIKey
	}

	if prompt == "" {
		return models.GenerateResult{}, ErrEmptyPrompt
	}

	data, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return models.GenerateResult{}, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(data))
	if err != nil {
		return models.GenerateResult{}, fmt.Errorf("failed to create completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return models.GenerateResult{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.GenerateResult{}, fmt.Errorf("failed to read completion response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return models.GenerateResult{}, fmt.Errorf("openai error: status %s", resp.Status)
		}

		return models.GenerateResult{}, fmt.Errorf("failed to decode completion response: %w", err)
	}

	// API-level failures are answers, not transport errors
	if parsed.Error != nil {
		o.logger.WarnContext(ctx, "Completion rejected", "status", resp.StatusCode, "error", parsed.Error.Message)

		return models.GenerateResult{Error: parsed.Error.Message}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return models.GenerateResult{}, fmt.Errorf("openai error: status %s", resp.Status)
	}

	if len(parsed.Choices) == 0 {
		return models.GenerateResult{}, nil
	}

	return models.GenerateResult{Result: parsed.Choices[0].Message.Content}, nil
}
