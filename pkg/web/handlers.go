// Package web provides the HTTP handlers of the workflow backend.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/logstream"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/registry"
	"github.com/dukex/flowcanvas/pkg/runner"
	"github.com/dukex/flowcanvas/pkg/scheduler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var ErrNoGenerator = errors.New("text generation is not configured")

// Generator answers prompt generation requests.
type Generator interface {
	Generate(ctx context.Context, prompt string) (models.GenerateResult, error)
}

// Scheduler delays workflow runs.
type Scheduler interface {
	After(workflowID string, minutes int) (time.Time, error)
}

type APIHandlers struct {
	persistence persistence.Persistence
	runner      *runner.Runner
	scheduler   Scheduler
	logs        logstream.Store
	generator   Generator
	validator   *validator.Validate
	registry    *registry.Registry
	logger      *slog.Logger
}

func NewAPIHandlers(
	logger *slog.Logger,
	persistence persistence.Persistence,
	runner *runner.Runner,
	scheduler Scheduler,
	logs logstream.Store,
	generator Generator,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		runner:      runner,
		scheduler:   scheduler,
		logs:        logs,
		generator:   generator,
		validator:   validator,
		registry:    registry,
		logger:      logger.With("module", "web"),
	}
}

// ScheduledRun returns the job that runs a stored workflow when its delay
// expires.
func ScheduledRun(logger *slog.Logger, p persistence.Persistence, r *runner.Runner) scheduler.Job {
	return func(ctx context.Context, workflowID string) {
		doc, err := p.WorkflowByID(ctx, workflowID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load scheduled workflow", "workflow_id", workflowID, "error", err)

			return
		}

		executionID := r.Start(ctx, *doc, nil)
		logger.InfoContext(ctx, "Started scheduled workflow", "workflow_id", workflowID, "execution_id", executionID)
	}
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	if err := validateDocument(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), &req); err != nil {
		return handleError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Workflow saved", "workflow_id", req.ID, "owner", req.Owner)

	return c.JSON(SaveWorkflowResponse{Message: "Workflow saved", ID: req.ID})
}

func (h *APIHandlers) UserWorkflows(c fiber.Ctx) error {
	owner := c.Params("username")
	if owner == "" {
		return badRequest(c, "Username is required")
	}

	docs, err := h.persistence.WorkflowsByOwner(c.Context(), owner)
	if err != nil {
		return handleError(c, err)
	}

	if docs == nil {
		docs = []*models.WorkflowDocument{}
	}

	return c.JSON(docs)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.DeleteWorkflow(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	return c.JSON(models.MessageResponse{Message: "Workflow deleted"})
}

func (h *APIHandlers) ClearAll(c fiber.Ctx) error {
	if err := h.persistence.DeleteAll(c.Context()); err != nil {
		return handleError(c, err)
	}

	return c.JSON(models.MessageResponse{Message: "All workflows deleted"})
}

// RunWorkflow starts a dry run of the posted document and returns its
// execution id without waiting for it.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var doc models.WorkflowDocument
	if err := c.Bind().JSON(&doc); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	tokens := make(map[string]string)

	for _, provider := range h.registry.AuthProviders() {
		if token := c.Get(client.TokenHeader(provider)); token != "" {
			tokens[provider] = token
		}
	}

	// the request context is recycled once the handler returns
	executionID := h.runner.Start(context.Background(), doc, tokens)

	h.logger.InfoContext(c.Context(), "Workflow run started", "execution_id", executionID, "steps", len(doc.Workflow))

	return c.JSON(RunWorkflowResponse{WorkflowID: executionID, Message: "Workflow started"})
}

func (h *APIHandlers) ScheduleWorkflow(c fiber.Ctx) error {
	var req models.ScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	id := req.WorkflowID.String()

	if _, err := h.persistence.WorkflowByID(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	at, err := h.scheduler.After(id, req.Schedule)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(ScheduleResponse{
		Message: fmt.Sprintf("Workflow %s scheduled in %d minutes", id, req.Schedule),
		RunAt:   at.UTC().Format(time.RFC3339),
	})
}

// Generate answers with {result} or, when generation fails, {error}.
func (h *APIHandlers) Generate(c fiber.Ctx) error {
	var req models.GenerateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if h.generator == nil {
		return c.JSON(models.GenerateResult{Error: ErrNoGenerator.Error()})
	}

	res, err := h.generator.Generate(c.Context(), req.Prompt)
	if err != nil {
		h.logger.WarnContext(c.Context(), "Prompt generation failed", "error", err)

		return c.JSON(models.GenerateResult{Error: err.Error()})
	}

	return c.JSON(res)
}

func (h *APIHandlers) ToolStub(c fiber.Ctx) error {
	label, ok := toolStubs[c.Params("service")]
	if !ok {
		return notFound(c, "Tool not found")
	}

	return c.JSON(models.MessageResponse{Message: label + " endpoint stub"})
}

func (h *APIHandlers) Tools(c fiber.Ctx) error {
	return c.JSON(h.registry.Tools())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck, repOk := "Repository is healthy", true
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck, repOk = err.Error(), false
	}

	status := "unhealthy"
	message := "Flowcanvas API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowcanvas API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
