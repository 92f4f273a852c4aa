// Package runner dry-runs saved workflows and writes their log transcript.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dukex/flowcanvas/pkg/logstream"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	LineStarted  = "Workflow started."
	LineExecuted = "Workflow executed."
	LineRule     = "------------------------------------------------------"
)

// Generator produces text for prompt steps.
type Generator interface {
	Generate(ctx context.Context, prompt string) (models.GenerateResult, error)
}

// Run is the state shared by the steps of one execution.
type Run struct {
	ExecutionID string
	Document    models.WorkflowDocument
	// Tokens maps an auth provider to the token sent with the run request.
	Tokens map[string]string

	stopped bool
	lines   []string
}

// Log queues a line for the execution log.
func (r *Run) Log(line string) {
	r.lines = append(r.lines, line)
}

// Stop skips the remaining steps.
func (r *Run) Stop() {
	r.stopped = true
}

// StepFunc handles one step. Errors are logged to the transcript and do not
// stop the run.
type StepFunc func(ctx context.Context, step models.Step, run *Run) error

type handlerKey struct {
	kind    models.Kind
	service string
}

type Option func(*Runner)

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithIDGenerator replaces the uuid execution ids.
func WithIDGenerator(gen func() string) Option {
	return func(r *Runner) {
		r.newID = gen
	}
}

// WithStep registers fn for steps of the given kind and service.
func WithStep(kind models.Kind, service string, fn StepFunc) Option {
	return func(r *Runner) {
		r.handlers[handlerKey{kind: kind, service: service}] = fn
	}
}

type Runner struct {
	logs     logstream.Store
	logger   *slog.Logger
	tracer   trace.Tracer
	newID    func() string
	handlers map[handlerKey]StepFunc
	wg       sync.WaitGroup
}

// New creates a runner writing to logs. gen may be nil, prompt steps then
// report that no generator is configured.
func New(log *slog.Logger, logs logstream.Store, gen Generator, opts ...Option) *Runner {
	r := &Runner{
		logs:     logs,
		logger:   log.With("module", "runner"),
		tracer:   otel.Tracer("github.com/dukex/flowcanvas/pkg/runner"),
		newID:    uuid.NewString,
		handlers: make(map[handlerKey]StepFunc),
	}

	r.handlers[handlerKey{models.KindTrigger, models.ServiceGmail}] = gmailTrigger
	r.handlers[handlerKey{models.KindAction, models.ServiceNotion}] = notionAction
	r.handlers[handlerKey{models.KindAction, models.ServiceOpenAI}] = promptAction(gen)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start runs doc in the background and returns its execution id at once.
func (r *Runner) Start(ctx context.Context, doc models.WorkflowDocument, tokens map[string]string) string {
	id := r.newID()
	runCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if err := r.Execute(runCtx, id, doc, tokens); err != nil {
			r.logger.ErrorContext(runCtx, "Workflow run failed", "execution_id", id, "error", err)
		}
	}()

	return id
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Execute runs doc synchronously under executionID.
func (r *Runner) Execute(ctx context.Context, executionID string, doc models.WorkflowDocument, tokens map[string]string) error {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.run",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.WorkflowIDKey, doc.ID.String()),
		attribute.String(otelhelper.WorkflowNameKey, doc.Name),
		attribute.String(otelhelper.OwnerKey, doc.Owner),
		attribute.Int(otelhelper.StepCountKey, len(doc.Workflow)),
	)
	defer span.End()

	logger := r.logger.With("execution_id", executionID)
	logger.InfoContext(ctx, "Workflow run started", "workflow", doc.Name, "steps", len(doc.Workflow))

	run := &Run{ExecutionID: executionID, Document: doc, Tokens: tokens}
	run.Log(LineRule)
	run.Log(LineStarted)

	if err := r.flush(ctx, run); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	for _, step := range SortSteps(doc.Workflow) {
		r.runStep(ctx, step, run)

		if err := r.flush(ctx, run); err != nil {
			otelhelper.SetError(span, err)

			return err
		}

		if run.stopped {
			break
		}
	}

	run.Log(LineExecuted)
	run.Log(LineRule)

	if err := r.flush(ctx, run); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if err := r.logs.Finish(ctx, executionID); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to finish execution log: %w", err)
	}

	logger.InfoContext(ctx, "Workflow run finished")

	return nil
}

func (r *Runner) runStep(ctx context.Context, step models.Step, run *Run) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.step",
		attribute.String(otelhelper.ExecutionIDKey, run.ExecutionID),
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
		attribute.String(otelhelper.StepServiceKey, step.Service),
		attribute.String(otelhelper.StepActionKey, step.Action),
	)
	defer span.End()

	run.Log(fmt.Sprintf("Running step: %s (%s)", step.Service, step.Type))

	fn, ok := r.handlers[handlerKey{kind: step.Type, service: step.Service}]
	if !ok {
		run.Log(fmt.Sprintf("No runner for %s %s; step skipped.", step.Service, step.Type))

		return
	}

	if err := fn(ctx, step, run); err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.StepIDKey, step.ID))
		r.logger.WarnContext(ctx, "Step failed", "execution_id", run.ExecutionID, "step_id", step.ID, "error", err)
		run.Log(fmt.Sprintf("Step %s failed: %v", step.ID, err))
	}
}

func (r *Runner) flush(ctx context.Context, run *Run) error {
	if len(run.lines) == 0 {
		return nil
	}

	lines := run.lines
	run.lines = nil

	if err := r.logs.Append(ctx, run.ExecutionID, lines...); err != nil {
		return fmt.Errorf("failed to write execution log: %w", err)
	}

	return nil
}

// SortSteps orders steps trigger first, then by service name. Ties keep
// their document order.
func SortSteps(steps []models.Step) []models.Step {
	sorted := append([]models.Step(nil), steps...)

	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].Type == models.KindTrigger, sorted[j].Type == models.KindTrigger
		if ti != tj {
			return ti
		}

		return sorted[i].Service < sorted[j].Service
	})

	return sorted
}
