package runner_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcanvas/pkg/channels/gochannel"
	"github.com/dukex/flowcanvas/pkg/logstream"
	"github.com/dukex/flowcanvas/pkg/mocks"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newStore(t *testing.T) *logstream.BusStore {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	store := logstream.NewBusStore(pub, sub)
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func transcript(t *testing.T, store logstream.Store, id string) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	var lines []string

	require.NoError(t, store.Tail(ctx, id, func(line string) {
		lines = append(lines, line)
	}))

	return lines
}

func TestSortSteps(t *testing.T) {
	steps := []models.Step{
		{ID: "1", Type: models.KindAction, Service: "slack"},
		{ID: "2", Type: models.KindAction, Service: "notion"},
		{ID: "3", Type: models.KindTrigger, Service: "gmail"},
		{ID: "4", Type: models.KindAction, Service: "notion"},
	}

	sorted := runner.SortSteps(steps)

	ids := make([]string, 0, len(sorted))
	for _, s := range sorted {
		ids = append(ids, s.ID)
	}

	assert.Equal(t, []string{"3", "2", "4", "1"}, ids)
	assert.Equal(t, "1", steps[0].ID)
}

func TestRunner_Transcript(t *testing.T) {
	store := newStore(t)

	gen := &mocks.MockGenerator{}
	gen.On("Generate", mock.Anything, "Summarize").Return(models.GenerateResult{Result: "short"}, nil).Once()

	r := runner.New(slog.Default(), store, gen)

	doc := models.WorkflowDocument{
		Name:  "Inbox",
		Owner: "ana",
		Workflow: models.Steps{
			{ID: "n3", Type: models.KindAction, Service: "openai", Action: "generate", Extra: map[string]any{"prompt": "Summarize"}},
			{ID: "n2", Type: models.KindAction, Service: "notion", Action: "create_page", Extra: map[string]any{"parentId": "p-1"}},
			{ID: "n1", Type: models.KindTrigger, Service: "gmail", Action: "new_email"},
			{ID: "n4", Type: models.KindAction, Service: "twilio", Action: "default_action"},
		},
	}

	tokens := map[string]string{"gmail": "g", "notion": "n"}
	require.NoError(t, r.Execute(t.Context(), "exec-1", doc, tokens))

	assert.Equal(t, []string{
		runner.LineRule,
		"Workflow started.",
		"Running step: gmail (trigger)",
		"Checking new email...",
		"Gmail connected; dry run does not fetch messages.",
		"Running step: notion (action)",
		"Creating Notion page...",
		"Notion page would be created under p-1.",
		"Running step: openai (action)",
		"Calling OpenAI...",
		"Prompt: Summarize",
		"OpenAI result: short",
		"Running step: twilio (action)",
		"No runner for twilio action; step skipped.",
		"Workflow executed.",
		runner.LineRule,
	}, transcript(t, store, "exec-1"))

	gen.AssertExpectations(t)
}

func TestRunner_DisconnectedTriggerStops(t *testing.T) {
	store := newStore(t)
	r := runner.New(slog.Default(), store, nil)

	doc := models.WorkflowDocument{
		Workflow: models.Steps{
			{ID: "n1", Type: models.KindTrigger, Service: "gmail"},
			{ID: "n2", Type: models.KindAction, Service: "notion"},
		},
	}

	require.NoError(t, r.Execute(t.Context(), "exec-1", doc, nil))

	lines := transcript(t, store, "exec-1")
	assert.Contains(t, lines, "No new email.")
	assert.NotContains(t, lines, "Running step: notion (action)")
	assert.Equal(t, "Workflow executed.", lines[len(lines)-2])
}

func TestRunner_PromptErrors(t *testing.T) {
	store := newStore(t)

	gen := &mocks.MockGenerator{}
	gen.On("Generate", mock.Anything, "Summarize the following email:").Return(models.GenerateResult{}, errors.New("quota exceeded")).Once()

	r := runner.New(slog.Default(), store, gen)

	doc := models.WorkflowDocument{Workflow: models.Steps{{ID: "n1", Type: models.KindAction, Service: "openai"}}}
	require.NoError(t, r.Execute(t.Context(), "exec-1", doc, nil))

	assert.Contains(t, transcript(t, store, "exec-1"), "OpenAI error: quota exceeded")

	r = runner.New(slog.Default(), store, nil)
	require.NoError(t, r.Execute(t.Context(), "exec-2", doc, nil))

	assert.Contains(t, transcript(t, store, "exec-2"), "Step n1 failed: text generation is not configured")
}

func TestRunner_StartAssignsUniqueIDs(t *testing.T) {
	store := newStore(t)

	ids := []string{"exec-a", "exec-b"}
	r := runner.New(slog.Default(), store, nil, runner.WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]

		return id
	}))

	doc := models.WorkflowDocument{Workflow: models.Steps{{ID: "n1", Type: models.KindAction, Service: "slack"}}}

	first := r.Start(t.Context(), doc, nil)
	second := r.Start(t.Context(), doc, nil)
	r.Wait()

	assert.Equal(t, "exec-a", first)
	assert.Equal(t, "exec-b", second)
	assert.Contains(t, transcript(t, store, "exec-a"), "Workflow executed.")
	assert.Contains(t, transcript(t, store, "exec-b"), "Workflow executed.")
}

func TestRunner_CustomStepAndSpans(t *testing.T) {
	store := newStore(t)
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	r := runner.New(slog.Default(), store, nil,
		runner.WithTracer(tracer),
		runner.WithStep(models.KindAction, "slack", func(_ context.Context, step models.Step, run *runner.Run) error {
			run.Log("Posting to Slack: " + step.Action)

			return nil
		}),
	)

	doc := models.WorkflowDocument{Workflow: models.Steps{{ID: "n1", Type: models.KindAction, Service: "slack", Action: "post"}}}
	require.NoError(t, r.Execute(t.Context(), "exec-1", doc, nil))

	assert.Contains(t, transcript(t, store, "exec-1"), "Posting to Slack: post")

	names := make([]string, 0)
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}

	assert.ElementsMatch(t, []string{"workflow.run", "workflow.step"}, names)
}
