package client

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(slog.Default(), server.URL+"/workflows/")
}

func sampleDocument() models.WorkflowDocument {
	return models.WorkflowDocument{
		Name:  "Inbox to Notion",
		Owner: "ana",
		Workflow: models.Steps{
			{ID: "n1", Type: models.KindTrigger, Service: "gmail", Action: "new_email"},
			{ID: "n2", Type: models.KindAction, Service: "notion", Action: "create_page", Extra: map[string]any{"parentId": "p-1"}},
		},
		Edges: models.Edges{{Source: "n1", Target: "n2"}},
	}
}

func TestClient_Save(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workflows/save", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana", body["owner"])
		assert.Len(t, body["workflow"], 2)

		_, _ = io.WriteString(w, `{"message":"Workflow saved"}`)
	})

	resp, err := c.Save(t.Context(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "Workflow saved", resp.Message)
}

func TestClient_RunSendsTokenHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/run", r.URL.Path)
		assert.Equal(t, "g-token", r.Header.Get("x-gmail-token"))
		assert.Empty(t, r.Header.Get("x-notion-token"))

		_, _ = io.WriteString(w, `{"workflow_id": 42, "subject": "Hello", "body": "World"}`)
	})

	creds := credentials.NewMemoryStore()
	require.NoError(t, creds.Set(t.Context(), "gmail", "g-token"))

	headers, err := CredentialHeaders(t.Context(), creds, []string{"gmail", "notion"})
	require.NoError(t, err)

	res, err := c.Run(t.Context(), sampleDocument(), headers)
	require.NoError(t, err)
	assert.Equal(t, "42", res.WorkflowID)
	assert.Equal(t, "Subject: Hello\n\nWorld", res.Render())
}

func TestClient_Workflows(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantLen int
	}{
		{name: "array", body: `[{"id": 7, "name": "a", "owner": "ana", "workflow": "[{\"id\":\"x\",\"service\":\"slack\"}]"}, {"id": "abc", "name": "b", "owner": "ana"}]`, wantLen: 2},
		{name: "object", body: `{"message": "No workflows found"}`, wantLen: 0},
		{name: "null", body: `null`, wantLen: 0},
		{name: "empty", body: ``, wantLen: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/workflows/user/ana", r.URL.Path)
				_, _ = io.WriteString(w, tc.body)
			})

			docs, err := c.Workflows(t.Context(), "ana")
			require.NoError(t, err)
			assert.NotNil(t, docs)
			assert.Len(t, docs, tc.wantLen)
		})
	}
}

func TestClient_WorkflowsKeepsIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 7, "name": "a", "owner": "ana", "workflow": "[{\"id\":\"x\",\"service\":\"slack\"}]"}]`)
	})

	docs, err := c.Workflows(t.Context(), "ana")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentID("7"), docs[0].ID)
	require.Len(t, docs[0].Workflow, 1)
	assert.Equal(t, "x", docs[0].Workflow[0].ID)
}

func TestClient_DeleteNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/workflows/delete/missing", r.URL.Path)

		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"title":"Not Found","status":404,"detail":"workflow not found"}`)
	})

	_, err := c.Delete(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "workflow not found")

	_, err = c.Delete(t.Context(), "")
	require.ErrorIs(t, err, ErrEmptyWorkflowID)
}

func TestClient_Schedule(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "wf-1", body["workflow_id"])
		assert.InDelta(t, 15, body["schedule"], 0)

		_, _ = io.WriteString(w, `{"message":"Workflow scheduled to run in 15 minutes"}`)
	})

	resp, err := c.Schedule(t.Context(), "wf-1", 15)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "15 minutes")
}

func TestClient_Generate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/tools/openai/generate", r.URL.Path)
		_, _ = io.WriteString(w, `{"result":"autumn moon"}`)
	})

	res, err := c.Generate(t.Context(), "haiku")
	require.NoError(t, err)
	assert.Equal(t, "autumn moon", res.Result)
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"database unavailable"}`)
	})

	_, err := c.Save(t.Context(), sampleDocument())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := New(slog.Default(), server.URL).Save(t.Context(), sampleDocument())
	require.Error(t, err)
}

func TestTokenHeader(t *testing.T) {
	assert.Equal(t, "x-gmail-token", TokenHeader("gmail"))
	assert.Equal(t, "x-notion-token", TokenHeader("notion"))
}
