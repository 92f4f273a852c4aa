package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8000/workflows/ws/workflow_log", logURL("http://localhost:8000/workflows/"))
	assert.Equal(t, "http://api/workflows/ws/workflow_log", logURL("http://api/workflows"))
}

func TestApplyTokens(t *testing.T) {
	store := credentials.NewMemoryStore()

	require.NoError(t, applyTokens(t.Context(), store, []string{"gmail=g-token", "notion=n=1"}))

	token, ok, err := store.Get(t.Context(), "gmail")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g-token", token)

	token, _, err = store.Get(t.Context(), "notion")
	require.NoError(t, err)
	assert.Equal(t, "n=1", token)

	for _, bad := range []string{"gmail", "=token", "gmail="} {
		require.ErrorIs(t, applyTokens(t.Context(), store, []string{bad}), ErrInvalidToken, bad)
	}
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "Inbox to Notion",
		"owner": "ana",
		"workflow": "[{\"id\":\"n1\",\"type\":\"trigger\",\"service\":\"gmail\"}]",
		"edges": []
	}`), 0o600))

	doc, err := readDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Inbox to Notion", doc.Name)
	require.Len(t, doc.Workflow, 1)
	assert.Equal(t, "gmail", doc.Workflow[0].Service)

	_, err = readDocument(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSaveCommand(t *testing.T) {
	var saved map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/save", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&saved))

		_, _ = io.WriteString(w, `{"message":"Workflow saved"}`)
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "workflow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"draft","owner":"ana","workflow":[{"id":"n1","service":"slack"}],"edges":[]}`), 0o600))

	err := newApp().Run(t.Context(), []string{
		"flowcanvas", "--api-url", server.URL + "/workflows", "--owner", "ana",
		"save", "--file", path, "--name", "Daily digest",
	})
	require.NoError(t, err)

	assert.Equal(t, "Daily digest", saved["name"])
	assert.Equal(t, "ana", saved["owner"])
	assert.Len(t, saved["workflow"], 1)
}

func TestDeleteCommand(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/workflows/delete/wf-1", r.URL.Path)

		_, _ = io.WriteString(w, `{"message":"Workflow deleted"}`)
	}))
	t.Cleanup(server.Close)

	args := []string{"flowcanvas", "--api-url", server.URL + "/workflows", "--owner", "ana", "delete"}

	require.NoError(t, newApp().Run(t.Context(), append(args, "wf-1")))
	assert.Equal(t, int32(1), calls.Load())

	require.ErrorIs(t, newApp().Run(t.Context(), args), ErrMissingArgument)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClearCommand(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/workflows/clear_all", r.URL.Path)

		_, _ = io.WriteString(w, `{"message":"All workflows deleted"}`)
	}))
	t.Cleanup(server.Close)

	args := []string{"flowcanvas", "--api-url", server.URL + "/workflows", "clear"}

	require.ErrorIs(t, newApp().Run(t.Context(), args), ErrNotConfirmed)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, newApp().Run(t.Context(), append(args, "--yes")))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunCommandRequiresSource(t *testing.T) {
	err := newApp().Run(t.Context(), []string{"flowcanvas", "--owner", "ana", "run"})
	require.ErrorIs(t, err, ErrMissingArgument)
}
