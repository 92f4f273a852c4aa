package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("boom")
}
func (failingStore) Set(context.Context, string, string) error { return nil }
func (failingStore) Clear(context.Context, string) error       { return nil }

func TestMemoryStore(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "gmail")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "gmail", "token-1"))
	store.SetAccount("gmail", "ana@example.com")

	token, ok, err := store.Get(ctx, "gmail")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, "ana@example.com", store.Account(ctx, "gmail"))

	require.NoError(t, store.Clear(ctx, "gmail"))

	_, ok, _ = store.Get(ctx, "gmail")
	assert.False(t, ok)
	assert.Empty(t, store.Account(ctx, "gmail"))

	assert.ErrorIs(t, store.Set(ctx, "", "x"), ErrEmptyProvider)
}

func TestStatusOf(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()

	status := StatusOf(ctx, store, "notion")
	assert.False(t, status.Connected)
	assert.Equal(t, "Not connected to notion", status.Label())

	require.NoError(t, store.Set(ctx, "notion", "secret"))
	status = StatusOf(ctx, store, "notion")
	assert.True(t, status.Connected)
	assert.Equal(t, "Connected", status.Label())

	store.SetAccount("notion", "Team Space")
	assert.Equal(t, "Connected as Team Space", StatusOf(ctx, store, "notion").Label())

	assert.False(t, StatusOf(ctx, failingStore{}, "gmail").Connected)
	assert.False(t, StatusOf(ctx, nil, "gmail").Connected)
}

func TestStatusOf_EmptyTokenIsDisconnected(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "gmail", ""))

	assert.False(t, StatusOf(ctx, store, "gmail").Connected)
}
