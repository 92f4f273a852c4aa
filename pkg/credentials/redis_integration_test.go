//go:build integration

package credentials_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/dukex/flowcanvas/pkg/credentials"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestRedisStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := t.Context()
	store := credentials.NewRedisStore(setupRedis(t), "ana@example.com")

	_, ok, err := store.Get(ctx, "gmail")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "gmail", "token-1"))
	require.NoError(t, store.SetAccount(ctx, "gmail", "ana@example.com"))

	status := credentials.StatusOf(ctx, store, "gmail")
	assert.True(t, status.Connected)
	assert.Equal(t, "ana@example.com", status.Account)

	require.NoError(t, store.Clear(ctx, "gmail"))
	assert.False(t, credentials.StatusOf(ctx, store, "gmail").Connected)
	assert.Empty(t, store.Account(ctx, "gmail"))
}
