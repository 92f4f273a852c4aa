package logstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultRetention    = 24 * time.Hour
)

// RedisStore keeps each log in the list models.LogKey(id).
type RedisStore struct {
	client    redis.UniversalClient
	interval  time.Duration
	retention time.Duration
}

// NewRedisStore creates a store; logs expire after a day.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client:    client,
		interval:  defaultPollInterval,
		retention: defaultRetention,
	}
}

func doneKey(executionID string) string {
	return models.LogKey(executionID) + ":done"
}

func (r *RedisStore) Append(ctx context.Context, executionID string, lines ...string) error {
	if executionID == "" {
		return ErrEmptyExecutionID
	}

	if len(lines) == 0 {
		return nil
	}

	values := make([]any, len(lines))
	for i, l := range lines {
		values[i] = l
	}

	key := models.LogKey(executionID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, r.retention)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append log lines: %w", err)
	}

	return nil
}

func (r *RedisStore) Finish(ctx context.Context, executionID string) error {
	err := r.client.Set(ctx, doneKey(executionID), "1", r.retention).Err()
	if err != nil {
		return fmt.Errorf("failed to finish log: %w", err)
	}

	return nil
}

func (r *RedisStore) Tail(ctx context.Context, executionID string, fn func(line string)) error {
	key := models.LogKey(executionID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var next int64

	for {
		// read the done flag first so no line appended before it is missed
		finished, err := r.finished(ctx, executionID)
		if err != nil {
			return err
		}

		lines, err := r.client.LRange(ctx, key, next, -1).Result()
		if err != nil {
			return fmt.Errorf("failed to read log: %w", err)
		}

		for _, line := range lines {
			fn(line)
		}

		next += int64(len(lines))

		if finished {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RedisStore) finished(ctx context.Context, executionID string) (bool, error) {
	err := r.client.Get(ctx, doneKey(executionID)).Err()
	if err == nil {
		return true, nil
	}

	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	return false, fmt.Errorf("failed to read log state: %w", err)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
