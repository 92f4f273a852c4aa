package logchannel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultPollInterval = 250 * time.Millisecond

// RedisSubscriber tails the list models.LogKey(executionID) from its first
// element, polling for new entries.
type RedisSubscriber struct {
	client   redis.UniversalClient
	interval time.Duration
	logger   *slog.Logger
}

// NewRedisSubscriber creates a subscriber polling every interval. A zero
// interval uses 250ms.
func NewRedisSubscriber(log *slog.Logger, client redis.UniversalClient, interval time.Duration) *RedisSubscriber {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &RedisSubscriber{
		client:   client,
		interval: interval,
		logger:   log.With("module", "logchannel.redis"),
	}
}

func (r *RedisSubscriber) Subscribe(ctx context.Context, executionID string, deliver DeliverFunc) (Subscription, error) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	sub := &redisSubscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go r.poll(pollCtx, sub.done, models.LogKey(executionID), deliver)

	return sub, nil
}

func (r *RedisSubscriber) poll(ctx context.Context, done chan struct{}, key string, deliver DeliverFunc) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var next int64

	for {
		lines, err := r.client.LRange(ctx, key, next, -1).Result()
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Debug("log poll stopped", "key", key, "error", err)
			}

			return
		}

		for _, line := range lines {
			deliver(line)
		}

		next += int64(len(lines))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type redisSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *redisSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *redisSubscription) Close() error {
	s.cancel()
	<-s.done

	return nil
}
