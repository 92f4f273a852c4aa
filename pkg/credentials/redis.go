package credentials

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

const accountSuffix = ":account"

// RedisStore keeps the credentials of one user in a Redis hash.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore creates a store under "flowcanvas:credentials:<owner>".
func NewRedisStore(client redis.UniversalClient, owner string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    "flowcanvas:credentials:" + owner,
	}
}

func (r *RedisStore) Get(ctx context.Context, provider string) (string, bool, error) {
	token, err := r.client.HGet(ctx, r.key, provider).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to read credential %s: %w", provider, err)
	}

	return token, true, nil
}

func (r *RedisStore) Set(ctx context.Context, provider, token string) error {
	if provider == "" {
		return ErrEmptyProvider
	}

	err := r.client.HSet(ctx, r.key, provider, token).Err()
	if err != nil {
		return fmt.Errorf("failed to store credential %s: %w", provider, err)
	}

	return nil
}

func (r *RedisStore) Clear(ctx context.Context, provider string) error {
	err := r.client.HDel(ctx, r.key, provider, provider+accountSuffix).Err()
	if err != nil {
		return fmt.Errorf("failed to clear credential %s: %w", provider, err)
	}

	return nil
}

// SetAccount records the account name shown next to a connected provider.
func (r *RedisStore) SetAccount(ctx context.Context, provider, account string) error {
	err := r.client.HSet(ctx, r.key, provider+accountSuffix, account).Err()
	if err != nil {
		return fmt.Errorf("failed to store account for %s: %w", provider, err)
	}

	return nil
}

func (r *RedisStore) Account(ctx context.Context, provider string) string {
	account, err := r.client.HGet(ctx, r.key, provider+accountSuffix).Result()
	if err != nil {
		return ""
	}

	return account
}
