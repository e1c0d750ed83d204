package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the slot in a Redis string. Retention, when positive, lets
// Redis drop an abandoned slot; it is unrelated to the freshness window.
type Redis struct {
	client    redis.UniversalClient
	key       string
	retention time.Duration
}

func NewRedis(client redis.UniversalClient, key string, retention time.Duration) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key, retention: retention}
}

func (r *Redis) Get(ctx context.Context) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, value []byte) error {
	if err := r.client.Set(ctx, r.key, value, r.retention).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}
