package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/swipeclean/triage-api/pkg/errors"
)

// KVRepository implements the narrow get/set-string persistence contract the
// decision store writes through, backed by Redis.
type KVRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewKVRepository constructs a key-value repository.
func NewKVRepository(client *redis.Client, logger *zap.Logger) *KVRepository {
	return &KVRepository{client: client, logger: logger}
}

// Get retrieves the string stored under key. A missing key yields ErrKeyMiss.
func (r *KVRepository) Get(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrKeyMiss
	}
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrKeyMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry. Decision snapshots are complete
// list contents, so last-writer-wins at this layer is acceptable.
func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetTTL stores value under key with an expiry, used for derived-view caches.
func (r *KVRepository) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key if present.
func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *KVRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
