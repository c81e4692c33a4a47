package queuestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps waiting queues in Redis lists under "waiting:<filterKey>"
// so that multiple server instances share one matchmaking pool. LPOP gives
// the atomic pop-and-pair primitive; LREM gives idempotent removal.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore using the provided client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects to Redis at addr and verifies the connection.
func NewRedisClient(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queuestore: redis connection failed: %w", err)
	}
	return client, nil
}

// Push appends the socket id to the tail of the filter key's queue and
// refreshes the queue's retention window.
func (s *RedisStore) Push(ctx context.Context, filterKey, socketID string) error {
	key := KeyPrefix + filterKey

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, socketID)
	pipe.Expire(ctx, key, RetentionWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queuestore: redis push %s: %w", key, err)
	}
	return nil
}

// Pop removes and returns the oldest waiting socket id for the filter key.
// Returns "" when the queue is empty.
func (s *RedisStore) Pop(ctx context.Context, filterKey string) (string, error) {
	key := KeyPrefix + filterKey

	id, err := s.client.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("queuestore: redis pop %s: %w", key, err)
	}
	return id, nil
}

// Remove deletes the first occurrence of the socket id from the filter key's
// queue. Removing an id that is no longer queued is a no-op.
func (s *RedisStore) Remove(ctx context.Context, filterKey, socketID string) error {
	key := KeyPrefix + filterKey

	if err := s.client.LRem(ctx, key, 1, socketID).Err(); err != nil {
		return fmt.Errorf("queuestore: redis remove %s: %w", key, err)
	}
	return nil
}

// Len reports the current depth of the filter key's queue. Used by metrics.
func (s *RedisStore) Len(ctx context.Context, filterKey string) (int64, error) {
	n, err := s.client.LLen(ctx, KeyPrefix+filterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queuestore: redis len %s: %w", KeyPrefix+filterKey, err)
	}
	return n, nil
}
