// Package queuestore provides the waiting-queue storage used by matchmaking.
// Queues are FIFO lists of socket ids keyed by filter key. Two backends are
// available: a Redis-backed store shareable across server instances, and an
// in-process store. The Fallback wrapper combines them, degrading to the
// in-process store whenever a Redis call fails.
package queuestore

import (
	"context"
	"time"
)

const (
	// KeyPrefix is prepended to every filter key to form the storage key.
	KeyPrefix = "waiting:"

	// RetentionWindow bounds the lifetime of a waiting queue. Entries left
	// behind by abandoned connections expire with the queue rather than
	// accumulating forever. Every push refreshes the window.
	RetentionWindow = 1 * time.Hour
)

// Store is the uniform push/pop/remove contract over waiting queues.
//
// Pop returns the oldest waiting socket id for the filter key, or "" when
// the queue is empty. Remove is idempotent: removing an id that was already
// popped by a concurrent joiner is not an error.
type Store interface {
	Push(ctx context.Context, filterKey, socketID string) error
	Pop(ctx context.Context, filterKey string) (string, error)
	Remove(ctx context.Context, filterKey, socketID string) error
}
