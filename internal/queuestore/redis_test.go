package queuestore

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// setupRedisStore creates a RedisStore connected to a test Redis instance.
// Requires Redis running on localhost:6379. Tests are skipped if unavailable.
func setupRedisStore(t *testing.T) (*RedisStore, context.Context) {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid conflicts
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: Redis not available: %v", err)
	}

	rdb.FlushDB(ctx)

	t.Cleanup(func() {
		rdb.FlushDB(ctx)
		rdb.Close()
	})

	return NewRedisStore(rdb), ctx
}

func TestRedisStore_FIFO(t *testing.T) {
	s, ctx := setupRedisStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Push(ctx, "all", id); err != nil {
			t.Fatalf("Push(%s) error: %v", id, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := s.Pop(ctx, "all")
		if err != nil {
			t.Fatalf("Pop error: %v", err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}

	got, err := s.Pop(ctx, "all")
	if err != nil {
		t.Fatalf("Pop on empty queue error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty queue, got %q", got)
	}
}

func TestRedisStore_PushSetsRetentionWindow(t *testing.T) {
	s, ctx := setupRedisStore(t)

	if err := s.Push(ctx, "en", "alice"); err != nil {
		t.Fatalf("Push error: %v", err)
	}

	ttl, err := s.client.TTL(ctx, KeyPrefix+"en").Result()
	if err != nil {
		t.Fatalf("TTL error: %v", err)
	}
	if ttl <= 0 || ttl > RetentionWindow {
		t.Errorf("expected TTL in (0, %s], got %s", RetentionWindow, ttl)
	}
}

func TestRedisStore_RemoveIsIdempotent(t *testing.T) {
	s, ctx := setupRedisStore(t)

	s.Push(ctx, "all", "a")
	s.Push(ctx, "all", "b")

	if err := s.Remove(ctx, "all", "a"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := s.Remove(ctx, "all", "a"); err != nil {
		t.Fatalf("repeat Remove error: %v", err)
	}

	got, _ := s.Pop(ctx, "all")
	if got != "b" {
		t.Errorf("expected b to survive, got %q", got)
	}
}

func TestRedisStore_Len(t *testing.T) {
	s, ctx := setupRedisStore(t)

	s.Push(ctx, "all", "a")
	s.Push(ctx, "all", "b")

	n, err := s.Len(ctx, "all")
	if err != nil {
		t.Fatalf("Len error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}
