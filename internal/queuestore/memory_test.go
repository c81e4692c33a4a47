package queuestore

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_FIFO(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

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
		t.Fatalf("Pop error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty queue, got %q", got)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Push(ctx, "en", "alice")
	s.Push(ctx, "fr", "bob")

	got, _ := s.Pop(ctx, "en")
	if got != "alice" {
		t.Errorf("expected alice from en queue, got %q", got)
	}
	got, _ = s.Pop(ctx, "en")
	if got != "" {
		t.Errorf("en queue should be empty, got %q", got)
	}
	got, _ = s.Pop(ctx, "fr")
	if got != "bob" {
		t.Errorf("expected bob from fr queue, got %q", got)
	}
}

func TestMemoryStore_RemoveIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Push(ctx, "all", "a")
	s.Push(ctx, "all", "b")

	if err := s.Remove(ctx, "all", "a"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	// Second remove of the same id must be a silent no-op.
	if err := s.Remove(ctx, "all", "a"); err != nil {
		t.Fatalf("repeat Remove error: %v", err)
	}
	// Removing from a key that never existed is also fine.
	if err := s.Remove(ctx, "nope", "a"); err != nil {
		t.Fatalf("Remove on missing key error: %v", err)
	}

	got, _ := s.Pop(ctx, "all")
	if got != "b" {
		t.Errorf("expected b to survive, got %q", got)
	}
}

func TestMemoryStore_ExpiredEntriesAreSkipped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	s.Push(ctx, "all", "stale")

	// Advance past the retention window, then push a fresh entry.
	now = now.Add(RetentionWindow + time.Minute)
	s.Push(ctx, "all", "fresh")

	got, err := s.Pop(ctx, "all")
	if err != nil {
		t.Fatalf("Pop error: %v", err)
	}
	if got != "fresh" {
		t.Errorf("expected stale entry to expire, got %q", got)
	}
}

func TestMemoryStore_RemoveEverywhere(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Push(ctx, "en", "x")
	s.Push(ctx, "en", "y")
	s.Push(ctx, "fr", "x")

	s.RemoveEverywhere("x")

	if got, _ := s.Pop(ctx, "en"); got != "y" {
		t.Errorf("expected y in en queue, got %q", got)
	}
	if got, _ := s.Pop(ctx, "fr"); got != "" {
		t.Errorf("expected empty fr queue, got %q", got)
	}
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if n := s.Len("all"); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
	s.Push(ctx, "all", "a")
	s.Push(ctx, "all", "b")
	if n := s.Len("all"); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}
