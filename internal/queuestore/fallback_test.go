package queuestore

import (
	"context"
	"errors"
	"testing"
)

// flakyStore fails every call while broken is true, otherwise delegates to
// an in-process store standing in for the durable backend.
type flakyStore struct {
	backend *MemoryStore
	broken  bool
}

var errBackendDown = errors.New("backend unavailable")

func (s *flakyStore) Push(ctx context.Context, filterKey, socketID string) error {
	if s.broken {
		return errBackendDown
	}
	return s.backend.Push(ctx, filterKey, socketID)
}

func (s *flakyStore) Pop(ctx context.Context, filterKey string) (string, error) {
	if s.broken {
		return "", errBackendDown
	}
	return s.backend.Pop(ctx, filterKey)
}

func (s *flakyStore) Remove(ctx context.Context, filterKey, socketID string) error {
	if s.broken {
		return errBackendDown
	}
	return s.backend.Remove(ctx, filterKey, socketID)
}

func TestFallback_UsesDurableWhenHealthy(t *testing.T) {
	durable := &flakyStore{backend: NewMemoryStore()}
	local := NewMemoryStore()
	f := NewFallback(durable, local)
	ctx := context.Background()

	if err := f.Push(ctx, "all", "a"); err != nil {
		t.Fatalf("Push error: %v", err)
	}

	// The entry must live in the durable backend, not the local store.
	if n := local.Len("all"); n != 0 {
		t.Errorf("expected local store untouched, got %d entries", n)
	}
	got, err := f.Pop(ctx, "all")
	if err != nil {
		t.Fatalf("Pop error: %v", err)
	}
	if got != "a" {
		t.Errorf("expected a, got %q", got)
	}
}

func TestFallback_DegradesPerCall(t *testing.T) {
	durable := &flakyStore{backend: NewMemoryStore(), broken: true}
	local := NewMemoryStore()
	f := NewFallback(durable, local)
	ctx := context.Background()

	// Backend down: push lands in the local store.
	if err := f.Push(ctx, "all", "a"); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if n := local.Len("all"); n != 1 {
		t.Fatalf("expected 1 local entry, got %d", n)
	}

	// Backend down: pop drains the local store.
	got, err := f.Pop(ctx, "all")
	if err != nil {
		t.Fatalf("Pop error: %v", err)
	}
	if got != "a" {
		t.Errorf("expected a from local store, got %q", got)
	}
}

func TestFallback_NoMigrationAfterRecovery(t *testing.T) {
	durable := &flakyStore{backend: NewMemoryStore(), broken: true}
	local := NewMemoryStore()
	f := NewFallback(durable, local)
	ctx := context.Background()

	f.Push(ctx, "all", "stranded")

	// Backend recovers. The stranded local entry is not visible via the
	// durable path: pops hit the durable backend and find nothing.
	durable.broken = false

	got, err := f.Pop(ctx, "all")
	if err != nil {
		t.Fatalf("Pop error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty durable queue after recovery, got %q", got)
	}
	if n := local.Len("all"); n != 1 {
		t.Errorf("stranded entry should remain local until removed or expired, got %d", n)
	}
}

func TestFallback_RemoveSweepsBothBackends(t *testing.T) {
	durable := &flakyStore{backend: NewMemoryStore()}
	local := NewMemoryStore()
	f := NewFallback(durable, local)
	ctx := context.Background()

	// One copy queued durably, one stranded locally from an outage.
	durable.backend.Push(ctx, "all", "a")
	local.Push(ctx, "all", "a")

	if err := f.Remove(ctx, "all", "a"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	if got, _ := durable.backend.Pop(ctx, "all"); got != "" {
		t.Errorf("durable entry should be removed, got %q", got)
	}
	if n := local.Len("all"); n != 0 {
		t.Errorf("local entry should be removed, got %d entries", n)
	}
}

func TestFallback_RemoveSurvivesDurableError(t *testing.T) {
	durable := &flakyStore{backend: NewMemoryStore(), broken: true}
	local := NewMemoryStore()
	f := NewFallback(durable, local)
	ctx := context.Background()

	local.Push(ctx, "all", "a")

	if err := f.Remove(ctx, "all", "a"); err != nil {
		t.Fatalf("Remove should absorb the durable error, got: %v", err)
	}
	if n := local.Len("all"); n != 0 {
		t.Errorf("local entry should be removed, got %d entries", n)
	}
}
