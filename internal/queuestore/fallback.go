package queuestore

import (
	"context"
	"log"
)

// Fallback routes each call to the durable store first and degrades to the
// in-process store for that single call when the durable backend errors.
// There is no retry within a call and no migration of fallback state back to
// the durable backend once it recovers: a mid-session backend failure is an
// accepted, logged inconsistency.
//
// Remove is the one exception: it always sweeps the in-process store too, so
// a participant queued locally during an outage does not linger after its
// disconnect even when the durable backend answers again.
type Fallback struct {
	durable Store
	local   *MemoryStore
}

// NewFallback wraps the durable store with in-process degradation.
func NewFallback(durable Store, local *MemoryStore) *Fallback {
	return &Fallback{durable: durable, local: local}
}

// Push appends to the durable queue, or to the in-process queue when the
// durable backend fails.
func (f *Fallback) Push(ctx context.Context, filterKey, socketID string) error {
	if err := f.durable.Push(ctx, filterKey, socketID); err != nil {
		log.Printf("queuestore: durable push failed, using in-process queue key=%s: %v", filterKey, err)
		return f.local.Push(ctx, filterKey, socketID)
	}
	return nil
}

// Pop takes from the durable queue, or from the in-process queue when the
// durable backend fails.
func (f *Fallback) Pop(ctx context.Context, filterKey string) (string, error) {
	id, err := f.durable.Pop(ctx, filterKey)
	if err != nil {
		log.Printf("queuestore: durable pop failed, using in-process queue key=%s: %v", filterKey, err)
		return f.local.Pop(ctx, filterKey)
	}
	return id, nil
}

// Remove issues a best-effort durable remove and always removes from the
// in-process queue as well.
func (f *Fallback) Remove(ctx context.Context, filterKey, socketID string) error {
	if err := f.durable.Remove(ctx, filterKey, socketID); err != nil {
		log.Printf("queuestore: durable remove failed key=%s id=%s: %v", filterKey, socketID, err)
	}
	return f.local.Remove(ctx, filterKey, socketID)
}

// Local exposes the in-process store for disconnect sweeps.
func (f *Fallback) Local() *MemoryStore {
	return f.local
}
