package queuestore

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is one waiting participant with its enqueue time, kept so the
// retention window can be enforced without a background sweeper.
type memoryEntry struct {
	socketID string
	queuedAt time.Time
}

// MemoryStore keeps waiting queues in process memory. It is the standalone
// backend for single-instance deployments and the degrade target of
// Fallback. Expiry is lazy: stale entries are skipped on pop and whole-queue
// staleness is pruned on push.
type MemoryStore struct {
	mu     sync.Mutex
	queues map[string][]memoryEntry
	now    func() time.Time // swappable clock for tests
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		queues: make(map[string][]memoryEntry),
		now:    time.Now,
	}
}

// Push appends the socket id to the tail of the filter key's queue.
func (s *MemoryStore) Push(ctx context.Context, filterKey, socketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(filterKey)
	s.queues[filterKey] = append(s.queues[filterKey], memoryEntry{
		socketID: socketID,
		queuedAt: s.now(),
	})
	return nil
}

// Pop removes and returns the oldest non-expired socket id for the filter
// key, or "" when the queue holds no live entries.
func (s *MemoryStore) Pop(ctx context.Context, filterKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-RetentionWindow)
	q := s.queues[filterKey]
	for len(q) > 0 {
		head := q[0]
		q = q[1:]
		if head.queuedAt.Before(cutoff) {
			continue // abandoned entry, fell out of the retention window
		}
		s.storeLocked(filterKey, q)
		return head.socketID, nil
	}
	s.storeLocked(filterKey, q)
	return "", nil
}

// Remove deletes the first occurrence of the socket id from the filter
// key's queue. A miss is not an error.
func (s *MemoryStore) Remove(ctx context.Context, filterKey, socketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[filterKey]
	for i, entry := range q {
		if entry.socketID == socketID {
			s.storeLocked(filterKey, append(q[:i:i], q[i+1:]...))
			return nil
		}
	}
	return nil
}

// RemoveEverywhere deletes every occurrence of the socket id across all
// queues. Disconnect cleanup uses this because the participant's last filter
// key may be unknown by the time the transport reports the drop.
func (s *MemoryStore) RemoveEverywhere(socketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, q := range s.queues {
		kept := q[:0]
		for _, entry := range q {
			if entry.socketID != socketID {
				kept = append(kept, entry)
			}
		}
		s.storeLocked(key, kept)
	}
}

// Len reports how many live entries the filter key's queue holds.
func (s *MemoryStore) Len(filterKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-RetentionWindow)
	n := 0
	for _, entry := range s.queues[filterKey] {
		if !entry.queuedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops entries that fell out of the retention window from the
// head of the queue. Callers must hold s.mu.
func (s *MemoryStore) pruneLocked(filterKey string) {
	cutoff := s.now().Add(-RetentionWindow)
	q := s.queues[filterKey]
	for len(q) > 0 && q[0].queuedAt.Before(cutoff) {
		q = q[1:]
	}
	s.storeLocked(filterKey, q)
}

// storeLocked writes the queue back, deleting the map entry when it drained.
// Callers must hold s.mu.
func (s *MemoryStore) storeLocked(filterKey string, q []memoryEntry) {
	if len(q) == 0 {
		delete(s.queues, filterKey)
		return
	}
	s.queues[filterKey] = q
}
