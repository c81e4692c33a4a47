package matchmaking

import (
	"context"
	"errors"
	"sync"

	"github.com/pairwire/signaling/internal/queuestore"
	"github.com/pairwire/signaling/internal/sessions"
)

// ErrInSession is returned when a participant that is already part of an
// active session tries to join a waiting queue.
var ErrInSession = errors.New("matchmaking: participant is in an active session")

// JoinResult describes the outcome of a join request: either a fresh pairing
// or placement on the waiting queue.
type JoinResult struct {
	Matched   bool
	SessionID string
	PeerID    string
}

// Manager partitions waiting participants by filter key and performs the
// atomic pop-and-pair. Pop-and-pair for one filter key is a critical
// section: a per-key mutex ensures two participants joining the same key at
// the same instant cannot both claim one waiting peer, even when the backing
// store call suspends the handler.
type Manager struct {
	store    queuestore.Store
	registry *sessions.Registry

	mu        sync.Mutex
	queuedKey map[string]string      // socket id -> filter key it last joined
	keyLocks  map[string]*sync.Mutex // filter key -> pop-and-pair lock
}

// NewManager creates a Manager over the given store and session registry.
func NewManager(store queuestore.Store, registry *sessions.Registry) *Manager {
	return &Manager{
		store:     store,
		registry:  registry,
		queuedKey: make(map[string]string),
		keyLocks:  make(map[string]*sync.Mutex),
	}
}

// Join computes the participant's filter key, tries to pop a waiting peer
// under that key, and either pairs the two into a fresh session or enqueues
// the participant. A popped candidate equal to the requester (a stale copy
// of its own earlier entry) is treated as no candidate at all — a
// participant is never paired with itself.
func (m *Manager) Join(ctx context.Context, socketID string, filters map[string]string) (JoinResult, error) {
	if m.registry.Active(socketID) {
		return JoinResult{}, ErrInSession
	}

	// Re-joining moves the participant: drop any previous queue membership
	// before taking the new key's lock.
	m.Leave(ctx, socketID)

	key := FilterKey(filters)
	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	peer, err := m.store.Pop(ctx, key)
	if err != nil {
		return JoinResult{}, err
	}

	if peer != "" && peer != socketID {
		m.mu.Lock()
		delete(m.queuedKey, peer)
		m.mu.Unlock()

		sessionID := m.registry.Create(socketID, peer)
		return JoinResult{Matched: true, SessionID: sessionID, PeerID: peer}, nil
	}

	if err := m.store.Push(ctx, key, socketID); err != nil {
		return JoinResult{}, err
	}

	m.mu.Lock()
	m.queuedKey[socketID] = key
	m.mu.Unlock()

	return JoinResult{}, nil
}

// Leave removes the participant from whatever queue it last joined. It
// reports whether the participant was queued; leaving while not queued is a
// no-op. The underlying remove is idempotent, so a participant popped
// concurrently by another joiner cannot cause a double removal.
func (m *Manager) Leave(ctx context.Context, socketID string) bool {
	m.mu.Lock()
	key, ok := m.queuedKey[socketID]
	if ok {
		delete(m.queuedKey, socketID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	if err := m.store.Remove(ctx, key, socketID); err != nil {
		// The entry expires with the queue's retention window.
		return true
	}
	return true
}

// Queued reports whether the participant is currently on a waiting queue.
func (m *Manager) Queued(socketID string) bool {
	m.mu.Lock()
	_, ok := m.queuedKey[socketID]
	m.mu.Unlock()
	return ok
}

// lockFor returns the pop-and-pair mutex for a filter key, creating it on
// first use. Locks are retained for the process lifetime; the set of
// distinct filter keys is small and bounded by client filter vocabulary.
func (m *Manager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.keyLocks[key] = lock
	}
	return lock
}
