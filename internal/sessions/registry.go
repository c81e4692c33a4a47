// Package sessions tracks which two participants are paired under a session
// id. The registry is process-local: pairing, relay addressing, and abuse
// attribution only ever consult the instance that created the session.
package sessions

import (
	"sync"

	"github.com/google/uuid"
)

// Session is a confirmed pairing of two participants. The two slots are
// fixed for the session's lifetime; the pair itself is unordered.
type Session struct {
	ID string
	A  string
	B  string
}

// Peer returns the other member of the session, or "" when the given socket
// id is not part of it.
func (s Session) Peer(socketID string) string {
	switch socketID {
	case s.A:
		return s.B
	case s.B:
		return s.A
	}
	return ""
}

// Registry is a thread-safe map from session id to pairing.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Create registers a new session for the two participants and returns its
// freshly generated id.
func (r *Registry) Create(a, b string) string {
	id := uuid.New().String()

	r.mu.Lock()
	r.sessions[id] = Session{ID: id, A: a, B: b}
	r.mu.Unlock()

	return id
}

// Lookup returns the session for the given id.
func (r *Registry) Lookup(sessionID string) (Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	return s, ok
}

// Active reports whether the participant is part of any session.
func (r *Registry) Active(socketID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.A == socketID || s.B == socketID {
			return true
		}
	}
	return false
}

// DropAllInvolving removes every session the participant appears in and
// returns the removed sessions so the caller can notify the remaining
// peers. There should be at most one, but the registry does not assume it.
func (r *Registry) DropAllInvolving(socketID string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []Session
	for id, s := range r.sessions {
		if s.A == socketID || s.B == socketID {
			dropped = append(dropped, s)
			delete(r.sessions, id)
		}
	}
	return dropped
}

// Delete removes a session by id.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// Count returns the number of active sessions. Used by metrics.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.sessions)
	r.mu.RUnlock()
	return n
}
