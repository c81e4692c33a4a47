// Package abuse accumulates per-connection report counts and decides when a
// participant has to be ejected. Scores are connection-scoped: they are
// discarded when the participant disconnects and never follow a user across
// reconnects.
package abuse

import (
	"sync"
)

// Threshold is the number of accumulated reports a participant may carry
// before ejection: the report that pushes the count past it (the 4th)
// triggers the kick.
const Threshold = 3

// Scorer tracks report counts per socket id.
type Scorer struct {
	mu     sync.Mutex
	scores map[string]int
}

// NewScorer creates an empty scorer.
func NewScorer() *Scorer {
	return &Scorer{scores: make(map[string]int)}
}

// Report increments the target's score and reports whether the target
// crossed the ejection threshold with this report. Only the crossing report
// returns true, so a participant is ejected exactly once.
func (s *Scorer) Report(socketID string) (count int, eject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[socketID]++
	count = s.scores[socketID]
	return count, count == Threshold+1
}

// Score returns the current report count for a socket id.
func (s *Scorer) Score(socketID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[socketID]
}

// Forget drops the participant's score on disconnect.
func (s *Scorer) Forget(socketID string) {
	s.mu.Lock()
	delete(s.scores, socketID)
	s.mu.Unlock()
}
