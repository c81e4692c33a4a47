package sessions

import (
	"testing"
)

func TestCreateAndLookup(t *testing.T) {
	r := NewRegistry()

	id := r.Create("alice", "bob")
	if id == "" {
		t.Fatal("expected a non-empty session id")
	}

	s, ok := r.Lookup(id)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if s.A != "alice" || s.B != "bob" {
		t.Errorf("unexpected pair: %q / %q", s.A, s.B)
	}
}

func TestCreate_IDsAreUnique(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := r.Create("a", "b")
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestPeer(t *testing.T) {
	s := Session{ID: "x", A: "alice", B: "bob"}

	if got := s.Peer("alice"); got != "bob" {
		t.Errorf("Peer(alice) = %q, want bob", got)
	}
	if got := s.Peer("bob"); got != "alice" {
		t.Errorf("Peer(bob) = %q, want alice", got)
	}
	if got := s.Peer("carol"); got != "" {
		t.Errorf("Peer(carol) = %q, want empty", got)
	}
}

func TestActive(t *testing.T) {
	r := NewRegistry()

	if r.Active("alice") {
		t.Error("alice should not be active in an empty registry")
	}

	r.Create("alice", "bob")
	if !r.Active("alice") || !r.Active("bob") {
		t.Error("both pair members should be active")
	}
	if r.Active("carol") {
		t.Error("carol is not in any session")
	}
}

func TestDropAllInvolving(t *testing.T) {
	r := NewRegistry()

	id1 := r.Create("alice", "bob")
	id2 := r.Create("carol", "dave")

	dropped := r.DropAllInvolving("alice")
	if len(dropped) != 1 {
		t.Fatalf("expected 1 dropped session, got %d", len(dropped))
	}
	if dropped[0].ID != id1 {
		t.Errorf("expected session %q dropped, got %q", id1, dropped[0].ID)
	}
	if dropped[0].Peer("alice") != "bob" {
		t.Errorf("expected peer bob, got %q", dropped[0].Peer("alice"))
	}

	if _, ok := r.Lookup(id1); ok {
		t.Error("dropped session should be gone")
	}
	if _, ok := r.Lookup(id2); !ok {
		t.Error("unrelated session should survive")
	}
}

func TestDropAllInvolving_NoSessions(t *testing.T) {
	r := NewRegistry()
	if dropped := r.DropAllInvolving("ghost"); len(dropped) != 0 {
		t.Errorf("expected no dropped sessions, got %d", len(dropped))
	}
}

// The registry must not assume a participant is in at most one session.
func TestDropAllInvolving_MultipleSessions(t *testing.T) {
	r := NewRegistry()

	r.Create("alice", "bob")
	r.Create("alice", "carol")

	dropped := r.DropAllInvolving("alice")
	if len(dropped) != 2 {
		t.Fatalf("expected 2 dropped sessions, got %d", len(dropped))
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d sessions", r.Count())
	}
}
