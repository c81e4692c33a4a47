package abuse

import (
	"testing"
)

func TestReport_EjectsOnFourthReport(t *testing.T) {
	s := NewScorer()

	for i := 1; i <= Threshold; i++ {
		count, eject := s.Report("target")
		if count != i {
			t.Errorf("report %d: count = %d", i, count)
		}
		if eject {
			t.Errorf("report %d must not eject yet", i)
		}
	}

	count, eject := s.Report("target")
	if count != Threshold+1 {
		t.Errorf("count = %d, want %d", count, Threshold+1)
	}
	if !eject {
		t.Error("the 4th report must eject")
	}
}

func TestReport_EjectsExactlyOnce(t *testing.T) {
	s := NewScorer()

	ejections := 0
	for i := 0; i < 10; i++ {
		if _, eject := s.Report("target"); eject {
			ejections++
		}
	}
	if ejections != 1 {
		t.Errorf("expected exactly 1 ejection, got %d", ejections)
	}
}

func TestReport_CountsAreIndependent(t *testing.T) {
	s := NewScorer()

	s.Report("a")
	s.Report("a")
	s.Report("b")

	if got := s.Score("a"); got != 2 {
		t.Errorf("Score(a) = %d, want 2", got)
	}
	if got := s.Score("b"); got != 1 {
		t.Errorf("Score(b) = %d, want 1", got)
	}
}

func TestForget_ResetsScore(t *testing.T) {
	s := NewScorer()

	s.Report("a")
	s.Report("a")
	s.Forget("a")

	if got := s.Score("a"); got != 0 {
		t.Errorf("Score after Forget = %d, want 0", got)
	}

	// A fresh connection with the same id starts from zero.
	if _, eject := s.Report("a"); eject {
		t.Error("first report after Forget must not eject")
	}
}
