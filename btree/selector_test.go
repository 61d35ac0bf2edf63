package btree

import "testing"

func TestSelector_FirstSuccessWins(t *testing.T) {
	// Scenario: [F, F, S] returns SUCCESS with counts [1, 1, 1].
	a, ca := failing("a")
	b, cb := failing("b")
	c, cc := succeeding("c")
	sel := NewSelector("sel", "", a, b, c)

	if st := mustTick(t, sel, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if *ca != 1 || *cb != 1 || *cc != 1 {
		t.Errorf("execution counts = [%d %d %d], want [1 1 1]", *ca, *cb, *cc)
	}
}

func TestSelector_SuccessShortCircuits(t *testing.T) {
	a, ca := succeeding("a")
	b, cb := succeeding("b")
	sel := NewSelector("sel", "", a, b)

	if st := mustTick(t, sel, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if *ca != 1 || *cb != 0 {
		t.Errorf("execution counts = [%d %d], want [1 0]", *ca, *cb)
	}
}

func TestSelector_AllFail(t *testing.T) {
	a, _ := failing("a")
	b, _ := failing("b")
	sel := NewSelector("sel", "", a, b)

	if st := mustTick(t, sel, newTestContext()); st != StatusFailure {
		t.Fatalf("status = %v, want failure", st)
	}
}

func TestSelector_Empty(t *testing.T) {
	sel := NewSelector("sel", "")
	if st := mustTick(t, sel, newTestContext()); st != StatusFailure {
		t.Fatalf("empty selector = %v, want failure", st)
	}
}

func TestSelector_RunningResumesAtCursor(t *testing.T) {
	a, ca := failing("a")
	b, _ := scripted("b", StatusRunning, StatusSuccess)
	sel := NewSelector("sel", "", a, b)
	tc := newTestContext()

	if st := mustTick(t, sel, tc); st != StatusRunning {
		t.Fatalf("first tick = %v, want running", st)
	}
	if st := mustTick(t, sel, tc); st != StatusSuccess {
		t.Fatalf("second tick = %v, want success", st)
	}
	if *ca != 1 {
		t.Errorf("failed child re-ticked %d times, want 1", *ca)
	}
}
