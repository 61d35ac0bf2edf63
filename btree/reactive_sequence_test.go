package btree

import (
	"context"
	"testing"
)

func TestReactiveSequence_ReevaluatesFromStart(t *testing.T) {
	cond, cc := succeeding("cond")
	body, _ := scripted("body", StatusRunning, StatusRunning, StatusSuccess)
	seq := NewReactiveSequence("rseq", "", cond, body)
	tc := newTestContext()

	mustTick(t, seq, tc)
	mustTick(t, seq, tc)
	if st := mustTick(t, seq, tc); st != StatusSuccess {
		t.Fatalf("third tick = %v, want success", st)
	}
	// The condition is re-checked on every tick, unlike a plain Sequence.
	if *cc != 3 {
		t.Errorf("condition ticked %d times, want 3", *cc)
	}
}

func TestReactiveSequence_EarlierFailureHaltsRunningChild(t *testing.T) {
	flip := true
	cond := NewCondition("cond", "", func(_ context.Context, _ *TickContext) (bool, error) {
		ok := flip
		flip = false
		return ok, nil
	})
	body, _ := scripted("body", StatusRunning)
	seq := NewReactiveSequence("rseq", "", cond, body)
	tc := newTestContext()

	if st := mustTick(t, seq, tc); st != StatusRunning {
		t.Fatalf("first tick = %v, want running", st)
	}
	if body.Status() != StatusRunning {
		t.Fatalf("body = %v, want running", body.Status())
	}

	// Condition now fails; the running body must be halted.
	if st := mustTick(t, seq, tc); st != StatusFailure {
		t.Fatalf("second tick = %v, want failure", st)
	}
	if body.Status() != StatusIdle {
		t.Errorf("body after condition failure = %v, want idle (halted)", body.Status())
	}
}
