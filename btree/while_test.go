package btree

import (
	"context"
	"testing"
)

// countdownCondition succeeds n times, then fails.
func countdownCondition(id string, n int) (*Condition, *int) {
	count := new(int)
	remaining := n
	cond := NewCondition(id, "", func(_ context.Context, _ *TickContext) (bool, error) {
		*count++
		if remaining > 0 {
			remaining--
			return true, nil
		}
		return false, nil
	})
	return cond, count
}

func TestWhile_LoopsUntilConditionFails(t *testing.T) {
	cond, _ := countdownCondition("cond", 3)
	body, cb := succeeding("body")
	w := NewWhile("while", "", cond, body, 0)

	if st := mustTick(t, w, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success (condition exhausted)", st)
	}
	if *cb != 3 {
		t.Errorf("body ran %d times, want 3", *cb)
	}
}

func TestWhile_BodyFailureFailsLoop(t *testing.T) {
	cond, _ := countdownCondition("cond", 10)
	body, _ := failing("body")
	w := NewWhile("while", "", cond, body, 0)

	if st := mustTick(t, w, newTestContext()); st != StatusFailure {
		t.Fatalf("status = %v, want failure", st)
	}
}

func TestWhile_MaxIterationsFails(t *testing.T) {
	cond, _ := countdownCondition("cond", 1000)
	body, cb := succeeding("body")
	w := NewWhile("while", "", cond, body, 5)

	if st := mustTick(t, w, newTestContext()); st != StatusFailure {
		t.Fatalf("status = %v, want failure (iteration budget exhausted)", st)
	}
	if *cb != 5 {
		t.Errorf("body ran %d times, want 5", *cb)
	}
}

func TestWhile_ConditionNotRecheckedWhileBodyRunning(t *testing.T) {
	cond, cc := countdownCondition("cond", 10)
	body, _ := scripted("body", StatusRunning, StatusRunning, StatusFailure)
	w := NewWhile("while", "", cond, body, 0)
	tc := newTestContext()

	mustTick(t, w, tc)
	mustTick(t, w, tc)
	if st := mustTick(t, w, tc); st != StatusFailure {
		t.Fatalf("third tick = %v, want failure", st)
	}
	if *cc != 1 {
		t.Errorf("condition ticked %d times while body was running, want 1", *cc)
	}
}

func TestWhile_RunningConditionSuspends(t *testing.T) {
	slow, _ := scripted("slowcond", StatusRunning, StatusFailure)
	body, cb := succeeding("body")
	w := NewWhile("while", "", slow, body, 0)
	tc := newTestContext()

	if st := mustTick(t, w, tc); st != StatusRunning {
		t.Fatalf("first tick = %v, want running", st)
	}
	if st := mustTick(t, w, tc); st != StatusSuccess {
		t.Fatalf("second tick = %v, want success (condition failed -> loop done)", st)
	}
	if *cb != 0 {
		t.Errorf("body ran %d times, want 0", *cb)
	}
}
