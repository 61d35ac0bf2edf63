package btree

import (
	"context"
	"testing"
)

func TestForEach_IteratesCollection(t *testing.T) {
	var seen []string
	body := NewAction("body", "", func(_ context.Context, tc *TickContext) (Status, error) {
		item, _ := tc.Blackboard.Get("item")
		seen = append(seen, item.(string))
		return StatusSuccess, nil
	})
	fe := NewForEach("fe", "", "items", "item", body)

	tc := newTestContext()
	tc.Blackboard.Set("items", []any{"x", "y", "z"})

	if st := mustTick(t, fe, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if len(seen) != 3 || seen[0] != "x" || seen[2] != "z" {
		t.Errorf("visited %v, want [x y z]", seen)
	}
}

func TestForEach_BodyFailureFails(t *testing.T) {
	body, cb := scripted("body", StatusSuccess, StatusFailure)
	fe := NewForEach("fe", "", "items", "item", body)

	tc := newTestContext()
	tc.Blackboard.Set("items", []any{1, 2, 3})

	if st := mustTick(t, fe, tc); st != StatusFailure {
		t.Fatalf("status = %v, want failure", st)
	}
	if *cb != 2 {
		t.Errorf("body ran %d times, want 2", *cb)
	}
}

func TestForEach_RunningBodySuspendsIteration(t *testing.T) {
	body, _ := scripted("body", StatusRunning, StatusSuccess, StatusSuccess)
	fe := NewForEach("fe", "", "items", "item", body)

	tc := newTestContext()
	tc.Blackboard.Set("items", []any{"a", "b"})

	if st := mustTick(t, fe, tc); st != StatusRunning {
		t.Fatalf("first tick = %v, want running", st)
	}
	if st := mustTick(t, fe, tc); st != StatusSuccess {
		t.Fatalf("second tick = %v, want success", st)
	}
}

func TestForEach_MissingCollectionIsConfigurationError(t *testing.T) {
	body, _ := succeeding("body")
	fe := NewForEach("fe", "", "missing", "item", body)

	_, err := fe.Tick(tContext(), newTestContext())
	cfg := configErrOf(t, err)
	if cfg.Field != "collection" {
		t.Errorf("error field = %q, want collection", cfg.Field)
	}
}

func TestForEach_StringSliceCollection(t *testing.T) {
	body, cb := succeeding("body")
	fe := NewForEach("fe", "", "items", "item", body)

	tc := newTestContext()
	tc.Blackboard.Set("items", []string{"a", "b"})

	if st := mustTick(t, fe, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if *cb != 2 {
		t.Errorf("body ran %d times, want 2", *cb)
	}
}
