package btree

import (
	"context"
	"errors"
	"testing"
)

func TestRecovery_TrySuccessSkipsCatch(t *testing.T) {
	try, _ := succeeding("try")
	catch, cc := succeeding("catch")
	r := NewRecovery("rec", "", try, catch, nil)

	if st := mustTick(t, r, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if *cc != 0 {
		t.Errorf("catch ran %d times, want 0", *cc)
	}
}

func TestRecovery_CatchHandlesFailure(t *testing.T) {
	try, _ := failing("try")
	catch, cc := succeeding("catch")
	r := NewRecovery("rec", "", try, catch, nil)

	if st := mustTick(t, r, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success (catch result)", st)
	}
	if *cc != 1 {
		t.Errorf("catch ran %d times, want 1", *cc)
	}
}

func TestRecovery_NoCatchFailureStands(t *testing.T) {
	try, _ := failing("try")
	fin, cf := succeeding("finally")
	r := NewRecoveryFinally("rec", "", try, fin)

	if st := mustTick(t, r, newTestContext()); st != StatusFailure {
		t.Fatalf("status = %v, want failure", st)
	}
	if *cf != 1 {
		t.Errorf("finally ran %d times, want 1", *cf)
	}
}

func TestRecovery_FinallyStatusIgnored(t *testing.T) {
	try, _ := succeeding("try")
	catch, _ := succeeding("catch")
	fin, _ := failing("finally")
	r := NewRecovery("rec", "", try, catch, fin)

	if st := mustTick(t, r, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success (finally result ignored)", st)
	}
}

func TestRecovery_FatalErrorBypassesCatchAndFinally(t *testing.T) {
	try := NewAction("try", "", func(_ context.Context, _ *TickContext) (Status, error) {
		return StatusFailure, &ConfigurationError{NodeType: "action", NodeID: "try", Hint: "broken"}
	})
	catch, cc := succeeding("catch")
	fin, cf := succeeding("finally")
	r := NewRecovery("rec", "", try, catch, fin)

	_, err := r.Tick(tContext(), newTestContext())
	if err == nil || !IsFatal(err) {
		t.Fatalf("expected fatal error to propagate, got %v", err)
	}
	if *cc != 0 || *cf != 0 {
		t.Errorf("catch/finally ran [%d %d] times on fatal error, want [0 0]", *cc, *cf)
	}
}

func TestRecovery_NonFatalErrorIsCaught(t *testing.T) {
	try := erroring("try", errors.New("transient"))
	catch, cc := succeeding("catch")
	r := NewRecovery("rec", "", try, catch, nil)

	// The try leaf's envelope converts the plain error into its own
	// StatusFailure, which the catch branch then handles.
	if st := mustTick(t, r, newTestContext()); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if *cc != 1 {
		t.Errorf("catch ran %d times, want 1", *cc)
	}
}

func TestRecovery_RunningPhasesPersist(t *testing.T) {
	try, _ := scripted("try", StatusRunning, StatusFailure)
	catch, _ := scripted("catch", StatusRunning, StatusSuccess)
	r := NewRecovery("rec", "", try, catch, nil)
	tc := newTestContext()

	if st := mustTick(t, r, tc); st != StatusRunning {
		t.Fatalf("tick 1 = %v, want running (try in flight)", st)
	}
	if st := mustTick(t, r, tc); st != StatusRunning {
		t.Fatalf("tick 2 = %v, want running (catch in flight)", st)
	}
	if st := mustTick(t, r, tc); st != StatusSuccess {
		t.Fatalf("tick 3 = %v, want success", st)
	}
}
