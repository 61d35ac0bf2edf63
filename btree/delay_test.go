package btree

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelay_WaitsThenDelegates(t *testing.T) {
	var slept []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	child, count := succeeding("child")
	d := NewDelay("delay", "", 25*time.Millisecond, child).WithSleeper(sleeper)
	tc := newTestContext()

	if st := mustTick(t, d, tc); st != StatusRunning {
		t.Fatalf("first tick = %v, want running (delay consumed)", st)
	}
	if *count != 0 {
		t.Fatalf("child ticked during the delay tick")
	}
	if st := mustTick(t, d, tc); st != StatusSuccess {
		t.Fatalf("second tick = %v, want success", st)
	}
	if len(slept) != 1 || slept[0] != 25*time.Millisecond {
		t.Errorf("slept %v, want one wait of 25ms", slept)
	}
}

func TestDelay_WaitOncePerActivation(t *testing.T) {
	waits := 0
	sleeper := func(_ context.Context, _ time.Duration) error {
		waits++
		return nil
	}

	child, _ := scripted("child", StatusRunning, StatusSuccess)
	d := NewDelay("delay", "", time.Millisecond, child).WithSleeper(sleeper)
	tc := newTestContext()

	mustTick(t, d, tc) // wait
	mustTick(t, d, tc) // child running
	mustTick(t, d, tc) // child success
	if waits != 1 {
		t.Errorf("waited %d times in one activation, want 1", waits)
	}

	// Next activation waits again.
	mustTick(t, d, tc)
	if waits != 2 {
		t.Errorf("waited %d times across two activations, want 2", waits)
	}
}

func TestDelay_CancelledWaitIsFatal(t *testing.T) {
	cause := errors.New("shutting down")
	sleeper := func(_ context.Context, _ time.Duration) error {
		return cause
	}

	child, _ := succeeding("child")
	d := NewDelay("delay", "", time.Second, child).WithSleeper(sleeper)

	_, err := d.Tick(tContext(), newTestContext())
	var cancelled *CancellationError
	if !errors.As(err, &cancelled) {
		t.Fatalf("expected CancellationError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestSleepCtx_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Minute); err == nil {
		t.Fatal("expected error from cancelled sleep")
	}
}
