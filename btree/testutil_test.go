package btree

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scripted creates an action leaf that returns the scripted statuses in
// order (repeating the last one when exhausted) and counts executions.
// Skipped envelopes do not advance the script or the counter.
func scripted(id string, script ...Status) (*Action, *int) {
	count := new(int)
	idx := 0
	action := NewAction(id, "", func(_ context.Context, _ *TickContext) (Status, error) {
		*count++
		i := idx
		if i >= len(script) {
			i = len(script) - 1
		}
		idx++
		return script[i], nil
	})
	return action, count
}

// succeeding returns a leaf that always succeeds, with its execution
// counter.
func succeeding(id string) (*Action, *int) {
	return scripted(id, StatusSuccess)
}

// failing returns a leaf that always fails, with its execution counter.
func failing(id string) (*Action, *int) {
	return scripted(id, StatusFailure)
}

// erroring returns a leaf whose body raises the given error.
func erroring(id string, err error) *Action {
	return NewAction(id, "", func(_ context.Context, _ *TickContext) (Status, error) {
		return StatusFailure, err
	})
}

// resolvableCondition returns a condition that reflects *flag and counts
// checks.
func resolvableCondition(flag *bool) (*Condition, *int) {
	count := new(int)
	cond := NewCondition("resolvable", "", func(_ context.Context, _ *TickContext) (bool, error) {
		*count++
		return *flag, nil
	})
	return cond, count
}

// resolverAction returns an action that sets *flag and counts runs.
func resolverAction(id string, flag *bool) (*Action, *int) {
	count := new(int)
	action := NewAction(id, "", func(_ context.Context, _ *TickContext) (Status, error) {
		*count++
		*flag = true
		return StatusSuccess, nil
	})
	return action, count
}

// tContext is shorthand for a background context in tests.
func tContext() context.Context {
	return context.Background()
}

// newTestContext creates a tick context with a fresh blackboard and
// operation table.
func newTestContext() *TickContext {
	return NewTickContext()
}

// mustTick ticks the node and fails the test on an unexpected error.
func mustTick(t *testing.T, n Node, tc *TickContext) Status {
	t.Helper()
	st, err := n.Tick(context.Background(), tc)
	if err != nil {
		t.Fatalf("unexpected tick error: %v", err)
	}
	return st
}

// tickUntilSettled re-ticks a node until it leaves StatusRunning, with a
// small sleep between ticks for async leaves, failing the test if it
// never settles.
func tickUntilSettled(t *testing.T, n Node, tc *TickContext) Status {
	t.Helper()
	for i := 0; i < 500; i++ {
		st := mustTick(t, n, tc)
		if st != StatusRunning {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("node never left StatusRunning")
	return StatusIdle
}

// configErrOf fails the test unless err is a ConfigurationError.
func configErrOf(t *testing.T, err error) *ConfigurationError {
	t.Helper()
	var cfg *ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	return cfg
}
