package btree

import (
	"context"
	"time"
)

// Timeout bounds an activation of its child.
//
// The deadline starts on the first tick of an activation. On every
// subsequent tick the deadline is checked first: once exceeded, the child
// is halted and the decorator fails. Otherwise the tick delegates to the
// child.
//
// The clock is injectable for tests; it defaults to time.Now.
type Timeout struct {
	decorator
	timeout  time.Duration
	deadline time.Time
	armed    bool
	now      func() time.Time
}

// NewTimeout creates a timeout decorator around child.
func NewTimeout(id, name string, timeout time.Duration, child Node) *Timeout {
	t := &Timeout{
		decorator: newDecorator(id, name, "timeout", child),
		timeout:   timeout,
		now:       time.Now,
	}
	attach(t, child)
	return t
}

// WithClock overrides the time source. Test hook.
func (t *Timeout) WithClock(now func() time.Time) *Timeout {
	t.now = now
	return t
}

// Tick implements Node.
func (t *Timeout) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return t.tick(ctx, tc, t.executeTick)
}

func (t *Timeout) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if t.timeout <= 0 {
		return StatusFailure, &ConfigurationError{
			NodeType: t.typ, NodeID: t.id, Field: "timeout",
			Hint: "timeout must be positive",
		}
	}
	if !t.armed {
		t.deadline = t.now().Add(t.timeout)
		t.armed = true
	} else if t.now().After(t.deadline) {
		t.haltChild()
		t.armed = false
		return StatusFailure, nil
	}

	st, err := t.child.Tick(ctx, tc)
	if err != nil {
		t.armed = false
		return StatusFailure, err
	}
	if st != StatusRunning {
		t.armed = false
	}
	return st, nil
}

// Halt implements Node.
func (t *Timeout) Halt() {
	if t.status != StatusRunning {
		return
	}
	t.haltChild()
	t.armed = false
	t.resetBase()
}

// Reset implements Node.
func (t *Timeout) Reset() {
	t.child.Reset()
	t.armed = false
	t.resetBase()
}

// Clone implements Node.
func (t *Timeout) Clone() Node {
	cp := &Timeout{
		decorator: decorator{baseNode: t.cloneBase()},
		timeout:   t.timeout,
		now:       t.now,
	}
	cp.child = t.child.Clone()
	cp.child.setParent(cp)
	return cp
}
