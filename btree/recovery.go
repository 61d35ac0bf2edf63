package btree

import "context"

// recovery phases persisted across running ticks.
const (
	recoveryTry = iota
	recoveryCatch
	recoveryFinally
)

// Recovery is a try/catch/finally composite over 1 to 3 children: try,
// optional catch, optional finally.
//
// The try branch is ticked first. A failing try with a catch present hands
// the result to the catch branch; otherwise the try result stands. A
// finally branch, when present, runs after the main result is determined;
// its status is ignored.
//
// Fatal errors (configuration, cancellation) are never caught: they bypass
// both the catch AND the finally branch and propagate. Skipping finally on
// a fatal error deviates from conventional try/finally deliberately — a
// broken tree must not run more of itself, and cancellation must unwind
// without delay.
type Recovery struct {
	baseNode
	children []Node

	// catchIdx/finallyIdx are 0 when the branch is absent (index 0 is
	// always the try branch, so 0 doubles as "none").
	catchIdx   int
	finallyIdx int

	phase int
	main  Status
}

// NewRecovery creates a recovery composite. catchNode and finallyNode may
// be nil (a nil catchNode with a non-nil finallyNode is allowed via
// NewRecoveryFinally).
func NewRecovery(id, name string, try, catchNode, finallyNode Node) *Recovery {
	children := []Node{try}
	if catchNode != nil {
		children = append(children, catchNode)
	}
	if finallyNode != nil {
		children = append(children, finallyNode)
	}
	r := &Recovery{
		baseNode: newBaseNode(id, name, "recovery", false),
		children: children,
	}
	for _, c := range children {
		attach(r, c)
	}
	if catchNode != nil {
		r.catchIdx = 1
		if finallyNode != nil {
			r.finallyIdx = 2
		}
	} else if finallyNode != nil {
		r.finallyIdx = 1
	}
	return r
}

// NewRecoveryFinally creates a try/finally composite without a catch
// branch.
func NewRecoveryFinally(id, name string, try, finallyNode Node) *Recovery {
	return NewRecovery(id, name, try, nil, finallyNode)
}

// Children implements Node.
func (r *Recovery) Children() []Node { return r.children }

// Tick implements Node.
func (r *Recovery) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return r.tick(ctx, tc, r.executeTick)
}

func (r *Recovery) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if len(r.children) < 1 || len(r.children) > 3 {
		return StatusFailure, &ConfigurationError{
			NodeType: r.typ, NodeID: r.id,
			Hint: "recovery requires 1 to 3 children (try[, catch][, finally])",
		}
	}
	if err := CheckCancellation(ctx); err != nil {
		r.endRun()
		return StatusFailure, err
	}

	if r.phase == recoveryTry {
		st, err := r.children[0].Tick(ctx, tc)
		if err != nil {
			// Fatal errors bypass catch and finally by contract.
			r.endRun()
			return StatusFailure, err
		}
		switch st {
		case StatusRunning:
			return StatusRunning, nil
		case StatusFailure:
			if r.catchIdx != 0 {
				r.phase = recoveryCatch
			} else {
				r.main = StatusFailure
				r.phase = recoveryFinally
			}
		default:
			r.main = st
			r.phase = recoveryFinally
		}
	}

	if r.phase == recoveryCatch {
		st, err := r.children[r.catchIdx].Tick(ctx, tc)
		if err != nil {
			r.endRun()
			return StatusFailure, err
		}
		if st == StatusRunning {
			return StatusRunning, nil
		}
		r.main = st
		r.phase = recoveryFinally
	}

	if r.finallyIdx != 0 {
		st, err := r.children[r.finallyIdx].Tick(ctx, tc)
		if err != nil {
			r.endRun()
			return StatusFailure, err
		}
		if st == StatusRunning {
			return StatusRunning, nil
		}
	}

	main := r.main
	r.endRun()
	if main == StatusSkipped {
		return StatusSuccess, nil
	}
	return main, nil
}

func (r *Recovery) endRun() {
	r.phase = recoveryTry
	r.main = StatusIdle
}

// Halt implements Node.
func (r *Recovery) Halt() {
	if r.status != StatusRunning {
		return
	}
	haltChildren(r.children)
	r.endRun()
	r.resetBase()
}

// Reset implements Node.
func (r *Recovery) Reset() {
	resetChildren(r.children)
	r.endRun()
	r.resetBase()
}

// Clone implements Node.
func (r *Recovery) Clone() Node {
	cp := &Recovery{baseNode: r.cloneBase(), catchIdx: r.catchIdx, finallyIdx: r.finallyIdx}
	cp.children = cloneChildren(cp, r.children)
	return cp
}
