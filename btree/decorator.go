package btree

import "context"

// decorator carries the single-child plumbing shared by every decorator
// kind.
type decorator struct {
	baseNode
	child Node
}

func newDecorator(id, name, typ string, child Node) decorator {
	return decorator{baseNode: newBaseNode(id, name, typ, false), child: child}
}

// Children implements Node.
func (d *decorator) Children() []Node { return []Node{d.child} }

func (d *decorator) haltChild() {
	if d.child.Status() == StatusRunning {
		d.child.Halt()
	}
}

// Invert maps the child's success to failure and vice versa; running
// passes through.
type Invert struct {
	decorator
}

// NewInvert creates an inverter around child.
func NewInvert(id, name string, child Node) *Invert {
	i := &Invert{decorator: newDecorator(id, name, "invert", child)}
	attach(i, child)
	return i
}

// Tick implements Node.
func (i *Invert) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return i.tick(ctx, tc, i.executeTick)
}

func (i *Invert) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	st, err := i.child.Tick(ctx, tc)
	if err != nil {
		return StatusFailure, err
	}
	switch st {
	case StatusSuccess:
		return StatusFailure, nil
	case StatusFailure:
		return StatusSuccess, nil
	default:
		return st, nil
	}
}

// Halt implements Node.
func (i *Invert) Halt() {
	if i.status != StatusRunning {
		return
	}
	i.haltChild()
	i.resetBase()
}

// Reset implements Node.
func (i *Invert) Reset() {
	i.child.Reset()
	i.resetBase()
}

// Clone implements Node.
func (i *Invert) Clone() Node {
	cp := &Invert{decorator: decorator{baseNode: i.cloneBase()}}
	cp.child = i.child.Clone()
	cp.child.setParent(cp)
	return cp
}

// ForceStatus maps the child's terminal results to a fixed value; running
// and skipped pass through. It backs the ForceSuccess and ForceFailure
// constructors.
type ForceStatus struct {
	decorator
	forced Status
}

// NewForceSuccess forces the child's terminal result to success.
func NewForceSuccess(id, name string, child Node) *ForceStatus {
	f := &ForceStatus{decorator: newDecorator(id, name, "force-success", child), forced: StatusSuccess}
	attach(f, child)
	return f
}

// NewForceFailure forces the child's terminal result to failure.
func NewForceFailure(id, name string, child Node) *ForceStatus {
	f := &ForceStatus{decorator: newDecorator(id, name, "force-failure", child), forced: StatusFailure}
	attach(f, child)
	return f
}

// Tick implements Node.
func (f *ForceStatus) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return f.tick(ctx, tc, f.executeTick)
}

func (f *ForceStatus) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	st, err := f.child.Tick(ctx, tc)
	if err != nil {
		return StatusFailure, err
	}
	if st == StatusRunning || st == StatusSkipped {
		return st, nil
	}
	return f.forced, nil
}

// Halt implements Node.
func (f *ForceStatus) Halt() {
	if f.status != StatusRunning {
		return
	}
	f.haltChild()
	f.resetBase()
}

// Reset implements Node.
func (f *ForceStatus) Reset() {
	f.child.Reset()
	f.resetBase()
}

// Clone implements Node.
func (f *ForceStatus) Clone() Node {
	cp := &ForceStatus{decorator: decorator{baseNode: f.cloneBase()}, forced: f.forced}
	cp.child = f.child.Clone()
	cp.child.setParent(cp)
	return cp
}

// Repeat ticks its child up to numCycles successful completions.
//
// Each child success resets the child and advances the cycle counter;
// reaching numCycles succeeds. A child failure fails the decorator and
// resets the counter. Running passes through.
type Repeat struct {
	decorator
	numCycles int
	cycle     int
}

// NewRepeat creates a repeat decorator running child numCycles times.
func NewRepeat(id, name string, numCycles int, child Node) *Repeat {
	r := &Repeat{decorator: newDecorator(id, name, "repeat", child), numCycles: numCycles}
	attach(r, child)
	return r
}

// Tick implements Node.
func (r *Repeat) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return r.tick(ctx, tc, r.executeTick)
}

func (r *Repeat) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if r.numCycles <= 0 {
		return StatusFailure, &ConfigurationError{
			NodeType: r.typ, NodeID: r.id, Field: "numCycles",
			Hint: "numCycles must be positive",
		}
	}
	for {
		if err := CheckCancellation(ctx); err != nil {
			r.cycle = 0
			return StatusFailure, err
		}
		st, err := r.child.Tick(ctx, tc)
		if err != nil {
			r.cycle = 0
			return StatusFailure, err
		}
		switch st {
		case StatusRunning:
			return StatusRunning, nil
		case StatusFailure:
			r.cycle = 0
			return StatusFailure, nil
		case StatusSuccess, StatusSkipped:
			r.cycle++
			if r.cycle >= r.numCycles {
				r.cycle = 0
				return StatusSuccess, nil
			}
			r.child.Reset()
		}
	}
}

// Halt implements Node.
func (r *Repeat) Halt() {
	if r.status != StatusRunning {
		return
	}
	r.haltChild()
	r.cycle = 0
	r.resetBase()
}

// Reset implements Node.
func (r *Repeat) Reset() {
	r.child.Reset()
	r.cycle = 0
	r.resetBase()
}

// Clone implements Node.
func (r *Repeat) Clone() Node {
	cp := &Repeat{decorator: decorator{baseNode: r.cloneBase()}, numCycles: r.numCycles}
	cp.child = r.child.Clone()
	cp.child.setParent(cp)
	return cp
}

// RunOnce ticks its child a single time and thereafter returns the
// remembered terminal status without re-ticking, until Reset.
type RunOnce struct {
	decorator
	done   bool
	result Status
}

// NewRunOnce creates a run-once decorator around child.
func NewRunOnce(id, name string, child Node) *RunOnce {
	r := &RunOnce{decorator: newDecorator(id, name, "run-once", child)}
	attach(r, child)
	return r
}

// Tick implements Node.
func (r *RunOnce) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return r.tick(ctx, tc, r.executeTick)
}

func (r *RunOnce) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if r.done {
		return r.result, nil
	}
	st, err := r.child.Tick(ctx, tc)
	if err != nil {
		r.done = true
		r.result = StatusFailure
		return StatusFailure, err
	}
	if st == StatusRunning {
		return StatusRunning, nil
	}
	r.done = true
	r.result = st
	return st, nil
}

// Halt implements Node. The remembered result survives halting.
func (r *RunOnce) Halt() {
	if r.status != StatusRunning {
		return
	}
	r.haltChild()
	r.resetBase()
}

// Reset implements Node. Clears the remembered result.
func (r *RunOnce) Reset() {
	r.child.Reset()
	r.done = false
	r.result = StatusIdle
	r.resetBase()
}

// Clone implements Node.
func (r *RunOnce) Clone() Node {
	cp := &RunOnce{decorator: decorator{baseNode: r.cloneBase()}}
	cp.child = r.child.Clone()
	cp.child.setParent(cp)
	return cp
}

// KeepRunningUntilFailure converts the child's success into running
// (resetting the child for the next attempt) and passes failure through.
type KeepRunningUntilFailure struct {
	decorator
}

// NewKeepRunningUntilFailure creates the decorator around child.
func NewKeepRunningUntilFailure(id, name string, child Node) *KeepRunningUntilFailure {
	k := &KeepRunningUntilFailure{decorator: newDecorator(id, name, "keep-running-until-failure", child)}
	attach(k, child)
	return k
}

// Tick implements Node.
func (k *KeepRunningUntilFailure) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return k.tick(ctx, tc, k.executeTick)
}

func (k *KeepRunningUntilFailure) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	st, err := k.child.Tick(ctx, tc)
	if err != nil {
		return StatusFailure, err
	}
	switch st {
	case StatusSuccess, StatusSkipped:
		k.child.Reset()
		return StatusRunning, nil
	default:
		return st, nil
	}
}

// Halt implements Node.
func (k *KeepRunningUntilFailure) Halt() {
	if k.status != StatusRunning {
		return
	}
	k.haltChild()
	k.resetBase()
}

// Reset implements Node.
func (k *KeepRunningUntilFailure) Reset() {
	k.child.Reset()
	k.resetBase()
}

// Clone implements Node.
func (k *KeepRunningUntilFailure) Clone() Node {
	cp := &KeepRunningUntilFailure{decorator: decorator{baseNode: k.cloneBase()}}
	cp.child = k.child.Clone()
	cp.child.setParent(cp)
	return cp
}
