package btree

import "context"

// TickFunc is the body of a leaf node. It receives the cancellation
// context and the tick context and returns a status. Returning an error
// marks the leaf failed; fatal errors (configuration, cancellation)
// propagate up the tree.
type TickFunc func(ctx context.Context, tc *TickContext) (Status, error)

// Action is a leaf node executing an arbitrary body. Bodies that cannot
// finish within one tick return StatusRunning and resume on the next tick
// (the body must keep its own position, typically on the blackboard or in
// the running-operation table).
type Action struct {
	baseNode
	fn     TickFunc
	onHalt func()
}

// NewAction creates an action leaf with the given id and body.
func NewAction(id, name string, fn TickFunc) *Action {
	return &Action{
		baseNode: newBaseNode(id, name, "action", true),
		fn:       fn,
	}
}

// OnHalt installs a cleanup hook invoked when a running action is halted.
func (a *Action) OnHalt(fn func()) *Action {
	a.onHalt = fn
	return a
}

// Tick implements Node.
func (a *Action) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return a.tick(ctx, tc, a.executeTick)
}

func (a *Action) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if a.fn == nil {
		return StatusFailure, &ConfigurationError{NodeType: a.typ, NodeID: a.id, Hint: "action has no body"}
	}
	return a.fn(ctx, tc)
}

// Halt implements Node.
func (a *Action) Halt() {
	if a.status != StatusRunning {
		return
	}
	if a.onHalt != nil {
		a.onHalt()
	}
	a.resetBase()
}

// Reset implements Node.
func (a *Action) Reset() {
	a.resetBase()
}

// Clone implements Node.
func (a *Action) Clone() Node {
	return &Action{baseNode: a.cloneBase(), fn: a.fn, onHalt: a.onHalt}
}

// ConditionFunc is the body of a condition leaf: a boolean predicate over
// the tick context.
type ConditionFunc func(ctx context.Context, tc *TickContext) (bool, error)

// Condition is a leaf node mapping a predicate to success/failure.
// Conditions complete in a single tick and never return StatusRunning.
type Condition struct {
	baseNode
	fn ConditionFunc
}

// NewCondition creates a condition leaf with the given id and predicate.
func NewCondition(id, name string, fn ConditionFunc) *Condition {
	return &Condition{
		baseNode: newBaseNode(id, name, "condition", true),
		fn:       fn,
	}
}

// Tick implements Node.
func (c *Condition) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return c.tick(ctx, tc, c.executeTick)
}

func (c *Condition) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if c.fn == nil {
		return StatusFailure, &ConfigurationError{NodeType: c.typ, NodeID: c.id, Hint: "condition has no predicate"}
	}
	ok, err := c.fn(ctx, tc)
	if err != nil {
		return StatusFailure, err
	}
	if ok {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Halt implements Node.
func (c *Condition) Halt() {
	if c.status != StatusRunning {
		return
	}
	c.resetBase()
}

// Reset implements Node.
func (c *Condition) Reset() {
	c.resetBase()
}

// Clone implements Node.
func (c *Condition) Clone() Node {
	return &Condition{baseNode: c.cloneBase(), fn: c.fn}
}

// StartFunc launches asynchronous work for an AsyncAction. Implementations
// run the work in a goroutine and report through complete exactly once.
// The context is cancelled when the engine halts.
type StartFunc func(ctx context.Context, tc *TickContext, complete func(Status, error))

// AsyncAction is a leaf for fire-and-forget async work. On the first tick
// of an activation it registers a RunningOperation and invokes start; on
// every subsequent tick it polls completion in O(1) and returns
// StatusRunning until the operation lands, then drains the entry and
// returns the recorded result.
type AsyncAction struct {
	baseNode
	start StartFunc
}

// NewAsyncAction creates an async action leaf.
func NewAsyncAction(id, name string, start StartFunc) *AsyncAction {
	return &AsyncAction{
		baseNode: newBaseNode(id, name, "async-action", true),
		start:    start,
	}
}

// Tick implements Node.
func (a *AsyncAction) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return a.tick(ctx, tc, a.executeTick)
}

func (a *AsyncAction) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if a.start == nil {
		return StatusFailure, &ConfigurationError{NodeType: a.typ, NodeID: a.id, Hint: "async action has no start function"}
	}
	if tc.Ops == nil {
		return StatusFailure, &ConfigurationError{NodeType: a.typ, NodeID: a.id, Hint: "tick context has no running-operation table"}
	}

	op, registered := tc.Ops.Get(a.id)
	if !registered {
		tc.Ops.Begin(a.id)
		nodeID := a.id
		a.start(tc.opContext(ctx), tc, func(result Status, err error) {
			tc.Ops.Complete(nodeID, result, err)
		})
		// The work may have completed synchronously.
		op, _ = tc.Ops.Get(a.id)
	}

	if !op.Completed {
		return StatusRunning, nil
	}

	tc.Ops.Remove(a.id)
	if op.Err != nil {
		return StatusFailure, op.Err
	}
	return op.Result, nil
}

// Halt implements Node. The operation entry is left to the engine's
// halt path (which clears the table); the background goroutine observes
// cancellation through its context.
func (a *AsyncAction) Halt() {
	if a.status != StatusRunning {
		return
	}
	a.resetBase()
}

// Reset implements Node.
func (a *AsyncAction) Reset() {
	a.resetBase()
}

// Clone implements Node.
func (a *AsyncAction) Clone() Node {
	return &AsyncAction{baseNode: a.cloneBase(), start: a.start}
}
