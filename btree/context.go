package btree

import (
	"context"
	"sync"
	"time"

	"github.com/wayfarer-ai/btree-go/btree/emit"
)

// RunningOperation tracks fire-and-forget async work started by a leaf.
//
// A leaf registers one on the first tick that cannot finish synchronously;
// subsequent ticks read Completed in O(1). Cleanup is the leaf's
// responsibility once the result has been drained.
type RunningOperation struct {
	// Completed is true once the background work finished.
	Completed bool

	// Result is the status the leaf should return once Completed.
	Result Status

	// Err is the error produced by the background work, if any.
	Err error
}

// RunningOps is the nodeID -> RunningOperation table shared by the leaves
// of one tree instance. It is safe for concurrent use: background
// goroutines complete operations while the tick loop polls them.
type RunningOps struct {
	mu  sync.Mutex
	ops map[string]*RunningOperation
}

// NewRunningOps creates an empty operation table.
func NewRunningOps() *RunningOps {
	return &RunningOps{ops: make(map[string]*RunningOperation)}
}

// Begin registers a pending operation for the node and returns it.
// If an operation is already registered it is returned unchanged.
func (r *RunningOps) Begin(nodeID string) *RunningOperation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op, ok := r.ops[nodeID]; ok {
		return op
	}
	op := &RunningOperation{}
	r.ops[nodeID] = op
	return op
}

// Complete marks the node's operation finished with the given result.
// A no-op if nothing is registered (the table may have been cleared by a
// halt while the background work was in flight).
func (r *RunningOps) Complete(nodeID string, result Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op, ok := r.ops[nodeID]; ok {
		op.Completed = true
		op.Result = result
		op.Err = err
	}
}

// Get returns the node's operation snapshot and whether one is registered.
func (r *RunningOps) Get(nodeID string) (RunningOperation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[nodeID]
	if !ok {
		return RunningOperation{}, false
	}
	return *op, true
}

// Remove drops the node's operation from the table.
func (r *RunningOps) Remove(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, nodeID)
}

// Clear drops every operation. Called by the engine on halt.
func (r *RunningOps) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = make(map[string]*RunningOperation)
}

// Len returns the number of registered operations.
func (r *RunningOps) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// resumeState is shared by every TickContext derived from the same tick so
// that reaching the resume point inside a subtree scope is visible to the
// rest of the traversal.
type resumeState struct {
	mu      sync.Mutex
	fromID  string
	reached bool
}

func (r *resumeState) active() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fromID != "" && !r.reached
}

func (r *resumeState) markIfTarget(nodeID string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fromID == nodeID && !r.reached {
		r.reached = true
		return true
	}
	return false
}

// TickContext carries the per-tick execution environment down the tree.
// It is passed by pointer alongside a context.Context, which provides the
// cooperative cancellation signal.
type TickContext struct {
	// Blackboard is the current scope for node state exchange.
	Blackboard *Blackboard

	// Registry resolves SubTree templates. May be nil for trees without
	// SubTree nodes.
	Registry *Registry

	// Emitter receives lifecycle events. May be nil.
	Emitter emit.Emitter

	// DeltaTime is the wall-clock time elapsed since the previous tick.
	// Informational only.
	DeltaTime time.Duration

	// Timestamp is the wall-clock time of the current tick.
	Timestamp time.Time

	// TestData is an optional mapping consulted by script-language
	// built-ins outside the core.
	TestData map[string]any

	// Ops tracks running operations for async leaves.
	Ops *RunningOps

	// OpContext, when set, is the context handed to background work
	// started by async leaves. It outlives the individual tick and is
	// cancelled by the engine's Halt. Leaves fall back to the tick
	// context when unset.
	OpContext context.Context

	resume *resumeState
}

// NewTickContext creates a context with a fresh blackboard and operation
// table.
func NewTickContext() *TickContext {
	return &TickContext{
		Blackboard: NewBlackboard("root"),
		Ops:        NewRunningOps(),
		Timestamp:  time.Now(),
	}
}

// WithResume returns a copy seeded to resume execution from the given node
// id: leaves before the resume point report StatusSkipped, composites
// traverse normally until the point is reached.
func (tc *TickContext) WithResume(nodeID string) *TickContext {
	cp := *tc
	cp.resume = &resumeState{fromID: nodeID}
	return &cp
}

// WithBlackboard returns a copy using the given blackboard scope. Resume
// state and the operation table are shared with the receiver.
func (tc *TickContext) WithBlackboard(bb *Blackboard) *TickContext {
	cp := *tc
	cp.Blackboard = bb
	return &cp
}

// ResumeTarget returns the pending resume node id, or "" when resumable
// execution is inactive or the point has been reached.
func (tc *TickContext) ResumeTarget() string {
	if tc.resume == nil {
		return ""
	}
	tc.resume.mu.Lock()
	defer tc.resume.mu.Unlock()
	if tc.resume.reached {
		return ""
	}
	return tc.resume.fromID
}

// opContext returns the context background operations should observe:
// OpContext when configured, the tick context otherwise.
func (tc *TickContext) opContext(ctx context.Context) context.Context {
	if tc.OpContext != nil {
		return tc.OpContext
	}
	return ctx
}

func (tc *TickContext) emit(ev emit.Event) {
	if tc.Emitter == nil {
		return
	}
	tc.Emitter.Emit(ev)
}

// EmitLog emits a LOG event through the context's emitter on behalf of the
// given node. Leaf bodies use this for application logging; the engine
// buffers LOG events and returns them with the run result.
func (tc *TickContext) EmitLog(node Node, level, message string) {
	if tc.Emitter == nil {
		return
	}
	tc.Emitter.Emit(emit.Event{
		Type:      emit.Log,
		NodeID:    node.ID(),
		NodeName:  node.Name(),
		NodeType:  node.Type(),
		Timestamp: time.Now(),
		Data:      map[string]any{"level": level, "message": message},
	})
}

// CheckCancellation is the cooperative cancellation checkpoint. Nodes that
// perform non-trivial work call it at well-defined points: composites
// before each child tick, leaves inside long-running loops. It returns a
// CancellationError once the context is done; that error bypasses the tick
// envelope's error-to-failure conversion and unwinds the tree.
func CheckCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &CancellationError{Cause: context.Cause(ctx)}
	default:
		return nil
	}
}
