package btree

import (
	"context"
	"time"

	"github.com/wayfarer-ai/btree-go/btree/emit"
)

// Node is the polymorphic unit of a behavior tree.
//
// Every node carries a stable identity (id, optional display name, type
// tag), mutable execution state (status, last error), and implements the
// tick protocol:
//
//   - Tick advances the node one bounded step and returns a Status. It
//     must be idempotent across StatusRunning returns: re-ticking a
//     running node resumes from its saved position.
//   - Halt asks a running node to release resources and reset to idle,
//     recursively halting running children. Not running: status is
//     untouched (the HALT event may still be emitted).
//   - Reset unconditionally returns the node and its children to idle,
//     clearing errors and internal cursors.
//   - Clone produces a deep copy of the node and its subtree, preserving
//     configuration with all state idle.
//
// Composites own an ordered list of children, decorators exactly one,
// leaves none. A node is attached to at most one parent; the parent
// back-reference is a non-owning observation.
type Node interface {
	// ID returns the node's stable, non-empty identifier.
	ID() string

	// Name returns the optional display name (may be empty).
	Name() string

	// Type returns the concrete variant tag (e.g. "sequence", "action").
	Type() string

	// Status returns the node's current execution status.
	Status() Status

	// LastError returns the most recent error recorded by the tick
	// envelope, nil after Reset.
	LastError() error

	// Parent returns the owning node, nil for a detached node or root.
	Parent() Node

	// Children returns the node's children in execution order. Leaves
	// return nil.
	Children() []Node

	// Tick executes one step. The returned error is non-nil only for the
	// fatal kinds (configuration, cancellation); every other failure is
	// encoded as StatusFailure.
	Tick(ctx context.Context, tc *TickContext) (Status, error)

	// Halt stops in-flight work. Never returns an error and never panics.
	Halt()

	// Reset returns the subtree to idle.
	Reset()

	// Clone deep-copies the subtree with state reset to idle.
	Clone() Node

	// setParent records the owning node on attach. The tree model is
	// sealed: nodes are built via this package's constructors.
	setParent(Node)
}

// baseNode carries the identity, state, and port remapping shared by every
// node kind, plus the tick envelope.
type baseNode struct {
	id      string
	name    string
	typ     string
	parent  Node
	status  Status
	lastErr error

	// ports remaps input/output keys to blackboard keys.
	ports map[string]string

	// leaf controls the resumable-execution rule: leaves before the
	// resume point are skipped, composites traverse to find it.
	leaf bool
}

func newBaseNode(id, name, typ string, leaf bool) baseNode {
	return baseNode{id: id, name: name, typ: typ, leaf: leaf}
}

func (b *baseNode) ID() string       { return b.id }
func (b *baseNode) Name() string     { return b.name }
func (b *baseNode) Type() string     { return b.typ }
func (b *baseNode) Status() Status   { return b.status }
func (b *baseNode) LastError() error { return b.lastErr }
func (b *baseNode) Parent() Node     { return b.parent }
func (b *baseNode) setParent(p Node) { b.parent = p }
func (b *baseNode) Children() []Node { return nil }

// SetPorts installs the input/output key remapping. getInput(key) reads
// the blackboard under ports[key] when remapped, key otherwise; setOutput
// writes symmetrically.
func (b *baseNode) SetPorts(ports map[string]string) {
	if len(ports) == 0 {
		b.ports = nil
		return
	}
	b.ports = make(map[string]string, len(ports))
	for k, v := range ports {
		b.ports[k] = v
	}
}

func (b *baseNode) portKey(key string) string {
	if b.ports != nil {
		if mapped, ok := b.ports[key]; ok {
			return mapped
		}
	}
	return key
}

func (b *baseNode) getInput(tc *TickContext, key string) (any, bool) {
	return tc.Blackboard.Get(b.portKey(key))
}

func (b *baseNode) getInputDefault(tc *TickContext, key string, def any) any {
	if v, ok := b.getInput(tc, key); ok {
		return v
	}
	return def
}

func (b *baseNode) setOutput(tc *TickContext, key string, value any) {
	tc.Blackboard.Set(b.portKey(key), value)
}

// resetBase clears the mutable execution state.
func (b *baseNode) resetBase() {
	b.status = StatusIdle
	b.lastErr = nil
}

// cloneBase copies identity and configuration with state reset to idle and
// no parent; the caller re-attaches children.
func (b *baseNode) cloneBase() baseNode {
	cp := baseNode{id: b.id, name: b.name, typ: b.typ, leaf: b.leaf}
	if b.ports != nil {
		cp.ports = make(map[string]string, len(b.ports))
		for k, v := range b.ports {
			cp.ports[k] = v
		}
	}
	return cp
}

func (b *baseNode) event(t emit.EventType, data map[string]any) emit.Event {
	return emit.Event{
		Type:      t,
		NodeID:    b.id,
		NodeName:  b.name,
		NodeType:  b.typ,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// tick is the universal envelope around a concrete node's executeTick.
//
// It emits TICK_START, applies the resumable-execution rule, invokes exec,
// stores the resulting status and emits TICK_END. A returned error records
// lastErr, forces StatusFailure, and emits ERROR before TICK_END; fatal
// errors (configuration, cancellation) are re-raised to the caller while
// every other error is converted to a plain StatusFailure return.
func (b *baseNode) tick(ctx context.Context, tc *TickContext, exec func(context.Context, *TickContext) (Status, error)) (Status, error) {
	tc.emit(b.event(emit.TickStart, nil))

	if tc.resume.active() {
		reached := tc.resume.markIfTarget(b.id)
		if b.leaf && !reached {
			b.status = StatusSkipped
			tc.emit(b.event(emit.TickEnd, map[string]any{"status": StatusSkipped.String()}))
			return StatusSkipped, nil
		}
		// Composites and decorators execute normally: they traverse to
		// find the resume point.
	}

	s, err := exec(ctx, tc)
	if err != nil {
		b.lastErr = err
		b.status = StatusFailure
		tc.emit(b.event(emit.Error, map[string]any{"error": err.Error()}))
		tc.emit(b.event(emit.TickEnd, map[string]any{"status": StatusFailure.String()}))
		if IsFatal(err) {
			return StatusFailure, err
		}
		return StatusFailure, nil
	}

	b.status = s
	tc.emit(b.event(emit.TickEnd, map[string]any{"status": s.String()}))
	return s, nil
}

// attach wires child to parent, enforcing single ownership.
func attach(parent Node, child Node) {
	if child.Parent() != nil && child.Parent() != parent {
		panic(&ConfigurationError{
			NodeType: child.Type(),
			NodeID:   child.ID(),
			Hint:     "node is already attached to another parent; clone or detach it first",
		})
	}
	child.setParent(parent)
}

// cloneChildren deep-clones a child slice and re-attaches the clones.
func cloneChildren(parent Node, children []Node) []Node {
	if children == nil {
		return nil
	}
	out := make([]Node, len(children))
	for i, c := range children {
		out[i] = c.Clone()
		out[i].setParent(parent)
	}
	return out
}

// haltChildren halts every running child in order.
func haltChildren(children []Node) {
	for _, c := range children {
		if c.Status() == StatusRunning {
			c.Halt()
		}
	}
}

// resetChildren resets every child in order.
func resetChildren(children []Node) {
	for _, c := range children {
		c.Reset()
	}
}
