package btree

import (
	"context"
	"fmt"
)

// ForEach iterates a blackboard collection, binding each element to a loop
// variable and ticking its single body child once per element.
//
// A running body suspends the iteration at the current element. A failing
// body fails the loop; exhausting the collection succeeds. The collection
// is re-read from the blackboard at the start of each activation.
type ForEach struct {
	baseNode
	body          Node
	collectionKey string
	itemKey       string
	index         int
	active        bool
}

// NewForEach creates a loop over the collection stored under
// collectionKey, binding elements to itemKey for the body.
func NewForEach(id, name, collectionKey, itemKey string, body Node) *ForEach {
	f := &ForEach{
		baseNode:      newBaseNode(id, name, "foreach", false),
		body:          body,
		collectionKey: collectionKey,
		itemKey:       itemKey,
	}
	attach(f, body)
	return f
}

// Children implements Node.
func (f *ForEach) Children() []Node { return []Node{f.body} }

// Tick implements Node.
func (f *ForEach) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return f.tick(ctx, tc, f.executeTick)
}

func (f *ForEach) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	items, err := f.collection(tc)
	if err != nil {
		f.endLoop()
		return StatusFailure, err
	}
	if !f.active {
		f.index = 0
		f.active = true
	}

	for f.index < len(items) {
		if err := CheckCancellation(ctx); err != nil {
			f.endLoop()
			return StatusFailure, err
		}
		tc.Blackboard.Set(f.portKey(f.itemKey), items[f.index])

		st, err := f.body.Tick(ctx, tc)
		if err != nil {
			f.endLoop()
			return StatusFailure, err
		}
		switch st {
		case StatusRunning:
			return StatusRunning, nil
		case StatusFailure:
			f.endLoop()
			return StatusFailure, nil
		case StatusSuccess, StatusSkipped:
			f.index++
			f.body.Reset()
		}
	}

	f.endLoop()
	return StatusSuccess, nil
}

func (f *ForEach) collection(tc *TickContext) ([]any, error) {
	raw, ok := f.getInput(tc, f.collectionKey)
	if !ok {
		return nil, &ConfigurationError{
			NodeType: f.typ, NodeID: f.id, Field: "collection",
			Hint: fmt.Sprintf("blackboard key %q not found", f.portKey(f.collectionKey)),
		}
	}
	switch items := raw.(type) {
	case []any:
		return items, nil
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out, nil
	default:
		return nil, &ConfigurationError{
			NodeType: f.typ, NodeID: f.id, Field: "collection",
			Hint: fmt.Sprintf("blackboard key %q is %T, want a list", f.portKey(f.collectionKey), raw),
		}
	}
}

func (f *ForEach) endLoop() {
	f.index = 0
	f.active = false
}

// Halt implements Node.
func (f *ForEach) Halt() {
	if f.status != StatusRunning {
		return
	}
	if f.body.Status() == StatusRunning {
		f.body.Halt()
	}
	f.endLoop()
	f.resetBase()
}

// Reset implements Node.
func (f *ForEach) Reset() {
	f.body.Reset()
	f.endLoop()
	f.resetBase()
}

// Clone implements Node.
func (f *ForEach) Clone() Node {
	cp := &ForEach{
		baseNode:      f.cloneBase(),
		collectionKey: f.collectionKey,
		itemKey:       f.itemKey,
	}
	cp.body = f.body.Clone()
	cp.body.setParent(cp)
	return cp
}
