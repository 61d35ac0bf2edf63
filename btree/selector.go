package btree

import "context"

// Selector executes children left-to-right until one succeeds (OR /
// fallback semantics).
//
// Per tick, starting from the saved cursor:
//   - A child returning success resets the cursor and succeeds.
//   - A child returning failure or skipped advances the cursor.
//   - A child returning running saves the cursor and suspends.
//
// Exhausting all children fails; an empty selector fails immediately.
type Selector struct {
	baseNode
	children []Node
	cursor   int
}

// NewSelector creates a selector over the given children.
func NewSelector(id, name string, children ...Node) *Selector {
	s := &Selector{
		baseNode: newBaseNode(id, name, "selector", false),
		children: children,
	}
	for _, c := range children {
		attach(s, c)
	}
	return s
}

// Children implements Node.
func (s *Selector) Children() []Node { return s.children }

// Tick implements Node.
func (s *Selector) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return s.tick(ctx, tc, s.executeTick)
}

func (s *Selector) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	for s.cursor < len(s.children) {
		if err := CheckCancellation(ctx); err != nil {
			return StatusFailure, err
		}
		st, err := s.children[s.cursor].Tick(ctx, tc)
		if err != nil {
			s.cursor = 0
			return StatusFailure, err
		}
		switch st {
		case StatusSuccess:
			s.cursor = 0
			return StatusSuccess, nil
		case StatusFailure, StatusSkipped:
			s.cursor++
		case StatusRunning:
			return StatusRunning, nil
		default:
			s.cursor = 0
			return StatusFailure, &ConfigurationError{
				NodeType: s.typ, NodeID: s.id,
				Hint: "child returned status " + st.String(),
			}
		}
	}
	s.cursor = 0
	return StatusFailure, nil
}

// Halt implements Node.
func (s *Selector) Halt() {
	if s.status != StatusRunning {
		return
	}
	haltChildren(s.children)
	s.cursor = 0
	s.resetBase()
}

// Reset implements Node.
func (s *Selector) Reset() {
	resetChildren(s.children)
	s.cursor = 0
	s.resetBase()
}

// Clone implements Node.
func (s *Selector) Clone() Node {
	cp := &Selector{baseNode: s.cloneBase()}
	cp.children = cloneChildren(cp, s.children)
	return cp
}
