package btree

import "context"

// ReactiveSequence re-evaluates from the first child on every tick:
// conditions ahead of a running child are re-checked each time. When an
// earlier child that previously succeeded now fails, the running child
// further right is halted before the sequence fails.
type ReactiveSequence struct {
	baseNode
	children []Node
}

// NewReactiveSequence creates a reactive sequence over the given
// children.
func NewReactiveSequence(id, name string, children ...Node) *ReactiveSequence {
	s := &ReactiveSequence{
		baseNode: newBaseNode(id, name, "reactive-sequence", false),
		children: children,
	}
	for _, c := range children {
		attach(s, c)
	}
	return s
}

// Children implements Node.
func (s *ReactiveSequence) Children() []Node { return s.children }

// Tick implements Node.
func (s *ReactiveSequence) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return s.tick(ctx, tc, s.executeTick)
}

func (s *ReactiveSequence) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	for i := 0; i < len(s.children); i++ {
		if err := CheckCancellation(ctx); err != nil {
			return StatusFailure, err
		}
		st, err := s.children[i].Tick(ctx, tc)
		if err != nil {
			s.haltAfter(i)
			return StatusFailure, err
		}
		switch st {
		case StatusSuccess, StatusSkipped:
			continue
		case StatusFailure:
			s.haltAfter(i)
			return StatusFailure, nil
		case StatusRunning:
			return StatusRunning, nil
		default:
			return StatusFailure, &ConfigurationError{
				NodeType: s.typ, NodeID: s.id,
				Hint: "child returned status " + st.String(),
			}
		}
	}
	return StatusSuccess, nil
}

// haltAfter halts any still-running child to the right of index i.
func (s *ReactiveSequence) haltAfter(i int) {
	for j := i + 1; j < len(s.children); j++ {
		if s.children[j].Status() == StatusRunning {
			s.children[j].Halt()
		}
	}
}

// Halt implements Node.
func (s *ReactiveSequence) Halt() {
	if s.status != StatusRunning {
		return
	}
	haltChildren(s.children)
	s.resetBase()
}

// Reset implements Node.
func (s *ReactiveSequence) Reset() {
	resetChildren(s.children)
	s.resetBase()
}

// Clone implements Node.
func (s *ReactiveSequence) Clone() Node {
	cp := &ReactiveSequence{baseNode: s.cloneBase()}
	cp.children = cloneChildren(cp, s.children)
	return cp
}
