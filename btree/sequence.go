package btree

import "context"

// Sequence executes children left-to-right (AND semantics).
//
// Per tick, starting from the saved cursor:
//   - A child returning success or skipped advances the cursor.
//   - A child returning failure resets the cursor and fails the sequence.
//   - A child returning running saves the cursor and suspends; the next
//     tick resumes at that child.
//
// Exhausting all children succeeds; an empty sequence succeeds
// immediately.
type Sequence struct {
	baseNode
	children []Node
	cursor   int
}

// NewSequence creates a sequence over the given children.
func NewSequence(id, name string, children ...Node) *Sequence {
	s := &Sequence{
		baseNode: newBaseNode(id, name, "sequence", false),
		children: children,
	}
	for _, c := range children {
		attach(s, c)
	}
	return s
}

// Children implements Node.
func (s *Sequence) Children() []Node { return s.children }

// Tick implements Node.
func (s *Sequence) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return s.tick(ctx, tc, s.executeTick)
}

func (s *Sequence) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
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
		case StatusSuccess, StatusSkipped:
			s.cursor++
		case StatusFailure:
			s.cursor = 0
			return StatusFailure, nil
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
	return StatusSuccess, nil
}

// Halt implements Node.
func (s *Sequence) Halt() {
	if s.status != StatusRunning {
		return
	}
	haltChildren(s.children)
	s.cursor = 0
	s.resetBase()
}

// Reset implements Node.
func (s *Sequence) Reset() {
	resetChildren(s.children)
	s.cursor = 0
	s.resetBase()
}

// Clone implements Node.
func (s *Sequence) Clone() Node {
	cp := &Sequence{baseNode: s.cloneBase()}
	cp.children = cloneChildren(cp, s.children)
	return cp
}
