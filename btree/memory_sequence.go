package btree

import "context"

// MemorySequence behaves as Sequence but remembers which children already
// returned success. On subsequent ticks — including caller-triggered
// retries after a failure — remembered children are skipped without being
// re-ticked.
//
// The memory is cleared only by Reset. Halt intentionally keeps it: an
// interrupted activation resumes past the work that already succeeded.
type MemorySequence struct {
	baseNode
	children  []Node
	cursor    int
	succeeded map[string]bool
}

// NewMemorySequence creates a sequence-with-memory over the given
// children.
func NewMemorySequence(id, name string, children ...Node) *MemorySequence {
	s := &MemorySequence{
		baseNode:  newBaseNode(id, name, "memory-sequence", false),
		children:  children,
		succeeded: make(map[string]bool),
	}
	for _, c := range children {
		attach(s, c)
	}
	return s
}

// Children implements Node.
func (s *MemorySequence) Children() []Node { return s.children }

// Tick implements Node.
func (s *MemorySequence) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return s.tick(ctx, tc, s.executeTick)
}

func (s *MemorySequence) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	for s.cursor < len(s.children) {
		child := s.children[s.cursor]
		if s.succeeded[child.ID()] {
			s.cursor++
			continue
		}
		if err := CheckCancellation(ctx); err != nil {
			return StatusFailure, err
		}
		st, err := child.Tick(ctx, tc)
		if err != nil {
			s.cursor = 0
			return StatusFailure, err
		}
		switch st {
		case StatusSuccess:
			s.succeeded[child.ID()] = true
			s.cursor++
		case StatusSkipped:
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

// Halt implements Node. The success memory survives halting.
func (s *MemorySequence) Halt() {
	if s.status != StatusRunning {
		return
	}
	haltChildren(s.children)
	s.cursor = 0
	s.resetBase()
}

// Reset implements Node. Clears the success memory.
func (s *MemorySequence) Reset() {
	resetChildren(s.children)
	s.cursor = 0
	s.succeeded = make(map[string]bool)
	s.resetBase()
}

// Clone implements Node. The clone starts with empty memory.
func (s *MemorySequence) Clone() Node {
	cp := &MemorySequence{baseNode: s.cloneBase(), succeeded: make(map[string]bool)}
	cp.children = cloneChildren(cp, s.children)
	return cp
}
