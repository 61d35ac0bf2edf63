package btree

import "context"

// SubTree mounts a registered tree template as a leaf of the enclosing
// tree.
//
// On the first tick the template is looked up in the registry and cloned
// lazily, and a child blackboard scope named "subtree_<nodeID>" is
// created. Every tick runs the cloned root with the scoped context; keys
// written inside the scope are invisible to siblings and to the parent.
// The clone lives until Reset; the first tick after a Reset drops the old
// scope and starts from an empty one. Cloning a SubTree does not
// copy its instantiated clone — each copy lazy-loads its own.
type SubTree struct {
	baseNode
	treeID   string
	instance Node
}

// NewSubTree creates a subtree reference to the given registry tree id.
func NewSubTree(id, name, treeID string) *SubTree {
	return &SubTree{
		baseNode: newBaseNode(id, name, "subtree", false),
		treeID:   treeID,
	}
}

// TreeID returns the referenced template id.
func (s *SubTree) TreeID() string { return s.treeID }

// Children implements Node. The instantiated root is exposed once loaded.
func (s *SubTree) Children() []Node {
	if s.instance == nil {
		return nil
	}
	return []Node{s.instance}
}

// Tick implements Node.
func (s *SubTree) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return s.tick(ctx, tc, s.executeTick)
}

func (s *SubTree) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if s.treeID == "" {
		return StatusFailure, &ConfigurationError{
			NodeType: s.typ, NodeID: s.id, Field: "treeId",
			Hint: "subtree requires a tree id",
		}
	}
	if s.instance == nil {
		if tc.Registry == nil {
			return StatusFailure, &ConfigurationError{
				NodeType: s.typ, NodeID: s.id, Field: "treeId",
				Hint: "tick context has no registry to resolve " + s.treeID,
			}
		}
		inst, err := tc.Registry.Clone(s.treeID)
		if err != nil {
			return StatusFailure, &ConfigurationError{
				NodeType: s.typ, NodeID: s.id, Field: "treeId",
				Hint: err.Error(),
			}
		}
		s.instance = inst
		s.instance.setParent(s)
		// A new activation (first tick or after Reset) gets a fresh scope.
		tc.Blackboard.RemoveScope("subtree_" + s.id)
	}

	scope := tc.Blackboard.CreateScope("subtree_" + s.id)
	return s.instance.Tick(ctx, tc.WithBlackboard(scope))
}

// Halt implements Node. Delegates to the instantiated root.
func (s *SubTree) Halt() {
	if s.status != StatusRunning {
		return
	}
	if s.instance != nil && s.instance.Status() == StatusRunning {
		s.instance.Halt()
	}
	s.resetBase()
}

// Reset implements Node. Drops the instantiated clone so the next
// activation reloads the template.
func (s *SubTree) Reset() {
	if s.instance != nil {
		s.instance.Reset()
		s.instance = nil
	}
	s.resetBase()
}

// Clone implements Node. The clone lazy-loads its own instance.
func (s *SubTree) Clone() Node {
	return &SubTree{baseNode: s.cloneBase(), treeID: s.treeID}
}
