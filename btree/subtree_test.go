package btree

import (
	"context"
	"testing"
)

func TestSubTree_LazyCloneAndRun(t *testing.T) {
	leaf, count := succeeding("tpl-leaf")
	template := NewSequence("tpl-root", "", leaf)
	registry := NewRegistry()
	if err := registry.Register("greet", template); err != nil {
		t.Fatal(err)
	}

	sub := NewSubTree("sub", "", "greet")
	tc := newTestContext()
	tc.Registry = registry

	if st := mustTick(t, sub, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	// The template itself was never ticked; its clone was.
	if template.Status() != StatusIdle {
		t.Errorf("template status = %v, want idle", template.Status())
	}
	if *count != 1 {
		t.Errorf("cloned leaf body ran %d times, want 1", *count)
	}
}

func TestSubTree_ScopeIsolatesWrites(t *testing.T) {
	writer := NewAction("writer", "", func(_ context.Context, tc *TickContext) (Status, error) {
		tc.Blackboard.Set("private", "inside")
		return StatusSuccess, nil
	})
	registry := NewRegistry()
	if err := registry.Register("writer-tree", writer); err != nil {
		t.Fatal(err)
	}

	sub := NewSubTree("sub", "", "writer-tree")
	tc := newTestContext()
	tc.Registry = registry

	mustTick(t, sub, tc)

	if _, ok := tc.Blackboard.Get("private"); ok {
		t.Error("subtree-local write leaked into the parent scope")
	}
	scope, ok := tc.Blackboard.Scope("subtree_sub")
	if !ok {
		t.Fatal("subtree scope was not created")
	}
	if v, _ := scope.Get("private"); v != "inside" {
		t.Errorf("scope value = %v, want inside", v)
	}
}

func TestSubTree_ScopeReadsInheritParent(t *testing.T) {
	reader := NewCondition("reader", "", func(_ context.Context, tc *TickContext) (bool, error) {
		return tc.Blackboard.Has("shared"), nil
	})
	registry := NewRegistry()
	if err := registry.Register("reader-tree", reader); err != nil {
		t.Fatal(err)
	}

	sub := NewSubTree("sub", "", "reader-tree")
	tc := newTestContext()
	tc.Registry = registry
	tc.Blackboard.Set("shared", true)

	if st := mustTick(t, sub, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success (parent key visible)", st)
	}
}

func TestSubTree_UnknownTreeIsConfigurationError(t *testing.T) {
	sub := NewSubTree("sub", "", "nope")
	tc := newTestContext()
	tc.Registry = NewRegistry()

	_, err := sub.Tick(tContext(), tc)
	configErrOf(t, err)
}

func TestSubTree_CloneDoesNotCopyInstance(t *testing.T) {
	leaf, _ := succeeding("tpl-leaf")
	registry := NewRegistry()
	if err := registry.Register("tree", leaf); err != nil {
		t.Fatal(err)
	}

	sub := NewSubTree("sub", "", "tree")
	tc := newTestContext()
	tc.Registry = registry
	mustTick(t, sub, tc)

	clone := sub.Clone().(*SubTree)
	if clone.instance != nil {
		t.Error("clone must lazy-load its own instance")
	}
}

func TestSubTree_ResetDropsInstance(t *testing.T) {
	leaf, _ := succeeding("tpl-leaf")
	registry := NewRegistry()
	if err := registry.Register("tree", leaf); err != nil {
		t.Fatal(err)
	}

	sub := NewSubTree("sub", "", "tree")
	tc := newTestContext()
	tc.Registry = registry
	mustTick(t, sub, tc)

	sub.Reset()
	if sub.instance != nil {
		t.Error("reset must drop the instantiated clone")
	}
}
