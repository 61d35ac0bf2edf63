package btree

import (
	"context"
	"fmt"

	"github.com/wayfarer-ai/btree-go/btree/tool"
)

// ToolAction is a leaf that invokes a tool as a running operation.
//
// The tool input is read from the blackboard under the input key "input"
// (remappable via ports; a missing key means a nil input). The call runs
// in a goroutine; the leaf returns StatusRunning until it lands, then
// writes the tool output under the output key "output" and succeeds.
// Tool errors fail the leaf.
type ToolAction struct {
	baseNode
	tool tool.Tool
}

// NewToolAction creates a tool leaf over t.
func NewToolAction(id, name string, t tool.Tool) *ToolAction {
	return &ToolAction{
		baseNode: newBaseNode(id, name, "tool-action", true),
		tool:     t,
	}
}

// Tick implements Node.
func (a *ToolAction) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return a.tick(ctx, tc, a.executeTick)
}

func (a *ToolAction) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if a.tool == nil {
		return StatusFailure, &ConfigurationError{NodeType: a.typ, NodeID: a.id, Hint: "tool action has no tool"}
	}
	if tc.Ops == nil {
		return StatusFailure, &ConfigurationError{NodeType: a.typ, NodeID: a.id, Hint: "tick context has no running-operation table"}
	}

	op, registered := tc.Ops.Get(a.id)
	if !registered {
		var input map[string]any
		if raw, ok := a.getInput(tc, "input"); ok {
			if m, ok := raw.(map[string]any); ok {
				input = m
			}
		}

		tc.Ops.Begin(a.id)
		nodeID := a.id
		opCtx := tc.opContext(ctx)
		go func() {
			out, err := a.tool.Call(opCtx, input)
			if err != nil {
				tc.Ops.Complete(nodeID, StatusFailure, err)
				return
			}
			a.setOutput(tc, "output", out)
			tc.Ops.Complete(nodeID, StatusSuccess, nil)
		}()
		return StatusRunning, nil
	}

	if !op.Completed {
		return StatusRunning, nil
	}

	tc.Ops.Remove(a.id)
	if op.Err != nil {
		return StatusFailure, fmt.Errorf("tool action %q (%s): %w", a.id, a.tool.Name(), op.Err)
	}
	return StatusSuccess, nil
}

// Halt implements Node.
func (a *ToolAction) Halt() {
	if a.status != StatusRunning {
		return
	}
	a.resetBase()
}

// Reset implements Node.
func (a *ToolAction) Reset() {
	a.resetBase()
}

// Clone implements Node.
func (a *ToolAction) Clone() Node {
	return &ToolAction{baseNode: a.cloneBase(), tool: a.tool}
}
