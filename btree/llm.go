package btree

import (
	"context"
	"fmt"

	"github.com/wayfarer-ai/btree-go/btree/model"
)

// LLMAction is a leaf that sends a chat request to an LLM provider as a
// running operation.
//
// On the first tick of an activation it reads the prompt from the
// blackboard (input key "prompt", remappable via ports), launches the
// chat call in a goroutine, and returns StatusRunning. Subsequent ticks
// poll the operation table in O(1); when the response lands, its text is
// written under the output key "response" (remappable) and the leaf
// succeeds. Provider errors fail the leaf.
//
// An optional system prompt and tool specs are fixed configuration.
type LLMAction struct {
	baseNode
	chat         model.ChatModel
	systemPrompt string
	tools        []model.ToolSpec
}

// NewLLMAction creates an LLM leaf over the given chat model.
func NewLLMAction(id, name string, chat model.ChatModel) *LLMAction {
	return &LLMAction{
		baseNode: newBaseNode(id, name, "llm-action", true),
		chat:     chat,
	}
}

// WithSystemPrompt prepends a system message to every request.
func (l *LLMAction) WithSystemPrompt(prompt string) *LLMAction {
	l.systemPrompt = prompt
	return l
}

// WithTools advertises tools to the model.
func (l *LLMAction) WithTools(tools []model.ToolSpec) *LLMAction {
	l.tools = tools
	return l
}

// Tick implements Node.
func (l *LLMAction) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return l.tick(ctx, tc, l.executeTick)
}

func (l *LLMAction) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if l.chat == nil {
		return StatusFailure, &ConfigurationError{NodeType: l.typ, NodeID: l.id, Hint: "llm action has no chat model"}
	}
	if tc.Ops == nil {
		return StatusFailure, &ConfigurationError{NodeType: l.typ, NodeID: l.id, Hint: "tick context has no running-operation table"}
	}

	op, registered := tc.Ops.Get(l.id)
	if !registered {
		prompt := tc.Blackboard.GetString(l.portKey("prompt"), "")
		if prompt == "" {
			return StatusFailure, fmt.Errorf("llm action %q: blackboard key %q is empty", l.id, l.portKey("prompt"))
		}

		var messages []model.Message
		if l.systemPrompt != "" {
			messages = append(messages, model.Message{Role: model.RoleSystem, Content: l.systemPrompt})
		}
		messages = append(messages, model.Message{Role: model.RoleUser, Content: prompt})

		tc.Ops.Begin(l.id)
		nodeID := l.id
		opCtx := tc.opContext(ctx)
		go func() {
			out, err := l.chat.Chat(opCtx, messages, l.tools)
			if err != nil {
				tc.Ops.Complete(nodeID, StatusFailure, err)
				return
			}
			// Write the response before marking the operation complete
			// so the drain tick observes it.
			l.storeResult(tc, out)
			tc.Ops.Complete(nodeID, StatusSuccess, nil)
		}()
		return StatusRunning, nil
	}

	if !op.Completed {
		return StatusRunning, nil
	}

	tc.Ops.Remove(l.id)
	if op.Err != nil {
		return StatusFailure, fmt.Errorf("llm action %q: %w", l.id, op.Err)
	}
	return StatusSuccess, nil
}

// storeResult writes the response under the output ports. It runs on the
// completing goroutine; the blackboard serializes access.
func (l *LLMAction) storeResult(tc *TickContext, out model.ChatOut) {
	l.setOutput(tc, "response", out.Text)
	if len(out.ToolCalls) > 0 {
		calls := make([]any, len(out.ToolCalls))
		for i, c := range out.ToolCalls {
			calls[i] = map[string]any{"id": c.ID, "name": c.Name, "input": c.Input}
		}
		l.setOutput(tc, "tool_calls", calls)
	}
}

// Halt implements Node. The in-flight request observes cancellation
// through its context when the engine halts.
func (l *LLMAction) Halt() {
	if l.status != StatusRunning {
		return
	}
	l.resetBase()
}

// Reset implements Node.
func (l *LLMAction) Reset() {
	l.resetBase()
}

// Clone implements Node.
func (l *LLMAction) Clone() Node {
	return &LLMAction{
		baseNode:     l.cloneBase(),
		chat:         l.chat,
		systemPrompt: l.systemPrompt,
		tools:        l.tools,
	}
}
