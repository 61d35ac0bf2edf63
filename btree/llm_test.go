package btree

import (
	"errors"
	"testing"

	"github.com/wayfarer-ai/btree-go/btree/model"
)

func TestLLMAction_WritesResponse(t *testing.T) {
	chat := model.NewMockChatModel(model.ChatOut{Text: "the answer"})
	leaf := NewLLMAction("ask", "", chat).WithSystemPrompt("be brief")

	tc := newTestContext()
	tc.Blackboard.Set("prompt", "what is up?")

	if st := tickUntilSettled(t, leaf, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if v, _ := tc.Blackboard.Get("response"); v != "the answer" {
		t.Errorf("response = %v, want the answer", v)
	}

	calls := chat.Calls()
	if len(calls) != 1 {
		t.Fatalf("chat called %d times, want 1", len(calls))
	}
	if calls[0][0].Role != model.RoleSystem || calls[0][1].Content != "what is up?" {
		t.Errorf("messages = %+v", calls[0])
	}
}

func TestLLMAction_ProviderErrorFails(t *testing.T) {
	chat := model.NewMockChatModel().QueueError(errors.New("rate limited"))
	leaf := NewLLMAction("ask", "", chat)

	tc := newTestContext()
	tc.Blackboard.Set("prompt", "hi")

	if st := tickUntilSettled(t, leaf, tc); st != StatusFailure {
		t.Fatalf("status = %v, want failure", st)
	}
}

func TestLLMAction_MissingPromptFails(t *testing.T) {
	chat := model.NewMockChatModel(model.ChatOut{Text: "x"})
	leaf := NewLLMAction("ask", "", chat)

	st, err := leaf.Tick(tContext(), newTestContext())
	if err != nil {
		t.Fatalf("missing prompt must be a plain failure, got error %v", err)
	}
	if st != StatusFailure {
		t.Fatalf("status = %v, want failure", st)
	}
	if chat.CallCount() != 0 {
		t.Error("provider called without a prompt")
	}
}

func TestLLMAction_PortRemap(t *testing.T) {
	chat := model.NewMockChatModel(model.ChatOut{Text: "out"})
	leaf := NewLLMAction("ask", "", chat)
	leaf.SetPorts(map[string]string{"prompt": "question", "response": "answer"})

	tc := newTestContext()
	tc.Blackboard.Set("question", "2+2?")

	if st := tickUntilSettled(t, leaf, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	if v, _ := tc.Blackboard.Get("answer"); v != "out" {
		t.Errorf("answer = %v, want out", v)
	}
}

func TestLLMAction_ToolCallsStored(t *testing.T) {
	chat := model.NewMockChatModel(model.ChatOut{
		ToolCalls: []model.ToolCall{{Name: "lookup", Input: map[string]any{"q": "x"}}},
	})
	leaf := NewLLMAction("ask", "", chat)

	tc := newTestContext()
	tc.Blackboard.Set("prompt", "use the tool")

	if st := tickUntilSettled(t, leaf, tc); st != StatusSuccess {
		t.Fatalf("status = %v, want success", st)
	}
	calls, ok := tc.Blackboard.Get("tool_calls")
	if !ok {
		t.Fatal("tool_calls not written")
	}
	list := calls.([]any)
	if len(list) != 1 || list[0].(map[string]any)["name"] != "lookup" {
		t.Errorf("tool_calls = %v", calls)
	}
}
