package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wayfarer-ai/btree-go/btree/model"
)

type fakeClient struct {
	calls int
	errs  []error
	out   model.ChatOut
}

func (f *fakeClient) createChatCompletion(_ context.Context, _ []model.Message, _ []model.ToolSpec) (model.ChatOut, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return model.ChatOut{}, f.errs[i]
	}
	return f.out, nil
}

func newTestModel(client openaiClient) *ChatModel {
	return &ChatModel{
		apiKey:     "k",
		modelName:  defaultModel,
		client:     client,
		maxRetries: 3,
		retryDelay: time.Millisecond,
	}
}

func TestChatModel_RetriesTransientErrors(t *testing.T) {
	fake := &fakeClient{
		errs: []error{errors.New("connection reset"), errors.New("503 service unavailable")},
		out:  model.ChatOut{Text: "ok"},
	}
	m := newTestModel(fake)

	out, err := m.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "ok" || fake.calls != 3 {
		t.Errorf("text=%q calls=%d, want ok after 3 calls", out.Text, fake.calls)
	}
}

func TestChatModel_NonTransientErrorNotRetried(t *testing.T) {
	fake := &fakeClient{errs: []error{errors.New("invalid api key")}}
	m := newTestModel(fake)

	if _, err := m.Chat(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", fake.calls)
	}
}

func TestChatModel_ExhaustedRetriesFail(t *testing.T) {
	boom := errors.New("timeout")
	fake := &fakeClient{errs: []error{boom, boom, boom, boom, boom}}
	m := newTestModel(fake)

	if _, err := m.Chat(context.Background(), nil, nil); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped last error", err)
	}
	if fake.calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", fake.calls)
	}
}

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("rate limit exceeded"), true},
		{errors.New("network unreachable"), true},
		{errors.New("HTTP 502 bad gateway"), true},
		{errors.New("model not found"), false},
	}
	for _, tc := range cases {
		if got := isTransientError(tc.err); got != tc.want {
			t.Errorf("isTransientError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestParseToolInput(t *testing.T) {
	if got := parseToolInput(""); got != nil {
		t.Errorf("empty input = %v, want nil", got)
	}
	parsed := parseToolInput(`{"q":"weather"}`)
	if parsed["q"] != "weather" {
		t.Errorf("parsed = %v", parsed)
	}
	raw := parseToolInput("{broken")
	if raw["_raw"] != "{broken" {
		t.Errorf("malformed input = %v, want preserved under _raw", raw)
	}
}
