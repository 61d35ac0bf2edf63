package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLogEmitter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		Type:      TickEnd,
		NodeID:    "walk",
		NodeType:  "action",
		Timestamp: time.Now(),
		Data:      map[string]any{"status": "success"},
	})

	out := buf.String()
	for _, want := range []string{"[TICK_END]", "node=walk", "type=action", `"status":"success"`} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q: %s", want, out)
		}
	}
}

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{Type: Halt, NodeID: "root", NodeType: "sequence", Timestamp: time.Now()})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if decoded["type"] != "HALT" || decoded["nodeID"] != "root" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestLogEmitter_EmitBatch(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	events := []Event{
		{Type: TickStart, NodeID: "a", Timestamp: time.Now()},
		{Type: TickEnd, NodeID: "a", Timestamp: time.Now()},
	}
	if err := emitter.EmitBatch(t.Context(), events); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("JSONL lines = %d, want 2", len(lines))
	}
}

func TestLogEmitter_NilWriterDefaultsToStdout(t *testing.T) {
	emitter := NewLogEmitter(nil, false)
	if emitter.writer == nil {
		t.Fatal("nil writer not defaulted")
	}
}
