package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing structured output to a writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable key=value lines.
//   - JSON mode: machine-readable JSONL, one event per line.
//
// Example text output:
//
//	[TICK_END] node=patrol type=sequence data={"status":"success"}
//
// Example JSON output:
//
//	{"type":"TICK_END","nodeID":"patrol","nodeType":"sequence","timestamp":"2025-01-01T12:00:00.000Z","data":{"status":"success"}}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to the given writer
// (os.Stdout if nil). If jsonMode is true events are written as JSONL.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

// Emit writes one event in the configured format.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Type      EventType      `json:"type"`
		NodeID    string         `json:"nodeID"`
		NodeName  string         `json:"nodeName,omitempty"`
		NodeType  string         `json:"nodeType"`
		Timestamp string         `json:"timestamp"`
		Data      map[string]any `json:"data,omitempty"`
	}{
		Type:      event.Type,
		NodeID:    event.NodeID,
		NodeName:  event.NodeName,
		NodeType:  event.NodeType,
		Timestamp: event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Data:      event.Data,
	})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] node=%s type=%s", event.Type, event.NodeID, event.NodeType)
	if event.NodeName != "" {
		_, _ = fmt.Fprintf(l.writer, " name=%s", event.NodeName)
	}
	if len(event.Data) > 0 {
		if dataJSON, err := json.Marshal(event.Data); err == nil {
			_, _ = fmt.Fprintf(l.writer, " data=%s", dataJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " data=%v", event.Data)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes all events in order.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogEmitter writes directly to the underlying writer.
// Wrap the writer in a bufio.Writer and flush that if buffering is needed.
func (l *LogEmitter) Flush(_ context.Context) error {
	return nil
}
