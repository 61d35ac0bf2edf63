package emit

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingEmitter() (*OTelEmitter, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return NewOTelEmitter(tp.Tracer("btree-go-test")), exporter
}

func TestOTelEmitter_CreatesSpanPerEvent(t *testing.T) {
	emitter, exporter := newRecordingEmitter()

	emitter.Emit(Event{
		Type:      TickEnd,
		NodeID:    "walk",
		NodeType:  "action",
		Timestamp: time.Now(),
		Data:      map[string]any{"status": "success"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "TICK_END" {
		t.Errorf("span name = %q, want TICK_END", span.Name)
	}

	attrs := make(map[string]any)
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["btree.node_id"] != "walk" || attrs["btree.status"] != "success" {
		t.Errorf("span attributes = %v", attrs)
	}
}

func TestOTelEmitter_ErrorEventSetsErrorStatus(t *testing.T) {
	emitter, exporter := newRecordingEmitter()

	emitter.Emit(Event{
		Type:      Error,
		NodeID:    "bad",
		NodeType:  "action",
		Timestamp: time.Now(),
		Data:      map[string]any{"error": "boom"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Status.Description != "boom" {
		t.Errorf("span status = %+v, want error boom", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Error("error not recorded as a span event")
	}
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	emitter, exporter := newRecordingEmitter()

	events := []Event{
		{Type: TickStart, NodeID: "a", NodeType: "sequence", Timestamp: time.Now()},
		{Type: TickEnd, NodeID: "a", NodeType: "sequence", Timestamp: time.Now()},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	if got := len(exporter.GetSpans()); got != 2 {
		t.Errorf("spans = %d, want 2", got)
	}
}
