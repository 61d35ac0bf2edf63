package emit

import "context"

// Emitter receives lifecycle events from tree execution.
//
// Emitters enable pluggable observability backends: logging, distributed
// tracing, in-memory buffers for tests and dashboards.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down tick execution.
//   - Thread-safe: Parallel composites emit from multiple goroutines.
//   - Resilient: emitter failures must never break a tick.
type Emitter interface {
	// Emit sends a single event to the backend. Emit must not panic;
	// errors should be handled internally.
	Emit(event Event)

	// EmitBatch sends multiple events in order in a single operation.
	// Returns an error only on catastrophic failures; individual event
	// failures should be logged and skipped.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until buffered events are delivered or ctx expires.
	// Call before shutdown to avoid losing events. Safe to call multiple
	// times.
	Flush(ctx context.Context) error
}
