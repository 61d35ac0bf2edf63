// Package emit provides the lifecycle event bus and emitters for
// behavior-tree execution.
package emit

import "time"

// EventType tags a lifecycle event.
type EventType string

// Lifecycle event types. Emission order follows the control-flow order
// inside a tick: a node's TICK_START precedes its children's events, which
// precede its own TICK_END.
const (
	// TickStart is emitted when a node's tick envelope begins.
	TickStart EventType = "TICK_START"

	// TickEnd is emitted when a node's tick completes; Data["status"]
	// carries the resulting Status string.
	TickEnd EventType = "TICK_END"

	// Error is emitted when a node's tick raised an error;
	// Data["error"] carries the message.
	Error EventType = "ERROR"

	// Halt is emitted when a node is halted.
	Halt EventType = "HALT"

	// Reset is emitted when a node is reset.
	Reset EventType = "RESET"

	// Log is emitted by leaf bodies for application logging;
	// Data["level"] and Data["message"] carry the payload.
	Log EventType = "LOG"
)

// Event is a tagged record describing one lifecycle occurrence during
// tree execution.
//
// Events flow through a Bus to subscribers and emitters, which can:
//   - Log to stdout/files (LogEmitter)
//   - Buffer for queries and tests (BufferedEmitter)
//   - Export spans to OpenTelemetry (OTelEmitter)
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	// NodeID identifies the node that produced this event.
	NodeID string

	// NodeName is the node's optional display name.
	NodeName string

	// NodeType is the node's concrete type tag (e.g. "sequence").
	NodeType string

	// Timestamp records when the event was emitted.
	Timestamp time.Time

	// Data contains additional structured payload specific to the event
	// type. Common keys:
	//   - "status": resulting Status string (TICK_END)
	//   - "error": error message (ERROR)
	//   - "level", "message": log payload (LOG)
	Data map[string]any
}
