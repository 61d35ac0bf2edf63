package btree

import (
	"time"

	"github.com/wayfarer-ai/btree-go/btree/emit"
)

// TraceEntry is one node-level step of a tick's execution trace,
// assembled from the TICK_END events of that tick.
type TraceEntry struct {
	// NodeID identifies the ticked node.
	NodeID string `json:"node_id"`

	// NodeType is the node's type tag.
	NodeType string `json:"node_type"`

	// Status is the status the node returned.
	Status string `json:"status"`

	// Timestamp records when the node's tick ended.
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionSnapshot is an immutable record of the tree's observable state
// after one tick. The blackboard copy and the trace are deep copies:
// mutations after capture never alter a snapshot.
type ExecutionSnapshot struct {
	// ID is a unique identifier assigned at capture.
	ID string `json:"id"`

	// TickNumber is the engine tick that produced this snapshot.
	TickNumber int `json:"tick_number"`

	// Timestamp records when the snapshot was captured.
	Timestamp time.Time `json:"timestamp"`

	// RootNodeID identifies the ticked root.
	RootNodeID string `json:"root_node_id"`

	// RootStatus is the status the root returned for this tick.
	RootStatus string `json:"root_status"`

	// Blackboard is a flattened deep copy of every visible key.
	Blackboard map[string]any `json:"blackboard"`

	// BlackboardDiff is the change set against the previous snapshot.
	BlackboardDiff BlackboardDiff `json:"blackboard_diff"`

	// ExecutionTrace lists the node ticks of this engine tick in
	// control-flow order.
	ExecutionTrace []TraceEntry `json:"execution_trace"`
}

// traceFromEvents converts a tick's buffered events into trace entries,
// keeping TICK_END events in emission order.
func traceFromEvents(events []emit.Event) []TraceEntry {
	var trace []TraceEntry
	for _, ev := range events {
		if ev.Type != emit.TickEnd {
			continue
		}
		status, _ := ev.Data["status"].(string)
		trace = append(trace, TraceEntry{
			NodeID:    ev.NodeID,
			NodeType:  ev.NodeType,
			Status:    status,
			Timestamp: ev.Timestamp,
		})
	}
	return trace
}
