// Package btree provides a behavior-tree execution engine.
//
// Trees are composed from a small set of control-flow nodes (sequences,
// selectors, parallels, decorators, leaf actions and conditions) and driven
// by an outer tick engine. Each tick advances the root a bounded amount of
// work and returns a Status; unfinished work resumes on the next tick.
package btree

import "fmt"

// Status is the five-value result algebra shared by every node.
//
// All inter-node control flow is encoded in these values:
//   - StatusIdle: the node has never been ticked since construction/reset.
//   - StatusRunning: the node was ticked but is not yet complete; it must
//     be re-ticked to make progress.
//   - StatusSuccess, StatusFailure: terminal for the current activation.
//   - StatusSkipped: produced only during resumable execution when a leaf
//     sits before the resume point; composites treat it as "neutral,
//     advance".
type Status int

const (
	// StatusIdle indicates a node that has not been ticked.
	StatusIdle Status = iota

	// StatusRunning indicates in-progress work that must be re-ticked.
	StatusRunning

	// StatusSuccess indicates the activation completed successfully.
	StatusSuccess

	// StatusFailure indicates the activation completed unsuccessfully.
	StatusFailure

	// StatusSkipped indicates a leaf bypassed by resumable execution.
	StatusSkipped
)

// String returns the canonical lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("unknown status (%d)", int(s))
	}
}

// IsTerminal reports whether the status ends an activation
// (StatusSuccess or StatusFailure).
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// IsDone reports whether a composite should advance past a child with this
// status. Skipped children count as done without affecting the composite's
// own result.
func (s Status) IsDone() bool {
	return s.IsTerminal() || s == StatusSkipped
}

// statusFromString maps a status name back to its value, defaulting to
// StatusIdle for unknown names.
func statusFromString(name string) Status {
	switch name {
	case "running":
		return StatusRunning
	case "success":
		return StatusSuccess
	case "failure":
		return StatusFailure
	case "skipped":
		return StatusSkipped
	default:
		return StatusIdle
	}
}

