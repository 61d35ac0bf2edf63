package btree

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Engine.Tick when a tick is already in
// flight. The single-activation lock guarantees that one logical caller
// owns the tree at a time; the tree state is unaffected by the rejected
// call.
var ErrAlreadyRunning = errors.New("engine: tick already in progress")

// ErrTreeNotFound is returned by Registry lookups for unknown tree ids.
var ErrTreeNotFound = errors.New("registry: tree not found")

// Engine error codes surfaced through EngineError.
const (
	// CodeTickTimeout indicates the per-tick timer expired before the tick
	// computation finished. The tree is in an unknown state; callers should
	// invoke Halt before ticking again.
	CodeTickTimeout = "TICK_TIMEOUT"

	// CodeMaxTicksExceeded indicates TickUntilDone gave up after the
	// configured maximum number of ticks without reaching a terminal status.
	CodeMaxTicksExceeded = "MAX_TICKS_EXCEEDED"
)

// EngineError is an engine-level failure distinct from a node returning
// StatusFailure. It carries a machine-readable code for programmatic
// handling.
type EngineError struct {
	// Code is a machine-readable error code (see Code* constants).
	Code string

	// Message is the human-readable error description.
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return "engine: " + e.Message
}

// ConfigurationError indicates a broken tree: invalid node configuration
// detected at build time, or an invariant violation discovered during a
// tick (for example a Conditional with a single child). It bypasses the
// error-to-failure conversion in the tick envelope and propagates to the
// caller, because continuing to tick a misconfigured tree is never useful.
type ConfigurationError struct {
	// NodeType is the concrete type tag of the offending node.
	NodeType string

	// NodeID identifies the offending node.
	NodeID string

	// Field is the configuration field path at fault, empty for
	// structural problems such as wrong child counts.
	Field string

	// Hint is a human-readable explanation of what is wrong.
	Hint string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: node %q (%s) field %q: %s", e.NodeID, e.NodeType, e.Field, e.Hint)
	}
	return fmt.Sprintf("configuration error: node %q (%s): %s", e.NodeID, e.NodeType, e.Hint)
}

// CancellationError indicates the cooperative cancellation token was
// signalled at a checkpoint. Like ConfigurationError it bypasses the tick
// envelope's error-to-failure conversion: cancellation must unwind the
// whole tree so the engine can halt it.
type CancellationError struct {
	// Cause is the context error that triggered cancellation.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.Cause != nil {
		return "cancelled: " + e.Cause.Error()
	}
	return "cancelled"
}

// Unwrap returns the underlying context error.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether err belongs to the re-propagation set: errors
// that must not be converted to StatusFailure by the tick envelope and
// must not be swallowed by a Recovery catch branch.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var cfg *ConfigurationError
	var cancel *CancellationError
	return errors.As(err, &cfg) || errors.As(err, &cancel)
}
