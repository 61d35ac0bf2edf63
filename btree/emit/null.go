package emit

import "context"

// NullEmitter discards every event. Use it when observability is not
// needed but an Emitter is required.
type NullEmitter struct{}

// NewNullEmitter creates an emitter that drops all events.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(_ Event) {}

// EmitBatch discards the events.
func (n *NullEmitter) EmitBatch(_ context.Context, _ []Event) error {
	return nil
}

// Flush is a no-op.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
