package emit

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Handler consumes a single event.
type Handler func(Event)

// Bus fans lifecycle events out to subscribers registered by event type or
// for all types. It implements Emitter so it can be handed to the engine
// directly and can forward to further emitters (log, otel, buffered).
//
// Subscriber panics are isolated: one failing subscriber never prevents
// delivery to the others, and never interrupts the tick that emitted the
// event.
type Bus struct {
	mu       sync.RWMutex
	byType   map[EventType][]Handler
	anySubs  []Handler
	forwards []Emitter
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		byType: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[t] = append(b.byType[t], h)
}

// SubscribeAll registers a handler invoked for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anySubs = append(b.anySubs, h)
}

// Forward attaches an emitter that receives every event after the
// subscribers have run.
func (b *Bus) Forward(e Emitter) {
	if e == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwards = append(b.forwards, e)
}

// Emit delivers the event to type subscribers, then wildcard subscribers,
// then forwarded emitters, in registration order within each group.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	typed := b.byType[event.Type]
	anySubs := b.anySubs
	forwards := b.forwards
	b.mu.RUnlock()

	for _, h := range typed {
		b.safeCall(h, event)
	}
	for _, h := range anySubs {
		b.safeCall(h, event)
	}
	for _, e := range forwards {
		b.safeEmit(e, event)
	}
}

// EmitBatch delivers events one at a time, preserving order.
func (b *Bus) EmitBatch(_ context.Context, events []Event) error {
	for _, ev := range events {
		b.Emit(ev)
	}
	return nil
}

// Flush flushes every forwarded emitter, returning the first error.
func (b *Bus) Flush(ctx context.Context) error {
	b.mu.RLock()
	forwards := b.forwards
	b.mu.RUnlock()

	var firstErr error
	for _, e := range forwards {
		if err := e.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bus) safeCall(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "emit: subscriber panic on %s: %v\n", event.Type, r)
		}
	}()
	h(event)
}

func (b *Bus) safeEmit(e Emitter, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "emit: emitter panic on %s: %v\n", event.Type, r)
		}
	}()
	e.Emit(event)
}
