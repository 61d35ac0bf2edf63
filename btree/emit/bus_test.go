package emit

import (
	"context"
	"testing"
	"time"
)

func testEvent(t EventType, nodeID string) Event {
	return Event{Type: t, NodeID: nodeID, NodeType: "action", Timestamp: time.Now()}
}

func TestBus_SubscribeByType(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(TickEnd, func(ev Event) { got = append(got, ev) })

	bus.Emit(testEvent(TickStart, "a"))
	bus.Emit(testEvent(TickEnd, "a"))

	if len(got) != 1 || got[0].Type != TickEnd {
		t.Errorf("typed subscriber saw %v, want one TICK_END", got)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	count := 0
	bus.SubscribeAll(func(Event) { count++ })

	bus.Emit(testEvent(TickStart, "a"))
	bus.Emit(testEvent(Halt, "a"))
	bus.Emit(testEvent(Log, "a"))

	if count != 3 {
		t.Errorf("wildcard subscriber saw %d events, want 3", count)
	}
}

func TestBus_SubscriberPanicIsolated(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TickEnd, func(Event) { panic("bad subscriber") })
	reached := false
	bus.Subscribe(TickEnd, func(Event) { reached = true })

	bus.Emit(testEvent(TickEnd, "a"))

	if !reached {
		t.Error("panic in one subscriber prevented delivery to the next")
	}
}

func TestBus_ForwardsToEmitters(t *testing.T) {
	bus := NewBus()
	buf := NewBufferedEmitter()
	bus.Forward(buf)

	bus.Emit(testEvent(Error, "x"))

	if buf.Count() != 1 {
		t.Errorf("forwarded emitter saw %d events, want 1", buf.Count())
	}
}

func TestBus_EmitBatchPreservesOrder(t *testing.T) {
	bus := NewBus()
	var ids []string
	bus.SubscribeAll(func(ev Event) { ids = append(ids, ev.NodeID) })

	events := []Event{testEvent(TickStart, "1"), testEvent(TickEnd, "2"), testEvent(Halt, "3")}
	if err := bus.EmitBatch(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "1" || ids[2] != "3" {
		t.Errorf("delivery order = %v, want [1 2 3]", ids)
	}
}
