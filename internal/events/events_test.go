package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventReservationCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := ReservationEventPayload{
		ReservationID: 7,
		UserID:        42,
		CottageID:     "rock",
		Status:        "pending",
		CheckIn:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := bus.PublishJSON(EventReservationCreated, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventReservationCreated {
		t.Errorf("expected type %s, got %s", EventReservationCreated, received.Type)
	}

	var decoded ReservationEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.ReservationID != 7 || decoded.CottageID != "rock" {
		t.Errorf("payload round trip mismatch: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}

func TestEventBusTypeIsolation(t *testing.T) {
	bus := NewEventBus()
	var cancelled int

	bus.Subscribe(EventReservationCancelled, func(_ *Event) error { cancelled++; return nil })

	bus.Publish(&Event{Type: EventReservationCreated})
	if cancelled != 0 {
		t.Errorf("handler fired for the wrong event type")
	}

	bus.Publish(&Event{Type: EventReservationCancelled})
	if cancelled != 1 {
		t.Errorf("expected 1 call, got %d", cancelled)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Publishing with no subscribers is a no-op, not a panic.
	if err := bus.PublishJSON("orphan_event", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}
}

func TestEventBusNilReceiver(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON("event", nil); err != nil {
		t.Fatalf("nil bus should swallow publishes, got %v", err)
	}
}

func TestPublishSetsCreatedAt(t *testing.T) {
	bus := NewEventBus()
	var got time.Time
	bus.Subscribe("event", func(e *Event) error { got = e.CreatedAt; return nil })

	bus.Publish(&Event{Type: "event"})
	if got.IsZero() {
		t.Error("expected CreatedAt to be stamped on publish")
	}
}
