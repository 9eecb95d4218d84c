package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func collect(bus *DefaultEventBus, eventType EventType) (*[]Event, *sync.Mutex) {
	var (
		mu  sync.Mutex
		got []Event
	)
	handler := func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}
	if eventType == "" {
		bus.SubscribeAll(handler)
	} else {
		bus.Subscribe(eventType, handler)
	}
	return &got, &mu
}

func TestBusDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewEventBus(64)
	got, mu := collect(bus, EventTypePhaseChanged)

	phases := []string{"Idle", "Armed", "Acting", "Cooldown", "Idle"}
	for i := 1; i < len(phases); i++ {
		bus.Publish(NewPhaseChangedEvent(phases[i-1], phases[i], time.Now()))
	}
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(*got))
	}
	for i, e := range *got {
		if e.StringValue("to") != phases[i+1] {
			t.Errorf("event %d out of order: %v", i, e.Data)
		}
	}
}

func TestBusSubscribeAllAndUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewEventBus(16)
	all, allMu := collect(bus, "")

	var count int
	var mu sync.Mutex
	id := bus.Subscribe(EventTypeTickSlow, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	if n := bus.GetSubscriberCount(EventTypeTickSlow); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}

	bus.Publish(NewTickSlowEvent(40*time.Millisecond, 16*time.Millisecond))
	bus.Publish(NewConfigReloadedEvent("Settings.ini"))

	// Stop drains the queue before returning
	bus.Stop()

	allMu.Lock()
	if len(*all) != 2 {
		t.Errorf("wildcard subscriber got %d events, want 2", len(*all))
	}
	allMu.Unlock()

	bus.Unsubscribe(id)
	if n := bus.GetSubscriberCount(EventTypeTickSlow); n != 1 {
		t.Errorf("expected 1 subscriber after unsubscribe, got %d", n)
	}

	mu.Lock()
	if count != 1 {
		t.Errorf("typed subscriber got %d events, want 1", count)
	}
	mu.Unlock()
}

func TestBusPublishAsyncNeverBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewEventBus(1)

	block := make(chan struct{})
	bus.Subscribe(EventTypeActionEmitted, func(Event) { <-block })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.PublishAsync(NewActionEmittedEvent("press", "enter", "Acting", nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishAsync blocked")
	}

	if bus.Dropped() == 0 {
		t.Error("expected drops with a blocked handler and a tiny queue")
	}

	close(block)
	bus.Stop()

	if bus.PublishAsync(NewConfigReloadedEvent("x")) {
		t.Error("publish after stop should be dropped")
	}
}

func TestBusRecoversFromHandlerPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewEventBus(8)
	bus.Subscribe(EventTypeInputFailed, func(Event) { panic("boom") })
	got, mu := collect(bus, EventTypeInputFailed)

	bus.Publish(NewErrorEvent(EventTypeInputFailed, "driver", errors.New("denied"), map[string]interface{}{"button": "enter"}))
	bus.Stop()
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("second handler should still run, got %d events", len(*got))
	}
	e := (*got)[0]
	if e.StringValue("error") != "denied" || e.StringValue("button") != "enter" {
		t.Errorf("unexpected data %v", e.Data)
	}
}

func TestEventAccessors(t *testing.T) {
	e := NewLoopDeactivatedEvent(42, 3)
	if e.IntValue("ticks") != 42 || e.IntValue("actions") != 3 {
		t.Errorf("unexpected counters %v", e.Data)
	}
	if e.StringValue("missing") != "" || e.IntValue("missing") != 0 {
		t.Error("missing keys should be zero")
	}
}
