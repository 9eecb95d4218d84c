package events

import (
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	// Loop events
	EventTypeLoopActivated   EventType = "loop.activated"
	EventTypeLoopDeactivated EventType = "loop.deactivated"
	EventTypeTickSlow        EventType = "tick.slow"

	// Policy events
	EventTypePhaseChanged  EventType = "policy.phase_changed"
	EventTypePolicyReset   EventType = "policy.reset"
	EventTypeActionEmitted EventType = "action.emitted"

	// Error events
	EventTypeCaptureFailed EventType = "capture.failed"
	EventTypeInputFailed   EventType = "input.failed"

	// Shell events
	EventTypeConfigReloaded EventType = "config.reloaded"
)

// AllEventTypes lists every event type the application publishes
var AllEventTypes = []EventType{
	EventTypeLoopActivated,
	EventTypeLoopDeactivated,
	EventTypeTickSlow,
	EventTypePhaseChanged,
	EventTypePolicyReset,
	EventTypeActionEmitted,
	EventTypeCaptureFailed,
	EventTypeInputFailed,
	EventTypeConfigReloaded,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "driver", "config")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// StringValue returns a data field as a string, or "" when missing
func (e Event) StringValue(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// IntValue returns a numeric data field as int64
func (e Event) IntValue(key string) int64 {
	switch v := e.Data[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// SubscribeAll registers a handler for every event type
	SubscribeAll(handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking until queued)
	Publish(event Event)

	// PublishAsync queues an event without blocking; it is dropped if the
	// queue is full
	PublishAsync(event Event) bool

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewLoopActivatedEvent creates a loop activated event
func NewLoopActivatedEvent(region string) Event {
	return Event{
		Type:      EventTypeLoopActivated,
		Source:    "driver",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"region": region,
		},
	}
}

// NewLoopDeactivatedEvent creates a loop deactivated event
func NewLoopDeactivatedEvent(ticks, actions uint64) Event {
	return Event{
		Type:      EventTypeLoopDeactivated,
		Source:    "driver",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"ticks":   ticks,
			"actions": actions,
		},
	}
}

// NewPhaseChangedEvent creates a policy phase changed event
func NewPhaseChangedEvent(from, to string, at time.Time) Event {
	return Event{
		Type:      EventTypePhaseChanged,
		Source:    "policy",
		Timestamp: at,
		Data: map[string]interface{}{
			"from": from,
			"to":   to,
		},
	}
}

// NewPolicyResetEvent creates a policy reset event
func NewPolicyResetEvent(reason, phase string) Event {
	return Event{
		Type:      EventTypePolicyReset,
		Source:    "driver",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"reason": reason,
			"phase":  phase,
		},
	}
}

// NewActionEmittedEvent creates an action emitted event
func NewActionEmittedEvent(kind, button, phase string, err error) Event {
	data := map[string]interface{}{
		"kind":   kind,
		"button": button,
		"phase":  phase,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:      EventTypeActionEmitted,
		Source:    "driver",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewTickSlowEvent creates a slow tick event
func NewTickSlowEvent(took, budget time.Duration) Event {
	return Event{
		Type:      EventTypeTickSlow,
		Source:    "driver",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"took_ms":   took.Milliseconds(),
			"budget_ms": budget.Milliseconds(),
		},
	}
}

// NewConfigReloadedEvent creates a config reloaded event
func NewConfigReloadedEvent(path string) Event {
	return Event{
		Type:      EventTypeConfigReloaded,
		Source:    "config",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path": path,
		},
	}
}

// NewErrorEvent creates an error event of the given type
func NewErrorEvent(eventType EventType, source string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"source": source,
		"error":  err.Error(),
	}

	// Merge metadata
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
