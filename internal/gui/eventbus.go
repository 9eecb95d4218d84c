package gui

import (
	"sync"
	"time"

	"jordanella.com/auto-shake-go/internal/logging"
)

// UIEventType identifies a UI update
type UIEventType int

const (
	UIEventLogAdd UIEventType = iota
	UIEventStatusUpdate
	UIEventDialogError
	UIEventDialogInfo
)

// UIEvent is a UI update queued from a background goroutine
type UIEvent struct {
	Type   UIEventType
	Target string
	Data   map[string]interface{}
}

// UIEventHandler processes a UI event. Handlers wrap widget work in fyne.Do.
type UIEventHandler func(UIEvent)

// UIEventBus moves updates from loop and bus goroutines to the UI. Publishers
// never block; when the queue is full the update is dropped.
type UIEventBus struct {
	events   chan UIEvent
	handlers map[UIEventType][]UIEventHandler
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *logging.Logger
}

// NewUIEventBus creates a UI event bus
func NewUIEventBus() *UIEventBus {
	return &UIEventBus{
		events:   make(chan UIEvent, 256),
		handlers: make(map[UIEventType][]UIEventHandler),
		stopCh:   make(chan struct{}),
		logger:   logging.NewLogger("gui"),
	}
}

// Subscribe registers a handler for an event type
func (eb *UIEventBus) Subscribe(eventType UIEventType, handler UIEventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish queues an event. It reports false if the event was dropped.
func (eb *UIEventBus) Publish(event UIEvent) bool {
	select {
	case <-eb.stopCh:
		return false
	default:
	}

	select {
	case eb.events <- event:
		return true
	default:
		eb.logger.DebugWithContext("UI queue full, dropping update", map[string]interface{}{
			"target": event.Target,
		})
		return false
	}
}

// Start drains the queue every interval until Stop
func (eb *UIEventBus) Start(interval time.Duration) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				eb.processEvents()
			case <-eb.stopCh:
				return
			}
		}
	}()
}

// Stop stops the drain loop
func (eb *UIEventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.stopCh)
	})
	eb.wg.Wait()
}

func (eb *UIEventBus) processEvents() {
	for {
		select {
		case event := <-eb.events:
			eb.dispatch(event)
		default:
			return
		}
	}
}

func (eb *UIEventBus) dispatch(event UIEvent) {
	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// AddLog creates an event to add a log entry
func AddLog(entry LogEntry) UIEvent {
	return UIEvent{
		Type:   UIEventLogAdd,
		Target: "log",
		Data:   map[string]interface{}{"entry": entry},
	}
}

// ShowErrorDialog creates an event to show an error dialog
func ShowErrorDialog(message string) UIEvent {
	return UIEvent{
		Type:   UIEventDialogError,
		Target: "dialog",
		Data:   map[string]interface{}{"message": message},
	}
}

// ShowInfoDialog creates an event to show an info dialog
func ShowInfoDialog(title, message string) UIEvent {
	return UIEvent{
		Type:   UIEventDialogInfo,
		Target: "dialog",
		Data: map[string]interface{}{
			"title":   title,
			"message": message,
		},
	}
}
