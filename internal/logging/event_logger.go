package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"jordanella.com/auto-shake-go/internal/events"
)

// EventLogger subscribes to the event bus and logs all events
type EventLogger struct {
	logger         *Logger
	file           *zap.Logger
	rotator        *lumberjack.Logger
	eventBus       events.EventBus
	subscriptionID events.SubscriptionID
}

// NewEventLogger creates a new event logger. When logDir is set every
// event is also appended as JSON to logDir/events.log.
func NewEventLogger(eventBus events.EventBus, logDir string) (*EventLogger, error) {
	el := &EventLogger{
		logger:   NewLogger("events"),
		eventBus: eventBus,
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		el.rotator = &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "events.log"),
			MaxSize:    5,
			MaxBackups: 2,
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(el.rotator), zapcore.DebugLevel)
		el.file = zap.New(core)
	}

	el.subscriptionID = eventBus.SubscribeAll(el.handleEvent)

	return el, nil
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"event_type": string(event.Type),
		"source":     event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	switch event.Type {
	case events.EventTypeCaptureFailed, events.EventTypeInputFailed, events.EventTypeTickSlow:
		el.logger.DebugWithContext(fmt.Sprintf("Event: %s", event.Type), context)
	default:
		el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), context)
	}

	if el.file != nil {
		fields := make([]zap.Field, 0, len(context)+1)
		fields = append(fields, zap.Time("at", event.Timestamp))
		for k, v := range context {
			fields = append(fields, zap.Any(k, v))
		}
		el.file.Info(string(event.Type), fields...)
	}
}

// Close unsubscribes and closes the event log file
func (el *EventLogger) Close() error {
	el.eventBus.Unsubscribe(el.subscriptionID)
	if el.file != nil {
		_ = el.file.Sync()
	}
	if el.rotator != nil {
		return el.rotator.Close()
	}
	return nil
}
