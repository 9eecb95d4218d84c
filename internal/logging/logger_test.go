package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jordanella.com/auto-shake-go/internal/events"
)

func observe(t *testing.T, lvl zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(lvl)
	prev := base.Load()
	Use(zap.New(core))
	t.Cleanup(func() {
		if prev != nil {
			Use(prev)
		} else {
			Use(zap.NewNop())
		}
	})
	return logs
}

func TestLoggerWritesComponentAndContext(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	log := NewLogger("driver")
	log.InfoWithContext("tick", map[string]interface{}{"phase": "Armed"})
	log.Error("capture failed", errors.New("no display"))
	log.WithContext(map[string]interface{}{"region": "100x100+0+0"}).Warn("slow tick")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].LoggerName != "driver" {
		t.Errorf("expected logger name driver, got %q", entries[0].LoggerName)
	}
	if entries[0].ContextMap()["phase"] != "Armed" {
		t.Errorf("missing context: %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["error"] != "no display" {
		t.Errorf("unexpected error entry: %+v", entries[1])
	}
	if entries[2].ContextMap()["region"] != "100x100+0+0" {
		t.Errorf("context logger lost fields: %v", entries[2].ContextMap())
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	log := NewLogger("policy")
	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	if logs.Len() != 1 {
		t.Errorf("expected 1 entry at WARN, got %d", logs.Len())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"WARNING": LogLevelWarn,
		"error":   LogLevelError,
		"":        LogLevelInfo,
		"verbose": LogLevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestInitWritesRotatingFile(t *testing.T) {
	prev := base.Load()
	t.Cleanup(func() {
		if prev != nil {
			Use(prev)
		}
	})

	path := filepath.Join(t.TempDir(), "autoshake.log")
	flush, err := Init(Config{Level: LogLevelDebug, File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	NewLogger("test").InfoWithContext("hello", map[string]interface{}{"n": 1})
	flush()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestEventLoggerLogsEveryEvent(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	bus := events.NewEventBus(16)
	dir := t.TempDir()
	el, err := NewEventLogger(bus, dir)
	if err != nil {
		t.Fatalf("NewEventLogger() failed: %v", err)
	}

	bus.Publish(events.NewPhaseChangedEvent("Idle", "Armed", time.Now()))
	bus.Publish(events.NewErrorEvent(events.EventTypeCaptureFailed, "driver", errors.New("denied"), nil))
	bus.Stop()

	if err := el.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if n := logs.FilterLoggerName("events").Len(); n != 2 {
		t.Errorf("expected 2 logged events, got %d", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "events.log"))
	if err != nil {
		t.Fatalf("failed to read events.log: %v", err)
	}
	if !strings.Contains(string(data), "policy.phase_changed") || !strings.Contains(string(data), "capture.failed") {
		t.Errorf("events.log incomplete: %s", data)
	}
}
