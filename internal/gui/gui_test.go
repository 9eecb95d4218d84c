package gui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"jordanella.com/auto-shake-go/internal/bot"
	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/events"
	"jordanella.com/auto-shake-go/internal/policy"
)

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name    string
		st      bot.Status
		healthy bool
		want    string
	}{
		{"off", bot.Status{}, true, "OFF | Idle"},
		{"acting with marker", bot.Status{
			Active:     true,
			Phase:      policy.Acting,
			LastSignal: cv.Signal{MarkerFound: true, Coverage: 0.25},
		}, true, "ON | Acting | marker 25%"},
		{"unhealthy", bot.Status{Active: true, Phase: policy.Idle}, false, "ON | Idle | capture failing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatStatus(tt.st, tt.healthy); got != tt.want {
				t.Errorf("FormatStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventMessages(t *testing.T) {
	tests := []struct {
		event events.Event
		level LogLevel
		want  string
	}{
		{events.NewLoopActivatedEvent("10x10+0+0"), LogLevelInfo, "Loop armed on 10x10+0+0"},
		{events.NewLoopDeactivatedEvent(12, 3), LogLevelInfo, "Loop paused after 12 ticks, 3 actions"},
		{events.NewPhaseChangedEvent("idle", "armed", time.Now()), LogLevelDebug, "idle -> armed"},
		{events.NewActionEmittedEvent("press", "enter", "acting", nil), LogLevelInfo, "press(enter)"},
		{events.NewActionEmittedEvent("hold", "space", "acting", errors.New("denied")), LogLevelInfo, "hold(space) failed: denied"},
		{events.NewTickSlowEvent(40*time.Millisecond, 25*time.Millisecond), LogLevelWarn, "Slow tick 40ms over 25ms budget"},
		{events.NewErrorEvent(events.EventTypeCaptureFailed, "driver", errors.New("no display"), nil), LogLevelError, "no display"},
	}

	for _, tt := range tests {
		entry := entryFromEvent(tt.event)
		if entry.Message != tt.want {
			t.Errorf("%s: message %q, want %q", tt.event.Type, entry.Message, tt.want)
		}
		if entry.Level != tt.level {
			t.Errorf("%s: level %s, want %s", tt.event.Type, entry.Level, tt.level)
		}
	}
}

func TestSettingsFormRoundTrip(t *testing.T) {
	cfg := config.NewDefaultConfig()

	f := formFromConfig(cfg)
	f.X = " 200 "
	f.Width = "640"
	f.Tolerance = "12.5"
	f.Mode = "hold"
	f.Button = "mouse:left"

	out, err := f.applyTo(cfg)
	if err != nil {
		t.Fatalf("applyTo() failed: %v", err)
	}
	if out.Capture.X != 200 || out.Capture.Width != 640 || out.Detection.Tolerance != 12.5 {
		t.Errorf("form not applied: %+v", out.Capture)
	}
	if out.Policy.Mode != "hold" || out.Policy.Button != "mouse:left" {
		t.Errorf("policy not applied: %+v", out.Policy)
	}
	if cfg.Capture.X != 122 {
		t.Error("applyTo must not modify its input")
	}
}

func TestSettingsFormRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*settingsForm)
		want   string
	}{
		{"non numeric", func(f *settingsForm) { f.Height = "tall" }, "height"},
		{"bad tolerance", func(f *settingsForm) { f.Tolerance = "a lot" }, "tolerance"},
		{"zero width", func(f *settingsForm) { f.Width = "0" }, "width"},
		{"bad colour", func(f *settingsForm) { f.TargetColor = "white" }, "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := formFromConfig(config.NewDefaultConfig())
			tt.mutate(&f)
			_, err := f.applyTo(config.NewDefaultConfig())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLogBufferBoundsAndFilters(t *testing.T) {
	b := newLogBuffer(3)
	for i, lvl := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		b.add(LogEntry{Level: lvl, Message: string(rune('a' + i))})
	}

	all := b.filtered(LogLevelDebug)
	if len(all) != 3 || all[0].Message != "b" {
		t.Errorf("buffer should keep the newest 3 entries, got %+v", all)
	}
	if warn := b.filtered(LogLevelWarn); len(warn) != 2 {
		t.Errorf("expected 2 entries at WARN or above, got %d", len(warn))
	}

	b.clear()
	if len(b.filtered(LogLevelDebug)) != 0 {
		t.Error("clear left entries behind")
	}
}

func TestUIEventBusDispatchesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewUIEventBus()
	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	bus.Subscribe(UIEventDialogInfo, func(e UIEvent) {
		mu.Lock()
		got = append(got, e.Data["title"].(string))
		n := len(got)
		mu.Unlock()
		if n == 2 {
			close(done)
		}
	})
	bus.Start(time.Millisecond)

	bus.Publish(ShowInfoDialog("first", ""))
	bus.Publish(ShowInfoDialog("second", ""))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not dispatched")
	}

	bus.Stop()
	bus.Stop()
	if bus.Publish(ShowErrorDialog("late")) {
		t.Error("Publish after Stop should report a drop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("unexpected dispatch order %v", got)
	}
}
