package gui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"jordanella.com/auto-shake-go/internal/bot"
	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/events"
)

// unhealthyAfter is how many consecutive capture failures mark the loop unhealthy
const unhealthyAfter = 10

// FormatStatus renders the one-line status shown in the window header
func FormatStatus(st bot.Status, healthy bool) string {
	state := "OFF"
	if st.Active {
		state = "ON"
	}

	parts := []string{state, st.Phase.String()}
	if st.Active && st.LastSignal.MarkerFound {
		parts = append(parts, fmt.Sprintf("marker %.0f%%", st.LastSignal.Coverage*100))
	}
	if !healthy {
		parts = append(parts, "capture failing")
	}
	return strings.Join(parts, " | ")
}

// FormatStats renders tick counters and timings
func FormatStats(s bot.TickStats) string {
	return fmt.Sprintf("ticks %d (slow %d)  avg %s  max %s\npress %d  hold %d  release %d\ncapture errors %d  input errors %d",
		s.Ticks, s.SlowTicks,
		s.AverageDuration.Round(10*time.Microsecond), s.MaxDuration.Round(10*time.Microsecond),
		s.Presses, s.Holds, s.Releases,
		s.CaptureErrors, s.InputErrors)
}

// FormatSignal renders a signal for the preview dialog
func FormatSignal(sig cv.Signal) string {
	if sig.Sampled == 0 {
		return "empty sample"
	}
	return fmt.Sprintf("%s\nmatched %d of %d sampled", sig, sig.Matched, sig.Sampled)
}

// eventLevel maps bus events onto log severities
func eventLevel(t events.EventType) LogLevel {
	switch t {
	case events.EventTypeCaptureFailed, events.EventTypeInputFailed:
		return LogLevelError
	case events.EventTypeTickSlow, events.EventTypePolicyReset:
		return LogLevelWarn
	case events.EventTypePhaseChanged:
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// eventMessage is the log line for a bus event
func eventMessage(e events.Event) string {
	switch e.Type {
	case events.EventTypeLoopActivated:
		return "Loop armed on " + e.StringValue("region")
	case events.EventTypeLoopDeactivated:
		return fmt.Sprintf("Loop paused after %d ticks, %d actions", e.IntValue("ticks"), e.IntValue("actions"))
	case events.EventTypePhaseChanged:
		return e.StringValue("from") + " -> " + e.StringValue("to")
	case events.EventTypePolicyReset:
		return "Policy reset from " + e.StringValue("phase") + ": " + e.StringValue("reason")
	case events.EventTypeActionEmitted:
		msg := e.StringValue("kind") + "(" + e.StringValue("button") + ")"
		if errMsg := e.StringValue("error"); errMsg != "" {
			msg += " failed: " + errMsg
		}
		return msg
	case events.EventTypeTickSlow:
		return fmt.Sprintf("Slow tick %dms over %dms budget", e.IntValue("took_ms"), e.IntValue("budget_ms"))
	case events.EventTypeConfigReloaded:
		return "Settings reloaded from " + e.StringValue("path")
	case events.EventTypeCaptureFailed, events.EventTypeInputFailed:
		return e.StringValue("error")
	default:
		return string(e.Type)
	}
}

// settingsForm holds the editable fields as the entries show them
type settingsForm struct {
	X, Y, Width, Height string
	TargetColor         string
	Tolerance           string
	Metric              string
	SampleStep          string
	MinBlobWidth        string
	MinBlobHeight       string
	DebounceTicks       string
	CooldownMs          string
	MaxHoldMs           string
	Mode                string
	Button              string
	IntervalMs          string
}

// formFromConfig fills the form from cfg
func formFromConfig(cfg *config.Config) settingsForm {
	return settingsForm{
		X:             strconv.Itoa(cfg.Capture.X),
		Y:             strconv.Itoa(cfg.Capture.Y),
		Width:         strconv.Itoa(cfg.Capture.Width),
		Height:        strconv.Itoa(cfg.Capture.Height),
		TargetColor:   cfg.Detection.TargetColor,
		Tolerance:     strconv.FormatFloat(cfg.Detection.Tolerance, 'f', -1, 64),
		Metric:        cfg.Detection.Metric,
		SampleStep:    strconv.Itoa(cfg.Detection.SampleStep),
		MinBlobWidth:  strconv.Itoa(cfg.Detection.MinBlobWidth),
		MinBlobHeight: strconv.Itoa(cfg.Detection.MinBlobHeight),
		DebounceTicks: strconv.Itoa(cfg.Policy.DebounceTicks),
		CooldownMs:    strconv.Itoa(cfg.Policy.CooldownMs),
		MaxHoldMs:     strconv.Itoa(cfg.Policy.MaxHoldMs),
		Mode:          cfg.Policy.Mode,
		Button:        cfg.Policy.Button,
		IntervalMs:    strconv.Itoa(cfg.Loop.IntervalMs),
	}
}

// applyTo parses the form into a copy of cfg and validates it
func (f settingsForm) applyTo(cfg *config.Config) (*config.Config, error) {
	out := *cfg

	ints := []struct {
		name string
		text string
		dst  *int
	}{
		{"x", f.X, &out.Capture.X},
		{"y", f.Y, &out.Capture.Y},
		{"width", f.Width, &out.Capture.Width},
		{"height", f.Height, &out.Capture.Height},
		{"sample step", f.SampleStep, &out.Detection.SampleStep},
		{"min blob width", f.MinBlobWidth, &out.Detection.MinBlobWidth},
		{"min blob height", f.MinBlobHeight, &out.Detection.MinBlobHeight},
		{"debounce ticks", f.DebounceTicks, &out.Policy.DebounceTicks},
		{"cooldown", f.CooldownMs, &out.Policy.CooldownMs},
		{"max hold", f.MaxHoldMs, &out.Policy.MaxHoldMs},
		{"interval", f.IntervalMs, &out.Loop.IntervalMs},
	}
	for _, field := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(field.text))
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", field.name)
		}
		*field.dst = v
	}

	tol, err := strconv.ParseFloat(strings.TrimSpace(f.Tolerance), 64)
	if err != nil {
		return nil, errors.New("tolerance must be a number")
	}
	out.Detection.Tolerance = tol

	out.Detection.TargetColor = strings.TrimSpace(f.TargetColor)
	out.Detection.Metric = f.Metric
	out.Policy.Mode = f.Mode
	out.Policy.Button = strings.TrimSpace(f.Button)

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
