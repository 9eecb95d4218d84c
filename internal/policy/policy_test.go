package policy

import (
	"image"
	"image/color"
	"reflect"
	"testing"
	"time"

	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/input"
)

var (
	found   = cv.Signal{Version: cv.SignalVersion, MarkerFound: true, Coverage: 0.5}
	missing = cv.NeutralSignal()
)

type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) tick(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func run(p *Policy, c *clock, signals ...cv.Signal) []input.Kind {
	kinds := make([]input.Kind, 0, len(signals))
	for _, s := range signals {
		kinds = append(kinds, p.Step(s, c.tick(10*time.Millisecond)).Command.Kind)
	}
	return kinds
}

func emitted(kinds []input.Kind) []input.Kind {
	var out []input.Kind
	for _, k := range kinds {
		if k != input.None {
			out = append(out, k)
		}
	}
	return out
}

func TestDebounceRejectsShortBursts(t *testing.T) {
	for k := 2; k <= 5; k++ {
		for burst := 1; burst < k; burst++ {
			p := New(Config{DebounceTicks: k, Button: "enter"})
			c := newClock()

			signals := make([]cv.Signal, 0, burst+1)
			for i := 0; i < burst; i++ {
				signals = append(signals, found)
			}
			signals = append(signals, missing)

			if got := emitted(run(p, c, signals...)); len(got) != 0 {
				t.Errorf("K=%d burst=%d: emitted %v", k, burst, got)
			}
			if p.Phase() != Idle {
				t.Errorf("K=%d burst=%d: ended in %s", k, burst, p.Phase())
			}
		}
	}
}

func TestTriggerSequence(t *testing.T) {
	for k := 1; k <= 4; k++ {
		p := New(Config{DebounceTicks: k, Cooldown: 50 * time.Millisecond, Button: "enter"})
		c := newClock()

		signals := make([]cv.Signal, 0, k+3)
		for i := 0; i < k; i++ {
			signals = append(signals, found)
		}
		signals = append(signals, found, found, missing)

		kinds := run(p, c, signals...)

		want := make([]input.Kind, 0, len(kinds))
		for i := 0; i < k-1; i++ {
			want = append(want, input.None)
		}
		want = append(want, input.Press, input.None, input.None, input.Release)

		if !reflect.DeepEqual(kinds, want) {
			t.Errorf("K=%d: got %v, want %v", k, kinds, want)
		}
		if p.Phase() != Cooldown {
			t.Errorf("K=%d: expected Cooldown, got %s", k, p.Phase())
		}
	}
}

func TestEndToEndRedMarker(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	th := cv.Thresholds{Target: red, Tolerance: 0, SampleStep: 1}

	p := New(Config{DebounceTicks: 3, Cooldown: 0, Button: "enter"})
	c := newClock()

	var cmds []input.Kind
	for i := 0; i < 3; i++ {
		sig := cv.Extract(solid(100, 100, red), th)
		cmds = append(cmds, p.Step(sig, c.tick(16*time.Millisecond)).Command.Kind)
	}
	if want := []input.Kind{input.None, input.None, input.Press}; !reflect.DeepEqual(cmds, want) {
		t.Fatalf("red frames: got %v, want %v", cmds, want)
	}

	d := p.Step(cv.Extract(solid(100, 100, white), th), c.tick(16*time.Millisecond))
	if d.Command.Kind != input.Release || d.Command.Button != "enter" {
		t.Errorf("expected Release(enter), got %v", d.Command)
	}

	var path []Phase
	for _, tr := range d.Transitions {
		path = append(path, tr.To)
	}
	if !reflect.DeepEqual(path, []Phase{Cooldown, Idle}) {
		t.Errorf("expected Acting->Cooldown->Idle, got %v", d.Transitions)
	}
	if d.From != Acting || d.To != Idle || p.Phase() != Idle {
		t.Errorf("expected to end in Idle, got %s", p.Phase())
	}
}

func TestCooldownBlocksRetrigger(t *testing.T) {
	p := New(Config{DebounceTicks: 1, Cooldown: 100 * time.Millisecond, Button: "enter"})
	c := newClock()

	p.Step(found, c.now)
	if d := p.Step(missing, c.tick(10*time.Millisecond)); d.Command.Kind != input.Release {
		t.Fatalf("expected release, got %v", d.Command)
	}

	// marker still visible during cooldown
	for i := 0; i < 9; i++ {
		if d := p.Step(found, c.tick(10*time.Millisecond)); d.Command.Kind != input.None {
			t.Fatalf("tick %d: emitted %v during cooldown", i, d.Command)
		}
	}
	if p.Phase() != Cooldown {
		t.Fatalf("expected Cooldown at 90ms, got %s", p.Phase())
	}

	if d := p.Step(found, c.tick(10*time.Millisecond)); d.To != Idle {
		t.Errorf("expected Idle after 100ms, got %s", d.To)
	}
	if d := p.Step(found, c.tick(10*time.Millisecond)); d.Command.Kind != input.Press {
		t.Errorf("expected re-trigger after cooldown, got %v", d.Command)
	}
}

func TestMaxHoldCompletesActing(t *testing.T) {
	p := New(Config{DebounceTicks: 1, Cooldown: time.Second, MaxHold: 50 * time.Millisecond, Mode: ModeHold, Button: "space"})
	c := newClock()

	if d := p.Step(found, c.now); d.Command != (input.Command{Kind: input.Hold, Button: "space"}) {
		t.Fatalf("expected Hold(space), got %v", d.Command)
	}

	for i := 0; i < 4; i++ {
		if d := p.Step(found, c.tick(10*time.Millisecond)); !d.Command.IsNone() {
			t.Fatalf("released early at tick %d", i)
		}
	}
	d := p.Step(found, c.tick(10*time.Millisecond))
	if d.Command.Kind != input.Release || d.To != Cooldown {
		t.Errorf("expected release into Cooldown at max hold, got %v -> %s", d.Command, d.To)
	}
}

func TestReleaseCoverage(t *testing.T) {
	p := New(Config{DebounceTicks: 1, Cooldown: time.Second, ReleaseCoverage: 0.8, Mode: ModeHold, Button: "mouse:left"})
	c := newClock()

	p.Step(found, c.now)

	partial := found
	partial.Coverage = 0.79
	if d := p.Step(partial, c.tick(time.Millisecond)); !d.Command.IsNone() {
		t.Fatalf("released below threshold")
	}

	full := found
	full.Coverage = 0.8
	d := p.Step(full, c.tick(time.Millisecond))
	if d.Command != (input.Command{Kind: input.Release, Button: "mouse:left"}) {
		t.Errorf("expected Release(mouse:left), got %v", d.Command)
	}
}

func TestReleaseUsesActingButton(t *testing.T) {
	p := New(Config{DebounceTicks: 1, Mode: ModeHold, Button: "space"})
	c := newClock()

	p.Step(found, c.now)
	p.SetConfig(Config{DebounceTicks: 1, Mode: ModeHold, Button: "enter"})

	d := p.Step(missing, c.tick(time.Millisecond))
	if d.Command.Button != "space" {
		t.Errorf("release must target the held button, got %v", d.Command)
	}
}

func TestResetFromEachPhase(t *testing.T) {
	tests := []struct {
		name  string
		steps []cv.Signal
		phase Phase
		want  input.Kind
	}{
		{"idle", nil, Idle, input.None},
		{"armed", []cv.Signal{found}, Armed, input.None},
		{"acting", []cv.Signal{found, found, found}, Acting, input.Release},
		{"cooldown", []cv.Signal{found, found, missing}, Cooldown, input.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{DebounceTicks: 2, Cooldown: time.Minute, Button: "enter"})
			c := newClock()
			run(p, c, tt.steps...)

			if p.Phase() != tt.phase {
				t.Fatalf("setup reached %s, want %s", p.Phase(), tt.phase)
			}

			if got := p.Reset(); got.Kind != tt.want {
				t.Errorf("Reset() = %v, want %s", got, tt.want)
			}
			if p.Phase() != Idle {
				t.Errorf("expected Idle after reset, got %s", p.Phase())
			}

			// a single sighting after reset only arms
			if d := p.Step(found, c.tick(time.Millisecond)); d.To != Armed || !d.Command.IsNone() {
				t.Errorf("expected fresh debounce after reset, got %s %v", d.To, d.Command)
			}
		})
	}
}

func TestTapModeStreamNeverInverts(t *testing.T) {
	p := New(Config{DebounceTicks: 2, Cooldown: 20 * time.Millisecond, Button: "enter"})
	c := newClock()

	pattern := []cv.Signal{found, missing, found, found, found, missing, found, found, found, found, missing}
	var stream []input.Kind
	for i := 0; i < 5; i++ {
		stream = append(stream, emitted(run(p, c, pattern...))...)
	}

	open := false
	for i, k := range stream {
		switch k {
		case input.Press, input.Hold:
			if open {
				t.Fatalf("duplicate press at %d: %v", i, stream)
			}
			open = true
		case input.Release:
			if !open {
				t.Fatalf("release without press at %d: %v", i, stream)
			}
			open = false
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("HOLD"); err != nil || m != ModeHold {
		t.Errorf("ParseMode(HOLD) = %v, %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModeTap {
		t.Errorf("ParseMode('') = %v, %v", m, err)
	}
	if _, err := ParseMode("spam"); err == nil {
		t.Error("expected error")
	}
}

func solid(w, h int, c color.RGBA) *cv.Sample {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return &cv.Sample{Image: img, Region: cv.NewRegion(0, 0, w, h)}
}
