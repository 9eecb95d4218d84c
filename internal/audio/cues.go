package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"jordanella.com/auto-shake-go/internal/events"
)

const (
	sampleRate = beep.SampleRate(44100)

	armedFreq  = 1320.0
	pausedFreq = 440.0
	cueLength  = 120 * time.Millisecond
	cueFade    = 15 * time.Millisecond
)

// tone is a sine wave with a linear fade in and out
type tone struct {
	freq     float64
	rate     beep.SampleRate
	position int
	total    int
	fade     int
}

// newTone creates a finite sine streamer
func newTone(freq float64, duration, fade time.Duration, rate beep.SampleRate) *tone {
	return &tone{
		freq:  freq,
		rate:  rate,
		total: rate.N(duration),
		fade:  rate.N(fade),
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	if t.position >= t.total {
		return 0, false
	}

	for i := range samples {
		if t.position >= t.total {
			return i, true
		}

		gain := 1.0
		if t.fade > 0 {
			if t.position < t.fade {
				gain = float64(t.position) / float64(t.fade)
			} else if rem := t.total - t.position; rem < t.fade {
				gain = float64(rem) / float64(t.fade)
			}
		}

		v := gain * math.Sin(2*math.Pi*t.freq*float64(t.position)/float64(t.rate))
		samples[i][0] = v
		samples[i][1] = v
		t.position++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// Cues plays short tones when the loop is armed or paused
type Cues struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	enabled     bool
	initialized bool

	bus  events.EventBus
	subs []events.SubscriptionID
}

// NewCues creates a cue player. volume is in beep's base-2 units; 0 is unity
// gain and -2 is a quarter.
func NewCues(enabled bool, volume float64) *Cues {
	return &Cues{
		mixer:   &beep.Mixer{},
		volume:  volume,
		enabled: enabled,
	}
}

// Initialize opens the speaker. Without an audio device it returns the
// error and the cues stay silent.
func (c *Cues) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}

	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// SetEnabled turns the cues on or off
func (c *Cues) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// Enabled reports whether cues will play
func (c *Cues) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// PlayArmed plays the high tone
func (c *Cues) PlayArmed() bool {
	return c.play(armedFreq)
}

// PlayPaused plays the low tone
func (c *Cues) PlayPaused() bool {
	return c.play(pausedFreq)
}

func (c *Cues) play(freq float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || !c.enabled {
		return false
	}

	s := &effects.Volume{
		Streamer: newTone(freq, cueLength, cueFade, sampleRate),
		Base:     2,
		Volume:   c.volume,
	}

	speaker.Lock()
	c.mixer.Add(s)
	speaker.Unlock()
	return true
}

// Attach plays a cue on every loop activation and deactivation
func (c *Cues) Attach(bus events.EventBus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bus = bus
	c.subs = append(c.subs,
		bus.Subscribe(events.EventTypeLoopActivated, func(events.Event) { c.PlayArmed() }),
		bus.Subscribe(events.EventTypeLoopDeactivated, func(events.Event) { c.PlayPaused() }),
	)
}

// Close detaches from the bus and silences the mixer
func (c *Cues) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bus != nil {
		for _, id := range c.subs {
			c.bus.Unsubscribe(id)
		}
		c.subs = nil
	}

	if c.initialized {
		speaker.Lock()
		c.mixer.Clear()
		speaker.Unlock()
		speaker.Close()
		c.initialized = false
	}
}
