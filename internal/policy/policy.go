package policy

import (
	"fmt"
	"strings"
	"time"

	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/input"
)

// Phase is the state of the action policy
type Phase int

const (
	Idle Phase = iota
	Armed
	Acting
	Cooldown
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Armed:
		return "Armed"
	case Acting:
		return "Acting"
	case Cooldown:
		return "Cooldown"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Mode selects what is emitted when the policy starts acting
type Mode int

const (
	// ModeTap emits Press on entering Acting
	ModeTap Mode = iota
	// ModeHold emits Hold on entering Acting and Release on leaving it
	ModeHold
)

func (m Mode) String() string {
	if m == ModeHold {
		return "hold"
	}
	return "tap"
}

// ParseMode parses "tap" or "hold". Empty means tap.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tap", "press":
		return ModeTap, nil
	case "hold":
		return ModeHold, nil
	default:
		return ModeTap, fmt.Errorf("unknown policy mode %q", s)
	}
}

// Config holds the timing constants of the policy
type Config struct {
	// DebounceTicks is how many consecutive found ticks arm an action.
	// Values of 1 or less act on the first sighting.
	DebounceTicks int

	// Cooldown is the quiet period after acting. Zero or less skips it.
	Cooldown time.Duration

	// MaxHold ends Acting after this long. Zero disables the limit.
	MaxHold time.Duration

	// ReleaseCoverage ends Acting once coverage reaches it. Zero disables.
	ReleaseCoverage float64

	Mode   Mode
	Button input.Button
}

// DefaultConfig returns the settings used for the shake prompt
func DefaultConfig() Config {
	return Config{
		DebounceTicks: 2,
		Cooldown:      300 * time.Millisecond,
		MaxHold:       2 * time.Second,
		Mode:          ModeTap,
		Button:        input.DefaultButton,
	}
}

// Transition records one phase change
type Transition struct {
	From Phase
	To   Phase
	At   time.Time
}

func (t Transition) String() string {
	return t.From.String() + "->" + t.To.String()
}

// Decision is the outcome of one Step
type Decision struct {
	Command     input.Command
	From        Phase
	To          Phase
	Transitions []Transition
}

// Changed reports whether the phase moved during the step
func (d Decision) Changed() bool {
	return len(d.Transitions) > 0
}

// Policy maps a stream of signals to input commands. It is owned by a
// single goroutine and is not safe for concurrent use.
type Policy struct {
	cfg Config

	phase     Phase
	enteredAt time.Time
	found     int

	// button pressed on entering Acting, released on leaving it
	actingButton input.Button
}

// New creates a policy in the Idle phase
func New(cfg Config) *Policy {
	return &Policy{cfg: cfg, phase: Idle}
}

// Phase returns the current phase
func (p *Policy) Phase() Phase {
	return p.phase
}

// EnteredAt returns when the current phase started
func (p *Policy) EnteredAt() time.Time {
	return p.enteredAt
}

// Config returns the current configuration
func (p *Policy) Config() Config {
	return p.cfg
}

// SetConfig replaces the timing constants without touching the phase
func (p *Policy) SetConfig(cfg Config) {
	p.cfg = cfg
}

// Step advances the state machine by one tick
func (p *Policy) Step(sig cv.Signal, now time.Time) Decision {
	d := Decision{Command: input.NoOp, From: p.phase}

	switch p.phase {
	case Idle:
		if sig.MarkerFound {
			p.found = 1
			if p.cfg.DebounceTicks <= 1 {
				p.startActing(now, &d)
			} else {
				p.moveTo(Armed, now, &d)
			}
		}

	case Armed:
		if !sig.MarkerFound {
			p.found = 0
			p.moveTo(Idle, now, &d)
			break
		}
		p.found++
		if p.found >= p.cfg.DebounceTicks {
			p.startActing(now, &d)
		}

	case Acting:
		if p.completed(sig, now) {
			d.Command = input.Command{Kind: input.Release, Button: p.actingButton}
			p.moveTo(Cooldown, now, &d)
			if p.cfg.Cooldown <= 0 {
				p.moveTo(Idle, now, &d)
			}
		}

	case Cooldown:
		if now.Sub(p.enteredAt) >= p.cfg.Cooldown {
			p.moveTo(Idle, now, &d)
		}
	}

	d.To = p.phase
	return d
}

// Reset returns the policy to Idle. If it was Acting the returned command
// releases the button so nothing stays held; otherwise it is NoOp.
func (p *Policy) Reset() input.Command {
	cmd := input.NoOp
	if p.phase == Acting {
		cmd = input.Command{Kind: input.Release, Button: p.actingButton}
	}

	p.phase = Idle
	p.enteredAt = time.Time{}
	p.found = 0
	p.actingButton = ""
	return cmd
}

func (p *Policy) startActing(now time.Time, d *Decision) {
	p.found = 0
	p.actingButton = p.cfg.Button
	if p.actingButton == "" {
		p.actingButton = input.DefaultButton
	}

	kind := input.Press
	if p.cfg.Mode == ModeHold {
		kind = input.Hold
	}
	d.Command = input.Command{Kind: kind, Button: p.actingButton}
	p.moveTo(Acting, now, d)
}

func (p *Policy) completed(sig cv.Signal, now time.Time) bool {
	if !sig.MarkerFound {
		return true
	}
	if p.cfg.ReleaseCoverage > 0 && sig.Coverage >= p.cfg.ReleaseCoverage {
		return true
	}
	if p.cfg.MaxHold > 0 && now.Sub(p.enteredAt) >= p.cfg.MaxHold {
		return true
	}
	return false
}

func (p *Policy) moveTo(next Phase, now time.Time, d *Decision) {
	d.Transitions = append(d.Transitions, Transition{From: p.phase, To: next, At: now})
	p.phase = next
	p.enteredAt = now
}
