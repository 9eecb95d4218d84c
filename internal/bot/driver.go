package bot

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/events"
	"jordanella.com/auto-shake-go/internal/input"
	"jordanella.com/auto-shake-go/internal/logging"
	"jordanella.com/auto-shake-go/internal/policy"
)

// ErrDriverRunning is returned when a second driver loop is started in the
// same process
var ErrDriverRunning = errors.New("driver loop already running")

// one loop per process drives the input device
var loopRunning atomic.Bool

// Status is what the shell polls to render the loop state
type Status struct {
	Active      bool
	Phase       policy.Phase
	PhaseSince  time.Time
	Region      cv.Region
	LastSignal  cv.Signal
	LastCommand input.Command
	LastError   string
	Stats       TickStats
}

// TickReport describes one Tick
type TickReport struct {
	Active   bool
	Signal   cv.Signal
	Decision policy.Decision
	Sample   *cv.Sample

	CaptureErr error
	InputErr   error

	Duration time.Duration
	Slow     bool
}

// Option configures a Driver
type Option func(*Driver)

// WithEventBus publishes loop events to bus
func WithEventBus(bus events.EventBus) Option {
	return func(d *Driver) { d.bus = bus }
}

// WithWarnInterval sets how often repeated warnings are logged
func WithWarnInterval(every time.Duration) Option {
	return func(d *Driver) { d.warnLimiter = rate.NewLimiter(rate.Every(every), 1) }
}

// Driver runs the capture, extract, decide, emit loop
type Driver struct {
	shared  *Shared
	sampler cv.Sampler
	emitter input.Emitter
	bus     events.EventBus

	logger      *logging.Logger
	metrics     *TickMetrics
	warnLimiter *rate.Limiter

	// owned by the ticking goroutine, serialised by tickMu
	tickMu         sync.Mutex
	extractor      *cv.Extractor
	policy         *policy.Policy
	wasActive      bool
	lastRegion     cv.Region
	lastTarget     color.RGBA
	lastCmd        input.Command
	lastErr        string
	sessionTicks   uint64
	sessionActions uint64

	status atomic.Pointer[Status]
}

// NewDriver creates a driver reading from shared
func NewDriver(shared *Shared, sampler cv.Sampler, emitter input.Emitter, opts ...Option) *Driver {
	settings := shared.Snapshot()

	d := &Driver{
		shared:      shared,
		sampler:     sampler,
		emitter:     emitter,
		logger:      logging.NewLogger("driver"),
		metrics:     NewTickMetrics(),
		warnLimiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		extractor:   cv.NewExtractor(settings.SkipUnchanged),
		policy:      policy.New(settings.Policy),
		lastRegion:  settings.Region,
		lastTarget:  settings.Thresholds.Target,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.status.Store(&Status{Region: settings.Region})
	return d
}

// Metrics returns the driver's metrics tracker
func (d *Driver) Metrics() *TickMetrics {
	return d.metrics
}

// Status returns the latest published status. Safe from any goroutine.
func (d *Driver) Status() Status {
	st := *d.status.Load()
	st.Stats = d.metrics.GetStats()
	return st
}

// Run ticks until ctx is cancelled. Cancellation is observed between ticks.
// Any held button is released before Run returns.
func (d *Driver) Run(ctx context.Context) error {
	if !loopRunning.CompareAndSwap(false, true) {
		return ErrDriverRunning
	}
	defer loopRunning.Store(false)
	defer d.shutdown()

	d.logger.Info("Driver loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Driver loop stopped")
			return nil
		case <-timer.C:
		}

		start := time.Now()
		d.Tick(start)

		wait := d.shared.Snapshot().Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// Tick runs exactly one iteration of the loop at time now
func (d *Driver) Tick(now time.Time) TickReport {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	if !d.shared.Active() {
		if d.wasActive {
			d.deactivate()
		}
		d.publishStatus(false, cv.NeutralSignal())
		return TickReport{}
	}

	settings := d.shared.Snapshot()
	if !d.wasActive {
		d.activate(settings)
	}
	d.applySettings(settings)

	start := time.Now()
	report := TickReport{Active: true, Signal: cv.NeutralSignal()}

	sample, err := d.sampler.Capture(settings.Region)
	if err != nil {
		report.CaptureErr = err
		d.captureFailed(err, settings.Region)
	} else {
		report.Sample = sample
		report.Signal = d.extractor.Extract(sample, settings.Thresholds)
	}

	report.Decision = d.policy.Step(report.Signal, now)
	d.publishTransitions(report.Decision)

	if !report.Decision.Command.IsNone() {
		report.InputErr = d.emit(report.Decision.Command, report.Decision.To)
	}

	report.Duration = time.Since(start)
	report.Slow = settings.Interval > 0 && report.Duration > settings.Interval
	d.metrics.RecordTick(report.Duration, report.Slow, report.CaptureErr)
	d.sessionTicks++

	if report.Slow {
		d.slowTick(report.Duration, settings.Interval)
	}

	d.publishStatus(true, report.Signal)
	return report
}

func (d *Driver) activate(settings Settings) {
	d.wasActive = true
	d.sessionTicks = 0
	d.sessionActions = 0
	d.extractor.Reset()

	d.logger.InfoWithContext("Loop activated", map[string]interface{}{
		"region": settings.Region.String(),
	})
	d.publish(events.NewLoopActivatedEvent(settings.Region.String()))
}

// deactivate runs once on the falling edge of the active flag
func (d *Driver) deactivate() {
	d.wasActive = false
	d.resetPolicy("deactivated")

	d.logger.InfoWithContext("Loop deactivated", map[string]interface{}{
		"ticks":   d.sessionTicks,
		"actions": d.sessionActions,
	})
	d.publish(events.NewLoopDeactivatedEvent(d.sessionTicks, d.sessionActions))
}

// applySettings pushes the snapshot into the policy and drops in-flight
// state when the region or target colour moved under it
func (d *Driver) applySettings(settings Settings) {
	d.policy.SetConfig(settings.Policy)
	d.extractor.SkipUnchanged = settings.SkipUnchanged

	changed := settings.Region != d.lastRegion || settings.Thresholds.Target != d.lastTarget
	d.lastRegion = settings.Region
	d.lastTarget = settings.Thresholds.Target

	if changed && d.policy.Phase() != policy.Idle {
		d.resetPolicy("config changed")
	}
}

func (d *Driver) resetPolicy(reason string) {
	phase := d.policy.Phase()
	cmd := d.policy.Reset()
	d.extractor.Reset()

	if phase != policy.Idle {
		d.logger.DebugWithContext("Policy reset", map[string]interface{}{
			"reason": reason,
			"phase":  phase.String(),
		})
		d.publish(events.NewPolicyResetEvent(reason, phase.String()))
	}

	if !cmd.IsNone() {
		d.emit(cmd, policy.Idle)
	}
}

// emit sends cmd. Failures are logged and counted; the policy is not rolled back.
func (d *Driver) emit(cmd input.Command, phase policy.Phase) error {
	err := d.emitter.Emit(cmd)
	d.metrics.RecordCommand(cmd, err)
	d.lastCmd = cmd

	if err != nil {
		d.lastErr = err.Error()
		d.logger.ErrorWithContext("Input rejected", err, map[string]interface{}{
			"command": cmd.String(),
		})
		d.publish(events.NewErrorEvent(events.EventTypeInputFailed, "driver", err, map[string]interface{}{
			"kind":   cmd.Kind.String(),
			"button": string(cmd.Button),
		}))
	} else if cmd.Kind == input.Press || cmd.Kind == input.Hold {
		d.sessionActions++
	}

	d.publish(events.NewActionEmittedEvent(cmd.Kind.String(), string(cmd.Button), phase.String(), err))
	return err
}

func (d *Driver) captureFailed(err error, region cv.Region) {
	d.lastErr = err.Error()
	if d.warnLimiter.Allow() {
		d.logger.WarnWithContext("Capture failed", map[string]interface{}{
			"region": region.String(),
			"error":  err.Error(),
		})
	}
	d.publish(events.NewErrorEvent(events.EventTypeCaptureFailed, "driver", err, map[string]interface{}{
		"region": region.String(),
	}))
}

func (d *Driver) slowTick(took, budget time.Duration) {
	if d.warnLimiter.Allow() {
		d.logger.WarnWithContext("Slow tick", map[string]interface{}{
			"took":   took.String(),
			"budget": budget.String(),
		})
	}
	d.publish(events.NewTickSlowEvent(took, budget))
}

func (d *Driver) publishTransitions(dec policy.Decision) {
	for _, tr := range dec.Transitions {
		d.publish(events.NewPhaseChangedEvent(tr.From.String(), tr.To.String(), tr.At))
	}
}

func (d *Driver) publish(event events.Event) {
	if d.bus != nil {
		d.bus.PublishAsync(event)
	}
}

func (d *Driver) publishStatus(active bool, sig cv.Signal) {
	d.status.Store(&Status{
		Active:      active,
		Phase:       d.policy.Phase(),
		PhaseSince:  d.policy.EnteredAt(),
		Region:      d.lastRegion,
		LastSignal:  sig,
		LastCommand: d.lastCmd,
		LastError:   d.lastErr,
	})
}

// shutdown releases anything still held when the loop exits
func (d *Driver) shutdown() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	if d.wasActive {
		d.deactivate()
	}
	d.publishStatus(false, cv.NeutralSignal())
}
