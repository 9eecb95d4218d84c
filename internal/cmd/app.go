package cmd

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"jordanella.com/auto-shake-go/internal/audio"
	"jordanella.com/auto-shake-go/internal/bot"
	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/database"
	"jordanella.com/auto-shake-go/internal/events"
	"jordanella.com/auto-shake-go/internal/gui"
	"jordanella.com/auto-shake-go/internal/hotkey"
	"jordanella.com/auto-shake-go/internal/input"
	"jordanella.com/auto-shake-go/internal/logging"
	"jordanella.com/auto-shake-go/pkg/profiles"
)

// app holds everything the loop needs for one process
type app struct {
	cfg      *config.Config
	profiles *profiles.Registry
	logger   *logging.Logger

	bus      *events.DefaultEventBus
	shared   *bot.Shared
	sampler  cv.Sampler
	emitter  input.Emitter
	driver   *bot.Driver
	journal  *database.Journal
	db       *database.DB
	events   *logging.EventLogger
	watcher  *config.Watcher
	hotkeys  *hotkey.Manager
	cues     *audio.Cues
	onReload []func(*config.Config)

	// stoppers end event producers; closers release bus subscribers once
	// the bus has drained
	stoppers []func()
	closers  []func()
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, registry, err := loadConfig()
	if err != nil {
		return err
	}

	syncLogs, err := logging.Init(cfg.LogConfig())
	if err != nil {
		return err
	}
	defer syncLogs()

	a, err := newApp(cfg, registry)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if headless {
		return a.runHeadless(ctx)
	}
	return a.runWindow(ctx)
}

// newApp builds the loop and its supporting services from cfg
func newApp(cfg *config.Config, registry *profiles.Registry) (*app, error) {
	a := &app{
		cfg:      cfg,
		profiles: registry,
		logger:   logging.NewLogger("app"),
		bus:      events.NewEventBus(1024),
	}

	if dir := cfg.Logging.EventLogDir; dir != "" {
		el, err := logging.NewEventLogger(a.bus, dir)
		if err != nil {
			a.close()
			return nil, err
		}
		a.events = el
		a.closers = append(a.closers, func() { _ = el.Close() })
	}

	if cfg.Journal.Enabled {
		db, err := database.OpenJournal(cfg.Journal.Path)
		if err != nil {
			a.logger.Error("Journal disabled", err)
		} else {
			a.db = db
			a.journal = database.NewJournal(db, a.bus)
			a.closers = append(a.closers, func() { _ = db.Close() }, a.journal.Close)
		}
	}

	settings, err := cfg.BotSettings()
	if err != nil {
		a.close()
		return nil, err
	}
	a.shared = bot.NewShared(settings)

	a.sampler, err = cv.NewSampler(cfg.Capture.Backend)
	if err != nil {
		a.close()
		return nil, err
	}

	if dryRun {
		a.emitter = input.NewDryRun()
	} else {
		a.emitter = input.NewRobotEmitter()
	}

	a.driver = bot.NewDriver(a.shared, a.sampler, a.emitter,
		bot.WithEventBus(a.bus),
		bot.WithWarnInterval(time.Duration(cfg.Loop.WarnIntervalSec)*time.Second),
	)

	a.cues = audio.NewCues(cfg.UI.AudioCues, -1)
	if err := a.cues.Initialize(); err != nil {
		a.logger.WarnWithContext("Audio cues unavailable", map[string]interface{}{"error": err.Error()})
	}
	a.cues.Attach(a.bus)
	a.closers = append(a.closers, a.cues.Close)
	a.onReload = append(a.onReload, func(c *config.Config) { a.cues.SetEnabled(c.UI.AudioCues) })

	return a, nil
}

// startHotkeys installs the global hotkeys with the given handlers
func (a *app) startHotkeys(handlers map[hotkey.Action]func()) error {
	a.hotkeys = hotkey.NewManager(handlers)
	if err := a.hotkeys.ApplyConfig(a.cfg.Hotkeys); err != nil {
		return err
	}
	a.stoppers = append(a.stoppers, a.hotkeys.Stop)
	a.onReload = append(a.onReload, func(c *config.Config) {
		if err := a.hotkeys.ApplyConfig(c.Hotkeys); err != nil {
			a.logger.Error("Keeping previous hotkeys", err)
		}
	})
	return nil
}

// startWatcher reloads Settings.ini on change
func (a *app) startWatcher() {
	apply := config.ApplyTo(a.shared, a.bus, configPath)
	w, err := config.NewWatcher(configPath, func(c *config.Config) {
		apply(c)
		a.configApplied(c)
	})
	if err != nil {
		a.logger.Error("Settings hot reload disabled", err)
		return
	}
	w.Start()
	a.watcher = w
	a.stoppers = append(a.stoppers, w.Stop)
}

// configApplied runs the reload hooks for a config that is already live
func (a *app) configApplied(c *config.Config) {
	for _, fn := range a.onReload {
		fn(c)
	}
}

// runDriver runs the loop until ctx ends
func (a *app) runDriver(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("Driver stopped", err)
		}
	}()
}

func (a *app) runHeadless(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := a.startHotkeys(map[hotkey.Action]func(){
		hotkey.ActionToggleAction: func() { a.shared.Toggle() },
		hotkey.ActionToggleBox:    func() { go a.logProbe() },
		hotkey.ActionExitApp:      cancel,
	})
	if err != nil {
		return err
	}
	a.startWatcher()

	a.logger.InfoWithContext("Running headless", map[string]interface{}{
		"region":  a.cfg.Region().String(),
		"dry_run": dryRun,
	})

	var wg sync.WaitGroup
	a.runDriver(ctx, &wg)
	<-ctx.Done()
	wg.Wait()
	return nil
}

// logProbe captures once and logs the signal
func (a *app) logProbe() {
	settings := a.shared.Snapshot()
	sample, err := a.sampler.Capture(settings.Region)
	if err != nil {
		a.logger.Error("Probe failed", err)
		return
	}
	sig := cv.Extract(sample, settings.Thresholds)
	a.logger.InfoWithContext("Probe", map[string]interface{}{
		"region": sample.Region.String(),
		"signal": sig.String(),
	})
}

func (a *app) runWindow(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fa := fyneapp.NewWithID("com.jordanella.auto-shake")
	ctrl := gui.NewController(gui.Deps{
		App:             fa,
		Config:          a.cfg,
		ConfigPath:      configPath,
		Profiles:        a.profiles,
		Shared:          a.shared,
		Driver:          a.driver,
		Sampler:         a.sampler,
		Bus:             a.bus,
		OnConfigApplied: a.configApplied,
	})
	a.stoppers = append(a.stoppers, ctrl.Shutdown)

	err := a.startHotkeys(map[hotkey.Action]func(){
		hotkey.ActionToggleAction: func() { a.shared.Toggle() },
		hotkey.ActionToggleBox:    ctrl.ShowPreview,
		hotkey.ActionExitApp:      func() { fyne.Do(fa.Quit) },
	})
	if err != nil {
		return err
	}
	a.startWatcher()

	closed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(fa.Quit)
		case <-closed:
		}
	}()

	var wg sync.WaitGroup
	a.runDriver(ctx, &wg)
	ctrl.ShowAndRun()

	close(closed)
	cancel()
	wg.Wait()
	return nil
}

// close stops producers, drains the bus, then releases subscribers, each in
// reverse order of creation
func (a *app) close() {
	for i := len(a.stoppers) - 1; i >= 0; i-- {
		a.stoppers[i]()
	}
	a.bus.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.stoppers, a.closers = nil, nil
}
