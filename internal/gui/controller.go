package gui

import (
	"errors"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/auto-shake-go/internal/bot"
	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/events"
	"jordanella.com/auto-shake-go/internal/logging"
	"jordanella.com/auto-shake-go/pkg/profiles"
)

// Deps are the collaborators the window drives
type Deps struct {
	App        fyne.App
	Config     *config.Config
	ConfigPath string
	Profiles   *profiles.Registry
	Shared     *bot.Shared
	Driver     *bot.Driver
	Sampler    cv.Sampler
	Bus        events.EventBus

	// OnConfigApplied runs after a saved config has been pushed to the loop
	OnConfigApplied func(*config.Config)
}

// Controller manages the settings window
type Controller struct {
	app        fyne.App
	window     fyne.Window
	overlay    fyne.Window
	configPath string
	profiles   *profiles.Registry
	shared     *bot.Shared
	driver     *bot.Driver
	sampler    cv.Sampler
	bus        events.EventBus
	onApplied  func(*config.Config)
	logger     *logging.Logger

	mu     sync.RWMutex
	config *config.Config

	statusTab   *StatusTab
	settingsTab *SettingsTab
	logTab      *LogTab

	uiBus   *UIEventBus
	busSub  events.SubscriptionID
	stopped sync.Once
}

// NewController creates the main window and wires it to the loop
func NewController(deps Deps) *Controller {
	if deps.Profiles == nil {
		deps.Profiles = profiles.NewRegistry()
	}

	c := &Controller{
		app:        deps.App,
		window:     deps.App.NewWindow("auto-shake"),
		configPath: deps.ConfigPath,
		profiles:   deps.Profiles,
		shared:     deps.Shared,
		driver:     deps.Driver,
		sampler:    deps.Sampler,
		bus:        deps.Bus,
		onApplied:  deps.OnConfigApplied,
		logger:     logging.NewLogger("gui"),
		config:     deps.Config,
		uiBus:      NewUIEventBus(),
	}

	c.app.Settings().SetTheme(&ShakeTheme{})

	c.statusTab = NewStatusTab(c)
	c.settingsTab = NewSettingsTab(c)
	c.logTab = NewLogTab()

	c.setupEventHandlers()

	c.window.SetContent(c.BuildUI())
	c.window.Resize(DefaultWindowSize)
	c.window.SetCloseIntercept(func() {
		c.Shutdown()
		c.app.Quit()
	})

	if deps.Config.UI.EnableOverlay {
		c.overlay = c.buildOverlay()
	}

	return c
}

// BuildUI constructs the tabs
func (c *Controller) BuildUI() fyne.CanvasObject {
	return container.NewAppTabs(
		container.NewTabItem("Status", c.statusTab.Build()),
		container.NewTabItem("Settings", c.settingsTab.Build()),
		container.NewTabItem("Event Log", c.logTab.Build()),
	)
}

// buildOverlay creates the small always-open status window
func (c *Controller) buildOverlay() fyne.Window {
	w := c.app.NewWindow("auto-shake status")
	label := widget.NewLabel(overlayText(c.driver.Status()))
	w.SetContent(label)
	w.SetFixedSize(true)
	w.SetCloseIntercept(func() { w.Hide() })

	c.uiBus.Subscribe(UIEventStatusUpdate, func(e UIEvent) {
		text, _ := e.Data["text"].(string)
		fyne.Do(func() { label.SetText(text) })
	})
	return w
}

// setupEventHandlers bridges the loop's bus into the window
func (c *Controller) setupEventHandlers() {
	c.uiBus.Subscribe(UIEventLogAdd, func(e UIEvent) {
		entry, ok := e.Data["entry"].(LogEntry)
		if !ok {
			return
		}
		fyne.Do(func() { c.logTab.AddLog(entry) })
	})

	c.uiBus.Subscribe(UIEventDialogError, func(e UIEvent) {
		message, _ := e.Data["message"].(string)
		fyne.Do(func() { dialog.ShowError(errors.New(message), c.window) })
	})

	c.uiBus.Subscribe(UIEventDialogInfo, func(e UIEvent) {
		title, _ := e.Data["title"].(string)
		message, _ := e.Data["message"].(string)
		fyne.Do(func() { dialog.ShowInformation(title, message, c.window) })
	})

	if c.bus == nil {
		return
	}
	c.busSub = c.bus.SubscribeAll(func(e events.Event) {
		c.uiBus.Publish(AddLog(entryFromEvent(e)))

		switch e.Type {
		case events.EventTypeLoopActivated, events.EventTypeLoopDeactivated, events.EventTypeActionEmitted:
			c.uiBus.Publish(UIEvent{
				Type:   UIEventStatusUpdate,
				Target: "overlay",
				Data:   map[string]interface{}{"text": overlayText(c.driver.Status())},
			})
		case events.EventTypeConfigReloaded:
			c.reloadFromDisk()
		}
	})
}

// ShowAndRun shows the window and blocks until the app quits
func (c *Controller) ShowAndRun() {
	poll := time.Duration(c.Config().UI.StatusPollMs) * time.Millisecond
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	c.uiBus.Start(poll / 2)
	c.statusTab.StartPolling(poll)
	if c.overlay != nil {
		c.overlay.Show()
	}
	c.window.ShowAndRun()
}

// Window returns the main window
func (c *Controller) Window() fyne.Window {
	return c.window
}

// Config returns the current configuration
func (c *Controller) Config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ToggleActive flips the loop on or off
func (c *Controller) ToggleActive() bool {
	return c.shared.Toggle()
}

// ApplyConfig validates cfg, writes it to disk and pushes it to the loop
func (c *Controller) ApplyConfig(cfg *config.Config) error {
	settings, err := cfg.BotSettings()
	if err != nil {
		return err
	}
	if c.configPath != "" {
		if err := config.SaveToINI(cfg, c.configPath); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()

	c.shared.Replace(settings)
	if c.onApplied != nil {
		c.onApplied(cfg)
	}

	c.logger.InfoWithContext("Settings applied", map[string]interface{}{
		"region":  cfg.Region().String(),
		"profile": cfg.Detection.Profile,
	})
	return nil
}

// reloadFromDisk refreshes the form after the file watcher applied a change
func (c *Controller) reloadFromDisk() {
	if c.configPath == "" {
		return
	}
	cfg, err := config.LoadFromINI(c.configPath)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()

	fyne.Do(func() { c.settingsTab.load(cfg) })
}

// Shutdown stops background refreshes. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.stopped.Do(func() {
		if c.bus != nil {
			c.bus.Unsubscribe(c.busSub)
		}
		c.statusTab.StopPolling()
		c.uiBus.Stop()
	})
}
