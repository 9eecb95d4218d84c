package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/ini.v1"

	"jordanella.com/auto-shake-go/internal/bot"
	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/input"
	"jordanella.com/auto-shake-go/internal/logging"
	"jordanella.com/auto-shake-go/internal/policy"
)

// DefaultPath is where the settings file lives when none is given
const DefaultPath = "Settings.ini"

// Config mirrors Settings.ini
type Config struct {
	Capture   CaptureConfig
	Detection DetectionConfig
	Policy    PolicyConfig
	Loop      LoopConfig
	Hotkeys   HotkeyConfig
	UI        UIConfig
	Logging   LoggingConfig
	Journal   JournalConfig
}

// CaptureConfig is the [Capture] section
type CaptureConfig struct {
	X, Y          int
	Width, Height int
	Backend       string
	SkipUnchanged bool
}

// DetectionConfig is the [Detection] section
type DetectionConfig struct {
	Profile       string
	TargetColor   string
	Tolerance     float64
	Metric        string
	SampleStep    int
	MinCoverage   float64
	MinBlobWidth  int
	MinBlobHeight int
}

// PolicyConfig is the [Policy] section
type PolicyConfig struct {
	DebounceTicks   int
	CooldownMs      int
	MaxHoldMs       int
	ReleaseCoverage float64
	Mode            string
	Button          string
}

// LoopConfig is the [Loop] section
type LoopConfig struct {
	IntervalMs      int
	WarnIntervalSec int
}

// HotkeyConfig is the [Hotkeys] section
type HotkeyConfig struct {
	ToggleBox    string
	ToggleAction string
	ExitApp      string
}

// UIConfig is the [UI] section
type UIConfig struct {
	EnableOverlay bool
	StatusX       int
	StatusY       int
	AudioCues     bool
	StatusPollMs  int
}

// LoggingConfig is the [Logging] section
type LoggingConfig struct {
	Level       string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	EventLogDir string
}

// JournalConfig is the [Journal] section
type JournalConfig struct {
	Enabled bool
	Path    string
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *Config {
	th := cv.DefaultThresholds()
	pc := policy.DefaultConfig()

	return &Config{
		Capture: CaptureConfig{
			X: 122, Y: 40, Width: 1162, Height: 586,
			Backend: cv.BackendScreenshot,
		},
		Detection: DetectionConfig{
			TargetColor:   cv.FormatHexColor(th.Target),
			Tolerance:     th.Tolerance,
			Metric:        th.Metric.String(),
			SampleStep:    th.SampleStep,
			MinCoverage:   th.MinCoverage,
			MinBlobWidth:  th.MinBlobWidth,
			MinBlobHeight: th.MinBlobHeight,
		},
		Policy: PolicyConfig{
			DebounceTicks:   pc.DebounceTicks,
			CooldownMs:      int(pc.Cooldown / time.Millisecond),
			MaxHoldMs:       int(pc.MaxHold / time.Millisecond),
			ReleaseCoverage: pc.ReleaseCoverage,
			Mode:            pc.Mode.String(),
			Button:          string(pc.Button),
		},
		Loop: LoopConfig{
			IntervalMs:      25,
			WarnIntervalSec: 5,
		},
		Hotkeys: HotkeyConfig{
			ToggleBox:    "F3",
			ToggleAction: "F4",
			ExitApp:      "F5",
		},
		UI: UIConfig{
			EnableOverlay: true,
			StatusX:       85,
			StatusY:       1,
			AudioCues:     true,
			StatusPollMs:  100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "autoshake.db",
		},
	}
}

// LoadFromINI loads configuration from a Settings.ini file. Missing keys
// keep their defaults.
func LoadFromINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	d := NewDefaultConfig()
	config := &Config{}

	// Capture region
	section := file.Section("Capture")
	config.Capture.X = section.Key("x").MustInt(d.Capture.X)
	config.Capture.Y = section.Key("y").MustInt(d.Capture.Y)
	config.Capture.Width = section.Key("w").MustInt(d.Capture.Width)
	config.Capture.Height = section.Key("h").MustInt(d.Capture.Height)
	config.Capture.Backend = section.Key("backend").MustString(d.Capture.Backend)
	config.Capture.SkipUnchanged = section.Key("skip_unchanged").MustBool(d.Capture.SkipUnchanged)

	// Detection
	section = file.Section("Detection")
	config.Detection.Profile = section.Key("profile").MustString(d.Detection.Profile)
	config.Detection.TargetColor = section.Key("target_color").MustString(d.Detection.TargetColor)
	config.Detection.Tolerance = section.Key("tolerance").MustFloat64(d.Detection.Tolerance)
	config.Detection.Metric = section.Key("metric").MustString(d.Detection.Metric)
	config.Detection.SampleStep = section.Key("sample_step").MustInt(d.Detection.SampleStep)
	config.Detection.MinCoverage = section.Key("min_coverage").MustFloat64(d.Detection.MinCoverage)
	config.Detection.MinBlobWidth = section.Key("min_blob_width").MustInt(d.Detection.MinBlobWidth)
	config.Detection.MinBlobHeight = section.Key("min_blob_height").MustInt(d.Detection.MinBlobHeight)

	// Policy timing
	section = file.Section("Policy")
	config.Policy.DebounceTicks = section.Key("debounce_ticks").MustInt(d.Policy.DebounceTicks)
	config.Policy.CooldownMs = section.Key("cooldown_ms").MustInt(d.Policy.CooldownMs)
	config.Policy.MaxHoldMs = section.Key("max_hold_ms").MustInt(d.Policy.MaxHoldMs)
	config.Policy.ReleaseCoverage = section.Key("release_coverage").MustFloat64(d.Policy.ReleaseCoverage)
	config.Policy.Mode = section.Key("mode").MustString(d.Policy.Mode)
	config.Policy.Button = section.Key("button").MustString(d.Policy.Button)

	// Loop
	section = file.Section("Loop")
	config.Loop.IntervalMs = section.Key("interval_ms").MustInt(d.Loop.IntervalMs)
	config.Loop.WarnIntervalSec = section.Key("warn_interval_sec").MustInt(d.Loop.WarnIntervalSec)

	// Hotkeys
	section = file.Section("Hotkeys")
	config.Hotkeys.ToggleBox = section.Key("toggle_box").MustString(d.Hotkeys.ToggleBox)
	config.Hotkeys.ToggleAction = section.Key("toggle_action").MustString(d.Hotkeys.ToggleAction)
	config.Hotkeys.ExitApp = section.Key("exit_app").MustString(d.Hotkeys.ExitApp)

	// UI
	section = file.Section("UI")
	config.UI.EnableOverlay = section.Key("enable_overlay").MustBool(d.UI.EnableOverlay)
	config.UI.StatusX = section.Key("status_x").MustInt(d.UI.StatusX)
	config.UI.StatusY = section.Key("status_y").MustInt(d.UI.StatusY)
	config.UI.AudioCues = section.Key("audio_cues").MustBool(d.UI.AudioCues)
	config.UI.StatusPollMs = section.Key("status_poll_ms").MustInt(d.UI.StatusPollMs)

	// Logging
	section = file.Section("Logging")
	config.Logging.Level = section.Key("level").MustString(d.Logging.Level)
	config.Logging.File = section.Key("file").MustString(d.Logging.File)
	config.Logging.MaxSizeMB = section.Key("max_size_mb").MustInt(d.Logging.MaxSizeMB)
	config.Logging.MaxBackups = section.Key("max_backups").MustInt(d.Logging.MaxBackups)
	config.Logging.MaxAgeDays = section.Key("max_age_days").MustInt(d.Logging.MaxAgeDays)
	config.Logging.EventLogDir = section.Key("event_log_dir").MustString(d.Logging.EventLogDir)

	// Journal
	section = file.Section("Journal")
	config.Journal.Enabled = section.Key("enabled").MustBool(d.Journal.Enabled)
	config.Journal.Path = section.Key("path").MustString(d.Journal.Path)

	return config, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	return LoadFromINI(path)
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	file := ini.Empty()

	section := file.Section("Capture")
	section.Key("x").SetValue(strconv.Itoa(config.Capture.X))
	section.Key("y").SetValue(strconv.Itoa(config.Capture.Y))
	section.Key("w").SetValue(strconv.Itoa(config.Capture.Width))
	section.Key("h").SetValue(strconv.Itoa(config.Capture.Height))
	section.Key("backend").SetValue(config.Capture.Backend)
	section.Key("skip_unchanged").SetValue(strconv.FormatBool(config.Capture.SkipUnchanged))

	section = file.Section("Detection")
	section.Key("profile").SetValue(config.Detection.Profile)
	section.Key("target_color").SetValue(config.Detection.TargetColor)
	section.Key("tolerance").SetValue(formatFloat(config.Detection.Tolerance))
	section.Key("metric").SetValue(config.Detection.Metric)
	section.Key("sample_step").SetValue(strconv.Itoa(config.Detection.SampleStep))
	section.Key("min_coverage").SetValue(formatFloat(config.Detection.MinCoverage))
	section.Key("min_blob_width").SetValue(strconv.Itoa(config.Detection.MinBlobWidth))
	section.Key("min_blob_height").SetValue(strconv.Itoa(config.Detection.MinBlobHeight))

	section = file.Section("Policy")
	section.Key("debounce_ticks").SetValue(strconv.Itoa(config.Policy.DebounceTicks))
	section.Key("cooldown_ms").SetValue(strconv.Itoa(config.Policy.CooldownMs))
	section.Key("max_hold_ms").SetValue(strconv.Itoa(config.Policy.MaxHoldMs))
	section.Key("release_coverage").SetValue(formatFloat(config.Policy.ReleaseCoverage))
	section.Key("mode").SetValue(config.Policy.Mode)
	section.Key("button").SetValue(config.Policy.Button)

	section = file.Section("Loop")
	section.Key("interval_ms").SetValue(strconv.Itoa(config.Loop.IntervalMs))
	section.Key("warn_interval_sec").SetValue(strconv.Itoa(config.Loop.WarnIntervalSec))

	section = file.Section("Hotkeys")
	section.Key("toggle_box").SetValue(config.Hotkeys.ToggleBox)
	section.Key("toggle_action").SetValue(config.Hotkeys.ToggleAction)
	section.Key("exit_app").SetValue(config.Hotkeys.ExitApp)

	section = file.Section("UI")
	section.Key("enable_overlay").SetValue(strconv.FormatBool(config.UI.EnableOverlay))
	section.Key("status_x").SetValue(strconv.Itoa(config.UI.StatusX))
	section.Key("status_y").SetValue(strconv.Itoa(config.UI.StatusY))
	section.Key("audio_cues").SetValue(strconv.FormatBool(config.UI.AudioCues))
	section.Key("status_poll_ms").SetValue(strconv.Itoa(config.UI.StatusPollMs))

	section = file.Section("Logging")
	section.Key("level").SetValue(config.Logging.Level)
	section.Key("file").SetValue(config.Logging.File)
	section.Key("max_size_mb").SetValue(strconv.Itoa(config.Logging.MaxSizeMB))
	section.Key("max_backups").SetValue(strconv.Itoa(config.Logging.MaxBackups))
	section.Key("max_age_days").SetValue(strconv.Itoa(config.Logging.MaxAgeDays))
	section.Key("event_log_dir").SetValue(config.Logging.EventLogDir)

	section = file.Section("Journal")
	section.Key("enabled").SetValue(strconv.FormatBool(config.Journal.Enabled))
	section.Key("path").SetValue(config.Journal.Path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// Write to a sibling file first so a watcher never sees a half-written file
	tmp := path + ".tmp"
	if err := file.SaveTo(tmp); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Region returns the capture region
func (c *Config) Region() cv.Region {
	return cv.NewRegion(c.Capture.X, c.Capture.Y, c.Capture.Width, c.Capture.Height)
}

// SetRegion stores r as the capture region
func (c *Config) SetRegion(r cv.Region) {
	c.Capture.X, c.Capture.Y = r.X, r.Y
	c.Capture.Width, c.Capture.Height = r.Width, r.Height
}

// Validate checks the values the shell is responsible for
func (c *Config) Validate() error {
	if !c.Region().Valid() {
		return fmt.Errorf("capture region %s must have positive width and height", c.Region())
	}
	if c.Detection.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", c.Detection.Tolerance)
	}
	if c.Loop.IntervalMs <= 0 {
		return fmt.Errorf("interval_ms must be positive, got %d", c.Loop.IntervalMs)
	}
	if c.Policy.DebounceTicks < 0 || c.Policy.CooldownMs < 0 || c.Policy.MaxHoldMs < 0 {
		return fmt.Errorf("policy timings must not be negative")
	}
	_, err := c.BotSettings()
	return err
}

// BotSettings converts the file values into driver settings
func (c *Config) BotSettings() (bot.Settings, error) {
	target, err := cv.ParseHexColor(c.Detection.TargetColor)
	if err != nil {
		return bot.Settings{}, err
	}
	metric, err := cv.ParseMetric(c.Detection.Metric)
	if err != nil {
		return bot.Settings{}, err
	}
	mode, err := policy.ParseMode(c.Policy.Mode)
	if err != nil {
		return bot.Settings{}, err
	}
	button, err := input.ParseButton(c.Policy.Button)
	if err != nil {
		return bot.Settings{}, err
	}

	return bot.Settings{
		Region: c.Region(),
		Thresholds: cv.Thresholds{
			Target:        target,
			Tolerance:     c.Detection.Tolerance,
			Metric:        metric,
			SampleStep:    c.Detection.SampleStep,
			MinCoverage:   c.Detection.MinCoverage,
			MinBlobWidth:  c.Detection.MinBlobWidth,
			MinBlobHeight: c.Detection.MinBlobHeight,
		},
		Policy: policy.Config{
			DebounceTicks:   c.Policy.DebounceTicks,
			Cooldown:        time.Duration(c.Policy.CooldownMs) * time.Millisecond,
			MaxHold:         time.Duration(c.Policy.MaxHoldMs) * time.Millisecond,
			ReleaseCoverage: c.Policy.ReleaseCoverage,
			Mode:            mode,
			Button:          button,
		},
		Interval:      time.Duration(c.Loop.IntervalMs) * time.Millisecond,
		SkipUnchanged: c.Capture.SkipUnchanged,
	}, nil
}

// LogConfig converts the [Logging] section for logging.Init
func (c *Config) LogConfig() logging.Config {
	return logging.Config{
		Level:      logging.ParseLevel(c.Logging.Level),
		Console:    true,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}
