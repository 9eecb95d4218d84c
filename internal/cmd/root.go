package cmd

import (
	"github.com/spf13/cobra"

	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/logging"
	"jordanella.com/auto-shake-go/pkg/profiles"
)

var (
	configPath   string
	profilesPath string
	logLevel     string
	headless     bool
	dryRun       bool
	profileName  string
)

var rootCmd = &cobra.Command{
	Use:   "autoshake",
	Short: "Watch a screen region and press a key when a marker appears",
	Long: `autoshake captures a fixed region of the screen on a short interval,
looks for a coloured marker in it and answers with a key press or mouse click.

By default a small settings window is shown. F4 starts and stops the loop,
F3 previews the capture region and F5 exits. Keys are configurable in
Settings.ini.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "settings file")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "profiles", "profile YAML file or directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override [Logging] level (debug/info/warn/error)")

	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without a window; control with hotkeys")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log actions instead of sending input")
	rootCmd.Flags().StringVarP(&profileName, "profile", "p", "", "apply a detection profile at start")
}

// loadConfig reads the settings file and applies the command line overrides
func loadConfig() (*config.Config, *profiles.Registry, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	registry := profiles.NewRegistry()
	if err := registry.Load(profilesPath); err != nil {
		return nil, nil, err
	}
	if profileName != "" {
		if err := registry.Apply(profileName, cfg); err != nil {
			return nil, nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}

// initLogging starts the logger for short-lived subcommands
func initLogging(cfg *config.Config) (func(), error) {
	lc := cfg.LogConfig()
	lc.File = ""
	return logging.Init(lc)
}
