package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"jordanella.com/auto-shake-go/internal/cv"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Capture the region once and print what the detector sees",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	syncLogs, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer syncLogs()

	settings, err := cfg.BotSettings()
	if err != nil {
		return err
	}
	sampler, err := cv.NewSampler(cfg.Capture.Backend)
	if err != nil {
		return err
	}
	sample, err := sampler.Capture(settings.Region)
	if err != nil {
		return err
	}

	sig := cv.Extract(sample, settings.Thresholds)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "region:  %s\n", sample.Region)
	if sample.Region != sample.Requested {
		fmt.Fprintf(out, "         clipped from %s\n", sample.Requested)
	}
	fmt.Fprintf(out, "target:  %s (tolerance %.2f, %s)\n",
		cv.FormatHexColor(settings.Thresholds.Target), settings.Thresholds.Tolerance, settings.Thresholds.Metric)
	fmt.Fprintf(out, "signal:  %s\n", sig)
	return nil
}
