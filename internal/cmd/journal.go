package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jordanella.com/auto-shake-go/internal/database"
)

var (
	journalLimit int
	journalPrune time.Duration
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent sessions from the action journal",
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "number of sessions to show")
	journalCmd.Flags().DurationVar(&journalPrune, "prune", 0, "delete ended sessions older than this (e.g. 720h) and compact the file")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	syncLogs, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer syncLogs()

	db, err := database.OpenJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if journalPrune > 0 {
		removed, err := db.PruneSessions(time.Now().Add(-journalPrune))
		if err != nil {
			return err
		}
		if err := db.Vacuum(); err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d sessions\n", removed)
	}

	sessions, err := db.RecentSessions(journalLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tREGION\tTICKS\tACTIONS")
	for _, s := range sessions {
		dur := "running"
		if !s.Open() {
			dur = s.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), dur, s.Region, s.Ticks, s.Actions)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s: %d sessions, %d actions\n", db.Path(), stats["sessions"], stats["actions"])
	return nil
}
