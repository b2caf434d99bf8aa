package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/monitor"
)

var (
	sweepScreenshots bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single sweep and print the results",
	Long: `Check every target once, refresh stale screenshots, persist capture
metadata and print the resulting status table. Alerts are dispatched as in a
regular run.

Example:
  sentinel sweep
  sentinel sweep --screenshots=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cfg, appOptions{logOutput: os.Stderr, screenshots: sweepScreenshots})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.engine.Init(ctx); err != nil {
			return err
		}

		summary, err := a.engine.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep interrupted: %w", err)
		}

		targets := a.engine.ListTargets()
		monitor.SortByStatus(targets)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tURL\tIP\tCODE\tERRORS\tRESPONSE\tCAPTURED")
		for _, t := range targets {
			captured := "never"
			if !t.LastCaptured.IsZero() {
				captured = humanize.Time(t.LastCaptured)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				t.Status, t.URL, t.IP, t.StatusCode, t.ErrorCount,
				t.ResponseTime.Round(time.Millisecond), captured)
		}
		w.Flush()

		fmt.Printf("\nSweep %s: %d targets in %s (%d up, %d error, %d down, %d captured)\n",
			summary.ID, summary.Targets, summary.Duration.Round(time.Millisecond),
			summary.Counts[monitor.StatusUp], summary.Counts[monitor.StatusError],
			summary.Counts[monitor.StatusDown], summary.Captured)

		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepScreenshots, "screenshots", true, "capture stale screenshots during the sweep")
	rootCmd.AddCommand(sweepCmd)
}
