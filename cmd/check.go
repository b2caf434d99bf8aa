package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "Run a one-off liveness check",
	Long: `Resolve and probe a single domain with the configured timeout and
retry budget, then print the outcome. Nothing is persisted and no
screenshot is taken.

Example:
  sentinel check example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := source.NormalizeDomain(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		a, err := newApp(ctx, cfg, appOptions{logOutput: io.Discard})
		if err != nil {
			return err
		}
		defer a.Close()

		targets, _ := source.Build([]string{domain})
		a.engine.Registry().Sync(targets)

		target, ok := a.engine.CheckTarget(ctx, targets[0].URL)
		if !ok {
			return fmt.Errorf("target '%s' not registered", domain)
		}

		icon := "✓"
		if target.ErrorCount > 0 {
			icon = "✗"
		}

		fmt.Printf("%s %s\n", icon, target.URL)
		fmt.Printf("  IP:        %s\n", target.IP)
		fmt.Printf("  Status:    %s\n", target.Status)
		if target.StatusCode > 0 {
			fmt.Printf("  Code:      %d\n", target.StatusCode)
		}
		fmt.Printf("  Response:  %s\n", target.ResponseTime.Round(time.Millisecond))
		if target.LastError != "" {
			fmt.Printf("  Error:     %s\n", target.LastError)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
