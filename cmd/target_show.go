package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/monitor"
	"github.com/juststeveking/sentinel/internal/source"
)

var (
	showEnrich bool
)

var targetShowCmd = &cobra.Command{
	Use:   "target:show <domain>",
	Short: "Show details of a specific target",
	Long: `Display the URL, stored screenshot metadata and, with --enrich, live
DNS, HTTP, TLS certificate and geolocation details for a target.

Example:
  sentinel target:show example.com
  sentinel target:show example.com --enrich`,
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

		configured := slices.ContainsFunc(cfg.Targets, func(d string) bool {
			n, err := source.NormalizeDomain(d)
			return err == nil && n == domain
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		a, err := newApp(ctx, cfg, appOptions{logOutput: io.Discard})
		if err != nil {
			return err
		}
		defer a.Close()

		target := monitor.Target{URL: source.TargetURL(domain), Domain: domain}

		fmt.Printf("Target: %s\n", domain)
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("URL:              %s\n", target.URL)
		fmt.Printf("Configured:       %t\n", configured)

		if a.store != nil {
			records, err := a.store.Load(ctx)
			if err != nil {
				fmt.Printf("Screenshot:       unavailable (%v)\n", err)
			} else if rec, ok := records[domain]; ok {
				fmt.Printf("Screenshot:       %s\n", rec.ScreenshotRef)
				fmt.Printf("Captured:         %s (%s)\n", humanize.Time(rec.LastCaptured), rec.LastCaptured.Format(time.RFC3339))
			} else {
				fmt.Println("Screenshot:       never captured")
			}
		}

		if !showEnrich {
			return nil
		}

		details, err := a.enricher.Enrich(ctx, target)
		if err != nil {
			return err
		}

		fmt.Println("\nLive details:")
		fmt.Printf("  IP:             %s (resolved in %s)\n", details.IP, details.DNSResolutionTime.Round(time.Millisecond))
		fmt.Printf("  Status:         %s", details.Status)
		if details.StatusCode > 0 {
			fmt.Printf(" (%d)", details.StatusCode)
		}
		fmt.Println()

		if c := details.Certificate; c != nil {
			fmt.Printf("  Certificate:    %s issued by %s\n", c.IssuedTo, strings.Join(c.Issuer, ", "))
			fmt.Printf("  Expires:        %s (%s)\n", c.ValidUntil.Format("2006-01-02"), humanize.Time(c.ValidUntil))
		}

		if l := details.Location; l != nil {
			fmt.Printf("  Location:       %s, %s, %s\n", l.City, l.Region, l.Country)
			if l.Org != "" {
				fmt.Printf("  Network:        %s\n", l.Org)
			}
		}

		if len(details.Errors) > 0 {
			fmt.Println("\nPartial failures:")
			for _, e := range details.Errors {
				fmt.Printf("  • %s\n", e)
			}
		}

		return nil
	},
}

func init() {
	targetShowCmd.Flags().BoolVar(&showEnrich, "enrich", false, "look up live DNS, TLS and geolocation details")
	rootCmd.AddCommand(targetShowCmd)
}
