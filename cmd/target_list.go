package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/source"
)

var targetListCmd = &cobra.Command{
	Use:   "target:list",
	Short: "List all configured targets",
	Long:  `Display every domain in the config file and, when configured, in the spreadsheet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		entries := append([]string(nil), cfg.Targets...)
		if cfg.Spreadsheet != "" {
			domains, err := source.ReadDomains(cfg.Spreadsheet)
			if err != nil {
				fmt.Printf("! Could not read %s: %v\n\n", cfg.Spreadsheet, err)
			} else {
				entries = append(entries, domains...)
			}
		}

		targets, skipped := source.Build(entries)
		if len(targets) == 0 {
			fmt.Println("No targets configured yet.")
			fmt.Println("\nAdd a target with:")
			fmt.Println("  sentinel target:add <domain>")
			return nil
		}

		fmt.Printf("Configured targets (%d):\n\n", len(targets))
		for _, t := range targets {
			fmt.Printf("  • %s\n", t.Domain)
			fmt.Printf("    URL: %s\n", t.URL)
		}

		if len(skipped) > 0 {
			fmt.Printf("\nSkipped invalid entries (%d):\n", len(skipped))
			for _, s := range skipped {
				fmt.Printf("  • %q\n", s)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetListCmd)
}
