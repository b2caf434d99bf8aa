package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/source"
)

var targetAddCmd = &cobra.Command{
	Use:   "target:add [domain]",
	Short: "Add a domain to monitor",
	Long: `Add a domain to the sentinel target list. The domain is checked as
https://www.<domain>/. Without an argument an interactive form is shown.

Examples:
  sentinel target:add example.com
  sentinel target:add`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		if len(args) == 1 {
			raw = args[0]
		} else {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Domain").
						Description("Checked as https://www.<domain>/").
						Placeholder("example.com").
						Validate(func(s string) error {
							_, err := source.NormalizeDomain(s)
							return err
						}).
						Value(&raw),
				),
			).WithTheme(huh.ThemeCatppuccin())

			if err := form.Run(); err != nil {
				return err
			}
		}

		domain, err := source.NormalizeDomain(strings.TrimSpace(raw))
		if err != nil {
			return err
		}

		// Load existing config
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := cfg.AddTarget(domain); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		path, _ := config.GetConfigPath()
		fmt.Printf("✓ Added target '%s' (%s) to %s\n", domain, source.TargetURL(domain), path)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetAddCmd)
}
