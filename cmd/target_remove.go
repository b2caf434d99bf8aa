package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/source"
)

var (
	forceRemove bool
)

var targetRemoveCmd = &cobra.Command{
	Use:   "target:remove <domain>",
	Short: "Remove a domain from configuration",
	Long: `Remove a domain from the sentinel target list. Stored screenshot
metadata is kept.

Example:
  sentinel target:remove example.com
  sentinel target:remove example.com --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := source.NormalizeDomain(args[0])
		if err != nil {
			return err
		}

		// Load existing config
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Confirm removal unless --force is used
		if !forceRemove {
			fmt.Printf("Remove target '%s'? (y/N): ", domain)
			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return err
			}

			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := cfg.RemoveTarget(domain); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		path, _ := config.GetConfigPath()
		fmt.Printf("✓ Removed target '%s' from %s\n", domain, path)

		return nil
	},
}

func init() {
	targetRemoveCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "skip confirmation prompt")
	rootCmd.AddCommand(targetRemoveCmd)
}
