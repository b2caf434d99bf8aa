package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/config"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sentinel configuration",
	Long: `Create a new sentinel configuration file at ~/.config/sentinel/config.yml
with sensible defaults. Edit this file to add your targets and alert sinks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(forceInit); err != nil {
			return err
		}

		path, _ := config.GetConfigPath()

		if forceInit {
			fmt.Printf("✓ Configuration reset at %s\n", path)
		} else {
			fmt.Printf("✓ Configuration initialized at %s\n", path)
		}

		fmt.Println("\nAdd the domains to watch, then run:")
		fmt.Println("  sentinel target:add example.com")
		fmt.Println("  sentinel")

		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}
