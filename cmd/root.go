package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/juststeveking/sentinel/internal/api"
	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/monitor"
	"github.com/juststeveking/sentinel/internal/tui"
)

var (
	configPath string
	headless   bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Watch your websites and alert when they go down",
	Long: `Sentinel checks a list of websites on a schedule, tracks how many
consecutive checks each one has failed and sends one alert per outage once a
site crosses the error threshold. Screenshots of every reachable site are
kept as evidence and refreshed once they go stale.

Run without arguments to start the engine with the terminal dashboard, or
with --headless to run only the engine and the status API.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			config.SetConfigPath(configPath)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The dashboard owns the terminal; without a log file, logs are dropped
		logOutput := io.Writer(os.Stderr)
		if !headless && cfg.Logging.Path == "" {
			logOutput = io.Discard
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cfg, appOptions{logOutput: logOutput, screenshots: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.engine.Init(ctx); err != nil {
			if monitor.IsFatal(err) {
				return fmt.Errorf("%w (run 'sentinel target:add' to add one)", err)
			}
			return err
		}

		if cfg.API.Listen != "" {
			server := api.NewServer(cfg.API.Listen, a.router(), a.logger)
			if _, err := server.Start(); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				server.Shutdown(shutdownCtx)
			}()
		}

		engineDone := make(chan error, 1)
		go func() {
			engineDone <- a.engine.Start(ctx)
		}()

		if headless {
			fmt.Printf("Sentinel running headless, status API on %s (Ctrl+C to stop)\n", cfg.API.Listen)
			<-ctx.Done()
			return <-engineDone
		}

		model := tui.NewModel(a.engine, cancel, a.addTarget())
		p := tea.NewProgram(model, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			cancel()
			<-engineDone
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		cancel()
		if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file (default ~/.config/sentinel/config.yml)")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run the engine and status API without the dashboard")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
