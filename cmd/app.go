package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/juststeveking/sentinel/internal/api"
	"github.com/juststeveking/sentinel/internal/capture"
	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/enrich"
	"github.com/juststeveking/sentinel/internal/logging"
	"github.com/juststeveking/sentinel/internal/metadata"
	"github.com/juststeveking/sentinel/internal/monitor"
	"github.com/juststeveking/sentinel/internal/notify"
	"github.com/juststeveking/sentinel/internal/source"
	"github.com/juststeveking/sentinel/internal/tui"
)

// app holds the wired engine and everything it owns
type app struct {
	raw       *config.Config
	cfg       *config.Config
	durations config.Durations
	logger    *slog.Logger
	registry  *prometheus.Registry
	resolver  *monitor.DNSResolver
	prober    *monitor.HTTPProber
	browser   *capture.Browser
	store     metadata.Store
	enricher  *enrich.Enricher
	engine    *monitor.Engine

	closers []io.Closer
}

type appOptions struct {
	logOutput   io.Writer
	screenshots bool
}

// loadConfig reads the config file, creating the default one on first run
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config: %w (run 'sentinel init' to create one)", err)
	}

	fmt.Println("Config not found, creating default config...")
	if initErr := config.InitConfig(false); initErr != nil {
		return nil, fmt.Errorf("failed to create default config: %w", initErr)
	}
	cfg, err = config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config after creation: %w", err)
	}
	return cfg, nil
}

// newApp wires the engine from raw. raw stays unresolved so it can be saved back.
func newApp(ctx context.Context, raw *config.Config, opts appOptions) (*app, error) {
	cfg := raw.Resolved()

	durations, err := cfg.ParseDurations()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Logging, opts.logOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		raw:       raw,
		cfg:       cfg,
		durations: durations,
		logger:    logger,
		registry:  prometheus.NewRegistry(),
		closers:   []io.Closer{logCloser},
	}

	a.resolver = monitor.NewDNSResolver(cfg.DNS.Server, durations.DNSTimeout)
	a.prober = monitor.NewHTTPProber(monitor.ProbeConfig{
		Timeout:    durations.Timeout,
		RetryCount: cfg.RetryCount,
		RetryDelay: durations.RetryDelay,
		UserAgent:  cfg.UserAgent,
	})
	a.enricher = enrich.New(a.resolver, enrich.Options{
		Timeout:     durations.EnrichTimeout,
		IPInfoToken: cfg.Enrich.IPInfoToken,
	})

	deps := monitor.Deps{
		Source:   a.targetSource(),
		Resolver: a.resolver,
		Prober:   a.prober,
		Notifier: a.notifier(),
		Logger:   logger,
		Metrics:  monitor.NewMetrics(a.registry),
	}

	store, err := metadata.Open(ctx, cfg.Metadata)
	if err != nil {
		logger.Error("metadata store unavailable, captures will not persist", "backend", cfg.Metadata.Backend, "error", err)
	} else {
		a.store = store
		a.closers = append(a.closers, store)
		deps.Store = store
	}

	if opts.screenshots && cfg.Screenshot.Enabled {
		browser, err := capture.NewBrowser(capture.Options{
			Dir:     cfg.Screenshot.Dir,
			Timeout: durations.ScreenshotTimeout,
			Wait:    cfg.Screenshot.Wait,
			Width:   cfg.Screenshot.Width,
			Height:  cfg.Screenshot.Height,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		a.browser = browser
		deps.Capturer = browser
	}

	a.engine = monitor.NewEngine(deps, monitor.Options{
		Interval:         durations.CheckInterval,
		ErrorThreshold:   cfg.ErrorThreshold,
		CheckConcurrency: cfg.CheckConcurrency,
		Evidence: monitor.EvidenceConfig{
			TTL:         durations.ScreenshotTTL,
			Attempts:    cfg.Screenshot.Attempts,
			RetryDelay:  durations.ScreenshotDelay,
			Concurrency: cfg.Screenshot.Concurrency,
		},
	})

	return a, nil
}

// targetSource combines the config list with the optional spreadsheet
func (a *app) targetSource() monitor.TargetSource {
	static := source.NewStatic(a.cfg.Targets, a.logger)
	if a.cfg.Spreadsheet == "" {
		return static
	}
	return source.NewMulti(a.logger, static, source.NewSpreadsheet(a.cfg.Spreadsheet, a.logger))
}

// notifier returns the enabled alert sinks, or nil when none are
func (a *app) notifier() monitor.Notifier {
	var sinks []notify.Sink
	if a.cfg.Alerts.Log {
		sinks = append(sinks, notify.NewLog(a.logger))
	}
	if a.cfg.Alerts.Desktop {
		sinks = append(sinks, notify.NewDesktop())
	}
	if email := a.cfg.Alerts.Email; email.Enabled() {
		sinks = append(sinks, notify.NewEmail(notify.EmailConfig{
			Host:     email.Host,
			Port:     email.Port,
			Username: email.Username,
			Password: email.Password,
			From:     email.From,
			To:       email.To,
		}))
	}

	multi := notify.NewMulti(a.logger, sinks...)
	if multi.Len() == 0 {
		return nil
	}
	return multi
}

// router builds the status API over the engine
func (a *app) router() http.Handler {
	dir := ""
	switch {
	case a.browser != nil:
		dir = a.browser.Dir()
	case a.cfg.Screenshot.Enabled:
		dir = a.cfg.Screenshot.Dir
	}
	return api.NewRouter(api.Options{
		Status:        a.engine,
		Enricher:      a.enricher,
		Gatherer:      a.registry,
		ScreenshotDir: dir,
		Logger:        a.logger,
	})
}

// addTarget saves a new domain and registers it with the running engine
func (a *app) addTarget() tui.AddTargetFunc {
	return func(raw string) error {
		domain, err := source.NormalizeDomain(raw)
		if err != nil {
			return err
		}
		if err := a.raw.AddTarget(domain); err != nil {
			return err
		}
		if err := config.SaveConfig(a.raw); err != nil {
			return err
		}

		targets, _ := source.Build([]string{domain})
		a.engine.Registry().Sync(targets)
		a.logger.Info("target added", "domain", domain)
		return nil
	}
}

// Close releases the browser, the HTTP pool, the store and the log file
func (a *app) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.prober != nil {
		a.prober.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}
