package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TargetSource supplies the configured targets in canonical form
type TargetSource interface {
	Targets(ctx context.Context) ([]Target, error)
}

// Options are the engine's scheduling parameters
type Options struct {
	Interval         time.Duration
	ErrorThreshold   int
	CheckConcurrency int
	Evidence         EvidenceConfig
}

// Deps are the collaborators wired into the engine. Capturer and Notifier
// may be nil to disable evidence and alerts.
type Deps struct {
	Source   TargetSource
	Resolver Resolver
	Prober   Prober
	Capturer Capturer
	Store    MetadataStore
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *Metrics
}

// SweepSummary describes one completed sweep
type SweepSummary struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Targets  int
	Captured int
	Counts   map[Status]int
}

// Engine orchestrates periodic sweeps over the registry
type Engine struct {
	registry   *Registry
	source     TargetSource
	resolver   Resolver
	prober     Prober
	evidence   *EvidenceCache
	store      MetadataStore
	dispatcher *Dispatcher
	opts       Options
	logger     *slog.Logger
	metrics    *Metrics

	sweepMu   sync.Mutex
	sweeping  atomic.Bool
	lastSweep atomic.Int64
}

// NewEngine creates an engine with an empty registry
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.ErrorThreshold < 1 {
		opts.ErrorThreshold = 3
	}
	if opts.CheckConcurrency < 1 {
		opts.CheckConcurrency = 20
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewRegistry()

	e := &Engine{
		registry:   registry,
		source:     deps.Source,
		resolver:   deps.Resolver,
		prober:     deps.Prober,
		store:      deps.Store,
		dispatcher: NewDispatcher(deps.Notifier, logger, deps.Metrics),
		opts:       opts,
		logger:     logger,
		metrics:    deps.Metrics,
	}

	if deps.Capturer != nil {
		e.evidence = NewEvidenceCache(registry, deps.Capturer, deps.Store, opts.Evidence, logger, deps.Metrics)
	}

	return e
}

// Registry returns the engine-owned registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Init seeds the registry from the metadata store and the target source.
// Only an unreadable or empty target list is an error.
func (e *Engine) Init(ctx context.Context) error {
	records := map[string]EvidenceRecord{}
	if e.store != nil {
		loaded, err := e.store.Load(ctx)
		if err != nil {
			e.logger.Error("failed to load metadata, starting empty", "error", err)
		} else {
			records = loaded
		}
	}

	if e.source == nil {
		return ErrNoTargets
	}

	targets, err := e.source.Targets(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoTargets, err)
	}
	if len(targets) == 0 {
		return ErrNoTargets
	}

	added := e.registry.Sync(targets)
	seeded := e.registry.Seed(records)

	e.logger.Info("engine initialized",
		"targets", added,
		"metadata_records", len(records),
		"seeded", seeded)
	return nil
}

// Start runs sweeps until ctx is cancelled, sleeping the interval between them
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("engine started", "interval", e.opts.Interval, "targets", e.registry.Len())

	for {
		if _, err := e.Sweep(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("sweep failed", "error", err)
		}

		timer := time.NewTimer(e.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("engine stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Sweep refreshes the target list, checks every target, refreshes evidence
// and persists metadata. Concurrent calls are serialized.
func (e *Engine) Sweep(ctx context.Context) (SweepSummary, error) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	e.sweeping.Store(true)
	defer e.sweeping.Store(false)

	summary := SweepSummary{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
	logger := e.logger.With("sweep_id", summary.ID)

	e.refreshTargets(ctx, logger)

	targets := e.registry.Snapshot()
	summary.Targets = len(targets)
	logger.Info("sweep started", "targets", len(targets))

	urls := make([]string, 0, len(targets))
	for _, t := range targets {
		urls = append(urls, t.URL)
	}

	var g errgroup.Group
	g.SetLimit(e.opts.CheckConcurrency)
	for _, u := range urls {
		g.Go(func() error {
			e.checkTarget(ctx, logger, u)
			return nil
		})
	}
	g.Wait()

	if e.evidence != nil {
		summary.Captured = e.evidence.Pass(ctx, urls)
	}

	if e.store != nil {
		if err := e.store.Save(ctx, e.registry.Evidence()); err != nil {
			logger.Error("failed to save metadata", "error", err)
		}
	}

	final := e.registry.Snapshot()
	summary.Counts = countStatuses(final)
	summary.Duration = time.Since(summary.Started)
	e.lastSweep.Store(time.Now().UnixNano())
	e.metrics.observeSweep(summary.Duration.Seconds(), final)

	logger.Info("sweep finished",
		"duration", summary.Duration,
		"up", summary.Counts[StatusUp],
		"error", summary.Counts[StatusError],
		"down", summary.Counts[StatusDown],
		"captured", summary.Captured)

	return summary, ctx.Err()
}

// CheckTarget runs one resolve and probe for a registered target
func (e *Engine) CheckTarget(ctx context.Context, targetURL string) (Target, bool) {
	if _, ok := e.registry.Get(targetURL); !ok {
		return Target{}, false
	}
	e.checkTarget(ctx, e.logger, targetURL)
	return e.registry.Get(targetURL)
}

// ListTargets returns a snapshot of every target
func (e *Engine) ListTargets() []Target {
	return e.registry.Snapshot()
}

// GetTarget returns a copy of one target
func (e *Engine) GetTarget(targetURL string) (Target, bool) {
	return e.registry.Get(targetURL)
}

// Sweeping reports whether a sweep is in progress
func (e *Engine) Sweeping() bool {
	return e.sweeping.Load()
}

// LastSweep returns when the last sweep finished, zero if none has
func (e *Engine) LastSweep() time.Time {
	ns := e.lastSweep.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// refreshTargets merges the source into the registry, keeping the current
// set when the source fails
func (e *Engine) refreshTargets(ctx context.Context, logger *slog.Logger) {
	if e.source == nil {
		return
	}

	targets, err := e.source.Targets(ctx)
	if err != nil {
		logger.Error("failed to refresh targets, reusing previous set", "error", err)
		return
	}

	if added := e.registry.Sync(targets); added > 0 {
		logger.Info("new targets registered", "added", added)
	}
}

// checkTarget resolves, probes and classifies one target, then alerts if due
func (e *Engine) checkTarget(ctx context.Context, logger *slog.Logger, targetURL string) {
	ip := IPNotFound
	if e.resolver != nil {
		addr, err := e.resolver.Resolve(ctx, hostOf(targetURL))
		if err != nil {
			logger.Warn("dns lookup failed", "url", targetURL, "error", err)
		} else {
			ip = addr
		}
	}

	res := e.prober.Probe(ctx, targetURL)
	res.IP = ip
	e.metrics.observeCheck(res)

	var (
		updated Target
		tr      Transition
	)
	e.registry.Update(targetURL, func(t *Target) {
		t.IP = ip
		tr = Classify(t, res, e.opts.ErrorThreshold)
		updated = *t
	})

	attrs := []any{
		"url", targetURL,
		"status", updated.Status,
		"status_code", updated.StatusCode,
		"error_count", updated.ErrorCount,
		"attempts", res.Attempts,
	}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	if tr.Changed() {
		logger.Info("status changed", append(attrs, "from", tr.From)...)
	} else {
		logger.Debug("target checked", attrs...)
	}

	if !e.dispatcher.ShouldAlert(updated) {
		return
	}
	if e.dispatcher.Dispatch(ctx, updated) {
		alertedAt := time.Now()
		e.registry.Update(targetURL, func(t *Target) {
			if t.Status == StatusDown {
				t.Alerted = true
				t.AlertedAt = alertedAt
			}
		})
	}
}

// hostOf returns the host of a target URL, or the input if it does not parse
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}

func countStatuses(targets []Target) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, t := range targets {
		counts[t.Status]++
	}
	return counts
}

// IsFatal reports whether err should abort the process
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoTargets)
}
