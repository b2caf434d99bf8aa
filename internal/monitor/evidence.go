package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Capturer renders a target and stores its screenshot, returning a file reference
type Capturer interface {
	Capture(ctx context.Context, url string) (string, error)
}

// MetadataStore persists capture metadata keyed by domain
type MetadataStore interface {
	Load(ctx context.Context) (map[string]EvidenceRecord, error)
	Put(ctx context.Context, domain string, rec EvidenceRecord) error
	Save(ctx context.Context, records map[string]EvidenceRecord) error
}

// EvidenceConfig controls the screenshot freshness policy
type EvidenceConfig struct {
	TTL         time.Duration
	Attempts    int
	RetryDelay  time.Duration
	Concurrency int
}

// EvidenceCache keeps at most one fresh screenshot per target
type EvidenceCache struct {
	registry *Registry
	capturer Capturer
	store    MetadataStore
	config   EvidenceConfig
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewEvidenceCache creates an evidence cache over the registry
func NewEvidenceCache(registry *Registry, capturer Capturer, store MetadataStore, cfg EvidenceConfig, logger *slog.Logger, metrics *Metrics) *EvidenceCache {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &EvidenceCache{
		registry: registry,
		capturer: capturer,
		store:    store,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Stale reports whether t needs a new capture at now
func (c *EvidenceCache) Stale(t Target, now time.Time) bool {
	if t.LastCaptured.IsZero() {
		return true
	}
	return now.Sub(t.LastCaptured) >= c.config.TTL
}

// Refresh captures url when its evidence is stale. It returns true when a
// new screenshot was recorded; unresolved and fresh targets are skipped.
func (c *EvidenceCache) Refresh(ctx context.Context, url string) (bool, error) {
	t, ok := c.registry.Get(url)
	if !ok {
		return false, nil
	}

	if !t.Resolved() {
		c.metrics.observeCapture("skipped")
		c.logger.Debug("skipping capture for unresolved target", "url", url, "ip", t.IP)
		return false, nil
	}

	if !c.Stale(t, c.now()) {
		c.metrics.observeCapture("fresh")
		c.logger.Debug("screenshot still fresh", "url", url, "last_captured", t.LastCaptured)
		return false, nil
	}

	ref, err := c.captureWithRetry(ctx, url)
	if err != nil {
		c.metrics.observeCapture("failure")
		c.logger.Error("screenshot capture failed", "url", url, "attempts", c.config.Attempts, "error", err)
		return false, err
	}

	capturedAt := c.now()
	var rec EvidenceRecord
	c.registry.Update(url, func(t *Target) {
		if capturedAt.After(t.LastCaptured) {
			t.LastCaptured = capturedAt
		}
		t.ScreenshotRef = ref
		rec = EvidenceRecord{LastCaptured: t.LastCaptured, ScreenshotRef: t.ScreenshotRef}
	})

	c.metrics.observeCapture("success")
	c.logger.Info("screenshot captured", "url", url, "screenshot", ref)

	if c.store != nil {
		if err := c.store.Put(ctx, t.Domain, rec); err != nil {
			c.logger.Error("failed to persist capture metadata", "url", url, "domain", t.Domain, "error", err)
		}
	}

	return true, nil
}

// Pass refreshes evidence for every url on a bounded pool
func (c *EvidenceCache) Pass(ctx context.Context, urls []string) int {
	var g errgroup.Group
	g.SetLimit(c.config.Concurrency)

	captured := make(chan struct{}, len(urls))
	for _, url := range urls {
		g.Go(func() error {
			if ok, _ := c.Refresh(ctx, url); ok {
				captured <- struct{}{}
			}
			return nil
		})
	}
	g.Wait()
	close(captured)

	return len(captured)
}

// captureWithRetry makes up to Attempts captures with fixed spacing
func (c *EvidenceCache) captureWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.Attempts; attempt++ {
		ref, err := c.capturer.Capture(ctx, url)
		if err == nil {
			return ref, nil
		}
		lastErr = err

		c.logger.Warn("capture attempt failed", "url", url, "attempt", attempt, "error", err)

		if attempt < c.config.Attempts {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("capture %s failed after %d attempts: %w", url, c.config.Attempts, lastErr)
}
