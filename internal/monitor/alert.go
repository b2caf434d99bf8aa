package monitor

import (
	"context"
	"log/slog"
)

// Notifier is the alert sink contract
type Notifier interface {
	Notify(ctx context.Context, target string, consecutiveFailures int) error
}

// Dispatcher sends one alert per down-streak
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

// NewDispatcher creates a dispatcher over notifier. A nil notifier disables alerts.
func NewDispatcher(notifier Notifier, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// ShouldAlert reports whether t is Down with no alert for the current streak
func (d *Dispatcher) ShouldAlert(t Target) bool {
	return d.notifier != nil && t.Status == StatusDown && !t.Alerted
}

// Dispatch notifies the sink about t. It returns true when the alert was
// delivered and the streak may be marked as alerted. Failures are logged only.
func (d *Dispatcher) Dispatch(ctx context.Context, t Target) bool {
	if !d.ShouldAlert(t) {
		return false
	}

	if err := d.notifier.Notify(ctx, t.URL, t.ErrorCount); err != nil {
		d.metrics.observeAlert("failure")
		d.logger.Error("alert dispatch failed",
			"url", t.URL,
			"error_count", t.ErrorCount,
			"error", err)
		return false
	}

	d.metrics.observeAlert("sent")
	d.logger.Warn("down alert sent",
		"url", t.URL,
		"error_count", t.ErrorCount)
	return true
}
