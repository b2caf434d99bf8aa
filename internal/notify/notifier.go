// Package notify delivers down alerts to log, desktop and e-mail sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/martinlindhe/notify"
)

// ErrAlertDispatch wraps every sink failure
var ErrAlertDispatch = errors.New("alert dispatch error")

// Subject returns the alert subject line for target
func Subject(target string) string {
	return fmt.Sprintf("Website Down Alert: %s", target)
}

// Body returns the alert text for target
func Body(target string, consecutiveFailures int) string {
	return fmt.Sprintf("ALERT: The website %s is down for %d consecutive checks.", target, consecutiveFailures)
}

// Desktop sends desktop notifications
type Desktop struct {
	appName string
	send    func(appName, title, text, iconPath string)
}

// NewDesktop creates a desktop sink
func NewDesktop() *Desktop {
	return &Desktop{
		appName: "Sentinel",
		send:    notify.Notify,
	}
}

// Notify shows a desktop notification for a down target
func (d *Desktop) Notify(ctx context.Context, target string, consecutiveFailures int) error {
	title := fmt.Sprintf("⚠️  %s - Down", target)
	d.send(d.appName, title, Body(target, consecutiveFailures), "")
	return nil
}

// Log writes alerts to the structured log
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log sink
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs the alert at error level
func (l *Log) Notify(ctx context.Context, target string, consecutiveFailures int) error {
	l.logger.Error(Body(target, consecutiveFailures),
		"alert", Subject(target),
		"url", target,
		"consecutive_failures", consecutiveFailures)
	return nil
}

// Sink is one alert destination
type Sink interface {
	Notify(ctx context.Context, target string, consecutiveFailures int) error
}

// Multi fans an alert out to every sink. The alert counts as delivered
// when at least one delivering sink accepts it; the Log sink only records.
// Every sink failure is logged.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti combines sinks. A nil logger uses slog.Default.
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger}
}

// Len returns the number of sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Notify sends to all sinks
func (m *Multi) Notify(ctx context.Context, target string, consecutiveFailures int) error {
	var (
		errs       []error
		delivering int
		delivered  int
	)
	for _, s := range m.sinks {
		_, recordOnly := s.(*Log)
		if !recordOnly {
			delivering++
		}

		if err := s.Notify(ctx, target, consecutiveFailures); err != nil {
			m.logger.Error("alert sink failed",
				"sink", fmt.Sprintf("%T", s),
				"url", target,
				"error", err)
			errs = append(errs, err)
			continue
		}
		if !recordOnly {
			delivered++
		}
	}

	switch {
	case delivering > 0 && delivered == 0:
		return fmt.Errorf("%w: %w", ErrAlertDispatch, errors.Join(errs...))
	case delivering == 0 && len(errs) > 0:
		return fmt.Errorf("%w: %w", ErrAlertDispatch, errors.Join(errs...))
	}
	return nil
}
