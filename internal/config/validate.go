package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	fmtErrEmptyConfig       = "config %s cannot be empty"
	fmtErrEmptyConfigOption = "config field '%s' cannot be empty"
	fmtErrPositiveOption    = "config field '%s' must be greater than zero"
	fmtErrNegativeOption    = "config field '%s' cannot be negative"
	fmtErrInvalidOption     = "config field '%s' has invalid value '%s'"
	fmtErrInvalidDuration   = "config field '%s' is not a valid duration: %w"
)

// Validate checks the config for values the engine cannot run with
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf(fmtErrEmptyConfig, "config")
	}

	validators := []func() error{
		c.validateMonitor,
		c.validateScreenshot,
		c.validateMetadata,
		c.validateLogging,
	}

	var errs []error
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, err)
		}
	}

	if d, err := c.ParseDurations(); err != nil {
		errs = append(errs, err)
	} else if err := c.validateDurations(d); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) validateMonitor() error {
	if c.CheckInterval == "" {
		return fmt.Errorf(fmtErrEmptyConfigOption, "check_interval")
	}

	if c.Timeout == "" {
		return fmt.Errorf(fmtErrEmptyConfigOption, "timeout")
	}

	if c.RetryCount < 0 {
		return fmt.Errorf(fmtErrNegativeOption, "retry_count")
	}

	if c.ErrorThreshold <= 0 {
		return fmt.Errorf(fmtErrPositiveOption, "error_threshold")
	}

	if c.CheckConcurrency <= 0 {
		return fmt.Errorf(fmtErrPositiveOption, "check_concurrency")
	}

	return nil
}

func (c *Config) validateScreenshot() error {
	if !c.Screenshot.Enabled {
		return nil
	}

	if c.Screenshot.Dir == "" {
		return fmt.Errorf(fmtErrEmptyConfigOption, "screenshot.dir")
	}

	switch c.Screenshot.Wait {
	case WaitNetworkIdle, WaitLoad:
	default:
		return fmt.Errorf(fmtErrInvalidOption, "screenshot.wait", c.Screenshot.Wait)
	}

	if c.Screenshot.Attempts <= 0 {
		return fmt.Errorf(fmtErrPositiveOption, "screenshot.attempts")
	}

	if c.Screenshot.Concurrency <= 0 {
		return fmt.Errorf(fmtErrPositiveOption, "screenshot.concurrency")
	}

	return nil
}

type durationField struct {
	name  string
	value time.Duration
}

// validateDurations rejects timeouts and intervals that would disable a bound
func (c *Config) validateDurations(d Durations) error {
	positive := []durationField{
		{"check_interval", d.CheckInterval},
		{"timeout", d.Timeout},
		{"dns.timeout", d.DNSTimeout},
		{"enrich.timeout", d.EnrichTimeout},
	}
	if c.Screenshot.Enabled {
		positive = append(positive, durationField{"screenshot.timeout", d.ScreenshotTimeout})
	}
	for _, f := range positive {
		if f.value <= 0 {
			return fmt.Errorf(fmtErrPositiveOption, f.name)
		}
	}

	nonNegative := []durationField{
		{"retry_delay", d.RetryDelay},
		{"screenshot.ttl", d.ScreenshotTTL},
		{"screenshot.retry_delay", d.ScreenshotDelay},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			return fmt.Errorf(fmtErrNegativeOption, f.name)
		}
	}

	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.Backend {
	case BackendJSON, BackendSQLite:
		if c.Metadata.Path == "" {
			return fmt.Errorf(fmtErrEmptyConfigOption, "metadata.path")
		}
	case BackendRedis:
		if c.Metadata.RedisAddr == "" {
			return fmt.Errorf(fmtErrEmptyConfigOption, "metadata.redis_addr")
		}
	default:
		return fmt.Errorf(fmtErrInvalidOption, "metadata.backend", c.Metadata.Backend)
	}

	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf(fmtErrInvalidOption, "logging.format", c.Logging.Format)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf(fmtErrInvalidOption, "logging.level", c.Logging.Level)
	}

	return nil
}
