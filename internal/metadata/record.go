// Package metadata persists screenshot capture metadata keyed by domain.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/monitor"
)

var (
	// ErrRead is returned when stored metadata cannot be read or decoded
	ErrRead = errors.New("metadata read error")
	// ErrWrite is returned when metadata cannot be persisted
	ErrWrite = errors.New("metadata write error")
)

// Record is the stored form of one domain's evidence
type Record struct {
	LastCaptured   float64 `json:"last_captured"`
	ScreenshotPath string  `json:"screenshot_path"`
}

// Store is a metadata backend that can be closed
type Store interface {
	monitor.MetadataStore
	Close() error
}

// FromEvidence converts an evidence record to its stored form
func FromEvidence(rec monitor.EvidenceRecord) Record {
	return Record{
		LastCaptured:   epochSeconds(rec.LastCaptured),
		ScreenshotPath: rec.ScreenshotRef,
	}
}

// Evidence converts the stored form back to an evidence record
func (r Record) Evidence() monitor.EvidenceRecord {
	return monitor.EvidenceRecord{
		LastCaptured:  fromEpochSeconds(r.LastCaptured),
		ScreenshotRef: r.ScreenshotPath,
	}
}

// epochSeconds encodes t as float seconds, zero for the zero time
func epochSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMicro()) / 1e6
}

// fromEpochSeconds decodes float seconds at microsecond resolution
func fromEpochSeconds(s float64) time.Time {
	if s <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(math.Round(s * 1e6)))
}

// Open returns the backend selected by cfg
func Open(ctx context.Context, cfg config.MetadataConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendJSON:
		return NewJSONStore(cfg.Path), nil
	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.Path)
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown metadata backend: %s", cfg.Backend)
	}
}
