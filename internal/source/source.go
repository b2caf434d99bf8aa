package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// DomainColumn is the spreadsheet header holding domains
const DomainColumn = "Domain"

// Static serves a fixed domain list, typically from the config file
type Static struct {
	domains []string
	logger  *slog.Logger
}

// NewStatic creates a static source
func NewStatic(domains []string, logger *slog.Logger) *Static {
	return &Static{domains: domains, logger: logger}
}

// Targets returns the normalized domains
func (s *Static) Targets(ctx context.Context) ([]monitor.Target, error) {
	targets, skipped := Build(s.domains)
	logSkipped(s.logger, "config", skipped)
	return targets, nil
}

// Spreadsheet reads domains from the "Domain" column of the first sheet.
// The file is re-read on every call so edits apply on the next sweep.
type Spreadsheet struct {
	path   string
	logger *slog.Logger
}

// NewSpreadsheet creates a spreadsheet source for an .xlsx file
func NewSpreadsheet(path string, logger *slog.Logger) *Spreadsheet {
	return &Spreadsheet{path: path, logger: logger}
}

// Targets reads and normalizes the domain column
func (s *Spreadsheet) Targets(ctx context.Context) ([]monitor.Target, error) {
	domains, err := ReadDomains(s.path)
	if err != nil {
		return nil, err
	}

	targets, skipped := Build(domains)
	logSkipped(s.logger, s.path, skipped)
	return targets, nil
}

// ReadDomains returns the raw values of the domain column
func ReadDomains(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	col := -1
	for i, header := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(header), DomainColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("sheet %s has no %q column", sheets[0], DomainColumn)
	}

	var domains []string
	for _, row := range rows[1:] {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			domains = append(domains, row[col])
		}
	}
	return domains, nil
}

// Multi merges several sources, deduplicating by URL. It fails only when
// every source fails.
type Multi struct {
	sources []monitor.TargetSource
	logger  *slog.Logger
}

// NewMulti combines sources in order
func NewMulti(logger *slog.Logger, sources ...monitor.TargetSource) *Multi {
	return &Multi{sources: sources, logger: logger}
}

// Targets returns the union of all sources
func (m *Multi) Targets(ctx context.Context) ([]monitor.Target, error) {
	var (
		out  []monitor.Target
		errs []error
		seen = map[string]bool{}
	)

	for _, src := range m.sources {
		targets, err := src.Targets(ctx)
		if err != nil {
			errs = append(errs, err)
			if m.logger != nil {
				m.logger.Warn("target source failed", "error", err)
			}
			continue
		}
		for _, t := range targets {
			if seen[t.URL] {
				continue
			}
			seen[t.URL] = true
			out = append(out, t)
		}
	}

	if len(errs) == len(m.sources) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func logSkipped(logger *slog.Logger, origin string, skipped []string) {
	if logger == nil || len(skipped) == 0 {
		return
	}
	logger.Warn("skipping invalid domains", "source", origin, "domains", skipped)
}
