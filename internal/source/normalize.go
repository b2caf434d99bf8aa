// Package source loads monitored domains and turns them into registry targets.
package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// NormalizeDomain reduces a domain entry to its bare lowercase form.
// Entries may carry a scheme, a leading "www." or a path, which are dropped.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" {
		return "", fmt.Errorf("empty domain")
	}

	if strings.Contains(d, "://") {
		u, err := url.Parse(d)
		if err != nil {
			return "", fmt.Errorf("failed to parse domain %q: %w", raw, err)
		}
		d = u.Hostname()
	} else if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}

	d = strings.TrimPrefix(d, "www.")
	d = strings.TrimSuffix(d, ".")

	if d == "" || strings.ContainsAny(d, " \t") {
		return "", fmt.Errorf("invalid domain %q", raw)
	}
	return d, nil
}

// TargetURL returns the canonical URL probed for a domain
func TargetURL(domain string) string {
	return "https://www." + domain + "/"
}

// Build normalizes entries into unique targets in input order.
// Invalid non-blank entries are returned as skipped.
func Build(entries []string) ([]monitor.Target, []string) {
	seen := make(map[string]bool, len(entries))
	targets := make([]monitor.Target, 0, len(entries))
	var skipped []string

	for _, entry := range entries {
		domain, err := NormalizeDomain(entry)
		if err != nil {
			if strings.TrimSpace(entry) != "" {
				skipped = append(skipped, entry)
			}
			continue
		}
		if seen[domain] {
			continue
		}
		seen[domain] = true

		targets = append(targets, monitor.Target{
			URL:    TargetURL(domain),
			Domain: domain,
			Status: monitor.StatusUnknown,
		})
	}

	return targets, skipped
}
