package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Prober defines the interface for liveness probing
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// ProbeConfig controls a single probe and its retry budget
type ProbeConfig struct {
	Timeout    time.Duration
	RetryCount int // additional attempts after the first
	RetryDelay time.Duration
	UserAgent  string
}

// HTTPProber performs HTTP GET liveness probes with bounded retries
type HTTPProber struct {
	client *http.Client
	config ProbeConfig
}

// NewHTTPProber creates a new HTTP prober
func NewHTTPProber(cfg ProbeConfig) *HTTPProber {
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}

	return &HTTPProber{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Close closes the HTTP client's connection pool
func (h *HTTPProber) Close() {
	if h.client != nil {
		h.client.CloseIdleConnections()
	}
}

// Probe checks url, retrying failed attempts up to the configured budget.
// A 2xx response succeeds immediately.
func (h *HTTPProber) Probe(ctx context.Context, url string) ProbeResult {
	result := ProbeResult{
		URL:       url,
		CheckedAt: time.Now(),
	}

	attempts := h.config.RetryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		result.Attempts = attempt + 1

		code, elapsed, err := h.attempt(ctx, url)
		result.ResponseTime = elapsed
		result.Err = err
		result.StatusCode = code

		if err == nil {
			result.Success = true
			return result
		}

		if ctx.Err() != nil {
			break
		}

		// Wait before retry (except on last attempt)
		if attempt < attempts-1 && h.config.RetryDelay > 0 {
			select {
			case <-time.After(h.config.RetryDelay):
			case <-ctx.Done():
				return result
			}
		}
	}

	return result
}

// attempt performs one GET and classifies its failure
func (h *HTTPProber) attempt(ctx context.Context, url string) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: failed to create request: %v", ErrProbeConnection, err)
	}

	if h.config.UserAgent != "" {
		req.Header.Set("User-Agent", h.config.UserAgent)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		return 0, elapsed, classifyTransportError(err)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, elapsed, fmt.Errorf("%w: got %d", ErrProbeNonSuccessStatus, resp.StatusCode)
	}

	return resp.StatusCode, elapsed, nil
}

// classifyTransportError maps a client error onto the probe error taxonomy
func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrDNSResolution, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProbeTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrProbeTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrProbeConnection, err)
}
