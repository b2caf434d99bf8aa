package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticSource struct {
	targets []Target
	err     error
}

func (s *staticSource) Targets(ctx context.Context) ([]Target, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.targets, nil
}

func target(domain string) Target {
	return Target{URL: "https://www." + domain + "/", Domain: domain}
}

type fakeResolver struct {
	addrs map[string]string
}

func (r *fakeResolver) Resolve(ctx context.Context, host string) (string, error) {
	if ip, ok := r.addrs[host]; ok {
		return ip, nil
	}
	return "", fmt.Errorf("%w: %s", ErrDNSResolution, host)
}

// fakeProber answers from a per-url switch and counts attempts the way the
// HTTP prober would spend its retry budget.
type fakeProber struct {
	mu       sync.Mutex
	up       map[string]bool
	retries  int
	attempts map[string]int
}

func newFakeProber(retries int) *fakeProber {
	return &fakeProber{
		up:       map[string]bool{},
		retries:  retries,
		attempts: map[string]int{},
	}
}

func (p *fakeProber) set(url string, up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.up[url] = up
}

func (p *fakeProber) Probe(ctx context.Context, url string) ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.up[url] {
		p.attempts[url]++
		return ProbeResult{URL: url, Success: true, StatusCode: 200, Attempts: 1, CheckedAt: time.Now()}
	}

	p.attempts[url] += p.retries + 1
	return ProbeResult{
		URL:       url,
		Attempts:  p.retries + 1,
		Err:       fmt.Errorf("%w: refused", ErrProbeConnection),
		CheckedAt: time.Now(),
	}
}

func (p *fakeProber) attemptsFor(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[url]
}

type fakeNotifier struct {
	mu       sync.Mutex
	calls    []string
	failures []int
	failNext int
}

func (n *fakeNotifier) Notify(ctx context.Context, target string, consecutiveFailures int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, target)
	n.failures = append(n.failures, consecutiveFailures)
	if n.failNext > 0 {
		n.failNext--
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakeCapturer struct {
	mu    sync.Mutex
	calls map[string]int
	fail  int
}

func (c *fakeCapturer) Capture(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[url]++
	if c.fail > 0 {
		c.fail--
		return "", errors.New("browser crashed")
	}
	return fmt.Sprintf("shot-%d.png", c.calls[url]), nil
}

func (c *fakeCapturer) count(url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[url]
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]EvidenceRecord
	puts    int
	saves   int
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]EvidenceRecord{}}
}

func (s *fakeStore) Load(ctx context.Context) (map[string]EvidenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[string]EvidenceRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) Put(ctx context.Context, domain string, rec EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[domain] = rec
	s.puts++
	return nil
}

func (s *fakeStore) Save(ctx context.Context, records map[string]EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]EvidenceRecord, len(records))
	for k, v := range records {
		s.records[k] = v
	}
	s.saves++
	return nil
}
