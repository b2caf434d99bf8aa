package monitor

import (
	"sort"
	"sync"
	"time"
)

// EvidenceRecord is the durable part of a target's evidence state
type EvidenceRecord struct {
	LastCaptured  time.Time
	ScreenshotRef string
}

// Registry holds the monitored targets keyed by canonical URL.
// Every read returns a copy; updates to one target apply as a unit.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]*Target
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]*Target),
	}
}

// Get returns a copy of the target stored under url
func (r *Registry) Get(url string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.targets[url]
	if !ok {
		return Target{}, false
	}
	return *t, true
}

// Upsert stores the target, replacing any existing entry
func (r *Registry) Upsert(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Status == "" {
		t.Status = StatusUnknown
	}
	stored := t
	r.targets[t.URL] = &stored
}

// Update applies fn to the stored target as a single unit.
// It returns false if url is not registered.
func (r *Registry) Update(url string, fn func(t *Target)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[url]
	if !ok {
		return false
	}

	working := *t
	fn(&working)
	working.URL = url
	*t = working
	return true
}

// Sync merges targets from the source. New URLs are inserted as Unknown;
// existing ones keep their state and only refresh a non-empty IP.
func (r *Registry) Sync(targets []Target) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, in := range targets {
		existing, ok := r.targets[in.URL]
		if ok {
			if in.IP != "" {
				existing.IP = in.IP
			}
			if existing.Domain == "" {
				existing.Domain = in.Domain
			}
			continue
		}

		t := Target{
			URL:    in.URL,
			Domain: in.Domain,
			IP:     in.IP,
			Status: StatusUnknown,
		}
		r.targets[in.URL] = &t
		added++
	}

	return added
}

// Seed copies durable evidence onto targets with a matching domain
func (r *Registry) Seed(records map[string]EvidenceRecord) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	seeded := 0
	for _, t := range r.targets {
		rec, ok := records[t.Domain]
		if !ok {
			continue
		}
		if rec.LastCaptured.After(t.LastCaptured) {
			t.LastCaptured = rec.LastCaptured
			t.ScreenshotRef = rec.ScreenshotRef
			seeded++
		}
	}

	return seeded
}

// Snapshot returns a copy of every target ordered by URL
func (r *Registry) Snapshot() []Target {
	r.mu.RLock()
	out := make([]Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, *t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].URL < out[j].URL
	})
	return out
}

// Evidence returns the durable evidence of every captured target keyed by domain
func (r *Registry) Evidence() map[string]EvidenceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]EvidenceRecord)
	for _, t := range r.targets {
		if !t.HasEvidence() {
			continue
		}
		out[t.Domain] = EvidenceRecord{
			LastCaptured:  t.LastCaptured,
			ScreenshotRef: t.ScreenshotRef,
		}
	}
	return out
}

// Len returns the number of registered targets
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// SortByStatus orders targets Up, Error, Down, Unknown, then by URL
func SortByStatus(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		ri, rj := statusRank(targets[i].Status), statusRank(targets[j].Status)
		if ri != rj {
			return ri < rj
		}
		return targets[i].URL < targets[j].URL
	})
}
