package monitor

import (
	"context"
	"testing"
	"time"
)

func newTestCache(r *Registry, c Capturer, s MetadataStore, ttl time.Duration) *EvidenceCache {
	return NewEvidenceCache(r, c, s, EvidenceConfig{
		TTL:         ttl,
		Attempts:    3,
		Concurrency: 4,
	}, discardLogger(), nil)
}

func TestEvidenceRefreshIsIdempotentWithinTTL(t *testing.T) {
	r := NewRegistry()
	tg := target("example.com")
	tg.IP = "93.184.216.34"
	r.Upsert(tg)

	capturer := &fakeCapturer{}
	store := newFakeStore()
	cache := newTestCache(r, capturer, store, time.Hour)

	base := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return base }

	captured, err := cache.Refresh(context.Background(), tg.URL)
	if err != nil || !captured {
		t.Fatalf("Expected first refresh to capture, got %v/%v", captured, err)
	}
	first, _ := r.Get(tg.URL)

	cache.now = func() time.Time { return base.Add(30 * time.Minute) }
	captured, err = cache.Refresh(context.Background(), tg.URL)
	if err != nil || captured {
		t.Fatalf("Expected second refresh within ttl to skip, got %v/%v", captured, err)
	}

	if n := capturer.count(tg.URL); n != 1 {
		t.Errorf("Expected exactly 1 capture, got %d", n)
	}

	second, _ := r.Get(tg.URL)
	if !second.LastCaptured.Equal(first.LastCaptured) || second.ScreenshotRef != first.ScreenshotRef {
		t.Error("Expected evidence to be unchanged by the cached refresh")
	}
	if store.puts != 1 {
		t.Errorf("Expected metadata to be written once, got %d", store.puts)
	}
	if rec := store.records["example.com"]; rec.ScreenshotRef != "shot-1.png" {
		t.Errorf("Expected persisted ref shot-1.png, got %q", rec.ScreenshotRef)
	}
}

func TestEvidenceRefreshAfterTTL(t *testing.T) {
	r := NewRegistry()
	tg := target("example.com")
	tg.IP = "93.184.216.34"
	r.Upsert(tg)

	capturer := &fakeCapturer{}
	cache := newTestCache(r, capturer, newFakeStore(), time.Hour)

	base := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return base }
	cache.Refresh(context.Background(), tg.URL)

	cache.now = func() time.Time { return base.Add(time.Hour) }
	captured, _ := cache.Refresh(context.Background(), tg.URL)
	if !captured {
		t.Fatal("Expected capture once ttl elapsed")
	}

	got, _ := r.Get(tg.URL)
	if !got.LastCaptured.Equal(base.Add(time.Hour)) {
		t.Errorf("Expected last captured to advance, got %v", got.LastCaptured)
	}
	if got.ScreenshotRef != "shot-2.png" {
		t.Errorf("Expected ref shot-2.png, got %q", got.ScreenshotRef)
	}
}

func TestEvidenceSkipsUnresolvedTargets(t *testing.T) {
	r := NewRegistry()
	unresolved := target("nodns.example")
	unresolved.IP = IPNotFound
	r.Upsert(unresolved)

	stale := target("stale.example")
	stale.IP = IPNotFound
	stale.LastCaptured = time.Unix(1, 0)
	stale.ScreenshotRef = "old.png"
	r.Upsert(stale)

	capturer := &fakeCapturer{}
	cache := newTestCache(r, capturer, newFakeStore(), time.Hour)

	if n := cache.Pass(context.Background(), []string{unresolved.URL, stale.URL}); n != 0 {
		t.Errorf("Expected no captures, got %d", n)
	}
	if capturer.count(unresolved.URL)+capturer.count(stale.URL) != 0 {
		t.Error("Expected capturer not to be called for unresolved targets")
	}

	got, _ := r.Get(stale.URL)
	if got.ScreenshotRef != "old.png" {
		t.Errorf("Expected evidence untouched, got %q", got.ScreenshotRef)
	}
}

func TestEvidenceRetriesThenSucceeds(t *testing.T) {
	r := NewRegistry()
	tg := target("flaky.example")
	tg.IP = "10.0.0.1"
	r.Upsert(tg)

	capturer := &fakeCapturer{fail: 2}
	cache := newTestCache(r, capturer, newFakeStore(), time.Hour)

	captured, err := cache.Refresh(context.Background(), tg.URL)
	if err != nil || !captured {
		t.Fatalf("Expected capture to succeed on third attempt, got %v/%v", captured, err)
	}
	if n := capturer.count(tg.URL); n != 3 {
		t.Errorf("Expected 3 capture attempts, got %d", n)
	}
}

func TestEvidenceFailureLeavesEvidenceUnchanged(t *testing.T) {
	r := NewRegistry()
	tg := target("broken.example")
	tg.IP = "10.0.0.1"
	tg.LastCaptured = time.Unix(1, 0)
	tg.ScreenshotRef = "old.png"
	r.Upsert(tg)

	capturer := &fakeCapturer{fail: 10}
	store := newFakeStore()
	cache := newTestCache(r, capturer, store, time.Hour)

	captured, err := cache.Refresh(context.Background(), tg.URL)
	if captured || err == nil {
		t.Fatalf("Expected capture failure, got %v/%v", captured, err)
	}
	if n := capturer.count(tg.URL); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}

	got, _ := r.Get(tg.URL)
	if !got.LastCaptured.Equal(time.Unix(1, 0)) || got.ScreenshotRef != "old.png" {
		t.Error("Expected failed capture to leave evidence unchanged")
	}
	if store.puts != 0 {
		t.Errorf("Expected no metadata writes, got %d", store.puts)
	}
}

func TestEvidenceLastCapturedIsMonotonic(t *testing.T) {
	r := NewRegistry()
	tg := target("clock.example")
	tg.IP = "10.0.0.1"
	r.Upsert(tg)

	cache := newTestCache(r, &fakeCapturer{}, nil, 0)

	later := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return later }
	cache.Refresh(context.Background(), tg.URL)

	cache.now = func() time.Time { return later.Add(-time.Minute) }
	cache.Refresh(context.Background(), tg.URL)

	got, _ := r.Get(tg.URL)
	if !got.LastCaptured.Equal(later) {
		t.Errorf("Expected last captured to stay at %v, got %v", later, got.LastCaptured)
	}
}
