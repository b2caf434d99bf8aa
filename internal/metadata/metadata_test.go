package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juststeveking/sentinel/internal/config"
	"github.com/juststeveking/sentinel/internal/monitor"
)

func sampleRecords() map[string]monitor.EvidenceRecord {
	return map[string]monitor.EvidenceRecord{
		"example.com": {
			LastCaptured:  time.Unix(1700000000, 123456000),
			ScreenshotRef: "www.example.com_.png",
		},
		"other.org": {
			LastCaptured:  time.Unix(1700003600, 999999000),
			ScreenshotRef: "www.other.org_.png",
		},
	}
}

func assertRecords(t *testing.T, want, got map[string]monitor.EvidenceRecord) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(got))
	}
	for domain, w := range want {
		g, ok := got[domain]
		if !ok {
			t.Errorf("Expected record for %s", domain)
			continue
		}
		if g.LastCaptured.Sub(w.LastCaptured).Abs() >= time.Millisecond {
			t.Errorf("%s: expected last captured %v, got %v", domain, w.LastCaptured, g.LastCaptured)
		}
		if g.LastCaptured.Unix() != w.LastCaptured.Unix() {
			t.Errorf("%s: expected second %d, got %d", domain, w.LastCaptured.Unix(), g.LastCaptured.Unix())
		}
		if g.ScreenshotRef != w.ScreenshotRef {
			t.Errorf("%s: expected ref %q, got %q", domain, w.ScreenshotRef, g.ScreenshotRef)
		}
	}
}

func TestEpochSecondsRoundTrip(t *testing.T) {
	in := time.Unix(1700000000, 250000000)

	out := fromEpochSeconds(epochSeconds(in))
	if !out.Equal(in) {
		t.Errorf("Expected %v, got %v", in, out)
	}

	if epochSeconds(time.Time{}) != 0 {
		t.Error("Expected zero time to encode as 0")
	}
	if !fromEpochSeconds(0).IsZero() {
		t.Error("Expected 0 to decode as the zero time")
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	store := NewJSONStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := NewJSONStore(path).Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertRecords(t, sampleRecords(), got)
}

func TestJSONStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	store := NewJSONStore(path)

	rec := monitor.EvidenceRecord{LastCaptured: time.Unix(1700000000, 500000000), ScreenshotRef: "www.example.com_.png"}
	if err := store.Put(context.Background(), "example.com", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read metadata file: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	entry := raw["example.com"]
	if entry["last_captured"] != 1700000000.5 {
		t.Errorf("Expected last_captured 1700000000.5, got %v", entry["last_captured"])
	}
	if entry["screenshot_path"] != "www.example.com_.png" {
		t.Errorf("Expected screenshot_path, got %v", entry["screenshot_path"])
	}
}

func TestJSONStorePutMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	store := NewJSONStore(path)
	ctx := context.Background()

	records := sampleRecords()
	for domain, rec := range records {
		if err := store.Put(ctx, domain, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertRecords(t, records, got)
}

func TestJSONStoreMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	got, err := NewJSONStore(filepath.Join(dir, "missing.json")).Load(ctx)
	if err != nil {
		t.Fatalf("Expected missing file to load empty, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no records, got %d", len(got))
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	_, err = NewJSONStore(corrupt).Load(ctx)
	if !errors.Is(err, ErrRead) {
		t.Errorf("Expected ErrRead, got %v", err)
	}

	// Put recovers a corrupt document
	rec := monitor.EvidenceRecord{LastCaptured: time.Unix(1700000000, 0), ScreenshotRef: "a.png"}
	if err := NewJSONStore(corrupt).Put(ctx, "a.com", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err = NewJSONStore(corrupt).Load(ctx)
	if err != nil || len(got) != 1 {
		t.Errorf("Expected 1 record after recovery, got %d (%v)", len(got), err)
	}
}

func TestSQLiteStoreJournalMode(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer store.Close()

	var mode string
	if err := store.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("Failed to read journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected journal mode wal, got %s", mode)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "metadata.db")

	store, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}

	if err := store.Save(ctx, sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	updated := monitor.EvidenceRecord{LastCaptured: time.Unix(1700007200, 0), ScreenshotRef: "www.example.com_.png"}
	if err := store.Put(ctx, "example.com", updated); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("Failed to reopen sqlite store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := sampleRecords()
	want["example.com"] = updated
	assertRecords(t, want, got)

	if err := reopened.Save(ctx, map[string]monitor.EvidenceRecord{"other.org": want["other.org"]}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, _ = reopened.Load(ctx)
	if len(got) != 1 {
		t.Errorf("Expected save to replace contents, got %d records", len(got))
	}
}

func TestRedisFieldCodec(t *testing.T) {
	rec := sampleRecords()["example.com"]

	value, err := encodeRecord(rec)
	if err != nil {
		t.Fatalf("encodeRecord failed: %v", err)
	}

	got, err := decodeFields(map[string]string{"example.com": value})
	if err != nil {
		t.Fatalf("decodeFields failed: %v", err)
	}
	assertRecords(t, map[string]monitor.EvidenceRecord{"example.com": rec}, got)

	if _, err := decodeFields(map[string]string{"bad.com": "nope"}); !errors.Is(err, ErrRead) {
		t.Errorf("Expected ErrRead for a bad field, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(ctx, config.MetadataConfig{Backend: config.BackendJSON, Path: filepath.Join(dir, "m.json")})
	if err != nil {
		t.Fatalf("Open json failed: %v", err)
	}
	if _, ok := store.(*JSONStore); !ok {
		t.Errorf("Expected *JSONStore, got %T", store)
	}

	store, err = Open(ctx, config.MetadataConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "m.db")})
	if err != nil {
		t.Fatalf("Open sqlite failed: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("Expected *SQLiteStore, got %T", store)
	}

	if _, err := Open(ctx, config.MetadataConfig{Backend: "etcd"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
