package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// JSONStore keeps metadata in a single JSON document. Writes are
// serialized and replace the file atomically.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore creates a store backed by path
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads every record. A missing file is an empty set.
func (s *JSONStore) Load(ctx context.Context) (map[string]monitor.EvidenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		return nil, err
	}

	out := make(map[string]monitor.EvidenceRecord, len(raw))
	for domain, rec := range raw {
		out[domain] = rec.Evidence()
	}
	return out, nil
}

// Put updates one domain's record immediately
func (s *JSONStore) Put(ctx context.Context, domain string, rec monitor.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		// An unreadable document is replaced by the records we know about
		raw = map[string]Record{}
	}
	raw[domain] = FromEvidence(rec)
	return s.write(raw)
}

// Save rewrites the document with records
func (s *JSONStore) Save(ctx context.Context, records map[string]monitor.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make(map[string]Record, len(records))
	for domain, rec := range records {
		raw[domain] = FromEvidence(rec)
	}
	return s.write(raw)
}

// Close is a no-op
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) read() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	raw := map[string]Record{}
	if len(data) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrRead, s.path, err)
	}
	return raw, nil
}

func (s *JSONStore) write(raw map[string]Record) error {
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
