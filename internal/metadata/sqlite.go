package metadata

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// SQLiteStore keeps metadata in an embedded SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database file and ensures the schema exists
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// A single connection serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS capture_metadata (
	domain          TEXT PRIMARY KEY,
	last_captured   REAL NOT NULL,
	screenshot_path TEXT NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load reads every record
func (s *SQLiteStore) Load(ctx context.Context) (map[string]monitor.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, last_captured, screenshot_path FROM capture_metadata`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer rows.Close()

	out := map[string]monitor.EvidenceRecord{}
	for rows.Next() {
		var (
			domain string
			rec    Record
		)
		if err := rows.Scan(&domain, &rec.LastCaptured, &rec.ScreenshotPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRead, err)
		}
		out[domain] = rec.Evidence()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return out, nil
}

const upsertRecord = `
INSERT INTO capture_metadata (domain, last_captured, screenshot_path)
VALUES (?, ?, ?)
ON CONFLICT(domain) DO UPDATE SET
	last_captured = excluded.last_captured,
	screenshot_path = excluded.screenshot_path`

// Put upserts one domain's record
func (s *SQLiteStore) Put(ctx context.Context, domain string, rec monitor.EvidenceRecord) error {
	r := FromEvidence(rec)
	if _, err := s.db.ExecContext(ctx, upsertRecord, domain, r.LastCaptured, r.ScreenshotPath); err != nil {
		return fmt.Errorf("%w: failed to upsert %s: %v", ErrWrite, domain, err)
	}
	return nil
}

// Save replaces the table contents with records in one transaction
func (s *SQLiteStore) Save(ctx context.Context, records map[string]monitor.EvidenceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", ErrWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM capture_metadata`); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertRecord)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer stmt.Close()

	for domain, rec := range records {
		r := FromEvidence(rec)
		if _, err := stmt.ExecContext(ctx, domain, r.LastCaptured, r.ScreenshotPath); err != nil {
			return fmt.Errorf("%w: failed to save %s: %v", ErrWrite, domain, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
