// Package store implements the persistent job store contract: upsert keyed
// by fingerprint, where a repeat sighting bumps last_seen_at and leaves the
// first-written fields intact, plus per-run metadata for audit.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gradfeed/ingest/internal/model"
)

// SQLiteStore is the default single-node job store.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the store at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening job store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging job store: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			fingerprint   TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			company       TEXT NOT NULL,
			location      TEXT NOT NULL,
			description   TEXT NOT NULL,
			url           TEXT NOT NULL,
			source        TEXT NOT NULL,
			track         TEXT NOT NULL,
			early_career  INTEGER NOT NULL,
			posted_at     INTEGER,
			ingested_at   INTEGER NOT NULL,
			first_seen_at INTEGER NOT NULL,
			last_seen_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			track         TEXT NOT NULL,
			query         TEXT NOT NULL,
			total_found   INTEGER NOT NULL,
			kept          INTEGER NOT NULL,
			unique_count  INTEGER NOT NULL,
			requests_used INTEGER NOT NULL,
			errors        INTEGER NOT NULL,
			start_time    INTEGER NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating job store schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// UpsertJobs implements model.JobStore. A fingerprint collision means the
// same logical posting seen again, possibly from another source: only
// last_seen_at moves.
func (s *SQLiteStore) UpsertJobs(ctx context.Context, jobs []model.NormalizedJob) (int, int, error) {
	var inserted, updated int
	now := s.now().UTC().UnixMilli()

	for _, job := range jobs {
		var postedAt any
		if job.PostedAt != nil {
			postedAt = job.PostedAt.UTC().UnixMilli()
		}

		res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO jobs
			(fingerprint, title, company, location, description, url, source, track,
			 early_career, posted_at, ingested_at, first_seen_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.Fingerprint, job.Title, job.Company, job.Location, job.Description,
			job.URL, job.Source, job.Track, boolToInt(job.EarlyCareer), postedAt,
			job.IngestedAt.UTC().UnixMilli(), now, now)
		if err != nil {
			return inserted, updated, fmt.Errorf("upsert %s: %w", job.Fingerprint, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return inserted, updated, fmt.Errorf("upsert %s: %w", job.Fingerprint, err)
		}
		if n == 1 {
			inserted++
			continue
		}

		if _, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET last_seen_at = ? WHERE fingerprint = ?`,
			now, job.Fingerprint); err != nil {
			return inserted, updated, fmt.Errorf("touch %s: %w", job.Fingerprint, err)
		}
		updated++
	}
	return inserted, updated, nil
}

// SaveRunMetadata implements model.JobStore.
func (s *SQLiteStore) SaveRunMetadata(ctx context.Context, meta model.RunMetadata) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO ingest_runs
		(track, query, total_found, kept, unique_count, requests_used, errors, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.Track, meta.Query, meta.TotalFound, meta.Kept, meta.Unique,
		meta.RequestsUsed, meta.Errors, meta.StartTime.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save run metadata: %w", err)
	}
	return nil
}

// JobCount returns the total number of stored jobs.
func (s *SQLiteStore) JobCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return count, nil
}

// SeenTimes returns (first_seen_at, last_seen_at) for a fingerprint.
func (s *SQLiteStore) SeenTimes(ctx context.Context, fp string) (time.Time, time.Time, error) {
	var first, last int64
	err := s.db.QueryRowContext(ctx,
		`SELECT first_seen_at, last_seen_at FROM jobs WHERE fingerprint = ?`, fp).
		Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("seen times %s: %w", fp, err)
	}
	return time.UnixMilli(first).UTC(), time.UnixMilli(last).UTC(), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
