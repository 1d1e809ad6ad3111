package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradfeed/ingest/internal/model"
)

// PostgresStore is the production job store, sharing the upsert contract
// with SQLiteStore.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
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
			early_career  BOOLEAN NOT NULL,
			posted_at     TIMESTAMPTZ,
			ingested_at   TIMESTAMPTZ NOT NULL,
			first_seen_at TIMESTAMPTZ NOT NULL,
			last_seen_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id            BIGSERIAL PRIMARY KEY,
			track         TEXT NOT NULL,
			query         TEXT NOT NULL,
			total_found   INTEGER NOT NULL,
			kept          INTEGER NOT NULL,
			unique_count  INTEGER NOT NULL,
			requests_used INTEGER NOT NULL,
			errors        INTEGER NOT NULL,
			start_time    TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating job store schema: %w", err)
		}
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// UpsertJobs implements model.JobStore. The conflict clause only moves
// last_seen_at; first-written fields win.
func (s *PostgresStore) UpsertJobs(ctx context.Context, jobs []model.NormalizedJob) (int, int, error) {
	var inserted, updated int
	now := s.now().UTC()

	for _, job := range jobs {
		var postedAt *time.Time
		if job.PostedAt != nil {
			t := job.PostedAt.UTC()
			postedAt = &t
		}

		// xmax = 0 only holds for freshly inserted rows, which lets one
		// statement report insert vs update.
		var isInsert bool
		err := s.pool.QueryRow(ctx, `INSERT INTO jobs
			(fingerprint, title, company, location, description, url, source, track,
			 early_career, posted_at, ingested_at, first_seen_at, last_seen_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
			ON CONFLICT (fingerprint) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
			RETURNING (xmax = 0)`,
			job.Fingerprint, job.Title, job.Company, job.Location, job.Description,
			job.URL, job.Source, job.Track, job.EarlyCareer, postedAt,
			job.IngestedAt.UTC(), now).Scan(&isInsert)
		if err != nil {
			return inserted, updated, fmt.Errorf("upsert %s: %w", job.Fingerprint, err)
		}
		if isInsert {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, nil
}

// SaveRunMetadata implements model.JobStore.
func (s *PostgresStore) SaveRunMetadata(ctx context.Context, meta model.RunMetadata) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO ingest_runs
		(track, query, total_found, kept, unique_count, requests_used, errors, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		meta.Track, meta.Query, meta.TotalFound, meta.Kept, meta.Unique,
		meta.RequestsUsed, meta.Errors, meta.StartTime.UTC())
	if err != nil {
		return fmt.Errorf("save run metadata: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
