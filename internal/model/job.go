package model

import (
	"context"
	"time"
)

// RawJob is a job posting as returned by a source adapter, normalized into
// the one shape the rest of the pipeline understands. Immutable once created;
// never persisted directly.
type RawJob struct {
	Title       string     // job title
	Company     string     // company name
	Location    string     // location string
	Description string     // plain-text description (tags stripped)
	URL         string     // direct apply/redirect link
	PostedAt    *time.Time // nullable (not all APIs provide this)
	Source      string     // source name, e.g. "adzuna"
}

// NormalizedJob is a RawJob that survived classification and fingerprinting.
// Owned by the pipeline until handed to the queue; read-only afterwards.
type NormalizedJob struct {
	RawJob
	EarlyCareer bool      `json:"early_career"`
	Fingerprint string    `json:"fingerprint"` // content identity, dedup/upsert key
	Track       string    `json:"track"`       // track label of the run that found it
	IngestedAt  time.Time `json:"ingested_at"` // our clock
}

// RunMetadata summarizes one ingestion run for audit and track tuning.
type RunMetadata struct {
	Track        string
	Query        string
	TotalFound   int
	Kept         int // survived classification
	Unique       int // survived batch-local dedup
	RequestsUsed int
	Errors       int
	StartTime    time.Time
}

// SourceAdapter fetches one page of postings from an external source.
// FetchPage must only be called through a Governor's Throttle gate.
type SourceAdapter interface {
	Name() string
	FetchPage(ctx context.Context, query, location string, page int) ([]RawJob, error)
}

// JobStore persists normalized jobs keyed by fingerprint, plus run metadata.
type JobStore interface {
	// UpsertJobs inserts new fingerprints and bumps last_seen_at on already
	// known ones, leaving first-written fields intact. Returns (inserted, updated).
	UpsertJobs(ctx context.Context, jobs []NormalizedJob) (int, int, error)
	SaveRunMetadata(ctx context.Context, meta RunMetadata) error
	Close() error
}

// Notifier delivers a batch of jobs to a recipient.
type Notifier interface {
	Send(jobs []NormalizedJob, recipient string) error
}

// MatchResult is the verdict of the match-scoring model.
type MatchResult struct {
	MatchScore float64 `json:"matchScore"`
	Reason     string  `json:"reason"`
}

// MatchScorer scores a job against a user profile. Remote implementations
// may fail; callers degrade to a rule-based fallback.
type MatchScorer interface {
	Score(ctx context.Context, job NormalizedJob, profile string) (MatchResult, error)
}
