package govern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gradfeed/ingest/internal/model"
)

// Source couples a SourceAdapter with its Governor and the per-source
// failure policy: every page fetch passes the Throttle gate, carries a
// bounded timeout, and gets exactly one fixed-delay retry on a transient
// error before the failure surfaces. Requests within one Source are strictly
// serialized; concurrency exists across sources only.
type Source struct {
	adapter    model.SourceAdapter
	governor   *Governor
	seen       *seenSet
	timeout    time.Duration // per page fetch
	retryDelay time.Duration // fixed delay before the single retry
	maxPages   int
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// SourceOptions bound a Source's fetch behavior.
type SourceOptions struct {
	FetchTimeout time.Duration // default 15s
	RetryDelay   time.Duration // default 5s
	MaxPages     int           // default 3
	SeenTTL      time.Duration // default 48h
}

// NewSource wires an adapter to its governor.
func NewSource(adapter model.SourceAdapter, governor *Governor, opts SourceOptions, logger *slog.Logger) *Source {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.SeenTTL <= 0 {
		opts.SeenTTL = 48 * time.Hour
	}
	return &Source{
		adapter:    adapter,
		governor:   governor,
		seen:       newSeenSet(opts.SeenTTL),
		timeout:    opts.FetchTimeout,
		retryDelay: opts.RetryDelay,
		maxPages:   opts.MaxPages,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Name returns the underlying adapter's source name.
func (s *Source) Name() string {
	return s.adapter.Name()
}

// Governor returns this source's governor, for run-level request counts.
func (s *Source) Governor() *Governor {
	return s.governor
}

// Fetch retrieves all pages for the query, in request order, stopping at an
// empty page or the page cap. Jobs already seen by this source within the
// seen TTL are skipped; that is a re-fetch optimization local to this
// source, the authoritative dedup is the pipeline's fingerprint pass.
// On error the jobs collected so far are returned alongside it.
func (s *Source) Fetch(ctx context.Context, query, location string) ([]model.RawJob, error) {
	var jobs []model.RawJob
	for page := 1; page <= s.maxPages; page++ {
		batch, err := s.fetchPage(ctx, query, location, page)
		if err != nil {
			return jobs, fmt.Errorf("%s page %d: %w", s.adapter.Name(), page, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, job := range batch {
			key := job.Source + "|" + job.URL
			if s.seen.has(key) {
				continue
			}
			s.seen.add(key)
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// fetchPage performs one governed page fetch with the single bounded retry.
func (s *Source) fetchPage(ctx context.Context, query, location string, page int) ([]model.RawJob, error) {
	batch, err := s.doPage(ctx, query, location, page)
	if err == nil {
		return batch, nil
	}
	if !transient(err) {
		return nil, err
	}

	delay := s.retryDelay
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		delay = httpErr.RetryAfter
	}

	s.logger.Warn("transient source error, retrying once",
		"source", s.adapter.Name(),
		"page", page,
		"delay", delay,
		"error", err,
	)

	if serr := s.sleep(ctx, delay); serr != nil {
		return nil, fmt.Errorf("retry wait: %w", serr)
	}
	return s.doPage(ctx, query, location, page)
}

func (s *Source) doPage(ctx context.Context, query, location string, page int) ([]model.RawJob, error) {
	if err := s.governor.Throttle(ctx); err != nil {
		return nil, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.adapter.FetchPage(fetchCtx, query, location, page)
}

// transient reports whether the error is worth the single retry:
// 429, 5xx, timeouts and network failures. Parent-context cancellation and
// other 4xx are not.
func transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}
	// Timeouts surface as context.DeadlineExceeded from the per-fetch
	// context; other non-HTTP errors are network-level.
	return true
}

// SweepSeen drops expired entries from the source-local seen set.
func (s *Source) SweepSeen() {
	s.seen.sweep()
}
