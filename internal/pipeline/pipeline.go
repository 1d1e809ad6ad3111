// Package pipeline runs one ingestion cycle: select the day's track, fan out
// over the enabled sources, classify and deduplicate what came back, and hand
// the surviving batch to the work queue.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gradfeed/ingest/internal/classify"
	"github.com/gradfeed/ingest/internal/fingerprint"
	"github.com/gradfeed/ingest/internal/govern"
	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/queue"
	"github.com/gradfeed/ingest/internal/track"
)

// Enqueuer is the slice of the queue the runner needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload json.RawMessage, priority int, scheduledFor time.Time) (string, error)
}

// PersistBatchPayload is the payload of a persist_batch queue item.
type PersistBatchPayload struct {
	Track string                `json:"track"`
	Query string                `json:"query"`
	Jobs  []model.NormalizedJob `json:"jobs"`
}

// Runner owns one ingestion cycle end to end.
type Runner struct {
	sources    []*govern.Source
	rotation   *track.Rotation
	classifier *classify.Classifier
	queue      Enqueuer
	store      model.JobStore
	location   string // search location passed to every source
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner wires a runner with all its dependencies.
func NewRunner(
	sources []*govern.Source,
	rotation *track.Rotation,
	classifier *classify.Classifier,
	q Enqueuer,
	store model.JobStore,
	location string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		sources:    sources,
		rotation:   rotation,
		classifier: classifier,
		queue:      q,
		store:      store,
		location:   location,
		logger:     logger,
		now:        time.Now,
	}
}

type sourceResult struct {
	source string
	jobs   []model.RawJob
	err    error
}

// Run executes one ingestion cycle for the given date. One goroutine per
// source; each source's own request stream stays serialized by its governor.
// A failing source increments the run error count and never blocks the
// others. With dryRun set, nothing is enqueued or persisted.
func (r *Runner) Run(ctx context.Context, date time.Time, dryRun bool) (model.RunMetadata, error) {
	tr := r.rotation.SelectTrack(date)
	meta := model.RunMetadata{
		Track:     tr.Label,
		Query:     tr.Query,
		StartTime: r.now().UTC(),
	}

	r.logger.Info("ingestion run starting",
		"track", tr.Label,
		"query", tr.Query,
		"sources", len(r.sources),
		"dry_run", dryRun,
	)

	requestsBefore := r.requestsTotal()

	results := make(chan sourceResult, len(r.sources))
	var wg sync.WaitGroup
	for _, src := range r.sources {
		wg.Add(1)
		go func(src *govern.Source) {
			defer wg.Done()
			jobs, err := src.Fetch(ctx, tr.Query, r.location)
			results <- sourceResult{source: src.Name(), jobs: jobs, err: err}
		}(src)
	}
	wg.Wait()
	close(results)

	dedup := fingerprint.NewSet()
	var batch []model.NormalizedJob
	ingestedAt := r.now().UTC()

	for res := range results {
		if res.err != nil {
			meta.Errors++
			r.logger.Error("source fetch failed",
				"source", res.source,
				"jobs_before_failure", len(res.jobs),
				"error", res.err,
			)
		}
		meta.TotalFound += len(res.jobs)

		for _, raw := range res.jobs {
			if raw.Title == "" || raw.Company == "" {
				// Malformed input: reject, do not classify.
				continue
			}
			if !r.classifier.Classify(raw.Title, raw.Description) {
				continue
			}
			meta.Kept++

			fp := fingerprint.Compute(raw.Company, raw.Title, raw.Location)
			if dedup.IsDuplicate(fp) {
				continue
			}
			dedup.Record(fp)

			batch = append(batch, model.NormalizedJob{
				RawJob:      raw,
				EarlyCareer: true,
				Fingerprint: fp,
				Track:       tr.Label,
				IngestedAt:  ingestedAt,
			})
		}
	}

	meta.Unique = len(batch)
	meta.RequestsUsed = int(r.requestsTotal() - requestsBefore)

	if !dryRun && len(batch) > 0 {
		payload, err := json.Marshal(PersistBatchPayload{
			Track: tr.Label,
			Query: tr.Query,
			Jobs:  batch,
		})
		if err != nil {
			return meta, fmt.Errorf("marshal batch payload: %w", err)
		}
		id, err := r.queue.Enqueue(ctx, queue.TypePersistBatch, payload, 5, time.Time{})
		if err != nil {
			return meta, fmt.Errorf("enqueue batch: %w", err)
		}
		r.logger.Info("batch enqueued", "queue_item", id, "jobs", len(batch))
	}

	if !dryRun {
		if err := r.store.SaveRunMetadata(ctx, meta); err != nil {
			r.logger.Error("saving run metadata failed", "error", err)
		}
	}

	r.logger.Info("ingestion run complete",
		"track", meta.Track,
		"found", meta.TotalFound,
		"kept", meta.Kept,
		"unique", meta.Unique,
		"requests_used", meta.RequestsUsed,
		"errors", meta.Errors,
	)
	return meta, nil
}

func (r *Runner) requestsTotal() int64 {
	var total int64
	for _, src := range r.sources {
		total += src.Governor().RequestsTotal()
	}
	return total
}

// SweepSeenSets runs the periodic maintenance pass over every source's
// short-lived seen set.
func (r *Runner) SweepSeenSets() {
	for _, src := range r.sources {
		src.SweepSeen()
	}
}
