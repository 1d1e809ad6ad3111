package store

import (
	"context"

	"github.com/gradfeed/ingest/internal/model"
)

// NopStore discards everything. Used by dry runs.
type NopStore struct{}

func NewNopStore() NopStore { return NopStore{} }

func (NopStore) UpsertJobs(_ context.Context, jobs []model.NormalizedJob) (int, int, error) {
	return len(jobs), 0, nil
}

func (NopStore) SaveRunMetadata(context.Context, model.RunMetadata) error { return nil }

func (NopStore) Close() error { return nil }
