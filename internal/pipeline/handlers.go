package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/queue"
)

// TriggerMatchPayload is the payload of a trigger_match queue item.
type TriggerMatchPayload struct {
	Job     model.NormalizedJob `json:"job"`
	Profile string              `json:"profile"`
}

// SendEmailPayload is the payload of a send_email queue item.
type SendEmailPayload struct {
	Jobs      []model.NormalizedJob `json:"jobs"`
	Recipient string                `json:"recipient"`
}

// Handlers bundles the queue handlers for the downstream stages.
type Handlers struct {
	store    model.JobStore
	scorer   model.MatchScorer
	notifier model.Notifier
	logger   *slog.Logger
}

// NewHandlers wires the downstream consumers.
func NewHandlers(store model.JobStore, scorer model.MatchScorer, notifier model.Notifier, logger *slog.Logger) *Handlers {
	return &Handlers{store: store, scorer: scorer, notifier: notifier, logger: logger}
}

// Register installs all handlers on the worker.
func (h *Handlers) Register(w *queue.Worker) {
	w.Register(queue.TypePersistBatch, h.PersistBatch)
	w.Register(queue.TypeTriggerMatch, h.TriggerMatch)
	w.Register(queue.TypeSendEmail, h.SendEmail)
}

// PersistBatch upserts a batch into the job store. The fingerprint key makes
// a second sighting of the same posting an update, not a new record.
func (h *Handlers) PersistBatch(ctx context.Context, item *queue.Item) (json.RawMessage, error) {
	var payload PersistBatchPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode persist_batch payload: %w", err)
	}

	inserted, updated, err := h.store.UpsertJobs(ctx, payload.Jobs)
	if err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}

	h.logger.Info("batch persisted",
		"track", payload.Track,
		"inserted", inserted,
		"updated", updated,
	)
	return json.Marshal(map[string]int{"inserted": inserted, "updated": updated})
}

// TriggerMatch scores one job against a profile.
func (h *Handlers) TriggerMatch(ctx context.Context, item *queue.Item) (json.RawMessage, error) {
	var payload TriggerMatchPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode trigger_match payload: %w", err)
	}

	result, err := h.scorer.Score(ctx, payload.Job, payload.Profile)
	if err != nil {
		return nil, fmt.Errorf("match score: %w", err)
	}
	return json.Marshal(result)
}

// SendEmail delivers a batch to a recipient via the notification contract.
func (h *Handlers) SendEmail(_ context.Context, item *queue.Item) (json.RawMessage, error) {
	var payload SendEmailPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode send_email payload: %w", err)
	}

	if err := h.notifier.Send(payload.Jobs, payload.Recipient); err != nil {
		return nil, fmt.Errorf("send batch: %w", err)
	}
	return json.Marshal(map[string]int{"sent": len(payload.Jobs)})
}
