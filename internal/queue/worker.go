package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// HandlerFunc processes one claimed item and returns an optional result.
type HandlerFunc func(ctx context.Context, item *Item) (json.RawMessage, error)

// Worker polls the queue and dispatches claimed items to registered
// handlers. Item failures (errors and panics alike) are recorded on the
// item and drive its retry/terminal transition; they never crash the loop.
type Worker struct {
	queue        *Queue
	handlers     map[string]HandlerFunc
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewWorker creates a worker polling at the given interval.
func NewWorker(q *Queue, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		queue:        q,
		handlers:     make(map[string]HandlerFunc),
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Register installs the handler for a task type. Must be called before Run.
func (w *Worker) Register(taskType string, handler HandlerFunc) {
	w.handlers[taskType] = handler
}

// Run polls until ctx is cancelled. Returns nil on graceful shutdown.
func (w *Worker) Run(ctx context.Context) error {
	if len(w.handlers) == 0 {
		return fmt.Errorf("worker has no registered handlers")
	}

	types := make([]string, 0, len(w.handlers))
	for t := range w.handlers {
		types = append(types, t)
	}

	w.logger.Info("queue worker started",
		"types", types,
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if ctx.Err() != nil {
			w.logger.Info("queue worker stopping")
			return nil
		}

		item, err := w.queue.ClaimNext(ctx, types...)
		if err != nil {
			w.logger.Error("claim failed", "error", err)
		}
		if item == nil {
			select {
			case <-ctx.Done():
				w.logger.Info("queue worker stopping")
				return nil
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.process(ctx, item)
	}
}

// process runs the handler for one item and records the outcome.
func (w *Worker) process(ctx context.Context, item *Item) {
	result, err := w.runHandler(ctx, item)
	if err != nil {
		status, failErr := w.queue.Fail(ctx, item.ID, err)
		if failErr != nil {
			w.logger.Error("recording item failure failed",
				"id", item.ID, "type", item.Type, "error", failErr)
			return
		}
		w.logger.Warn("queue item failed",
			"id", item.ID,
			"type", item.Type,
			"attempt", item.Attempts+1,
			"max_attempts", item.MaxAttempts,
			"next_status", string(status),
			"error", err,
		)
		return
	}

	if err := w.queue.Complete(ctx, item.ID, result); err != nil {
		w.logger.Error("marking item complete failed",
			"id", item.ID, "type", item.Type, "error", err)
		return
	}
	w.logger.Info("queue item completed", "id", item.ID, "type", item.Type)
}

// runHandler invokes the handler with panic isolation.
func (w *Worker) runHandler(ctx context.Context, item *Item) (result json.RawMessage, err error) {
	handler, ok := w.handlers[item.Type]
	if !ok {
		// Claim raced a type this worker no longer handles.
		return nil, fmt.Errorf("no handler for type %q", item.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler(ctx, item)
}
