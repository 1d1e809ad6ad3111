package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_ProcessesItem(t *testing.T) {
	q := newTestQueue(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := q.Enqueue(ctx, TypePersistBatch, json.RawMessage(`{"jobs":3}`), 5, time.Time{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var handled atomic.Int32
	w := NewWorker(q, 10*time.Millisecond, discardLogger())
	w.Register(TypePersistBatch, func(_ context.Context, item *Item) (json.RawMessage, error) {
		handled.Add(1)
		return json.RawMessage(`{"inserted":3}`), nil
	})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		item, err := q.Get(context.Background(), id)
		return err == nil && item.Status == StatusCompleted
	})
	cancel()
	<-done

	if handled.Load() != 1 {
		t.Errorf("expected handler to run once, ran %d times", handled.Load())
	}
	item, _ := q.Get(context.Background(), id)
	if string(item.Result) != `{"inserted":3}` {
		t.Errorf("unexpected result %s", item.Result)
	}
}

func TestWorker_FailureDrivesRetryTransition(t *testing.T) {
	q := newTestQueue(t, Options{BackoffBase: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := q.Enqueue(ctx, TypeSendEmail, nil, 5, time.Time{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w := NewWorker(q, 10*time.Millisecond, discardLogger())
	w.Register(TypeSendEmail, func(_ context.Context, _ *Item) (json.RawMessage, error) {
		return nil, errors.New("smtp down")
	})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		item, err := q.Get(context.Background(), id)
		return err == nil && item.Status == StatusRetrying
	})
	cancel()
	<-done

	item, _ := q.Get(context.Background(), id)
	if item.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", item.Attempts)
	}
	if item.Error != "smtp down" {
		t.Errorf("expected recorded error, got %q", item.Error)
	}
}

func TestWorker_PanicIsIsolated(t *testing.T) {
	q := newTestQueue(t, Options{BackoffBase: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	panicID, _ := q.Enqueue(ctx, TypeSendEmail, nil, 9, time.Time{})
	okID, _ := q.Enqueue(ctx, TypeSendEmail, nil, 1, time.Time{})

	w := NewWorker(q, 10*time.Millisecond, discardLogger())
	w.Register(TypeSendEmail, func(_ context.Context, item *Item) (json.RawMessage, error) {
		if item.ID == panicID {
			panic("handler exploded")
		}
		return nil, nil
	})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// The panic on the high-priority item must not stop the worker from
	// completing the other one.
	waitFor(t, func() bool {
		item, err := q.Get(context.Background(), okID)
		return err == nil && item.Status == StatusCompleted
	})
	cancel()
	<-done

	item, _ := q.Get(context.Background(), panicID)
	if item.Status != StatusRetrying {
		t.Errorf("panicked item should be retrying, got %s", item.Status)
	}
	if item.Error == "" {
		t.Error("expected panic recorded in item error")
	}
}

func TestWorker_RequiresHandlers(t *testing.T) {
	q := newTestQueue(t, Options{})
	w := NewWorker(q, time.Millisecond, discardLogger())
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error running worker without handlers")
	}
}

// waitFor polls cond until true or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
