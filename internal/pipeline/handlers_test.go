package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/queue"
)

type fakeScorer struct {
	result model.MatchResult
	err    error
}

func (s *fakeScorer) Score(_ context.Context, _ model.NormalizedJob, _ string) (model.MatchResult, error) {
	return s.result, s.err
}

type fakeNotifier struct {
	recipient string
	count     int
	err       error
}

func (n *fakeNotifier) Send(jobs []model.NormalizedJob, recipient string) error {
	n.recipient = recipient
	n.count = len(jobs)
	return n.err
}

func item(t *testing.T, payload any) *queue.Item {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &queue.Item{ID: "item-1", Payload: raw}
}

func TestPersistBatch(t *testing.T) {
	store := &captureStore{}
	h := NewHandlers(store, &fakeScorer{}, &fakeNotifier{}, testLogger())

	payload := PersistBatchPayload{Track: "A", Jobs: []model.NormalizedJob{
		{RawJob: model.RawJob{Title: "Junior Developer", Company: "Acme"}},
		{RawJob: model.RawJob{Title: "Graduate Analyst", Company: "Globex"}},
	}}
	result, err := h.PersistBatch(context.Background(), item(t, payload))
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.jobs) != 2 {
		t.Errorf("upserted %d jobs, want 2", len(store.jobs))
	}

	var counts map[string]int
	if err := json.Unmarshal(result, &counts); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if counts["inserted"] != 2 {
		t.Errorf("inserted = %d, want 2", counts["inserted"])
	}
}

func TestPersistBatch_BadPayload(t *testing.T) {
	h := NewHandlers(&captureStore{}, &fakeScorer{}, &fakeNotifier{}, testLogger())
	_, err := h.PersistBatch(context.Background(), &queue.Item{Payload: json.RawMessage("not json")})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestTriggerMatch(t *testing.T) {
	scorer := &fakeScorer{result: model.MatchResult{MatchScore: 85, Reason: "strong overlap"}}
	h := NewHandlers(&captureStore{}, scorer, &fakeNotifier{}, testLogger())

	payload := TriggerMatchPayload{
		Job:     model.NormalizedJob{RawJob: model.RawJob{Title: "Junior Developer"}},
		Profile: "backend graduate",
	}
	result, err := h.TriggerMatch(context.Background(), item(t, payload))
	if err != nil {
		t.Fatalf("match: %v", err)
	}

	var got model.MatchResult
	if err := json.Unmarshal(result, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.MatchScore != 85 || got.Reason != "strong overlap" {
		t.Errorf("result = %+v", got)
	}
}

func TestTriggerMatch_ScorerError(t *testing.T) {
	h := NewHandlers(&captureStore{}, &fakeScorer{err: errors.New("service down")}, &fakeNotifier{}, testLogger())
	_, err := h.TriggerMatch(context.Background(), item(t, TriggerMatchPayload{}))
	if err == nil {
		t.Fatal("expected scorer error to surface")
	}
}

func TestSendEmail(t *testing.T) {
	n := &fakeNotifier{}
	h := NewHandlers(&captureStore{}, &fakeScorer{}, n, testLogger())

	payload := SendEmailPayload{
		Jobs:      []model.NormalizedJob{{RawJob: model.RawJob{Title: "Junior Developer"}}},
		Recipient: "grads@example.com",
	}
	if _, err := h.SendEmail(context.Background(), item(t, payload)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n.recipient != "grads@example.com" || n.count != 1 {
		t.Errorf("notifier called with recipient=%q count=%d", n.recipient, n.count)
	}
}
