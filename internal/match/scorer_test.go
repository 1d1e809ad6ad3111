package match

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gradfeed/ingest/internal/model"
)

func job() model.NormalizedJob {
	return model.NormalizedJob{
		RawJob: model.RawJob{
			Title:       "Junior Go Developer",
			Description: "Backend services in Go and Postgres.",
		},
		Fingerprint: "fp-1",
	}
}

func TestHTTPScorer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matchScore": 87.5, "reason": "strong backend overlap"}`))
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, 0)
	got, err := s.Score(context.Background(), job(), "go backend developer")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got.MatchScore != 87.5 {
		t.Errorf("unexpected score %v", got.MatchScore)
	}
	if got.Reason != "strong backend overlap" {
		t.Errorf("unexpected reason %q", got.Reason)
	}
}

func TestHTTPScorer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, 0)
	if _, err := s.Score(context.Background(), job(), "profile"); err == nil {
		t.Error("expected error on 503")
	}
}

func TestRuleScorer_KeywordOverlap(t *testing.T) {
	var s RuleScorer

	got, err := s.Score(context.Background(), job(), "postgres backend kubernetes")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// 2 of 3 terms hit (postgres, backend).
	if got.MatchScore < 60 || got.MatchScore > 70 {
		t.Errorf("expected ~66 score, got %v", got.MatchScore)
	}

	got, _ = s.Score(context.Background(), job(), "")
	if got.MatchScore != 0 {
		t.Errorf("empty profile should score 0, got %v", got.MatchScore)
	}
}

func TestFallbackScorer_DegradesOnPrimaryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := &FallbackScorer{
		Primary:  NewHTTPScorer(srv.URL, 0),
		Fallback: RuleScorer{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	got, err := f.Score(context.Background(), job(), "go developer")
	if err != nil {
		t.Fatalf("fallback score: %v", err)
	}
	if got.MatchScore <= 0 {
		t.Errorf("expected positive fallback score, got %v", got.MatchScore)
	}
}
