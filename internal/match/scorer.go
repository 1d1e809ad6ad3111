// Package match consumes the external match-scoring contract. The remote
// model is an opaque, possibly-failing call; a rule-based scorer stands in
// when it fails.
package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gradfeed/ingest/internal/model"
)

var _ model.MatchScorer = (*HTTPScorer)(nil)

// HTTPScorer calls the remote scoring service with its own timeout.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPScorer creates a scorer against the given endpoint.
func NewHTTPScorer(endpoint string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPScorer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Job     model.NormalizedJob `json:"job"`
	Profile string              `json:"profile"`
}

// Score implements model.MatchScorer.
func (s *HTTPScorer) Score(ctx context.Context, job model.NormalizedJob, profile string) (model.MatchResult, error) {
	body, err := json.Marshal(scoreRequest{Job: job, Profile: profile})
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.MatchResult{}, &model.HTTPError{StatusCode: resp.StatusCode}
	}

	var result model.MatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.MatchResult{}, fmt.Errorf("decode score response: %w", err)
	}
	return result, nil
}

var _ model.MatchScorer = (*RuleScorer)(nil)

// RuleScorer is the deterministic fallback: keyword overlap between the
// profile and the posting text, scaled to 0-100.
type RuleScorer struct{}

// Score implements model.MatchScorer. It never fails.
func (RuleScorer) Score(_ context.Context, job model.NormalizedJob, profile string) (model.MatchResult, error) {
	words := strings.Fields(strings.ToLower(profile))
	if len(words) == 0 {
		return model.MatchResult{MatchScore: 0, Reason: "empty profile"}, nil
	}

	text := strings.ToLower(job.Title + " " + job.Description)
	var hits int
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if strings.Contains(text, w) {
			hits++
		}
	}

	score := float64(hits) / float64(len(words)) * 100
	return model.MatchResult{
		MatchScore: score,
		Reason:     fmt.Sprintf("keyword overlap: %d/%d profile terms", hits, len(words)),
	}, nil
}

var _ model.MatchScorer = (*FallbackScorer)(nil)

// FallbackScorer tries the primary scorer and degrades to the fallback on
// any failure, logging the degradation.
type FallbackScorer struct {
	Primary  model.MatchScorer
	Fallback model.MatchScorer
	Logger   *slog.Logger
}

// Score implements model.MatchScorer.
func (f *FallbackScorer) Score(ctx context.Context, job model.NormalizedJob, profile string) (model.MatchResult, error) {
	result, err := f.Primary.Score(ctx, job, profile)
	if err == nil {
		return result, nil
	}
	f.Logger.Warn("match scoring degraded to rule-based fallback",
		"fingerprint", job.Fingerprint,
		"error", err,
	)
	return f.Fallback.Score(ctx, job, profile)
}
