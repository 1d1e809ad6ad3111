package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gradfeed/ingest/internal/model"
)

const defaultArbeitnowBaseURL = "https://www.arbeitnow.com/api/job-board-api"

// ArbeitnowAdapter fetches postings from the Arbeitnow job-board API,
// a free feed of mostly European (and frequently German-language) postings.
// The API has no server-side query, so the adapter filters the page locally
// against the query terms; the location parameter is matched the same way.
type ArbeitnowAdapter struct {
	baseURL string
	client  *http.Client
}

// NewArbeitnowAdapter creates an Arbeitnow adapter.
func NewArbeitnowAdapter(client *http.Client) *ArbeitnowAdapter {
	return &ArbeitnowAdapter{
		baseURL: defaultArbeitnowBaseURL,
		client:  client,
	}
}

// Name implements model.SourceAdapter.
func (a *ArbeitnowAdapter) Name() string { return "arbeitnow" }

type arbeitnowResponse struct {
	Data []arbeitnowJob `json:"data"`
}

type arbeitnowJob struct {
	Slug        string `json:"slug"`
	CompanyName string `json:"company_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Location    string `json:"location"`
	CreatedAt   int64  `json:"created_at"` // unix seconds
}

// FetchPage retrieves one feed page and keeps postings matching any query
// term (and the location, when given).
func (a *ArbeitnowAdapter) FetchPage(ctx context.Context, query, location string, page int) ([]model.RawJob, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arbeitnow page %d: %w", page, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arbeitnow page %d: %w", page, err)
	}

	var apiResp arbeitnowResponse
	if err := decodeResponse(resp, &apiResp); err != nil {
		return nil, fmt.Errorf("arbeitnow page %d: %w", page, err)
	}

	terms := queryTerms(query)
	var jobs []model.RawJob
	for _, r := range apiResp.Data {
		if !matchesAny(r.Title, terms) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(r.Location), strings.ToLower(location)) {
			continue
		}
		job := model.RawJob{
			Title:       r.Title,
			Company:     r.CompanyName,
			Location:    r.Location,
			Description: extractText(r.Description),
			URL:         r.URL,
			Source:      a.Name(),
		}
		if r.CreatedAt > 0 {
			t := time.Unix(r.CreatedAt, 0).UTC()
			job.PostedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// queryTerms splits a query template into lowercase terms, treating " OR "
// as the separator the track templates use.
func queryTerms(query string) []string {
	parts := strings.Split(strings.ToLower(query), " or ")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}

// matchesAny reports whether any term's words all appear in the text.
func matchesAny(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		allWords := true
		for _, word := range strings.Fields(term) {
			if !strings.Contains(lower, word) {
				allWords = false
				break
			}
		}
		if allWords {
			return true
		}
	}
	return false
}
