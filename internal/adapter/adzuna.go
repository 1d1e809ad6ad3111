// Package adapter implements source adapters: one per external job-data
// provider, each converting the provider's response shape into RawJob.
// Adapters do no pacing or retrying themselves; they are always called
// through a govern.Source.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gradfeed/ingest/internal/model"
)

const (
	defaultAdzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize       = 50
)

// AdzunaAdapter fetches postings from the Adzuna search API, one numbered
// page at a time.
type AdzunaAdapter struct {
	appID   string
	appKey  string
	country string // "gb", "fr", "de", ...
	baseURL string
	client  *http.Client
}

// NewAdzunaAdapter creates an adapter for one Adzuna country endpoint.
func NewAdzunaAdapter(appID, appKey, country string, client *http.Client) *AdzunaAdapter {
	return &AdzunaAdapter{
		appID:   appID,
		appKey:  appKey,
		country: country,
		baseURL: defaultAdzunaBaseURL,
		client:  client,
	}
}

// Name implements model.SourceAdapter.
func (a *AdzunaAdapter) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Company     adzunaCompany  `json:"company"`
	Location    adzunaLocation `json:"location"`
	RedirectURL string         `json:"redirect_url"`
	Created     string         `json:"created"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// FetchPage retrieves one result page for the query and location.
func (a *AdzunaAdapter) FetchPage(ctx context.Context, query, location string, page int) ([]model.RawJob, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.baseURL, a.country, page)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", query)
	params.Set("where", location)
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("adzuna page %d: %w", page, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna page %d: %w", page, err)
	}

	var apiResp adzunaResponse
	if err := decodeResponse(resp, &apiResp); err != nil {
		return nil, fmt.Errorf("adzuna page %d: %w", page, err)
	}

	jobs := make([]model.RawJob, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		job := model.RawJob{
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: extractText(r.Description),
			URL:         r.RedirectURL,
			Source:      a.Name(),
		}
		if r.Created != "" {
			if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
				job.PostedAt = &t
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
