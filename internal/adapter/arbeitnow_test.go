package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const arbeitnowFixture = `{
	"data": [
		{
			"slug": "junior-software-engineer-berlin",
			"company_name": "Acme GmbH",
			"title": "Junior Software Engineer",
			"description": "<p>Werkstudent friendly, entry level.</p>",
			"url": "https://arbeitnow.example/jobs/junior-software-engineer-berlin",
			"location": "Berlin",
			"created_at": 1767173400
		},
		{
			"slug": "head-of-sales-munich",
			"company_name": "Globex AG",
			"title": "Head of Sales",
			"description": "Senior leadership role.",
			"url": "https://arbeitnow.example/jobs/head-of-sales-munich",
			"location": "Munich",
			"created_at": 1767173400
		},
		{
			"slug": "junior-engineer-hamburg",
			"company_name": "Initech",
			"title": "Junior Engineer",
			"description": "Berufseinsteiger willkommen.",
			"url": "https://arbeitnow.example/jobs/junior-engineer-hamburg",
			"location": "Hamburg",
			"created_at": 1767173400
		}
	]
}`

func newArbeitnowTestServer(t *testing.T, handler http.HandlerFunc) *ArbeitnowAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewArbeitnowAdapter(srv.Client())
	a.baseURL = srv.URL
	return a
}

func TestArbeitnowFetchPage_FiltersByQueryTerms(t *testing.T) {
	var gotPage string
	a := newArbeitnowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(arbeitnowFixture))
	})

	jobs, err := a.FetchPage(context.Background(), "junior software OR junior engineer", "", 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotPage != "2" {
		t.Errorf("unexpected page param %q", gotPage)
	}

	// "Head of Sales" matches no query term and is filtered locally.
	if len(jobs) != 2 {
		t.Fatalf("expected 2 matching jobs, got %d", len(jobs))
	}
	if jobs[0].Title != "Junior Software Engineer" || jobs[1].Title != "Junior Engineer" {
		t.Errorf("unexpected jobs: %v, %v", jobs[0].Title, jobs[1].Title)
	}
	if jobs[0].Description != "Werkstudent friendly, entry level." {
		t.Errorf("html not stripped: %q", jobs[0].Description)
	}
	if jobs[0].PostedAt == nil {
		t.Error("expected PostedAt from created_at")
	}
}

func TestArbeitnowFetchPage_LocationFilter(t *testing.T) {
	a := newArbeitnowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(arbeitnowFixture))
	})

	jobs, err := a.FetchPage(context.Background(), "junior", "berlin", 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 Berlin job, got %d", len(jobs))
	}
	if jobs[0].Location != "Berlin" {
		t.Errorf("unexpected location %q", jobs[0].Location)
	}
}

func TestQueryTerms(t *testing.T) {
	terms := queryTerms("graduate developer OR junior software")
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %v", terms)
	}
	if terms[0] != "graduate developer" || terms[1] != "junior software" {
		t.Errorf("unexpected terms %v", terms)
	}
}

func TestMatchesAny(t *testing.T) {
	terms := []string{"graduate developer", "junior software"}

	if !matchesAny("Junior Software Engineer", terms) {
		t.Error("expected match on all words of a term")
	}
	if matchesAny("Senior Software Engineer", terms) {
		t.Error("partial term match should not pass")
	}
	if !matchesAny("anything", nil) {
		t.Error("empty term list matches everything")
	}
}

func TestExtractText(t *testing.T) {
	in := "&lt;p&gt;Hello &amp; welcome&lt;/p&gt;  <b>to the  team</b>"
	want := "Hello & welcome to the team"
	if got := extractText(in); got != want {
		t.Errorf("extractText = %q, want %q", got, want)
	}
}
