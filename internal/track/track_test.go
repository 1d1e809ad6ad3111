package track

import (
	"testing"
	"time"
)

func mustRotation(t *testing.T, tracks []Track) *Rotation {
	t.Helper()
	r, err := NewRotation(tracks)
	if err != nil {
		t.Fatalf("NewRotation: %v", err)
	}
	return r
}

func TestSelectTrack_DayOfYearModulo(t *testing.T) {
	r := mustRotation(t, DefaultTracks)

	// Jan 10 is day-of-year 10; 10 % 5 == 0 → track A.
	jan10 := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	if got := r.SelectTrack(jan10); got.Label != "A" {
		t.Errorf("day 10: expected track A, got %s", got.Label)
	}

	// Jan 12 is day-of-year 12; 12 % 5 == 2 → track C.
	jan12 := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	if got := r.SelectTrack(jan12); got.Label != "C" {
		t.Errorf("day 12: expected track C, got %s", got.Label)
	}
}

func TestSelectTrack_DeterministicAcrossCalls(t *testing.T) {
	r := mustRotation(t, DefaultTracks)
	date := time.Date(2026, time.June, 15, 9, 30, 0, 0, time.UTC)

	first := r.SelectTrack(date)
	for i := 0; i < 5; i++ {
		if got := r.SelectTrack(date); got.Label != first.Label {
			t.Fatalf("selection changed between calls: %s vs %s", got.Label, first.Label)
		}
	}

	// Time of day on the same date must not matter.
	evening := time.Date(2026, time.June, 15, 23, 59, 0, 0, time.UTC)
	if got := r.SelectTrack(evening); got.Label != first.Label {
		t.Errorf("same calendar day with different time selected %s, want %s", got.Label, first.Label)
	}
}

func TestSelectTrack_CoversAllTracksOverConsecutiveDays(t *testing.T) {
	r := mustRotation(t, DefaultTracks)
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < len(DefaultTracks); i++ {
		tr := r.SelectTrack(start.AddDate(0, 0, i))
		seen[tr.Label] = true
	}
	if len(seen) != len(DefaultTracks) {
		t.Errorf("expected %d distinct tracks over %d consecutive days, got %d",
			len(DefaultTracks), len(DefaultTracks), len(seen))
	}
}

func TestQueryFor(t *testing.T) {
	r := mustRotation(t, DefaultTracks)

	q, err := r.QueryFor("A")
	if err != nil {
		t.Fatalf("QueryFor(A): %v", err)
	}
	if q != DefaultTracks[0].Query {
		t.Errorf("unexpected query for A: %q", q)
	}

	if _, err := r.QueryFor("Z"); err == nil {
		t.Error("expected error for unknown track label")
	}
}

func TestNewRotation_Validation(t *testing.T) {
	if _, err := NewRotation(nil); err == nil {
		t.Error("expected error for empty track list")
	}
	if _, err := NewRotation([]Track{{Label: "A", Query: ""}}); err == nil {
		t.Error("expected error for empty query")
	}
	dup := []Track{
		{Label: "A", Query: "x"},
		{Label: "A", Query: "y"},
	}
	if _, err := NewRotation(dup); err == nil {
		t.Error("expected error for duplicate labels")
	}
}
