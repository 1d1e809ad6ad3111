// Package track spreads a fixed daily request budget across topical query
// buckets. Selection is a pure function of the calendar date, so the same
// day always yields the same track and runs are replayable without state.
package track

import (
	"fmt"
	"time"
)

// Track is one topical query bucket.
type Track struct {
	Label string // e.g. "A"
	Query string // hand-curated query template for the source search APIs
}

// Rotation selects a track per calendar day, round-robin by day of year.
type Rotation struct {
	tracks []Track
}

// NewRotation builds a rotation over the given tracks.
func NewRotation(tracks []Track) (*Rotation, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("rotation needs at least one track")
	}
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if t.Label == "" || t.Query == "" {
			return nil, fmt.Errorf("track label and query must be non-empty")
		}
		if _, dup := seen[t.Label]; dup {
			return nil, fmt.Errorf("duplicate track label %q", t.Label)
		}
		seen[t.Label] = struct{}{}
	}
	return &Rotation{tracks: tracks}, nil
}

// DefaultTracks is the reference five-bucket rotation.
var DefaultTracks = []Track{
	{Label: "A", Query: "graduate developer OR junior software engineer"},
	{Label: "B", Query: "graduate consultant OR junior business analyst"},
	{Label: "C", Query: "graduate data analyst OR junior data scientist"},
	{Label: "D", Query: "junior designer OR graduate ux"},
	{Label: "E", Query: "graduate operations OR junior project manager"},
}

// SelectTrack returns the track for the given date: day-of-year modulo the
// number of tracks.
func (r *Rotation) SelectTrack(date time.Time) Track {
	idx := date.YearDay() % len(r.tracks)
	return r.tracks[idx]
}

// QueryFor returns the query template for the track with the given label.
func (r *Rotation) QueryFor(label string) (string, error) {
	for _, t := range r.tracks {
		if t.Label == label {
			return t.Query, nil
		}
	}
	return "", fmt.Errorf("unknown track %q", label)
}

// Len returns the number of tracks in the rotation.
func (r *Rotation) Len() int {
	return len(r.tracks)
}
