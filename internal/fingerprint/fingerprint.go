// Package fingerprint derives stable content identities for job postings.
// Two postings that differ only in casing or incidental whitespace collapse
// to the same fingerprint; a different location (or title, or company) yields
// a different one. The computation takes no time-dependent input, so replays
// and backfills are stable.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Compute returns the hex digest identity for a (company, title, location)
// triple. Fields are lowercased, trimmed, and inner whitespace is collapsed
// before hashing, then joined with a fixed delimiter.
func Compute(company, title, location string) string {
	key := normalize(company) + "|" + normalize(title) + "|" + normalize(location)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Set tracks fingerprints already seen within a single ingestion batch.
// Not safe for concurrent use; the pipeline dedups after fan-in.
type Set struct {
	seen map[string]struct{}
}

// NewSet returns an empty batch-local dedup set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// IsDuplicate reports whether fp has already been recorded in this batch.
func (s *Set) IsDuplicate(fp string) bool {
	_, ok := s.seen[fp]
	return ok
}

// Record marks fp as seen.
func (s *Set) Record(fp string) {
	s.seen[fp] = struct{}{}
}

// Len returns the number of distinct fingerprints recorded.
func (s *Set) Len() int {
	return len(s.seen)
}
