// Package ratelimit implements the sliding-window limiter protecting the
// externally reachable endpoints. The window state lives in a shared store
// (redis in production) so multiple instances enforce one combined limit.
// Distinct from the per-source Governor, which paces outbound fetches.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// WindowStore holds per-identifier sets of request timestamps. Operations
// must be atomic per call; the check itself is purge-count-add.
type WindowStore interface {
	// PruneCount removes entries older than cutoff and returns the surviving
	// count and the oldest surviving timestamp (zero when empty).
	PruneCount(ctx context.Context, key string, cutoff time.Time) (int, time.Time, error)
	// Add records a request timestamp and refreshes the key's ttl.
	Add(ctx context.Context, key string, at time.Time, ttl time.Duration) error
}

// Limiter is a sliding-window rate limiter with a fail-open policy: when the
// store is unreachable the request is allowed and the degraded mode is
// logged, never surfaced as a user-facing error.
type Limiter struct {
	store  WindowStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a limiter over the given store.
func New(store WindowStore, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, logger: logger, now: time.Now}
}

// Check records a request for identifier if it is under limit within the
// window, and reports whether it was allowed. At or over the limit the
// request is rejected and ResetTime says when the oldest entry leaves the
// window.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int, window time.Duration) Result {
	now := l.now()
	cutoff := now.Add(-window)

	count, oldest, err := l.store.PruneCount(ctx, identifier, cutoff)
	if err != nil {
		l.logger.Warn("rate limit store unreachable, failing open",
			"identifier", identifier,
			"error", err,
		)
		return Result{Allowed: true, Remaining: limit, ResetTime: now.Add(window)}
	}

	if count >= limit {
		reset := now.Add(window)
		if !oldest.IsZero() {
			reset = oldest.Add(window)
		}
		return Result{Allowed: false, Remaining: 0, ResetTime: reset}
	}

	if err := l.store.Add(ctx, identifier, now, window+time.Minute); err != nil {
		l.logger.Warn("rate limit store unreachable, failing open",
			"identifier", identifier,
			"error", err,
		)
		return Result{Allowed: true, Remaining: limit - count - 1, ResetTime: now.Add(window)}
	}

	return Result{Allowed: true, Remaining: limit - count - 1, ResetTime: now.Add(window)}
}
