// Package govern enforces per-source throughput budgets: a minimum gap
// between consecutive requests and a rolling hourly request cap. One
// Governor instance owns the budget for exactly one source; instances
// share nothing, so sources can be tested and run in parallel without
// cross-contamination.
package govern

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Budget holds the throughput limits for one source.
type Budget struct {
	MinInterval time.Duration // minimum gap between consecutive requests
	HourlyCap   int           // max requests per rolling hourly window
}

// Governor serializes and paces all requests for a single source.
// Throttle is the only place a fetch path blocks.
type Governor struct {
	source string
	budget Budget

	mu          sync.Mutex
	lastRequest time.Time
	dispatches  []time.Time // dispatch times within the trailing hour, oldest first

	requestsTotal atomic.Int64 // lifetime counter, observability only

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Governor for the named source.
func New(source string, budget Budget) *Governor {
	return &Governor{
		source: source,
		budget: budget,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Throttle blocks until the next request is allowed, then records it.
// The hourly cap is a rolling window over the last hour of dispatch times,
// so a burst at the end of one hour cannot combine with a burst at the
// start of the next: a call over the cap waits until the oldest dispatch
// ages out. A call inside the minimum interval is delayed, not dropped.
// Returns an error only when ctx is cancelled while waiting.
func (g *Governor) Throttle(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := g.now()
		g.prune(now)

		if g.budget.HourlyCap > 0 && len(g.dispatches) >= g.budget.HourlyCap {
			// Budget exhausted: wait for the oldest dispatch to leave the
			// trailing hour.
			wait := g.dispatches[0].Add(time.Hour).Sub(now)
			g.mu.Unlock()
			if err := g.sleep(ctx, wait); err != nil {
				return fmt.Errorf("throttle %s: hourly budget wait: %w", g.source, err)
			}
			continue
		}

		if !g.lastRequest.IsZero() {
			if elapsed := now.Sub(g.lastRequest); elapsed < g.budget.MinInterval {
				remaining := g.budget.MinInterval - elapsed
				g.mu.Unlock()
				if err := g.sleep(ctx, remaining); err != nil {
					return fmt.Errorf("throttle %s: interval wait: %w", g.source, err)
				}
				continue
			}
		}

		g.lastRequest = now
		g.dispatches = append(g.dispatches, now)
		g.mu.Unlock()
		g.requestsTotal.Add(1)
		return nil
	}
}

// prune drops dispatch times older than one hour. Callers hold g.mu.
func (g *Governor) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(g.dispatches) && !g.dispatches[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.dispatches = append(g.dispatches[:0], g.dispatches[i:]...)
	}
}

// RequestsTotal returns the lifetime count of dispatched requests.
func (g *Governor) RequestsTotal() int64 {
	return g.requestsTotal.Load()
}

// WindowCount returns the number of requests in the trailing hour.
func (g *Governor) WindowCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return len(g.dispatches)
}

// Source returns the source name this governor paces.
func (g *Governor) Source() string {
	return g.source
}
