package model

import (
	"fmt"
	"time"
)

// HTTPError carries the status code and Retry-After hint of a failed source
// request, so the fetch path can tell transient upstream trouble (429, 5xx)
// from permanent rejection.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
