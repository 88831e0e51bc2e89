package httpx

import (
	"errors"
	"fmt"
)

// NetworkError is the per-source failure surfaced by Client. Timeout and
// HTTP-status failures are distinguishable so callers can treat a slow
// provider differently from a refusing one.
type NetworkError struct {
	Provider string
	URL      string
	Status   int // 0 when the request never completed
	Timeout  bool
	Err      error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out: %v", e.Provider, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: http %d from %s", e.Provider, e.Status, e.URL)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: timeouts,
// transport errors, 429s and 5xx responses. Other 4xx statuses are
// deterministic rejections and propagate immediately.
func (e *NetworkError) Retryable() bool {
	if e.Timeout || e.Status == 0 {
		return true
	}
	if e.Status == 429 {
		return true
	}
	return e.Status >= 500
}

// IsTimeout reports whether err wraps a timeout NetworkError.
func IsTimeout(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Timeout
}
