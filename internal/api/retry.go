package api

import (
	"time"

	"github.com/bezalel6/volumectl/internal/apierr"
)

// RetryPolicy decides whether a failed attempt should be retried and after
// what delay. attempt is zero-based: it counts the attempts already made.
type RetryPolicy func(attempt int, err *apierr.Error) (retry bool, delay time.Duration)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
)

// DefaultRetryPolicy retries only transport-level failures, with exponential
// backoff capped at 30s. Rate limits are never retried: the computed wait is
// surfaced to the caller instead. Auth and pairing failures must reach the
// caller immediately.
func DefaultRetryPolicy(attempt int, err *apierr.Error) (bool, time.Duration) {
	if err.Kind != apierr.KindNetworkUnreachable {
		return false, 0
	}
	if attempt >= defaultMaxAttempts {
		return false, 0
	}
	delay := defaultBaseDelay << attempt
	if delay > defaultMaxDelay {
		delay = defaultMaxDelay
	}
	return true, delay
}

// NoRetry disables retries entirely.
func NoRetry(int, *apierr.Error) (bool, time.Duration) {
	return false, 0
}
