package policy

import (
	"math/rand"
	"time"
)

// Retry and stall defaults
const (
	DefaultMaxRetries     = 3
	DefaultStallThreshold = 90 * time.Second

	baseDelay    = 2 * time.Second
	maxDelay     = 2 * time.Minute
	jitterFactor = 0.25
)

// Backoff returns the delay before retry number attempt (1-based).
// The delay grows exponentially from 2s, is capped at 2m, and carries
// +/-25% jitter so simultaneous retries do not align.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}

	jitter := 1 + jitterFactor*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * jitter)
}

// Stalled reports whether a download that last made progress at
// lastProgress counts as stalled at time now
func Stalled(lastProgress, now time.Time, threshold time.Duration) bool {
	if lastProgress.IsZero() {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultStallThreshold
	}
	return now.Sub(lastProgress) >= threshold
}
