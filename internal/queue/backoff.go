package queue

import (
	"math"
	"math/rand"
	"time"
)

// Backoff maps a retry count (0 for the first retry) to a delay.
type Backoff func(attempt int) time.Duration

// ExponentialBackoff doubles from 2s and caps at 5m, plus up to 250ms of jitter.
//
//	attempt=0 => 2s
//	attempt=1 => 4s
//	attempt=2 => 8s
func ExponentialBackoff(attempt int) time.Duration {
	return exponential(2*time.Second, 5*time.Minute, 250*time.Millisecond)(attempt)
}

// NewExponentialBackoff is ExponentialBackoff with a custom base and cap. The
// in-process queue uses short values in tests.
func NewExponentialBackoff(base, capDelay time.Duration) Backoff {
	return exponential(base, capDelay, base/8)
}

func exponential(base, capDelay, jitter time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}

		multiple := math.Pow(2, float64(attempt))
		delay := time.Duration(float64(base) * multiple)

		if delay > capDelay || delay <= 0 {
			delay = capDelay
		}

		if jitter > 0 {
			delay += time.Duration(rand.Int63n(int64(jitter)))
		}
		return delay
	}
}
