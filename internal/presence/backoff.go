package presence

import "time"

// Backoff returns the delay before retry number attempt (1-based): base doubled for
// every previous attempt, never more than limit.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}

	return min(delay, limit)
}
