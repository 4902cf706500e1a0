package worker

import "time"

// RetryPolicy controls how sheet sync failures are retried. Delays grow
// geometrically from InitialDelay up to MaxDelay; a task that fails more
// than MaxRetries times goes to the dead-letter queue.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given retry attempt (1-based).
// Zero-valued policies fall back to one-second doubling.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(base)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	d := time.Duration(delay)
	if d <= 0 {
		return time.Second
	}
	return d
}
