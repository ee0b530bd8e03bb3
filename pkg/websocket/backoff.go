package websocket

import "time"

const (
	defaultBackoffBase        = time.Second
	defaultBackoffMax         = 30 * time.Second
	defaultBackoffMaxAttempts = 5
)

// DefaultBackoff provides the exchange reconnect defaults:
// 2s, 4s, 8s, 16s, 30s and then give up.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:        defaultBackoffBase,
		Max:         defaultBackoffMax,
		MaxAttempts: defaultBackoffMaxAttempts,
	}
}

// Next returns the delay before reconnect attempt (1-based):
// min(Base * 2^attempt, Max).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = defaultBackoffBase
	}
	max := b.Max
	if max <= 0 {
		max = defaultBackoffMax
	}

	wait := base
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	return wait
}

// Exhausted reports whether attempt is beyond the retry budget.
func (b Backoff) Exhausted(attempt int) bool {
	max := b.MaxAttempts
	if max <= 0 {
		max = defaultBackoffMaxAttempts
	}
	return attempt > max
}

func (b Backoff) isZero() bool {
	return b.Base == 0 && b.Max == 0 && b.MaxAttempts == 0
}
