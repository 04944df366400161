package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter enforces a minimum spacing between consecutive operation starts,
// with optional random jitter on top of the base interval. Each worker owns
// its own Limiter, so the spacing applies per worker rather than as a global
// ceiling. A Limiter is not safe for concurrent use.
type Limiter struct {
	interval  time.Duration
	jitter    float64 // 0.0 to 1.0
	lastStart time.Time
	now       func() time.Time
}

// NewLimiter creates a limiter with the given minimum inter-arrival interval
// and jitter factor. Jitter must be between 0.0 and 1.0; values outside the
// range are clamped. If interval is <= 0, the limiter never blocks.
func NewLimiter(interval time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{
		interval: interval,
		jitter:   jitter,
		now:      time.Now,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous start, or until the context is canceled. The first call never
// blocks. On return without error the limiter records a new start.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}

	now := l.now()
	if !l.lastStart.IsZero() {
		gap := l.interval
		if l.jitter > 0 {
			// Random jitter in [0, jitter*interval), always additive so the
			// configured interval stays a hard minimum.
			gap += time.Duration(rand.Float64() * l.jitter * float64(l.interval))
		}
		if wait := gap - now.Sub(l.lastStart); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.lastStart = l.now()
	return nil
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
