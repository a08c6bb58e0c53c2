// Package ratelimit throttles provider calls with a token bucket and backs
// off after the provider reports HTTP 429.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is how long calls pause after a 429 response.
const DefaultBackoff = 30 * time.Second

// Limiter is a token bucket with a shared backoff window.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
	now     func() time.Time
}

// NewLimiter allows requestsPerMinute calls per minute, with bursts of a
// tenth of that (at least one). Returns nil when requestsPerMinute <= 0.
func NewLimiter(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := max(requestsPerMinute/10, 1)
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		backoff: DefaultBackoff,
		now:     time.Now,
	}
}

// Wait blocks until a call may be made. It honours any backoff recorded by
// Observe before taking a token.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := retryAt.Sub(l.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Observe inspects a call's error and starts a backoff window when the
// provider rejected it as rate limited.
func (l *Limiter) Observe(err error) {
	if err == nil || !IsRateLimited(err) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retryAt = l.now().Add(l.backoff)
}

// IsRateLimited reports whether err carries an HTTP 429 status.
func IsRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status 429") || strings.Contains(msg, "429 Too Many Requests")
}
