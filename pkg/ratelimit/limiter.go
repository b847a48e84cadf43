package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the full burst allowance
	Reset()
}

// New returns a limiter pacing requests at rps with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) Limiter {
	if rps <= 0 {
		return Unlimited{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
	}
}

// TokenBucket paces requests with a golang.org/x/time/rate token bucket
type TokenBucket struct {
	limiter *rate.Limiter
	rps     float64
	burst   int
}

// Allow checks if a request can proceed without waiting
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Reset refills the bucket to its burst capacity
func (tb *TokenBucket) Reset() {
	tb.limiter = rate.NewLimiter(rate.Limit(tb.rps), tb.burst)
}

// Unlimited never blocks. Used when pacing is switched off and in tests.
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

func (Unlimited) Reset() {}
