// Package ratelimit paces outbound requests to the platform.
//
// Requests are spread out with a token bucket from golang.org/x/time/rate so a
// run over a large creator stays polite. This is pacing only: a request that
// fails is never retried here.
//
// Usage:
//
//	limiter := ratelimit.New(cfg.HTTP.RequestsPerSecond, cfg.HTTP.BurstSize)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // context cancelled
//	}
//
// A zero rate returns Unlimited, which never blocks.
package ratelimit
