// Package ratelimit paces outgoing search requests.
//
// SlidingWindow tracks requests within a moving time window and admits at
// most maxRequests per window. It is optional: the fetch engine already
// backs off on 429 responses, and the limiter only adds a client-side
// ceiling when scrape.requests_per_minute is set.
//
// Usage:
//
//	limiter := ratelimit.PerMinute(cfg.Scrape.RequestsPerMinute)
//	if limiter != nil {
//		if err := limiter.Wait(ctx); err != nil {
//			return err
//		}
//	}
package ratelimit
