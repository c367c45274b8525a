// Package ratelimiter provides token bucket rate limiting with pluggable storage.
//
// A bucket holds up to Capacity tokens and gains RefillRate tokens every
// RefillInterval. Each Allow call takes one token; a call that finds the
// bucket empty is refused and consumes nothing.
//
// Usage:
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: 30 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	res, err := limiter.Allow(ctx, "signin:"+ip)
//	if err != nil {
//		return err
//	}
//	if !res.Allowed() {
//		// retry after res.RetryAfter()
//	}
//
// MemoryStore keeps buckets in process memory. Run its janitor with
// errgroup to drop buckets that have been idle for a long time:
//
//	g.Go(func() error { return store.Run(ctx) })
package ratelimiter
