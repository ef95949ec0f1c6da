package server

import (
	"sync"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/logger"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether a request from a client may proceed.
type RateLimiter interface {
	// Allow reports whether a request from the client identified by key may
	// proceed now. It never blocks.
	Allow(key string) bool
}

// TokenBucketRateLimiter gives every client its own token bucket. Buckets
// unused for IdleTimeout are dropped on a later call.
type TokenBucketRateLimiter struct {
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration
	clock       clock.Clock
	logger      logger.Logger

	mu        sync.Mutex
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketRateLimiter allows maxRequests per window per client with
// the given burst. A non-positive window disables limiting.
func NewTokenBucketRateLimiter(maxRequests, burst int, window time.Duration, clk clock.Clock, log logger.Logger) *TokenBucketRateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	limit := rate.Inf
	if window > 0 {
		limit = rate.Limit(float64(maxRequests) / window.Seconds())
	} else {
		log.Warnw("Rate limit window is not positive, rate limiting disabled", "window", window)
	}
	if burst <= 0 {
		burst = 1
		if limit != rate.Inf {
			log.Warnw("Rate limit burst is not positive, using 1", "burst", burst)
		}
	}

	return &TokenBucketRateLimiter{
		limit:       limit,
		burst:       burst,
		idleTimeout: max(DefaultRateLimitIdleTimeout, window),
		clock:       clk,
		logger:      log,
		buckets:     make(map[string]*clientBucket),
		lastSweep:   clk.Now(),
	}
}

// Allow implements RateLimiter.
func (rl *TokenBucketRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	if now.Sub(rl.lastSweep) >= rl.idleTimeout {
		rl.sweepLocked(now)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Clients returns the number of clients currently tracked.
func (rl *TokenBucketRateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *TokenBucketRateLimiter) sweepLocked(now time.Time) {
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.idleTimeout {
			delete(rl.buckets, key)
			removed++
		}
	}
	rl.lastSweep = now
	if removed > 0 {
		rl.logger.Debugw("Dropped idle rate limit buckets", "removed", removed, "remaining", len(rl.buckets))
	}
}
