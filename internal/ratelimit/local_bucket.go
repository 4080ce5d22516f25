package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const localLimiterIdleTTL = 10 * time.Minute

// LocalBucket keeps one x/time/rate limiter per key. Idle keys expire so the
// map does not grow with every client address ever seen.
type LocalBucket struct {
	mu       sync.Mutex
	limiters *gocache.Cache
}

func NewLocalBucket() *LocalBucket {
	return &LocalBucket{limiters: gocache.New(localLimiterIdleTTL, localLimiterIdleTTL)}
}

func (b *LocalBucket) Allow(_ context.Context, key string, r float64, burst int) (*RateLimitResult, error) {
	if err := validateBucket(key, r, burst); err != nil {
		return &RateLimitResult{Allowed: false}, err
	}

	lim := b.limiter(key, r, burst)
	reservation := lim.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return &RateLimitResult{
			Allowed:    false,
			Limit:      burst,
			Remaining:  0,
			RetryAfter: delay,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Limit:     burst,
		Remaining: int(lim.Tokens()),
	}, nil
}

func (b *LocalBucket) limiter(key string, r float64, burst int) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v, ok := b.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		b.limiters.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(r), burst)
	b.limiters.SetDefault(key, lim)
	return lim
}
