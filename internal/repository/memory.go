package repository

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter keeps one token bucket per key in process memory.
type MemoryRateLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func NewMemoryRateLimiter(rps float64, burst int) *MemoryRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &MemoryRateLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

func (r *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return r.getLimiter(key).Allow(), nil
}

func (r *MemoryRateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := r.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(r.rps, r.burst)
	actual, _ := r.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}
