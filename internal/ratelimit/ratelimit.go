package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-second, per-minute and per-hour request budgets.
// A zero budget leaves that window unlimited.
type RateLimiter struct {
	limiters []*rate.Limiter
}

func NewRateLimiter(requestsPerSecond, requestsPerMinute, requestsPerHour int) *RateLimiter {
	r := &RateLimiter{}
	r.add(requestsPerSecond, time.Second)
	r.add(requestsPerMinute, time.Minute)
	r.add(requestsPerHour, time.Hour)
	return r
}

func (r *RateLimiter) add(n int, window time.Duration) {
	if n <= 0 {
		return
	}
	r.limiters = append(r.limiters, rate.NewLimiter(rate.Every(window/time.Duration(n)), n))
}

func (r *RateLimiter) Unlimited() bool {
	return len(r.limiters) == 0
}

// Wait blocks until every window has capacity. It fails early when ctx would
// expire before a slot frees up.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, l := range r.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
