package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter is a simple in-memory sliding-window limiter keyed by client
// IP. It protects the auth endpoints from abuse; it is not meant to be a
// fair scheduler.
type RateLimiter struct {
	requests map[string][]time.Time
	lock     sync.Mutex
	window   time.Duration
	max      int
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		max:      max,
	}
}

// Allow records a request for key and reports whether it is within the
// window's budget.
func (rl *RateLimiter) Allow(key string) bool {
	rl.lock.Lock()
	defer rl.lock.Unlock()
	now := time.Now()
	windowStart := now.Add(-rl.window)

	var recent []time.Time
	for _, requestTime := range rl.requests[key] {
		if requestTime.After(windowStart) {
			recent = append(recent, requestTime)
		}
	}

	if len(recent) >= rl.max {
		rl.requests[key] = recent
		return false
	}

	rl.requests[key] = append(recent, now)
	return true
}
