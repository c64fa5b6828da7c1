package gate

import (
	"sync"
	"time"
)

// RateLimiter counts requests per key in fixed, non-overlapping windows.
// A burst at a window boundary can briefly see up to twice the ceiling
// across the boundary; that is an accepted property of the algorithm.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration

	now func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateResult describes the outcome of an Accept call.
type RateResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// NewRateLimiter builds a fixed-window limiter. The caller is responsible
// for validating limit and window at configuration time.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	go rl.sweep()
	return rl
}

// Accept accounts one request against key. The first call after the prior
// window's reset time re-arms a fresh window with count 1.
func (rl *RateLimiter) Accept(key string) RateResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.windows[key]

	if !exists || !now.Before(w.resetAt) {
		resetAt := now.Add(rl.window)
		rl.windows[key] = &rateWindow{count: 1, resetAt: resetAt}
		return RateResult{
			Allowed:   true,
			Limit:     rl.limit,
			Remaining: rl.limit - 1,
			ResetAt:   resetAt,
		}
	}

	if w.count >= rl.limit {
		return RateResult{
			Allowed:    false,
			Limit:      rl.limit,
			Remaining:  0,
			ResetAt:    w.resetAt,
			RetryAfter: w.resetAt.Sub(now),
		}
	}

	w.count++
	return RateResult{
		Allowed:   true,
		Limit:     rl.limit,
		Remaining: rl.limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// sweep trims windows whose reset time has passed. Expiry is already
// enforced on Accept; this only bounds memory for one-off keys.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, w := range rl.windows {
			if now.After(w.resetAt) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}
