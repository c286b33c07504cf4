// Package chat implements a token bucket rate limiter for per-connection
// throttling that protects the hub from abuse.
package chat

import (
	"sync"
	"time"
)

type rateLimiter struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64
	last   time.Time
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	rate := float64(burst) / interval.Seconds()
	if rate <= 0 {
		rate = float64(burst)
	}

	return &rateLimiter{
		tokens: float64(burst),
		burst:  float64(burst),
		rate:   rate,
		last:   time.Now(),
	}
}

func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now

	if elapsed > 0 {
		rl.tokens += elapsed * rl.rate
		if rl.tokens > rl.burst {
			rl.tokens = rl.burst
		}
	}

	if rl.tokens < 1 {
		return false
	}

	rl.tokens--
	return true
}
