package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces calls. Wait blocks until the next call may proceed or the
// context is cancelled.
type Limiter interface {
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// IntervalLimiter enforces a minimum gap between consecutive calls. The
// first call passes immediately.
type IntervalLimiter struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewIntervalLimiter creates a limiter with the given minimum gap
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Wait blocks until at least the configured interval has passed since the
// previous call
func (il *IntervalLimiter) Wait(ctx context.Context) error {
	il.mu.Lock()
	now := time.Now()
	var gap time.Duration
	if !il.last.IsZero() {
		gap = il.interval - now.Sub(il.last)
	}
	if gap < 0 {
		gap = 0
	}
	il.last = now.Add(gap)
	il.mu.Unlock()

	if gap == 0 {
		return nil
	}

	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mark re-anchors the gap at the current moment, so the next Wait measures
// from here rather than from when the previous Wait returned
func (il *IntervalLimiter) Mark() {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.last = time.Now()
}

// Reset forgets the previous call so the next one passes immediately
func (il *IntervalLimiter) Reset() {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.last = time.Time{}
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// allow checks if a request can proceed
func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available or the context is cancelled
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill <= 0 {
			// Small sleep to prevent busy waiting
			timeUntilRefill = 100 * time.Millisecond
		}

		timer := time.NewTimer(timeUntilRefill)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	if elapsed >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
