// Package ratelimit provides token-bucket rate limiting for external sources.
// Buckets refill to full once per window, so a source never completes more
// than its allowance inside any single window. It supports both non-blocking
// (Allow) and blocking (Wait) operations.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limit describes a bucket: MaxTokens requests per Window.
type Limit struct {
	MaxTokens int
	Window    time.Duration
}

// TokenBucket is a windowed token bucket. Unlike a continuously refilling
// limiter, the whole allowance returns at once when the window rolls over.
type TokenBucket struct {
	mu        sync.Mutex
	maxTokens int
	window    time.Duration
	tokens    int
	windowEnd time.Time
}

// NewTokenBucket creates a full bucket. The first window starts on first use.
func NewTokenBucket(limit Limit) *TokenBucket {
	if limit.MaxTokens < 1 {
		limit.MaxTokens = 1
	}
	if limit.Window <= 0 {
		limit.Window = time.Minute
	}
	return &TokenBucket{
		maxTokens: limit.MaxTokens,
		window:    limit.Window,
		tokens:    limit.MaxTokens,
	}
}

// Allow takes a token if one is available.
// Returns immediately without blocking.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is canceled.
// Use for outbound requests where you want to respect rate limits.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := time.Now()
		b.refillLocked(now)
		if b.tokens > 0 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := b.windowEnd.Sub(now)
		b.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens reports how many tokens remain in the current window.
func (b *TokenBucket) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	return b.tokens
}

// refillLocked rolls the window forward when it has elapsed.
// Callers must hold mu.
func (b *TokenBucket) refillLocked(now time.Time) {
	if b.windowEnd.IsZero() {
		b.windowEnd = now.Add(b.window)
		return
	}
	if !now.Before(b.windowEnd) {
		b.tokens = b.maxTokens
		b.windowEnd = now.Add(b.window)
	}
}

// Registry manages per-source rate limiters.
// Each source gets its own independent bucket; different sources never
// contend with each other.
type Registry struct {
	mu       sync.RWMutex
	buckets  map[string]*TokenBucket
	fallback Limit
}

// NewRegistry creates a registry with the given per-source limits.
// Sources not listed get the fallback limit on first use.
func NewRegistry(limits map[string]Limit, fallback Limit) *Registry {
	r := &Registry{
		buckets:  make(map[string]*TokenBucket, len(limits)),
		fallback: fallback,
	}
	for source, limit := range limits {
		r.buckets[source] = NewTokenBucket(limit)
	}
	return r
}

// Allow checks if a request for the given source should be allowed.
// Returns immediately without blocking.
func (r *Registry) Allow(source string) bool {
	return r.getBucket(source).Allow()
}

// Wait blocks until a request for the given source is allowed or the
// context is canceled.
func (r *Registry) Wait(ctx context.Context, source string) error {
	return r.getBucket(source).Wait(ctx)
}

// Bucket exposes the bucket for a source, creating one if needed.
func (r *Registry) Bucket(source string) *TokenBucket {
	return r.getBucket(source)
}

// getBucket returns the bucket for a source, creating one if needed.
func (r *Registry) getBucket(source string) *TokenBucket {
	// Fast path: read lock
	r.mu.RLock()
	bucket, exists := r.buckets[source]
	r.mu.RUnlock()

	if exists {
		return bucket
	}

	// Slow path: write lock to create
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists = r.buckets[source]; exists {
		return bucket
	}

	bucket = NewTokenBucket(r.fallback)
	r.buckets[source] = bucket
	return bucket
}
