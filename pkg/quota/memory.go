package quota

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	lim        *rate.Limiter
	limit      int64
	burst      int
	lastAccess time.Time
}

// MemoryLimiter meters request rates with per-key token buckets. Buckets
// are independent, so a tenant that drains its allowance cannot slow any
// other tenant down. Stale buckets are cleaned up in the background to
// keep memory bounded.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	cleanupEvery time.Duration
	staleAfter   time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

// MemoryLimiterOption configures a MemoryLimiter.
type MemoryLimiterOption func(*MemoryLimiter)

// WithCleanup overrides the janitor cadence and the idle age after which a
// bucket is dropped.
func WithCleanup(every, staleAfter time.Duration) MemoryLimiterOption {
	return func(l *MemoryLimiter) {
		if every > 0 {
			l.cleanupEvery = every
		}
		if staleAfter > 0 {
			l.staleAfter = staleAfter
		}
	}
}

// NewMemoryLimiter creates an in-process rate limiter.
func NewMemoryLimiter(opts ...MemoryLimiterOption) *MemoryLimiter {
	l := &MemoryLimiter{
		buckets:      make(map[string]*bucket),
		cleanupEvery: 10 * time.Minute,
		staleAfter:   30 * time.Minute,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.janitor()
	return l
}

// Allow consumes one request from the key's bucket if the rate allows it.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int64, burst int) (*Result, error) {
	now := time.Now()

	if limit == Unlimited {
		return &Result{Allowed: true, Limit: Unlimited, Remaining: Unlimited, ResetAt: now}, nil
	}
	if limit <= 0 {
		return &Result{Allowed: false, Limit: limit, ResetAt: now.Add(RateWindow)}, nil
	}
	if burst < 1 {
		burst = 1
	}

	b := l.bucketFor(key, limit, burst, now)
	allowed := b.lim.Allow()

	tokens := b.lim.Tokens()
	remaining := int64(tokens)
	if remaining < 0 {
		remaining = 0
	}

	res := &Result{Allowed: allowed, Limit: limit, Remaining: remaining, ResetAt: now}
	if !allowed {
		// Time until the bucket refills one token.
		perToken := RateWindow.Seconds() / float64(limit)
		deficit := 1 - tokens
		if deficit < 0 {
			deficit = 0
		}
		res.ResetAt = now.Add(time.Duration(deficit * perToken * float64(time.Second)))
	}
	return res, nil
}

func (l *MemoryLimiter) bucketFor(key string, limit int64, burst int, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	// A plan change replaces the bucket so the new ceiling applies at once.
	if !ok || b.limit != limit || b.burst != burst {
		b = &bucket{
			lim:   rate.NewLimiter(rate.Limit(float64(limit)/RateWindow.Seconds()), burst),
			limit: limit,
			burst: burst,
		}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b
}

// Close stops the background janitor.
func (l *MemoryLimiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *MemoryLimiter) janitor() {
	ticker := time.NewTicker(l.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.staleAfter)
			l.mu.Lock()
			for key, b := range l.buckets {
				if b.lastAccess.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}
