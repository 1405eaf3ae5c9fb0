// Package ratelimit limits requests per client key over a fixed window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

// Store counts hits per key in a shared fixed window.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter allows limit requests per window for each key. It uses the shared
// store when one is configured and per-process token buckets otherwise, or
// when the store errors.
type Limiter struct {
	store  Store
	prefix string
	limit  int
	window time.Duration
	log    *log.Helper
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func New(store Store, prefix string, limit int, window time.Duration, logger log.Logger) *Limiter {
	return &Limiter{
		store:   store,
		prefix:  prefix,
		limit:   limit,
		window:  window,
		log:     log.NewHelper(logger),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one more request for key fits in the window.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 || l.window <= 0 {
		return true
	}
	if l.store != nil {
		n, err := l.store.Hit(ctx, l.prefix+key, l.window)
		if err == nil {
			return n <= int64(l.limit)
		}
		l.log.Warnf("rate limit store unavailable, using local limiter: %v", err)
	}
	return l.allowLocal(key)
}

func (l *Limiter) allowLocal(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for a full window. Such a bucket has refilled, so
// a fresh one behaves the same.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.buckets, key)
		}
	}
}

// size returns the number of local buckets.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
