package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/ratelimit"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
)

// NewCheckoutGuard 结账防重：Redis 可用时使用 redsync 分布式锁，否则进程内锁
func NewCheckoutGuard(data *Data, logger log.Logger) biz.CheckoutGuard {
	if data.rdb == nil || data.rs == nil {
		return newMemoryGuard()
	}
	return &redisGuard{rdb: data.rdb, rs: data.rs, log: log.NewHelper(logger)}
}

type redisGuard struct {
	rdb *redis.Client
	rs  *redsync.Redsync
	log *log.Helper
}

func (g *redisGuard) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	mutex := g.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1), // 只尝试一次，失败说明同一结账正在处理
	)
	if err := mutex.LockContext(ctx); err != nil {
		// 区分锁被占用和 Redis 不可用
		if pingErr := g.rdb.Ping(ctx).Err(); pingErr != nil {
			return nil, fmt.Errorf("checkout lock %s: %w", key, pingErr)
		}
		return nil, biz.ErrCheckoutLocked
	}
	return func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			g.log.Warnf("Failed to release checkout lock %s: %v", key, err)
		}
	}, nil
}

func (g *redisGuard) Recall(ctx context.Context, key string) (*biz.CheckoutResult, error) {
	raw, err := g.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var res biz.CheckoutResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode checkout memo: %w", err)
	}
	return &res, nil
}

func (g *redisGuard) Remember(ctx context.Context, key string, res *biz.CheckoutResult, ttl time.Duration) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return g.rdb.Set(ctx, key, raw, ttl).Err()
}

// memoryGuard is the single-process fallback.
type memoryGuard struct {
	mu    sync.Mutex
	locks map[string]time.Time
	memos map[string]memo
}

type memo struct {
	res     biz.CheckoutResult
	expires time.Time
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{
		locks: make(map[string]time.Time),
		memos: make(map[string]memo),
	}
}

func (g *memoryGuard) Lock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if until, ok := g.locks[key]; ok && now.Before(until) {
		return nil, biz.ErrCheckoutLocked
	}
	until := now.Add(ttl)
	g.locks[key] = until
	return func() {
		g.mu.Lock()
		if g.locks[key] == until {
			delete(g.locks, key)
		}
		g.mu.Unlock()
	}, nil
}

func (g *memoryGuard) Recall(_ context.Context, key string) (*biz.CheckoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.memos[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(m.expires) {
		delete(g.memos, key)
		return nil, nil
	}
	res := m.res
	return &res, nil
}

func (g *memoryGuard) Remember(_ context.Context, key string, res *biz.CheckoutResult, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.memos[key] = memo{res: *res, expires: time.Now().Add(ttl)}
	return nil
}

// NewNotificationLedger 通知去重记录
func NewNotificationLedger(data *Data) biz.NotificationLedger {
	if data.rdb == nil {
		return &memoryLedger{seen: make(map[string]time.Time)}
	}
	return &redisLedger{rdb: data.rdb}
}

type redisLedger struct {
	rdb *redis.Client
}

func (l *redisLedger) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

type memoryLedger struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func (l *memoryLedger) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if exp, ok := l.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.seen[key] = now.Add(ttl)
	return true, nil
}

// NewRateLimitStore returns the shared fixed-window counter, or nil without
// Redis so the limiter falls back to per-process token buckets.
func NewRateLimitStore(data *Data) ratelimit.Store {
	if data.rdb == nil {
		return nil
	}
	return &redisRateStore{rdb: data.rdb}
}

type redisRateStore struct {
	rdb *redis.Client
}

// Hit increments the window counter, setting the expiry on the first hit.
func (s *redisRateStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
