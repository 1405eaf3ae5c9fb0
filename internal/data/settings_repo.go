package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// settingsRepo 店铺设置仓库，Redis 可用时缓存快照，否则进程内缓存
type settingsRepo struct {
	data *Data
	ttl  time.Duration
	log  *log.Helper

	mu       sync.Mutex
	cached   *biz.SettingsSnapshot
	cachedAt time.Time
}

func NewSettingsRepo(c *conf.Bootstrap, data *Data, logger log.Logger) biz.SettingsRepo {
	r := &settingsRepo{
		data: data,
		ttl:  constants.SettingsCacheExpiration,
		log:  log.NewHelper(logger),
	}
	if c != nil && c.Order != nil {
		r.ttl = conf.Duration(c.Order.SettingsCacheTTL, constants.SettingsCacheExpiration)
	}
	return r
}

// Snapshot returns the current settings, validated and merged over defaults.
func (r *settingsRepo) Snapshot(ctx context.Context) (*biz.SettingsSnapshot, error) {
	if !r.data.Enabled() {
		return biz.DefaultSettings(), nil
	}
	if snap := r.fromCache(ctx); snap != nil {
		return snap, nil
	}

	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	r.toCache(ctx, snap)
	return snap, nil
}

func (r *settingsRepo) load(ctx context.Context) (*biz.SettingsSnapshot, error) {
	keys := []string{constants.SettingsKeyTax, constants.SettingsKeyShipping, constants.SettingsKeyGateway}
	var rows []model.SiteSetting
	// key 是保留字，用 map 条件让 gorm 按方言加引号
	err := r.data.DB(ctx).Where(map[string]any{"key": keys}).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load site settings: %w", err)
	}

	snap := biz.DefaultSettings()
	// 税率设置优先于运费设置中的旧字段
	ordered := map[string]biz.Setting{}
	for _, row := range rows {
		s, err := biz.DecodeSetting(row.Key, row.Value)
		if err != nil {
			r.log.Warnf("Ignoring invalid site setting %q, using defaults: %v", row.Key, err)
			continue
		}
		if s == nil {
			continue
		}
		if gw, ok := s.(biz.GatewaySettings); ok && gw.StoresSecret {
			r.log.Warn("Site setting \"razorpay\" contains a key_secret; it is ignored, secrets are read from configuration only")
		}
		ordered[row.Key] = s
	}
	for _, key := range keys {
		if s, ok := ordered[key]; ok {
			snap.Apply(s)
		}
	}
	return snap, nil
}

func (r *settingsRepo) fromCache(ctx context.Context) *biz.SettingsSnapshot {
	if r.data.rdb == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.cached != nil && time.Since(r.cachedAt) < r.ttl {
			cp := *r.cached
			return &cp
		}
		return nil
	}

	raw, err := r.data.rdb.Get(ctx, constants.RedisKeySettings).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warnf("Settings cache read failed: %v", err)
		}
		return nil
	}
	var snap biz.SettingsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		r.log.Warnf("Settings cache entry is corrupt: %v", err)
		return nil
	}
	return &snap
}

func (r *settingsRepo) toCache(ctx context.Context, snap *biz.SettingsSnapshot) {
	if r.data.rdb == nil {
		r.mu.Lock()
		cp := *snap
		r.cached, r.cachedAt = &cp, time.Now()
		r.mu.Unlock()
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.data.rdb.Set(ctx, constants.RedisKeySettings, raw, r.ttl).Err(); err != nil {
		r.log.Warnf("Settings cache write failed: %v", err)
	}
}
