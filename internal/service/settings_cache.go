package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// SettingsCache fronts settings reads. Implementations swallow their own
// failures; a broken cache only costs a database read.
type SettingsCache interface {
	Get(ctx context.Context, name domain.SettingsName) (*domain.SettingsList, bool)
	Set(ctx context.Context, list *domain.SettingsList)
	Invalidate(ctx context.Context, name domain.SettingsName)
}

const settingsCachePrefix = "maintenance:settings:"

// RedisSettingsCache stores lists as JSON strings with a TTL.
type RedisSettingsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSettingsCache returns nil when client is nil. A nil cache misses on
// every read.
func NewRedisSettingsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSettingsCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSettingsCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisSettingsCache) Get(ctx context.Context, name domain.SettingsName) (*domain.SettingsList, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, settingsCachePrefix+string(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("settings cache read failed", zap.String("name", string(name)), zap.Error(err))
		}
		return nil, false
	}
	var list domain.SettingsList
	if err := json.Unmarshal(raw, &list); err != nil {
		c.logger.Warn("settings cache entry corrupt", zap.String("name", string(name)), zap.Error(err))
		return nil, false
	}
	return &list, true
}

func (c *RedisSettingsCache) Set(ctx context.Context, list *domain.SettingsList) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, settingsCachePrefix+string(list.Name), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("settings cache write failed", zap.String("name", string(list.Name)), zap.Error(err))
	}
}

func (c *RedisSettingsCache) Invalidate(ctx context.Context, name domain.SettingsName) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, settingsCachePrefix+string(name)).Err(); err != nil {
		c.logger.Warn("settings cache invalidate failed", zap.String("name", string(name)), zap.Error(err))
	}
}
