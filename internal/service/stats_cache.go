package service

import (
	"context"
	"dontpanic_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatsCache 用户统计的读穿缓存，缓存失败只记录日志，不影响主流程
type StatsCache interface {
	GetUserSummary(ctx context.Context, userID uint) (*UserSummary, bool)
	SetUserSummary(ctx context.Context, userID uint, summary *UserSummary)
	InvalidateUser(ctx context.Context, userID uint)
}

func NewStatsCache(client *redis.Client, ttl time.Duration) StatsCache {
	if client == nil {
		return noopStatsCache{}
	}
	return &RedisStatsCache{client: client, ttl: ttl}
}

type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func userSummaryKey(userID uint) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

func (c *RedisStatsCache) GetUserSummary(ctx context.Context, userID uint) (*UserSummary, bool) {
	raw, err := c.client.Get(ctx, userSummaryKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Stats cache read failed", zap.Uint("userId", userID), zap.Error(err))
		}
		return nil, false
	}
	var summary UserSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (c *RedisStatsCache) SetUserSummary(ctx context.Context, userID uint, summary *UserSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userSummaryKey(userID), raw, c.ttl).Err(); err != nil {
		logger.Log.Warn("Stats cache write failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

func (c *RedisStatsCache) InvalidateUser(ctx context.Context, userID uint) {
	if err := c.client.Del(ctx, userSummaryKey(userID)).Err(); err != nil {
		logger.Log.Warn("Stats cache invalidation failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

type noopStatsCache struct{}

func (noopStatsCache) GetUserSummary(context.Context, uint) (*UserSummary, bool) { return nil, false }
func (noopStatsCache) SetUserSummary(context.Context, uint, *UserSummary)        {}
func (noopStatsCache) InvalidateUser(context.Context, uint)                      {}
