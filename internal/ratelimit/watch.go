package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/streamhub/internal/config"
	"go.uber.org/zap"
)

const keyWatchUser = "streamhub:watch:user:%s"

// WatchLimiter throttles watch attempts per user. A nil or disabled limiter
// allows everything.
type WatchLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWatchLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*WatchLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limiting requires REDIS_ADDR")
	}
	if limitCfg.WatchRate <= 0 || limitCfg.WatchBurst <= 0 {
		return nil, ErrInvalidLimit
	}
	log.Named("ratelimit").Info("watch rate limit enabled",
		zap.Float64("rate", limitCfg.WatchRate),
		zap.Int("burst", limitCfg.WatchBurst),
	)
	return &WatchLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.WatchRate,
		burst:  limitCfg.WatchBurst,
	}, nil
}

func (l *WatchLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *WatchLimiter) AllowUser(ctx context.Context, userID snowflake.ID) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWatchUser, userID.String()), l.rate, l.burst)
}
