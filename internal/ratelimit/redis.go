package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/telecomservice/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisPingTimeout = 3 * time.Second

// NewRedisClient connects the rate limiter and lock backend. It returns a nil
// client when rate limiting is off, which turns both into no-ops.
// An unreachable redis at startup is logged, not fatal.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil, nil
	}
	addr := strings.TrimSpace(rl.RedisAddr)
	if addr == "" {
		return nil, errors.New("REDIS_ADDR is required when rate limiting is enabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    rl.RedisPassword,
		DB:          rl.RedisDB,
		DialTimeout: redisPingTimeout,
	})
	log = log.Named("ratelimit.redis").With(zap.String("addr", addr))

	lc.Append(fx.StartStopHook(
		func(ctx context.Context) {
			pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				log.Warn("redis unreachable, rate limiter will fail open", zap.Error(err))
				return
			}
			log.Info("redis connected")
		},
		client.Close,
	))
	return client, nil
}
