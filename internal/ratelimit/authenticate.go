package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/telecomservice/internal/config"
)

const keyAuthenticate = "auth:authenticate:%s:%s"

// AuthenticateLimiter throttles login attempts per login and client IP.
type AuthenticateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewAuthenticateLimiter returns nil when client is nil, which disables limiting.
func NewAuthenticateLimiter(cfg config.Config, client *redis.Client) (*AuthenticateLimiter, error) {
	if client == nil {
		return nil, nil
	}
	limitCfg := cfg.RateLimit
	if limitCfg.AuthenticateRate <= 0 || limitCfg.AuthenticateBurst <= 0 {
		return nil, errors.New("authenticate rate limit must be positive")
	}
	return &AuthenticateLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.AuthenticateRate,
		burst:  limitCfg.AuthenticateBurst,
	}, nil
}

func (l *AuthenticateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for the login/IP pair.
func (l *AuthenticateLimiter) Allow(ctx context.Context, login, ip string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, authenticateKey(login, ip), l.rate, l.burst)
}

func authenticateKey(login, ip string) string {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		login = "-"
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "-"
	}
	return fmt.Sprintf(keyAuthenticate, login, ip)
}
