package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bizhub/internal/config"
	"go.uber.org/zap"
)

const writeKeyPrefix = "bizhub:ratelimit:write:"

// WriteLimiter throttles mutating requests per client. A disabled limiter
// allows everything, and a Redis outage fails open so writes keep flowing.
type WriteLimiter struct {
	bucket  *TokenBucket
	log     *zap.Logger
	rate    float64
	burst   int
	enabled bool
}

func NewRedisClient(cfg config.Config) *redis.Client {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
}

func NewWriteLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *WriteLimiter {
	return &WriteLimiter{
		bucket:  NewTokenBucket(client),
		log:     log.Named("ratelimit"),
		rate:    cfg.RateLimit.WriteRate,
		burst:   cfg.RateLimit.WriteBurst,
		enabled: cfg.RateLimit.Enabled && client != nil,
	}
}

func (l *WriteLimiter) Allow(ctx context.Context, clientKey string) *Result {
	if l == nil || !l.enabled {
		return &Result{Allowed: true}
	}
	res, err := l.bucket.Allow(ctx, writeKeyPrefix+clientKey, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return &Result{Allowed: true}
	}
	return res
}
