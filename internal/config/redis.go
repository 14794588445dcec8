package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient connects to REDIS_URL. It returns nil when Redis is not configured
// or unreachable; callers degrade by disabling idempotent replay.
func NewRedisClient(env Env) *redis.Client {
	if env.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(env.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("invalid REDIS_URL, idempotency disabled")
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unreachable, idempotency disabled")
		_ = client.Close()
		return nil
	}
	return client
}
