package cache

import (
	"context"
	"time"

	"hotel-reservation-engine/internal/logger"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings Redis. It returns nil when the server is
// unreachable; callers treat a nil client as "no cache".
func NewRedisClient(cfg Config) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, webhook delivery guard disabled", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("Connected to Redis", "addr", cfg.Addr)
	return client
}
