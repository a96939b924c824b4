package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peterneubauer/savethesquare/internal/config"
)

// OpenRedis opens a client from the redis settings; nil when no host is configured
func OpenRedis(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	log.Printf("🔌 Redis client: addr=%s db=%d", cfg.Addr(), cfg.DB)
	return redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Pass, DB: cfg.DB})
}

// Ping checks the connection with a short timeout
func Ping(ctx context.Context, rc *redis.Client) error {
	if rc == nil {
		return fmt.Errorf("redis is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rc.Ping(ctx).Err()
}
