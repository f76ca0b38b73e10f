// Package bootstrap connects the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"

	"murmur/internal/cache"
	"murmur/internal/config"
	"murmur/internal/database"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations according to DB_SCHEMA_MODE after connecting.
	ApplySchema bool
}

// InitRuntime connects to the database and Redis. The Redis client is nil
// when Redis is unreachable; callers degrade instead of failing.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close()
			return nil, nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	return db, cache.GetClient(), nil
}
