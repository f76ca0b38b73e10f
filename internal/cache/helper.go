package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"murmur/internal/middleware"
	"murmur/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON loads key into dest. It reports false on a miss, a decode failure or when Redis is off.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if client == nil {
		return false
	}
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "get")
	defer span.End()

	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.RecordError(span, err)
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		middleware.Logger.WarnContext(ctx, "cache entry undecodable", slog.String("key", key), slog.String("error", err.Error()))
		client.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under key for ttl. Failures are logged, never returned.
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "set")
	defer span.End()

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		observability.RecordError(span, err)
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Aside returns the cached value for key, or calls load and caches its result.
// Load errors are returned unchanged and nothing is cached.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var cached T
	if GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	SetJSON(ctx, key, value, ttl)
	return value, nil
}
