package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// RateLimiter enforces fixed-window request budgets kept in Redis.
type RateLimiter struct {
	rdb    *redis.Client
	env    string
	policy FailPolicy
}

// NewRateLimiter builds a limiter for the configured environment.
// An empty env counts as "development".
func NewRateLimiter(rdb *redis.Client, env string, policy FailPolicy) *RateLimiter {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		env = "development"
	}
	return &RateLimiter{rdb: rdb, env: env, policy: policy}
}

// Enabled reports whether budgets are enforced. Test, development and stress runs are not throttled.
func (l *RateLimiter) Enabled() bool {
	switch l.env {
	case "test", "development", "stress":
		return false
	}
	return true
}

// Check reports whether id may spend one more request on resource.
// Returns true if allowed, false if limit exceeded.
func (l *RateLimiter) Check(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	if l.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// INCR and set EXPIRE if new
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// Limit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated user id (c.Locals(LocalUserID)) otherwise by remote IP,
// and by name, or the request path when no name is given.
func (l *RateLimiter) Limit(limit int, window time.Duration, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var id string
		if uid := c.Locals(LocalUserID); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		} else {
			id = fmt.Sprintf("ip:%s", c.IP())
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := l.Check(ctx, resource, id, limit, window)
		if err != nil {
			if l.policy == FailClosed {
				Logger.WarnContext(ctx, "rate limit unavailable, failing closed",
					slog.String("path", c.Path()), slog.String("resource", resource), slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			Logger.WarnContext(ctx, "rate limit unavailable, failing open",
				slog.String("resource", resource), slog.String("error", err.Error()))
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
