package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

// CodeRateLimited is rendered when a client exceeds its request budget.
const CodeRateLimited = "RATE_LIMITED"

// counterStore is the subset of *redis.Client used by the limiter.
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// rateLimitMiddleware is a fixed-window limiter per client IP. It fails open
// when Redis is unreachable.
func rateLimitMiddleware(store counterStore, limit int, window time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bucket := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("rl:%s:%d", c.IP(), bucket)

		ctx := c.UserContext()
		count, err := store.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			store.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return apperrors.NewDomainError(CodeRateLimited, "rate limit exceeded", fiber.StatusTooManyRequests, map[string]any{
				"limit":          limit,
				"window_seconds": int(window.Seconds()),
			})
		}
		return c.Next()
	}
}
