package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a Redis fixed-window limiter shared across instances.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	// buckets are keyed on whole seconds; anything shorter divides by zero
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{redis: redisClient, limit: limit, window: window}
}

// Allow counts one hit for the key and reports whether it stays within
// the window's budget. Fails open on Redis trouble: rate limiting is
// protection, not a correctness requirement.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(r.window.Seconds()))

	pipe := r.redis.TxPipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	return count.Val() <= int64(r.limit)
}

// QueueRateLimit is router middleware for queue operations: one budget per
// authenticated user, per client IP for guests.
func (r *RateLimiter) QueueRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := e.RealIP()
		if e.Auth != nil {
			key = fmt.Sprintf("user:%s", e.Auth.Id)
		}

		if !r.Allow(e.Request.Context(), key) {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return e.Next()
	}
}
