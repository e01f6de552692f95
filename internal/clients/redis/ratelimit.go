package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/memoapp/planner-backend/internal/logger"
)

// RateLimiter is a fixed-window counter keyed by caller and action.
type RateLimiter struct {
	client *goredis.Client
	log    *logger.Logger
}

func NewRateLimiter(client *goredis.Client, baseLog *logger.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		log:    baseLog.With("component", "RateLimiter"),
	}
}

// Allow increments the window counter and reports whether the caller is
// still under limit. Redis being unreachable fails open to keep the planner
// usable.
func (r *RateLimiter) Allow(ctx context.Context, callerID, action string, limit int, window time.Duration) bool {
	key := fmt.Sprintf("planner:rate:%s:%s:%d", action, callerID, time.Now().Unix()/int64(window.Seconds()))
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn("Rate limit check failed, allowing request", "action", action, "error", err)
		return true
	}
	return incr.Val() <= int64(limit)
}
