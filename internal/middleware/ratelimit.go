package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	redisclient "github.com/memoapp/planner-backend/internal/clients/redis"
	"github.com/memoapp/planner-backend/internal/logger"
)

// RateLimitMiddleware throttles the expensive planner operations per user.
type RateLimitMiddleware struct {
	log     *logger.Logger
	limiter *redisclient.RateLimiter
}

func NewRateLimitMiddleware(log *logger.Logger, limiter *redisclient.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		log:     log.With("middleware", "RateLimitMiddleware"),
		limiter: limiter,
	}
}

func (rl *RateLimitMiddleware) Limit(action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter == nil {
			c.Next()
			return
		}
		caller := c.ClientIP()
		if userID, ok := UserID(c); ok {
			caller = userID.String()
		}
		if !rl.limiter.Allow(c.Request.Context(), caller, action, limit, window) {
			rl.log.Warn("Rate limited", "action", action, "caller", caller)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
