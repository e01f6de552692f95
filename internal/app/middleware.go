package app

import (
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/middleware"
)

type Middleware struct {
	Auth      *middleware.AuthMiddleware
	RateLimit *middleware.RateLimitMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:      middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
		RateLimit: middleware.NewRateLimitMiddleware(log, clients.RateLimiter),
	}
}
