package app

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/memoapp/planner-backend/internal/clients/redis"
	"github.com/memoapp/planner-backend/internal/logger"
)

type Clients struct {
	Redis       *goredis.Client
	UserLocker  *redisclient.UserLocker
	RateLimiter *redisclient.RateLimiter
}

// wireClients connects external clients. Redis is optional: when it is
// disabled or unreachable the locker and limiter stay nil and callers fall
// back to unguarded single-node behavior.
func wireClients(log *logger.Logger, cfg Config) Clients {
	log.Info("Wiring clients...")
	if !cfg.RedisEnabled {
		log.Info("Redis disabled, running without locks and rate limits")
		return Clients{}
	}
	client, err := redisclient.NewClient(log)
	if err != nil {
		log.Warn("Redis unavailable, running without locks and rate limits", "error", err)
		return Clients{}
	}
	return Clients{
		Redis:       client,
		UserLocker:  redisclient.NewUserLocker(client, log, 2*time.Minute),
		RateLimiter: redisclient.NewRateLimiter(client, log),
	}
}
