package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/utils"
)

// NewClient connects to Redis using REDIS_ADDR / REDIS_PASSWORD / REDIS_DB
// and verifies the connection with a short ping.
func NewClient(log *logger.Logger) (*goredis.Client, error) {
	addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	password := utils.GetEnv("REDIS_PASSWORD", "", log)
	dbNum := utils.GetEnvAsInt("REDIS_DB", 0, log)

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.Info("Connected to Redis", "addr", addr)
	return client, nil
}
