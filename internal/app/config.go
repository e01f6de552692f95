package app

import (
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/utils"
)

type Config struct {
	Port         string
	Environment  string
	Version      string
	JWTSecretKey string
	TuningPath   string
	RedisEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		Environment:  utils.GetEnv("APP_ENV", "development", log),
		Version:      utils.GetEnv("APP_VERSION", "dev", log),
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		TuningPath:   utils.GetEnv("PLANNER_TUNING_FILE", "", log),
		RedisEnabled: utils.GetEnvAsBool("REDIS_ENABLED", true, log),
	}
}
