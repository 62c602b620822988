package app

import (
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/utils"
)

type Config struct {
	JWTSecretKey   string
	AllowedOrigins string
	RedisAddr      string
	Environment    string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		JWTSecretKey:   utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AllowedOrigins: utils.GetEnv("CLIENT_URL", "http://localhost:5173", log),
		RedisAddr:      utils.GetEnv("REDIS_ADDR", "", log),
		Environment:    utils.GetEnv("APP_ENV", "development", log),
	}
}
