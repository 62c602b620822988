package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/services"
	"github.com/univento/leaderboard-service/internal/sse"
	"github.com/univento/leaderboard-service/internal/sse/bus"
)

type Services struct {
	Auth        services.AuthService
	Score       services.ScoreService
	Leaderboard services.LeaderboardService
	Aggregation services.AggregationService

	SSEBus bus.Bus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repoSet Repos, sseHub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	authService := services.NewAuthService(log, cfg.JWTSecretKey)

	// Single-instance deployments broadcast straight to the local hub.
	// With REDIS_ADDR set, score updates go through redis pub/sub and every
	// instance forwards them into its own hub.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	var sseBus bus.Bus
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis SSE bus unavailable, falling back to in-process hub", "error", err)
		} else {
			if err := b.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
				log.Warn("Redis SSE forwarder failed to start, falling back to in-process hub", "error", err)
				_ = b.Close()
			} else {
				sseBus = b
				emitter = &services.RedisEmitter{Bus: b, Log: log}
			}
		}
	}

	scoreService := services.NewScoreService(db, log, repoSet.ScoreEntry, emitter)
	leaderboardService := services.NewLeaderboardService(log, repoSet.ScoreEntry)
	aggregationService := services.NewAggregationService(log, repoSet.ScoreEntry, services.ExactCollegeKey)

	return Services{
		Auth:        authService,
		Score:       scoreService,
		Leaderboard: leaderboardService,
		Aggregation: aggregationService,
		SSEBus:      sseBus,
	}, nil
}
