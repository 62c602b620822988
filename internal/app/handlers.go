package app

import (
	"github.com/univento/leaderboard-service/internal/handlers"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/sse"
)

type Handlers struct {
	Leaderboard *handlers.LeaderboardHandler
	Realtime    *handlers.RealtimeHandler
}

func wireHandlers(log *logger.Logger, serviceSet Services, sseHub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Leaderboard: handlers.NewLeaderboardHandler(serviceSet.Score, serviceSet.Leaderboard, serviceSet.Aggregation),
		Realtime:    handlers.NewRealtimeHandler(log, sseHub),
	}
}
