package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/univento/leaderboard-service/internal/handlers"
	"github.com/univento/leaderboard-service/internal/middleware"
	"github.com/univento/leaderboard-service/internal/requestdata"
)

type RouterConfig struct {
	AllowedOrigins     []string
	TracingEnabled     bool
	AuthMiddleware     *middleware.AuthMiddleware
	LeaderboardHandler *handlers.LeaderboardHandler
	RealtimeHandler    *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("leaderboard-service"))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/leaderboard")
	{
		api.GET("/event/:eventId", cfg.LeaderboardHandler.GetEventLeaderboard)
		api.GET("/top", cfg.LeaderboardHandler.GetTopPerformers)
		api.GET("/colleges", cfg.LeaderboardHandler.GetCollegeLeaderboard)

		authed := api.Group("")
		authed.Use(cfg.AuthMiddleware.RequireAuth())
		authed.GET("/event/:eventId/user/:userId", cfg.LeaderboardHandler.GetParticipantScore)
		authed.PUT("/event/:eventId/user/:userId",
			cfg.AuthMiddleware.RequireRole(requestdata.RoleAdmin, requestdata.RoleOrganizer),
			cfg.LeaderboardHandler.UpdateParticipantScore)
	}

	realtime := router.Group("/realtime")
	realtime.Use(cfg.AuthMiddleware.RequireAuth())
	realtime.GET("/stream", cfg.RealtimeHandler.Stream)
	realtime.POST("/join", cfg.RealtimeHandler.JoinEvent)
	realtime.POST("/leave", cfg.RealtimeHandler.LeaveEvent)

	return router
}

// SplitOrigins parses a comma-separated origin list from config.
func SplitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
