package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/univento/leaderboard-service/internal/db"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/middleware"
	"github.com/univento/leaderboard-service/internal/observability"
	"github.com/univento/leaderboard-service/internal/server"
	"github.com/univento/leaderboard-service/internal/sse"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *sse.SSEHub

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitTracing(context.Background(), log, observability.OtelConfig{
		ServiceName: "leaderboard-service",
		Environment: cfg.Environment,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	sseHub := sse.NewSSEHub(log)

	repoSet := wireRepos(theDB, log)

	serviceSet, err := wireServices(theDB, log, cfg, repoSet, sseHub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerSet := wireHandlers(log, serviceSet, sseHub)
	authMiddleware := middleware.NewAuthMiddleware(log, serviceSet.Auth)

	router := server.NewRouter(server.RouterConfig{
		AllowedOrigins:     server.SplitOrigins(cfg.AllowedOrigins),
		TracingEnabled:     observability.Enabled(),
		AuthMiddleware:     authMiddleware,
		LeaderboardHandler: handlerSet.Leaderboard,
		RealtimeHandler:    handlerSet.Realtime,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        repoSet,
		Services:     serviceSet,
		SSEHub:       sseHub,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.SSEBus != nil {
		_ = a.Services.SSEBus.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
