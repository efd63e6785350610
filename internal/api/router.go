package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/api/handlers"
	"github.com/ktladder/ktladder-backend/internal/api/middleware"
	"github.com/ktladder/ktladder-backend/internal/config"
	"github.com/ktladder/ktladder-backend/internal/service"
	"github.com/ktladder/ktladder-backend/internal/websocket"
	"github.com/ktladder/ktladder-backend/pkg/ratelimit"
)

// Dependencies are the wired services the router exposes.
type Dependencies struct {
	DB            handlers.Pinger
	RatingLock    handlers.LockStatus
	Games         *service.GameService
	Players       *service.PlayerService
	Stats         *service.StatsService
	Recalculation *service.RecalculationService
	Hub           *websocket.Hub
	SubmitLimiter ratelimit.Limiter
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Handler 초기화
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.RatingLock)
	gameHandler := handlers.NewGameHandler(deps.Games)
	playerHandler := handlers.NewPlayerHandler(deps.Players, deps.Stats)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.Stats)
	statsHandler := handlers.NewStatsHandler(deps.Stats)
	adminHandler := handlers.NewAdminHandler(deps.Recalculation)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)

	// Health check
	router.GET("/health", healthHandler.HealthCheck)

	submitLimit := func(c *gin.Context) { c.Next() }
	if deps.SubmitLimiter != nil {
		submitLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:  deps.SubmitLimiter,
			Capacity: cfg.SubmitRateCapacity,
		})
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint
		v1.GET("/ws", wsHandler.HandleWebSocket)

		// Game routes
		games := v1.Group("/games")
		{
			games.GET("", gameHandler.ListGames)
			games.GET("/:id", gameHandler.GetGame)
			games.POST("", submitLimit, gameHandler.SubmitGame)
		}

		// Player routes
		players := v1.Group("/players")
		{
			players.GET("", playerHandler.ListPlayers)
			players.GET("/:id", playerHandler.GetPlayer)
		}

		// Leaderboard routes
		v1.GET("/leaderboard", leaderboardHandler.GetLeaderboard)

		// Stats routes
		stats := v1.Group("/stats")
		{
			stats.GET("/factions", statsHandler.GetFactionStats)
			stats.GET("/overview", statsHandler.GetOverview)
		}

		// Admin routes (ADMIN_TOKEN 설정 시에만 등록)
		if cfg.AdminToken != "" {
			admin := v1.Group("/admin")
			admin.Use(middleware.AdminToken(cfg.AdminToken))
			{
				admin.POST("/recalculate-elo", adminHandler.RecalculateElo)
				admin.GET("/recalculate-elo/preview", adminHandler.PreviewRecalculation)
			}
		}
	}

	return router
}
