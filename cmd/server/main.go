package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ktladder/ktladder-backend/internal/api"
	"github.com/ktladder/ktladder-backend/internal/api/handlers"
	"github.com/ktladder/ktladder-backend/internal/config"
	"github.com/ktladder/ktladder-backend/internal/repository"
	"github.com/ktladder/ktladder-backend/internal/service"
	"github.com/ktladder/ktladder-backend/internal/websocket"
	"github.com/ktladder/ktladder-backend/pkg/database"
	"github.com/ktladder/ktladder-backend/pkg/distributed"
	"github.com/ktladder/ktladder-backend/pkg/logger"
	"github.com/ktladder/ktladder-backend/pkg/ratelimit"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting Kill Team ladder backend",
		"port", cfg.Port,
		"env", cfg.Env,
		"dbDriver", cfg.DatabaseDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 데이터베이스 연결 (마이그레이션 포함)
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	// WebSocket Hub 시작
	hub := websocket.NewHub(cfg.CORSAllowedOrigins)
	go hub.Run(ctx)

	var (
		lock       service.RatingLock
		lockStatus handlers.LockStatus
		limiter    ratelimit.Limiter
		publisher  service.EventPublisher = hub
	)

	// Redis 설정 시 인스턴스 간 락, rate limit, 이벤트 공유
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		defer client.Close()

		redisLock := distributed.NewRedisLock(client, distributed.RatingLockKey, cfg.RatingLockTTL)
		lock, lockStatus = redisLock, redisLock
		limiter = ratelimit.NewRedisLimiter(client, "ktladder:ratelimit:submit:",
			cfg.SubmitRateCapacity, cfg.SubmitRateRefill)

		bridge := distributed.NewEventBridge(client, logger.Named("events"))
		publisher = service.Publishers{hub, bridge}
		go func() {
			err := bridge.Run(ctx, func(e distributed.Event) {
				hub.Publish(e.Type, e.Payload)
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Event bridge stopped", "error", err)
			}
		}()

		logger.Info("Redis connected, distributed rating lock enabled")
	} else {
		localLock := distributed.NewLocalLock()
		lock, lockStatus = localLock, localLock
		memLimiter := ratelimit.NewMemoryLimiter(cfg.SubmitRateCapacity, cfg.SubmitRateRefill)
		defer memLimiter.Close()
		limiter = memLimiter

		logger.Warn("REDIS_URL not set, rating lock is local to this process")
	}

	// Service 초기화
	store := repository.NewStore(db)
	stores := store.Stores()
	elo := service.NewELOService()

	playerService := service.NewPlayerService(stores.Players)
	gameService := service.NewGameService(store, stores.Games, playerService, elo, lock, publisher, cfg.RatingLockWait)
	statsService := service.NewStatsService(stores.Players, stores.Games)
	recalculationService := service.NewRecalculationService(store, elo, lock, publisher).
		WithLockWait(cfg.RatingLockWait)

	// 레이팅 드리프트 주기 검사 (선택)
	if cfg.RatingAuditSchedule != "" {
		monitor := service.NewDriftMonitor(recalculationService, publisher, cfg.RatingAuditSchedule)
		if err := monitor.Start(); err != nil {
			logger.Fatal("Failed to start drift monitor", "error", err)
		}
		defer monitor.Stop()
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin routes are disabled")
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		DB:            db,
		RatingLock:    lockStatus,
		Games:         gameService,
		Players:       playerService,
		Stats:         statsService,
		Recalculation: recalculationService,
		Hub:           hub,
		SubmitLimiter: limiter,
	})

	// 서버 설정 (재계산은 오래 걸릴 수 있어 WriteTimeout 여유)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// 10초 타임아웃으로 종료
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
