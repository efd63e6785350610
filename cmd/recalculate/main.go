// Command recalculate rebuilds every player rating from the full game history.
//
// Run it against the same DATABASE_URL (and REDIS_URL, when servers use one) as the
// API servers; the rating lock keeps it from racing live submissions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ktladder/ktladder-backend/internal/config"
	"github.com/ktladder/ktladder-backend/internal/repository"
	"github.com/ktladder/ktladder-backend/internal/service"
	"github.com/ktladder/ktladder-backend/pkg/database"
	"github.com/ktladder/ktladder-backend/pkg/distributed"
	"github.com/ktladder/ktladder-backend/pkg/logger"
)

func main() {
	preview := flag.Bool("preview", false, "list rating drift without writing anything")
	timeout := flag.Duration("timeout", 10*time.Minute, "abort the recalculation after this long")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	var (
		lock      service.RatingLock = distributed.NewLocalLock()
		publisher service.EventPublisher
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", "error", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		lock = distributed.NewRedisLock(client, distributed.RatingLockKey, cfg.RatingLockTTL)
		// running servers relay these to their websocket clients
		publisher = distributed.NewEventBridge(client, logger.Named("events"))
	} else {
		logger.Warn("REDIS_URL not set, make sure no server is accepting games")
	}

	svc := service.NewRecalculationService(repository.NewStore(db), service.NewELOService(), lock, publisher)

	if *preview {
		drifts, err := svc.Preview(ctx)
		if err != nil {
			logger.Fatal("Preview failed", "error", err)
		}
		printJSON(map[string]interface{}{"drifts": drifts, "total": len(drifts)})
		return
	}

	result, err := svc.RecalculateAll(ctx)
	if err != nil {
		var gamesProcessed int
		var recalcErr *service.RecalculationError
		if errors.As(err, &recalcErr) {
			gamesProcessed = recalcErr.GamesProcessed
		}
		printJSON(map[string]interface{}{"success": false, "error": err.Error(), "gamesProcessed": gamesProcessed})
		logger.Sync()
		os.Exit(1)
	}

	printJSON(map[string]interface{}{
		"success":        true,
		"gamesProcessed": result.GamesProcessed,
		"playersRated":   result.PlayersRated,
		"durationMs":     result.Duration.Milliseconds(),
	})
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
