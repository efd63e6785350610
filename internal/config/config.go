package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Redis (optional, enables the cross-instance rating lock)
	RedisURL string

	// CORS
	CORSAllowedOrigins []string

	// Admin routes are registered only when a token is set
	AdminToken string

	// Rating lock
	RatingLockWait time.Duration
	RatingLockTTL  time.Duration

	// Cron schedule for the replay comparison, disabled when empty
	RatingAuditSchedule string

	// Game submission rate limit (per client IP)
	SubmitRateCapacity int64
	SubmitRateRefill   int64
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseDriver:      getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AdminToken:          getEnv("ADMIN_TOKEN", ""),
		RatingLockWait:      parseDuration(getEnv("RATING_LOCK_WAIT", "10s"), 10*time.Second),
		RatingLockTTL:       parseDuration(getEnv("RATING_LOCK_TTL", "30s"), 30*time.Second),
		RatingAuditSchedule: getEnv("RATING_AUDIT_SCHEDULE", ""),
		SubmitRateCapacity:  parseInt(getEnv("SUBMIT_RATE_CAPACITY", "10"), 10),
		SubmitRateRefill:    parseInt(getEnv("SUBMIT_RATE_REFILL", "1"), 1),
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
