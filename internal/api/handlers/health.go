package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// LockStatus reports whether the rating lock is currently taken.
type LockStatus interface {
	IsHeld(ctx context.Context) (bool, error)
}

type HealthHandler struct {
	db      Pinger
	ratings LockStatus
}

// NewHealthHandler ratings는 nil 가능 (레이팅 락 상태 생략)
func NewHealthHandler(db Pinger, ratings LockStatus) *HealthHandler {
	return &HealthHandler{db: db, ratings: ratings}
}

// HealthCheck 서버, DB, 레이팅 락 상태 확인
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"service":  "ktladder-backend",
			"database": err.Error(),
		})
		return
	}

	resp := gin.H{
		"status":  "ok",
		"service": "ktladder-backend",
	}

	if h.ratings != nil {
		held, err := h.ratings.IsHeld(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "degraded",
				"service":    "ktladder-backend",
				"ratingLock": err.Error(),
			})
			return
		}

		// 재계산 또는 게임 기록 중이면 updating
		resp["ratings"] = "idle"
		if held {
			resp["ratings"] = "updating"
		}
	}

	c.JSON(http.StatusOK, resp)
}
