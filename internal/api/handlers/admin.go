package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/service"
	"github.com/ktladder/ktladder-backend/pkg/logger"
)

type AdminHandler struct {
	recalculationService *service.RecalculationService
}

func NewAdminHandler(recalculationService *service.RecalculationService) *AdminHandler {
	return &AdminHandler{
		recalculationService: recalculationService,
	}
}

// RecalculateElo 전체 게임 기록으로 레이팅 재계산
func (h *AdminHandler) RecalculateElo(c *gin.Context) {
	result, err := h.recalculationService.RecalculateAll(c.Request.Context())
	if err != nil {
		var recalcErr *service.RecalculationError
		gamesProcessed := 0
		if errors.As(err, &recalcErr) {
			gamesProcessed = recalcErr.GamesProcessed
		}

		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRatingsBusy) {
			status = http.StatusConflict
		}

		logger.Error("Admin recalculation failed", "error", err)
		c.JSON(status, gin.H{
			"success":        false,
			"error":          err.Error(),
			"gamesProcessed": gamesProcessed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "ELO ratings recalculated",
		"gamesProcessed": result.GamesProcessed,
		"playersRated":   result.PlayersRated,
		"durationMs":     result.Duration.Milliseconds(),
	})
}

// PreviewRecalculation 재계산 시 바뀔 레이팅 미리보기 (쓰기 없음)
func (h *AdminHandler) PreviewRecalculation(c *gin.Context) {
	drifts, err := h.recalculationService.Preview(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to preview recalculation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"drifts":  drifts,
		"total":   len(drifts),
	})
}
