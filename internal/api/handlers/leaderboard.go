package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/service"
)

type LeaderboardHandler struct {
	statsService *service.StatsService
}

func NewLeaderboardHandler(statsService *service.StatsService) *LeaderboardHandler {
	return &LeaderboardHandler{
		statsService: statsService,
	}
}

// GetLeaderboard 리더보드 조회
// Query: country, search, minGames, limit (default 100)
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	minGames, _ := strconv.Atoi(c.DefaultQuery("minGames", "0"))

	filter := models.LeaderboardFilter{
		Country:  c.Query("country"),
		Search:   c.Query("search"),
		MinGames: minGames,
		Limit:    limit,
	}

	standings, err := h.statsService.Leaderboard(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to get leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": standings,
		"total":       len(standings),
	})
}
