package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetFactionStats 킬팀별 통계
func (h *StatsHandler) GetFactionStats(c *gin.Context) {
	factions, err := h.statsService.FactionStats(c.Request.Context(), c.Query("country"))
	if err != nil {
		respondError(c, err, "Failed to get faction stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"factions": factions,
		"total":    len(factions),
	})
}

// GetOverview 전체 통계 요약
func (h *StatsHandler) GetOverview(c *gin.Context) {
	overview, err := h.statsService.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get stats overview")
		return
	}

	c.JSON(http.StatusOK, overview)
}
