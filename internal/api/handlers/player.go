package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/service"
)

type PlayerHandler struct {
	playerService *service.PlayerService
	statsService  *service.StatsService
}

func NewPlayerHandler(playerService *service.PlayerService, statsService *service.StatsService) *PlayerHandler {
	return &PlayerHandler{
		playerService: playerService,
		statsService:  statsService,
	}
}

// ListPlayers 전체 플레이어 목록 (레이팅순)
func (h *PlayerHandler) ListPlayers(c *gin.Context) {
	players, err := h.playerService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get players")
		return
	}

	if players == nil {
		players = []*models.Player{}
	}

	c.JSON(http.StatusOK, gin.H{
		"players": players,
		"total":   len(players),
	})
}

// GetPlayer 플레이어 상세 (전적, 팀별 통계, 레이팅 변화)
func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player id"})
		return
	}

	details, err := h.statsService.PlayerDetails(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get player")
		return
	}

	c.JSON(http.StatusOK, details)
}
