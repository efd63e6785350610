package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/service"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// SubmitGame 게임 결과 제출 및 즉시 레이팅 반영
func (h *GameHandler) SubmitGame(c *gin.Context) {
	var req models.SubmitGameRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	game, err := h.gameService.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to submit game")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Game recorded",
		"game":    game,
	})
}

// ListGames 게임 목록 조회 (최신순)
func (h *GameHandler) ListGames(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	playerID, _ := strconv.ParseInt(c.Query("playerId"), 10, 64)

	filter := models.GameFilter{
		PlayerID: playerID,
		Killteam: c.Query("killteam"),
		Country:  c.Query("country"),
	}

	games, err := h.gameService.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to get games")
		return
	}

	if games == nil {
		games = []*models.Game{}
	}

	c.JSON(http.StatusOK, gin.H{
		"games":    games,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetGame 특정 게임 조회
func (h *GameHandler) GetGame(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return
	}

	game, err := h.gameService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get game")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game": game,
	})
}
