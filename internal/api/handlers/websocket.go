package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ktladder/ktladder-backend/internal/websocket"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub *websocket.Hub
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// HandleWebSocket 레이팅 이벤트 구독 (읽기 전용, 인증 없음)
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	h.hub.ServeWs(c.Writer, c.Request)
}
