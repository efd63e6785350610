package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ktladder/ktladder-backend/pkg/logger"
)

// Hub WebSocket 연결 관리 및 브로드캐스트
//
// Every connected client receives every event; there is no per-client addressing.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	allowedOrigins map[string]struct{}
	logger         *zap.SugaredLogger
}

// Message WebSocket 메시지
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewHub Hub 생성. An empty origin list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Hub{
		clients:        make(map[string]*Client),
		broadcast:      make(chan *Message, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		allowedOrigins: origins,
		logger:         logger.Named("websocket"),
	}
}

// Run Hub 실행 (ctx 종료 시 모든 연결 해제)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

// Publish queues an event for every client. It never blocks; when the queue is full
// the event is dropped.
func (h *Hub) Publish(eventType string, payload interface{}) {
	message := &Message{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warnw("Broadcast queue full, dropping event", "type", eventType)
	}
}

// ClientCount 현재 연결 수
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	h.logger.Infow("WebSocket client registered",
		"clientId", client.id,
		"totalClients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.id]; exists {
		delete(h.clients, client.id)
		close(client.send)
		h.logger.Infow("WebSocket client unregistered",
			"clientId", client.id,
			"totalClients", len(h.clients))
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		select {
		case client.send <- message:
		default:
			// 느린 클라이언트는 연결 해제
			h.logger.Warnw("Client send channel full, disconnecting", "clientId", id)
			delete(h.clients, id)
			close(client.send)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
}

func (h *Hub) originAllowed(origin string) bool {
	if len(h.allowedOrigins) == 0 || origin == "" {
		return true
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}
