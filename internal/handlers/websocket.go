package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local service; extension connects cross-origin
	},
}

// progressMessage is the wire shape of one progress broadcast
type progressMessage struct {
	Type string               `json:"type"`
	Data models.ProgressEvent `json:"data"`
}

// WebSocketHandler broadcasts job progress events to connected clients. It
// implements interfaces.ProgressSink.
type WebSocketHandler struct {
	logger  arbor.ILogger
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:  logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket handles GET /ws upgrade requests
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		}
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")
	}

	// Reader loop exists only to observe the close; clients never send.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish broadcasts a progress event to every connected client. Slow or
// broken clients are dropped rather than blocking the job.
func (h *WebSocketHandler) Publish(event models.ProgressEvent) {
	msg := progressMessage{Type: "job_progress", Data: event}

	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteJSON(msg)
		mu.Unlock()
		if err != nil {
			h.drop(conn)
		}
	}
}

func (h *WebSocketHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
