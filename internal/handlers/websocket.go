package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// JobEvent is one message on the job progress feed
type JobEvent struct {
	Type          string `json:"type"`
	JobID         string `json:"job_id"`
	EngineID      string `json:"engine_id"`
	Status        string `json:"status"`
	DocsProcessed int    `json:"docs_processed"`
	DocsFailed    int    `json:"docs_failed"`
	ChunksIndexed int    `json:"chunks_indexed"`
	Error         string `json:"error,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// WebSocketHandler broadcasts batch job progress to connected clients.
// Heartbeat-driven progress events are throttled; terminal transitions are
// always delivered.
type WebSocketHandler struct {
	logger    arbor.ILogger
	clients   map[*websocket.Conn]*sync.Mutex
	mu        sync.RWMutex
	throttler *rate.Limiter
}

func NewWebSocketHandler(config *common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	interval := time.Second
	if config != nil && config.ThrottleInterval != "" {
		if parsed, err := time.ParseDuration(config.ThrottleInterval); err == nil && parsed > 0 {
			interval = parsed
		}
	}

	return &WebSocketHandler{
		logger:    logger,
		clients:   make(map[*websocket.Conn]*sync.Mutex),
		throttler: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// HandleWebSocket upgrades the connection and registers the client. The feed
// is write-only; client messages are read and discarded to process pings.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	common.SafeGo(h.logger, "ws-reader", func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// NotifyJob broadcasts a job state change. Wired as the ingest pipeline's
// progress hook.
func (h *WebSocketHandler) NotifyJob(job *models.BatchJob) {
	terminal := job.IsTerminal()
	if !terminal && !h.throttler.Allow() {
		return
	}

	event := JobEvent{
		Type:          "job_update",
		JobID:         job.ID,
		EngineID:      job.QueryEngineID,
		Status:        string(job.Status),
		DocsProcessed: job.DocsProcessed,
		DocsFailed:    job.DocsFailed,
		ChunksIndexed: job.ChunksIndexed,
		Error:         job.Error,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	h.broadcast(event)
}

func (h *WebSocketHandler) broadcast(event JobEvent) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteJSON(event)
		mu.Unlock()
		if err != nil {
			h.removeClient(conn)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
