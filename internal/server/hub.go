package server

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub streams job progress events to websocket subscribers. It implements
// pipeline.Sink; publishing never blocks the pipeline, and a client that
// fails a write is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]bool // job id -> connections
	log     *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
		log:     log,
	}
}

// ServeHTTP upgrades the connection and subscribes it to the job's progress
// stream until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.subscribe(jobID, conn)
	defer h.unsubscribe(jobID, conn)

	// Reads only make the close visible; clients are not expected to send.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read", zap.Error(err))
			}
			return
		}
	}
}

// Publish sends the event to every subscriber of its job.
func (h *Hub) Publish(event pipeline.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[event.JobID] {
		if err := conn.WriteJSON(event); err != nil {
			h.log.Debug("dropping websocket client", zap.Error(err))
			conn.Close()
			delete(h.clients[event.JobID], conn)
		}
	}
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for jobID, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(h.clients, jobID)
	}
}

func (h *Hub) subscribe(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[jobID] == nil {
		h.clients[jobID] = make(map[*websocket.Conn]bool)
	}
	h.clients[jobID][conn] = true
}

func (h *Hub) unsubscribe(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients[jobID], conn)
	if len(h.clients[jobID]) == 0 {
		delete(h.clients, jobID)
	}
}
