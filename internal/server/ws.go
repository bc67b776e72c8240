package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/holdsense/internal/log"
)

// broadcastInterval paces live updates at about 15 FPS.
const broadcastInterval = 66 * time.Millisecond

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveHandler pushes the pipeline status to WebSocket clients.
type LiveHandler struct {
	source  StatusSource
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	stop    chan struct{}
	once    sync.Once
}

// NewLiveHandler creates a LiveHandler and starts its broadcaster.
func NewLiveHandler(source StatusSource) *LiveHandler {
	h := &LiveHandler{
		source:  source,
		clients: make(map[*websocket.Conn]bool),
		stop:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster. Connected clients are left to disconnect.
func (h *LiveHandler) Close() {
	h.once.Do(func() { close(h.stop) })
}

// broadcast sends every new status to all connected clients.
func (h *LiveHandler) broadcast() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		st := h.source.Status()
		if !st.Timestamp.IsZero() && st.Timestamp.Equal(last) {
			continue
		}
		last = st.Timestamp

		msg, err := json.Marshal(st)
		if err != nil {
			log.Warn("failed to encode status", "err", err)
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write failed", "err", err)
			}
		}
		h.mu.RUnlock()
	}
}
