package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/gorilla/websocket"
)

type Snapshotter interface {
	Snapshot() []domain.Summary
}

// Hub is the broadcast fan-out over every open connection.
type Hub struct {
	registry Snapshotter

	mu    sync.RWMutex
	conns map[domain.Sender]struct{}

	// pubMu keeps snapshots in the order they were taken on every connection.
	pubMu sync.Mutex
}

func NewHub(registry Snapshotter) *Hub {
	return &Hub{
		registry: registry,
		conns:    make(map[domain.Sender]struct{}),
	}
}

func (h *Hub) Add(c domain.Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
}

func (h *Hub) Remove(c domain.Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

// Broadcast pushes one userUpdate built from a fresh snapshot to every open
// connection. A failing connection is logged and skipped.
func (h *Hub) Broadcast() {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	users := h.registry.Snapshot()
	if users == nil {
		users = []domain.Summary{}
	}
	frame, err := json.Marshal(UserUpdateFrame{Type: TypeUserUpdate, Users: users})
	if err != nil {
		slog.Error("ws marshal userUpdate failed", "err", err)
		return
	}

	for _, c := range h.targets() {
		if err := c.Send(frame); err != nil {
			slog.Warn("ws broadcast send failed", "err", err)
		}
	}
}

func (h *Hub) targets() []domain.Sender {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.Sender, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

// CloseAll sends a going-away close to every connection.
func (h *Hub) CloseAll(timeout time.Duration) {
	for _, c := range h.targets() {
		if wc, ok := c.(*wsConn); ok {
			wc.closeWith(websocket.CloseGoingAway, "server shutting down", reasonShutdown, timeout)
		}
	}
}
