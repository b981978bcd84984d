package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/observability"
)

// Hub maintains the active websocket feed connections, one room per user id.
// Notifications and chat messages addressed to a user are pushed to every
// live connection that user holds.
type Hub struct {
	feeds    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	// gorilla/websocket allows only one concurrent writer per connection
	writeLocks map[*websocket.Conn]*sync.Mutex
	mu         sync.RWMutex
	log        *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		feeds:      make(map[string]map[*websocket.Conn]bool),
		connInfo:   make(map[string]map[*websocket.Conn]ConnInfo),
		writeLocks: make(map[*websocket.Conn]*sync.Mutex),
		log:        log,
	}
}

// AddClient registers a connection under the user's feed.
func (h *Hub) AddClient(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.feeds[userID]; !ok {
		h.feeds[userID] = make(map[*websocket.Conn]bool)
	}
	h.feeds[userID][conn] = true
	if _, ok := h.connInfo[userID]; !ok {
		h.connInfo[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[userID][conn] = info
	if _, ok := h.writeLocks[conn]; !ok {
		h.writeLocks[conn] = &sync.Mutex{}
	}
}

// RemoveClient deregisters a connection. Safe to call more than once for the
// same connection.
func (h *Hub) RemoveClient(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.feeds[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.feeds, userID)
		}
	}
	if infos, ok := h.connInfo[userID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, userID)
		}
	}
	delete(h.writeLocks, conn)
}

// ActiveConnections reports how many connections the user currently holds.
func (h *Hub) ActiveConnections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feeds[userID])
}

// BroadcastToUser marshals the event and writes it to each of the user's
// connections, pruning any that fail. Delivery is best effort; a row may
// also reach the client through a list refresh, so consumers de-duplicate
// by id.
func (h *Hub) BroadcastToUser(userID string, event any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.feeds[userID]))
	locks := make([]*sync.Mutex, 0, len(h.feeds[userID]))
	for conn := range h.feeds[userID] {
		conns = append(conns, conn)
		locks = append(locks, h.writeLocks[conn])
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal feed event", zap.Error(err))
		return
	}

	for i, conn := range conns {
		lock := locks[i]
		if lock == nil {
			continue
		}
		lock.Lock()
		err := conn.WriteMessage(websocket.TextMessage, payload)
		lock.Unlock()
		if err != nil {
			h.log.Warn("websocket write failed", zap.String("user_id", userID), zap.Error(err))
			conn.Close()
			h.publishWSError(userID, conn, err)
			h.RemoveClient(userID, conn)
		}
	}
}

func (h *Hub) publishWSError(userID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(userID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id": userID,
			"ip":      info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.feeds", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(userID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[userID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
