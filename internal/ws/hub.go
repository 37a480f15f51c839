package ws

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/metrics"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/protocol"
)

// Hub tracks live clients and the room labels they are subscribed to.
// Sends never block: a client whose buffer is full is dropped.
type Hub struct {
	// Subscribed clients by room
	rooms map[string]map[*Client]bool

	// Registered clients by connection id
	clients map[string]*Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		clients: make(map[string]*Client),
	}
}

// Run reports hub gauges until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			log.Debug().Str("module", "hub").
				Int("rooms", h.GetRoomCount()).
				Int("clients", h.GetClientCount()).
				Msg("hub stats")
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("module", "hub").Str("conn", c.id).Int("clients", count).Msg("client registered")
}

// Unregister removes c from every room and closes its send buffer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	for roomID := range c.rooms {
		h.leaveLocked(c, roomID)
	}
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (h *Hub) leaveLocked(c *Client, roomID string) {
	delete(c.rooms, roomID)
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
			log.Debug().Str("module", "hub").Str("room", roomID).Msg("room closed (empty)")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok || c.closed {
		return
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	c.rooms[roomID] = true
}

func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[connID]; ok {
		h.leaveLocked(c, roomID)
	}
}

// CloseRoom drops every subscription to roomID.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[roomID] {
		delete(c.rooms, roomID)
	}
	delete(h.rooms, roomID)
}

// ToRoom delivers ev to every client subscribed to roomID except exceptConnID.
func (h *Hub) ToRoom(roomID string, ev protocol.Event, exceptConnID string) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("type", ev.EventType()).Msg("encode failed")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[roomID] {
		if c.id == exceptConnID {
			continue
		}
		if !h.trySendLocked(c, frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
}

// ToConn delivers ev to one client.
func (h *Hub) ToConn(connID string, ev protocol.Event) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("type", ev.EventType()).Msg("encode failed")
		return
	}

	h.mu.RLock()
	c, ok := h.clients[connID]
	sent := !ok || h.trySendLocked(c, frame)
	h.mu.RUnlock()

	if !sent {
		h.dropSlow([]*Client{c})
	}
}

// trySendLocked must be called with h.mu held. It reports false when the
// client's buffer is full.
func (h *Hub) trySendLocked(c *Client, frame []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) dropSlow(slow []*Client) {
	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range slow {
		if c.closed {
			continue
		}
		metrics.DroppedFrames.WithLabelValues("slow_consumer").Inc()
		log.Warn().Str("module", "hub").Str("conn", c.id).Msg("dropping slow client")
		h.removeLocked(c)
	}
}

// IsActive reports whether any client is subscribed to roomID.
func (h *Hub) IsActive(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID]) > 0
}

func (h *Hub) RoomConnCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetActiveRooms maps each subscribed room to its connection count.
func (h *Hub) GetActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]int, len(h.rooms))
	for roomID, clients := range h.rooms {
		result[roomID] = len(clients)
	}
	return result
}
