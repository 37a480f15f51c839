package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/db"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/session"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/ws"
)

const healthTimeout = 2 * time.Second

// Pinger is an optional dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	hub         *ws.Hub
	database    *db.Database
	coordinator *session.Coordinator
	cache       Pinger
}

func New(hub *ws.Hub, database *db.Database, coordinator *session.Coordinator) *API {
	return &API{
		hub:         hub,
		database:    database,
		coordinator: coordinator,
	}
}

// WithCache adds the chat cache to the health check.
func (a *API) WithCache(cache Pinger) *API {
	a.cache = cache
	return a
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Str("module", "api").Msg("encode response")
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status := http.StatusOK

	if err := a.database.Ping(ctx); err != nil {
		log.Error().Err(err).Str("module", "api").Msg("database health check failed")
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if a.cache != nil {
		checks["cache"] = "ok"
		if err := a.cache.Ping(ctx); err != nil {
			// The cache is optional; joins fall back to the store.
			log.Warn().Err(err).Str("module", "api").Msg("cache health check failed")
			checks["cache"] = "unavailable"
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	jsonResponse(w, status, map[string]interface{}{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":   a.hub.GetRoomCount(),
		"active_clients": a.hub.GetClientCount(),
		"connections":    a.coordinator.Connections(),
		"online_users":   a.coordinator.OnlineUsers(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	dbStats, err := a.database.GetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "api").Msg("failed to read stats")
	} else {
		stats["total_rooms"] = dbStats["room_count"]
		stats["total_users"] = dbStats["user_count"]
		stats["total_drawings"] = dbStats["drawing_count"]
		stats["total_chat_messages"] = dbStats["chat_count"]
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomResponse struct {
	ID                string         `json:"id"`
	AdminID           string         `json:"admin_id"`
	Users             []model.Member `json:"users,omitempty"`
	MemberCount       int            `json:"member_count"`
	DrawingCount      int            `json:"drawing_count"`
	ActiveConnections int            `json:"active_connections"`
	CreatedAt         *time.Time     `json:"created_at,omitempty"`
	UpdatedAt         *time.Time     `json:"updated_at,omitempty"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	rooms, err := a.database.ListRooms(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Str("module", "api").Msg("failed to list rooms")
		errorResponse(w, http.StatusInternalServerError, "Failed to list rooms")
		return
	}

	activeRooms := a.hub.GetActiveRooms()

	response := make([]RoomResponse, len(rooms))
	for i, room := range rooms {
		createdAt, updatedAt := room.CreatedAt, room.UpdatedAt
		response[i] = RoomResponse{
			ID:                room.ID,
			AdminID:           room.AdminID,
			MemberCount:       room.MemberCount,
			DrawingCount:      room.DrawingCount,
			ActiveConnections: activeRooms[room.ID],
			CreatedAt:         &createdAt,
			UpdatedAt:         &updatedAt,
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms":  response,
		"limit":  limit,
		"offset": offset,
	})
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	room, err := a.database.GetRoom(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "api").Str("room", roomID).Msg("failed to get room")
		errorResponse(w, http.StatusInternalServerError, "Failed to get room")
		return
	}
	if room == nil {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	jsonResponse(w, http.StatusOK, RoomResponse{
		ID:                room.RoomID,
		AdminID:           room.AdminID,
		Users:             room.Users,
		MemberCount:       len(room.Users),
		DrawingCount:      len(room.Drawings),
		ActiveConnections: a.hub.RoomConnCount(roomID),
	})
}

func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	deleted, err := a.coordinator.DeleteRoom(r.Context(), roomID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}
	if !deleted {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}
