package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/apperr"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/auth"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/metrics"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/ratelimit"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// A client still over its frame budget after this many drops is closed.
	maxRateLimitWarnings = 1000
)

type Config struct {
	ReadLimit         int64
	SendBuffer        int
	MessagesPerSecond float64
	MessageBurst      int
	AllowedOrigins    []string
}

func DefaultConfig() Config {
	return Config{
		ReadLimit:         64 * 1024,
		SendBuffer:        256,
		MessagesPerSecond: 100,
		MessageBurst:      200,
		AllowedOrigins:    []string{"*"},
	}
}

// Server upgrades authenticated requests to websocket clients.
type Server struct {
	hub         *Hub
	coordinator *session.Coordinator
	resolver    auth.Resolver
	config      Config
	upgrader    websocket.Upgrader
}

func NewServer(hub *Hub, coordinator *session.Coordinator, resolver auth.Resolver, config Config) *Server {
	s := &Server{
		hub:         hub,
		coordinator: coordinator,
		resolver:    resolver,
		config:      config,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	id          string
	userID      string
	rateLimiter *ratelimit.Limiter
	coordinator *session.Coordinator

	// guarded by hub.mu
	rooms  map[string]bool
	closed bool
}

func writeHTTPError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolver.Resolve(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		metrics.AuthFailures.Inc()
		log.Info().Err(err).Str("module", "ws").Str("remote", r.RemoteAddr).Msg("handshake rejected")
		writeHTTPError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	connID := uuid.NewString()
	user, err := s.coordinator.Connect(r.Context(), connID, identity)
	if err != nil {
		writeHTTPError(w, http.StatusInternalServerError, apperr.ClientMessage(err))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", connID).Msg("upgrade failed")
		s.coordinator.Disconnect(context.Background(), connID)
		return
	}

	client := &Client{
		hub:         s.hub,
		conn:        conn,
		send:        make(chan []byte, s.config.SendBuffer),
		id:          connID,
		userID:      user.UserID,
		rateLimiter: ratelimit.NewLimiter(s.config.MessagesPerSecond, s.config.MessageBurst),
		coordinator: s.coordinator,
		rooms:       make(map[string]bool),
	}

	s.hub.Register(client)
	log.Info().Str("module", "ws").Str("conn", connID).Str("user", user.UserID).Msg("client connected")

	go client.writePump()
	go client.readPump(s.config.ReadLimit)
}

func (c *Client) readPump(readLimit int64) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.coordinator.Disconnect(context.Background(), c.id)
		log.Info().Str("module", "ws").Str("conn", c.id).Str("user", c.userID).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	rateLimitWarnings := 0

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "ws").Str("conn", c.id).Msg("websocket error")
			}
			break
		}

		if !c.rateLimiter.Allow() {
			rateLimitWarnings++
			metrics.DroppedFrames.WithLabelValues("rate_limited").Inc()
			if rateLimitWarnings%100 == 1 {
				log.Warn().Str("module", "ws").Str("conn", c.id).
					Int("warnings", rateLimitWarnings).Msg("rate limit exceeded")
			}
			if rateLimitWarnings > maxRateLimitWarnings {
				log.Warn().Str("module", "ws").Str("conn", c.id).Msg("disconnecting client for excessive rate limit violations")
				return
			}
			continue
		}

		c.dispatch(context.Background(), message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
