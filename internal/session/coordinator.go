// Package session coordinates connections, rooms and their shared state.
//
// Every operation that touches a room runs with that room's lock held from the
// first read to the last broadcast, so the order in which changes are persisted
// is the order in which peers see them.
package session

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/apperr"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/auth"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/metrics"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/presence"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/protocol"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/ratelimit"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/room"
)

// Store is the durable room and chat persistence.
type Store interface {
	LoadOrCreateRoom(ctx context.Context, roomID string) (*model.Room, error)
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	SaveRoster(ctx context.Context, roomID string, users []model.Member, adminID string) error
	AppendDrawing(ctx context.Context, roomID string, op model.DrawingOp) error
	TruncateDrawings(ctx context.Context, roomID string, keep int) error
	RoomsWithMember(ctx context.Context, userID string) ([]string, error)
	DeleteRoom(ctx context.Context, roomID string) (bool, error)
	InsertChatMessage(ctx context.Context, msg *model.ChatMessage) error
	RecentChatMessages(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error)
}

// Users resolves an identity to its stored user record.
type Users interface {
	Ensure(ctx context.Context, userID, email string) (model.User, error)
}

// Broadcaster fans events out to connections subscribed to a room.
type Broadcaster interface {
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
	CloseRoom(roomID string)
	ToRoom(roomID string, ev protocol.Event, exceptConnID string)
	ToConn(connID string, ev protocol.Event)
}

// ChatCache is an optional mirror of each room's recent chat window.
type ChatCache interface {
	Recent(ctx context.Context, roomID string) ([]model.ChatMessage, bool, error)
	Fill(ctx context.Context, roomID string, msgs []model.ChatMessage) error
	Append(ctx context.Context, msg model.ChatMessage) error
	Invalidate(ctx context.Context, roomID string) error
}

type Config struct {
	ChatMinInterval  time.Duration
	ChatMaxLength    int
	ChatHistoryLimit int
}

func DefaultConfig() Config {
	return Config{
		ChatMinInterval:  500 * time.Millisecond,
		ChatMaxLength:    model.MaxChatLength,
		ChatHistoryLimit: 50,
	}
}

// Deps are the collaborators a Coordinator is built from. ChatCache may be nil.
type Deps struct {
	Store     Store
	Users     Users
	Presence  *presence.Registry
	Rooms     *room.Manager
	Bus       Broadcaster
	ChatCache ChatCache
}

// JoinResult is what the joining connection alone receives.
type JoinResult struct {
	History []model.DrawingOp
	AdminID string
}

// ChatRequest is one chat send.
type ChatRequest struct {
	RoomID   string
	Text     string
	ClientID string
}

type connection struct {
	id       string
	userID   string
	username string
	room     string
}

type Coordinator struct {
	store     Store
	users     Users
	presence  *presence.Registry
	rooms     *room.Manager
	bus       Broadcaster
	chatCache ChatCache
	config    Config

	chatLimits *ratelimit.ClientLimiters

	mu    sync.RWMutex
	conns map[string]*connection

	// Rooms whose cached chat window may be missing a stored message. Reads
	// skip the cache for them until a refill lands.
	staleMu   sync.Mutex
	staleChat map[string]struct{}

	now   func() time.Time
	newID func() string
}

func New(deps Deps, config Config) *Coordinator {
	if config.ChatMaxLength <= 0 {
		config.ChatMaxLength = model.MaxChatLength
	}
	if config.ChatHistoryLimit <= 0 {
		config.ChatHistoryLimit = 50
	}
	if config.ChatMinInterval <= 0 {
		config.ChatMinInterval = 500 * time.Millisecond
	}
	return &Coordinator{
		store:      deps.Store,
		users:      deps.Users,
		presence:   deps.Presence,
		rooms:      deps.Rooms,
		bus:        deps.Bus,
		chatCache:  deps.ChatCache,
		staleChat:  make(map[string]struct{}),
		config:     config,
		chatLimits: ratelimit.NewClientIntervalLimiters(config.ChatMinInterval),
		conns:      make(map[string]*connection),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Close stops background work owned by the coordinator.
func (c *Coordinator) Close() {
	c.chatLimits.Stop()
}

// Connect registers an authenticated connection and makes its user present.
func (c *Coordinator) Connect(ctx context.Context, connID string, id auth.Identity) (model.User, error) {
	user, err := c.users.Ensure(ctx, id.UserID, id.Email)
	if err != nil {
		return model.User{}, err
	}

	c.presence.Add(connID, presence.Identity{UserID: user.UserID, Username: user.Username})

	c.mu.Lock()
	c.conns[connID] = &connection{id: connID, userID: user.UserID, username: user.Username}
	c.mu.Unlock()

	metrics.ActiveConnections.Inc()
	log.Debug().Str("module", "session").Str("conn", connID).Str("user", user.UserID).Msg("connected")
	return user, nil
}

func (c *Coordinator) lookup(connID string) (connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.conns[connID]
	if !ok {
		return connection{}, apperr.New(apperr.Authentication, "Connection is not authenticated")
	}
	return *conn, nil
}

func (c *Coordinator) activeRoom(connID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if conn, ok := c.conns[connID]; ok {
		return conn.room
	}
	return ""
}

// setActiveRoom records roomID as the connection's room and returns the previous one.
func (c *Coordinator) setActiveRoom(connID, roomID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conns[connID]
	if !ok {
		return ""
	}
	prev := conn.room
	conn.room = roomID
	return prev
}

// lockActiveRoom locks the connection's current room. It fails if the
// connection is in no room, or left it while waiting for the lock.
func (c *Coordinator) lockActiveRoom(connID string) (connection, *room.State, error) {
	conn, err := c.lookup(connID)
	if err != nil {
		return connection{}, nil, err
	}
	if conn.room == "" {
		return connection{}, nil, apperr.New(apperr.Validation, "Join a room first")
	}
	st := c.rooms.Lock(conn.room)
	if c.activeRoom(connID) != conn.room {
		c.rooms.Unlock(st)
		return connection{}, nil, apperr.New(apperr.Validation, "Join a room first")
	}
	return conn, st, nil
}

func (c *Coordinator) storageFailure(event, roomID string, err error) error {
	log.Error().Err(err).Str("module", "session").Str("event", event).Str("room", roomID).Msg("store operation failed")
	return apperr.Storage(err)
}

func (c *Coordinator) rejected(event string, err error) error {
	metrics.RoomErrors.WithLabelValues(event, apperr.KindOf(err).String()).Inc()
	return err
}

func observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// JoinRoom makes the connection a member of roomID and subscribes it. reply,
// if non-nil, is called with the room's history before any later change to
// the room can reach the connection.
func (c *Coordinator) JoinRoom(ctx context.Context, connID, roomID string, reply func(JoinResult)) error {
	if roomID == "" {
		return c.rejected(protocol.TypeJoinRoom, apperr.New(apperr.Validation, "roomId is required"))
	}
	conn, err := c.lookup(connID)
	if err != nil {
		return err
	}

	st := c.rooms.Lock(roomID)
	defer c.rooms.Unlock(st)

	start := time.Now()
	rm, err := c.store.LoadOrCreateRoom(ctx, roomID)
	observe("load_room", start)
	if err != nil {
		return c.rejected(protocol.TypeJoinRoom, c.storageFailure(protocol.TypeJoinRoom, roomID, err))
	}

	rm.UpsertMember(model.Member{UserID: conn.userID, Username: conn.username})
	present := rm.PresentMembers(c.presence.IsPresent)
	rm.ResolveAdmin(present)

	start = time.Now()
	err = c.store.SaveRoster(ctx, roomID, rm.Users, rm.AdminID)
	observe("save_roster", start)
	if err != nil {
		return c.rejected(protocol.TypeJoinRoom, c.storageFailure(protocol.TypeJoinRoom, roomID, err))
	}

	if prev := c.setActiveRoom(connID, roomID); prev != "" && prev != roomID {
		c.bus.Unsubscribe(connID, prev)
	}
	c.bus.Subscribe(connID, roomID)

	if reply != nil {
		reply(JoinResult{History: rm.Drawings, AdminID: rm.AdminID})
	}

	c.bus.ToRoom(roomID, protocol.UserJoined{
		UserID:   conn.userID,
		Users:    present,
		Username: conn.username,
		AdminID:  rm.AdminID,
	}, "")

	c.bus.ToConn(connID, protocol.ChatHistory(c.recentChat(ctx, roomID)))

	metrics.RoomEvents.WithLabelValues(protocol.TypeJoinRoom).Inc()
	log.Info().Str("module", "session").Str("room", roomID).Str("user", conn.userID).
		Str("admin", rm.AdminID).Int("present", len(present)).Msg("user joined room")
	return nil
}

// recentChat reads the chat window through the cache. A failure here does not
// fail the join; the joiner gets an empty window.
func (c *Coordinator) recentChat(ctx context.Context, roomID string) []model.ChatMessage {
	stale := c.isChatStale(roomID)
	if c.chatCache != nil && !stale {
		msgs, ok, err := c.chatCache.Recent(ctx, roomID)
		switch {
		case err != nil:
			metrics.ChatCacheLookups.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("module", "session").Str("room", roomID).Msg("chat cache read failed")
		case ok:
			metrics.ChatCacheLookups.WithLabelValues("hit").Inc()
			return msgs
		default:
			metrics.ChatCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	msgs, err := c.store.RecentChatMessages(ctx, roomID, c.config.ChatHistoryLimit)
	observe("recent_chat", start)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Str("room", roomID).Msg("chat history load failed")
		return []model.ChatMessage{}
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}

	if c.chatCache != nil && (stale || len(msgs) > 0) {
		if len(msgs) > 0 {
			err = c.chatCache.Fill(ctx, roomID, msgs)
		} else {
			err = c.chatCache.Invalidate(ctx, roomID)
		}
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Str("room", roomID).Msg("chat cache fill failed")
		} else if stale {
			c.setChatStale(roomID, false)
		}
	}
	return msgs
}

func (c *Coordinator) isChatStale(roomID string) bool {
	c.staleMu.Lock()
	defer c.staleMu.Unlock()
	_, ok := c.staleChat[roomID]
	return ok
}

func (c *Coordinator) setChatStale(roomID string, stale bool) {
	c.staleMu.Lock()
	defer c.staleMu.Unlock()
	if stale {
		c.staleChat[roomID] = struct{}{}
	} else {
		delete(c.staleChat, roomID)
	}
}

// LeaveRoom unsubscribes the connection. Roster and admin only change when the
// user's last connection goes away.
func (c *Coordinator) LeaveRoom(ctx context.Context, connID, roomID string) error {
	conn, err := c.lookup(connID)
	if err != nil {
		return err
	}
	if roomID == "" {
		roomID = conn.room
	}
	if roomID == "" {
		return nil
	}

	c.mu.Lock()
	if cur, ok := c.conns[connID]; ok && cur.room == roomID {
		cur.room = ""
	}
	c.mu.Unlock()

	c.bus.Unsubscribe(connID, roomID)
	metrics.RoomEvents.WithLabelValues(protocol.TypeLeaveRoom).Inc()
	return nil
}

// CursorMove relays a pointer position to the rest of the room.
func (c *Coordinator) CursorMove(connID, roomID string, x, y float64) error {
	conn, err := c.lookup(connID)
	if err != nil {
		return err
	}
	if conn.room == "" || (roomID != "" && roomID != conn.room) {
		return nil
	}
	c.bus.ToRoom(conn.room, protocol.CursorMoved{
		UserID:   conn.userID,
		X:        x,
		Y:        y,
		Username: conn.username,
	}, connID)
	return nil
}

// Draw appends a freehand segment to the connection's room.
func (c *Coordinator) Draw(ctx context.Context, connID string, op model.DrawingOp) error {
	op.Shape = model.ShapeNone
	return c.appendOp(ctx, protocol.TypeDraw, connID, op)
}

// DrawShape appends a shape to the connection's room.
func (c *Coordinator) DrawShape(ctx context.Context, connID string, op model.DrawingOp) error {
	if !op.Shape.Valid() {
		return c.rejected(protocol.TypeDrawShape, apperr.New(apperr.Validation, "Unknown shape"))
	}
	return c.appendOp(ctx, protocol.TypeDrawShape, connID, op)
}

func (c *Coordinator) appendOp(ctx context.Context, event, connID string, op model.DrawingOp) error {
	conn, st, err := c.lockActiveRoom(connID)
	if err != nil {
		return c.rejected(event, err)
	}
	defer c.rooms.Unlock(st)

	op.CreatedBy = conn.userID

	start := time.Now()
	err = c.store.AppendDrawing(ctx, conn.room, op)
	observe("append_drawing", start)
	if err != nil {
		return c.rejected(event, c.storageFailure(event, conn.room, err))
	}
	st.ClearRedo()

	var ev protocol.Event = protocol.Drawn{DrawingOp: op}
	if op.IsShape() {
		ev = protocol.ShapeDrawn{DrawingOp: op}
	}
	c.bus.ToRoom(conn.room, ev, connID)

	metrics.RoomEvents.WithLabelValues(event).Inc()
	return nil
}

// Clear empties the connection's room. Any member may clear.
func (c *Coordinator) Clear(ctx context.Context, connID string) error {
	conn, st, err := c.lockActiveRoom(connID)
	if err != nil {
		return c.rejected(protocol.TypeClear, err)
	}
	defer c.rooms.Unlock(st)

	start := time.Now()
	err = c.store.TruncateDrawings(ctx, conn.room, 0)
	observe("truncate_drawings", start)
	if err != nil {
		return c.rejected(protocol.TypeClear, c.storageFailure(protocol.TypeClear, conn.room, err))
	}
	st.ClearRedo()

	c.bus.ToRoom(conn.room, protocol.Cleared{}, "")

	metrics.RoomEvents.WithLabelValues(protocol.TypeClear).Inc()
	log.Info().Str("module", "session").Str("room", conn.room).Str("user", conn.userID).Msg("board cleared")
	return nil
}

// lockForAdmin locks roomID and loads it, failing unless the connection's user
// is the room's admin.
func (c *Coordinator) lockForAdmin(ctx context.Context, event, connID, roomID string) (*model.Room, *room.State, error) {
	conn, err := c.lookup(connID)
	if err != nil {
		return nil, nil, err
	}
	if roomID == "" {
		roomID = conn.room
	}
	if roomID == "" {
		return nil, nil, apperr.New(apperr.Validation, "roomId is required")
	}

	st := c.rooms.Lock(roomID)

	start := time.Now()
	rm, err := c.store.GetRoom(ctx, roomID)
	observe("get_room", start)
	if err != nil {
		c.rooms.Unlock(st)
		return nil, nil, c.storageFailure(event, roomID, err)
	}
	if rm == nil {
		// A room with no record has an empty history.
		c.rooms.Unlock(st)
		return nil, nil, apperr.New(apperr.Validation, "Nothing to "+event)
	}
	if rm.AdminID == "" || rm.AdminID != conn.userID {
		c.rooms.Unlock(st)
		return nil, nil, apperr.New(apperr.Authorization, "Only the room admin can "+event)
	}
	return rm, st, nil
}

// Undo removes the newest op from roomID's history. Admin only.
func (c *Coordinator) Undo(ctx context.Context, connID, roomID string) error {
	rm, st, err := c.lockForAdmin(ctx, protocol.TypeUndo, connID, roomID)
	if err != nil {
		return c.rejected(protocol.TypeUndo, err)
	}
	defer c.rooms.Unlock(st)

	n := len(rm.Drawings)
	if n == 0 {
		return c.rejected(protocol.TypeUndo, apperr.New(apperr.Validation, "Nothing to undo"))
	}
	removed := rm.Drawings[n-1]
	remaining := rm.Drawings[:n-1]

	start := time.Now()
	err = c.store.TruncateDrawings(ctx, rm.RoomID, n-1)
	observe("truncate_drawings", start)
	if err != nil {
		return c.rejected(protocol.TypeUndo, c.storageFailure(protocol.TypeUndo, rm.RoomID, err))
	}
	st.PushRedo(removed)

	c.bus.ToRoom(rm.RoomID, protocol.Undone{Removed: removed, Drawings: remaining}, "")

	metrics.RoomEvents.WithLabelValues(protocol.TypeUndo).Inc()
	return nil
}

// Redo re-applies the most recently undone op. Admin only.
func (c *Coordinator) Redo(ctx context.Context, connID, roomID string) error {
	rm, st, err := c.lockForAdmin(ctx, protocol.TypeRedo, connID, roomID)
	if err != nil {
		return c.rejected(protocol.TypeRedo, err)
	}
	defer c.rooms.Unlock(st)

	op, ok := st.PopRedo()
	if !ok {
		return c.rejected(protocol.TypeRedo, apperr.New(apperr.Validation, "Nothing to redo"))
	}

	start := time.Now()
	err = c.store.AppendDrawing(ctx, rm.RoomID, op)
	observe("append_drawing", start)
	if err != nil {
		st.PushRedo(op)
		return c.rejected(protocol.TypeRedo, c.storageFailure(protocol.TypeRedo, rm.RoomID, err))
	}

	drawings := append(rm.Drawings[:len(rm.Drawings):len(rm.Drawings)], op)
	c.bus.ToRoom(rm.RoomID, protocol.Redone{Added: op, Drawings: drawings}, "")

	metrics.RoomEvents.WithLabelValues(protocol.TypeRedo).Inc()
	return nil
}

// SendChat persists and broadcasts one chat message and returns the stored copy.
func (c *Coordinator) SendChat(ctx context.Context, connID string, req ChatRequest) (model.ChatMessage, error) {
	conn, err := c.lookup(connID)
	if err != nil {
		return model.ChatMessage{}, err
	}

	text := strings.TrimSpace(req.Text)
	switch {
	case req.RoomID == "":
		return model.ChatMessage{}, c.rejected(protocol.TypeChatSend, apperr.New(apperr.Validation, "roomId is required"))
	case text == "":
		return model.ChatMessage{}, c.rejected(protocol.TypeChatSend, apperr.New(apperr.Validation, "Message text is required"))
	case req.RoomID != conn.room:
		return model.ChatMessage{}, c.rejected(protocol.TypeChatSend, apperr.New(apperr.Validation, "Join the room before chatting"))
	}

	// Charged only once the message is stored.
	if !c.chatLimits.Ready(connID) {
		return model.ChatMessage{}, c.rejected(protocol.TypeChatSend, apperr.New(apperr.RateLimited, "You are sending messages too quickly"))
	}

	text = clip(text, c.config.ChatMaxLength)

	st := c.rooms.Lock(req.RoomID)
	defer c.rooms.Unlock(st)

	msg := model.ChatMessage{
		ID:        c.newID(),
		RoomID:    req.RoomID,
		UserID:    conn.userID,
		Username:  conn.username,
		Text:      text,
		CreatedAt: c.now().UTC().Truncate(time.Millisecond),
		ClientID:  req.ClientID,
	}

	start := time.Now()
	err = c.store.InsertChatMessage(ctx, &msg)
	observe("insert_chat", start)
	if err != nil {
		return model.ChatMessage{}, c.rejected(protocol.TypeChatSend, c.storageFailure(protocol.TypeChatSend, req.RoomID, err))
	}
	c.chatLimits.Allow(connID)

	if c.chatCache != nil {
		if err := c.chatCache.Append(ctx, msg); err != nil {
			// The stored window now has a message the cached one lacks.
			log.Warn().Err(err).Str("module", "session").Str("room", req.RoomID).Msg("chat cache append failed")
			c.setChatStale(req.RoomID, true)
			if err := c.chatCache.Invalidate(ctx, req.RoomID); err != nil {
				log.Warn().Err(err).Str("module", "session").Str("room", req.RoomID).Msg("chat cache invalidate failed")
			}
		}
	}

	c.bus.ToRoom(req.RoomID, protocol.ChatNew{ChatMessage: msg}, "")

	metrics.ChatMessages.Inc()
	return msg, nil
}

// clip shortens s to at most max characters.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Disconnect forgets a connection. When it was the user's last one, the user
// is removed from every roster they are on and admins are re-elected.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	c.mu.Lock()
	conn, ok := c.conns[connID]
	delete(c.conns, connID)
	c.mu.Unlock()
	if !ok {
		return
	}

	metrics.ActiveConnections.Dec()
	c.chatLimits.Remove(connID)
	if conn.room != "" {
		c.bus.Unsubscribe(connID, conn.room)
	}

	id, last, ok := c.presence.Remove(connID)
	if !ok || !last {
		log.Debug().Str("module", "session").Str("conn", connID).Str("user", conn.userID).Msg("connection closed")
		return
	}

	start := time.Now()
	roomIDs, err := c.store.RoomsWithMember(ctx, id.UserID)
	observe("rooms_with_member", start)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Str("user", id.UserID).Msg("failed to load rooms for departing user")
		return
	}

	for _, roomID := range roomIDs {
		c.leaveRoster(ctx, roomID, id)
	}
	log.Info().Str("module", "session").Str("user", id.UserID).Int("rooms", len(roomIDs)).Msg("user left")
}

func (c *Coordinator) leaveRoster(ctx context.Context, roomID string, id presence.Identity) {
	st := c.rooms.Lock(roomID)
	defer c.rooms.Unlock(st)

	// The user may have reconnected while we waited for the lock.
	if c.presence.IsPresent(id.UserID) {
		return
	}

	rm, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		c.storageFailure("disconnect", roomID, err)
		return
	}
	if rm == nil {
		return
	}
	if _, ok := rm.RemoveMember(id.UserID); !ok {
		return
	}
	present := rm.PresentMembers(c.presence.IsPresent)
	rm.ResolveAdmin(present)

	start := time.Now()
	err = c.store.SaveRoster(ctx, roomID, rm.Users, rm.AdminID)
	observe("save_roster", start)
	if err != nil {
		c.storageFailure("disconnect", roomID, err)
		return
	}

	c.bus.ToRoom(roomID, protocol.UserLeft{
		UserID:   id.UserID,
		Users:    present,
		Username: id.Username,
		AdminID:  rm.AdminID,
	}, "")
}

// DeleteRoom removes roomID's document, tells its subscribers and drops every
// subscription and volatile state tied to it. It reports whether the room existed.
func (c *Coordinator) DeleteRoom(ctx context.Context, roomID string) (bool, error) {
	st := c.rooms.Lock(roomID)
	defer c.rooms.Unlock(st)

	start := time.Now()
	deleted, err := c.store.DeleteRoom(ctx, roomID)
	observe("delete_room", start)
	if err != nil {
		return false, c.storageFailure("deleteRoom", roomID, err)
	}
	if !deleted {
		return false, nil
	}

	c.bus.ToRoom(roomID, protocol.RoomDeleted{RoomID: roomID}, "")
	c.bus.CloseRoom(roomID)
	st.ClearRedo()

	c.mu.Lock()
	for _, conn := range c.conns {
		if conn.room == roomID {
			conn.room = ""
		}
	}
	c.mu.Unlock()

	metrics.RoomEvents.WithLabelValues("deleteRoom").Inc()
	log.Info().Str("module", "session").Str("room", roomID).Msg("room deleted")
	return true, nil
}

// ActiveRoom reports the room a connection is currently in.
func (c *Coordinator) ActiveRoom(connID string) string {
	return c.activeRoom(connID)
}

// Connections is the number of registered connections.
func (c *Coordinator) Connections() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

// OnlineUsers is the number of distinct users with at least one connection.
func (c *Coordinator) OnlineUsers() int {
	users, _ := c.presence.Stats()
	return users
}
