package session

import (
	"context"
	"errors"
	"sync"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/protocol"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store. Operations named in fail return errStoreDown.
type memStore struct {
	mu    sync.Mutex
	rooms map[string]*model.Room
	chat  []model.ChatMessage
	fail  map[string]bool
	seq   int64
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]*model.Room), fail: make(map[string]bool)}
}

func (s *memStore) failOn(op string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = on
}

func clone(r *model.Room) *model.Room {
	return &model.Room{
		RoomID:   r.RoomID,
		Users:    append([]model.Member{}, r.Users...),
		Drawings: append([]model.DrawingOp{}, r.Drawings...),
		AdminID:  r.AdminID,
	}
}

func (s *memStore) ensure(roomID string) *model.Room {
	r, ok := s.rooms[roomID]
	if !ok {
		r = &model.Room{RoomID: roomID, Users: []model.Member{}, Drawings: []model.DrawingOp{}}
		s.rooms[roomID] = r
	}
	return r
}

func (s *memStore) LoadOrCreateRoom(ctx context.Context, roomID string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["LoadOrCreateRoom"] {
		return nil, errStoreDown
	}
	return clone(s.ensure(roomID)), nil
}

func (s *memStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["GetRoom"] {
		return nil, errStoreDown
	}
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return clone(r), nil
}

func (s *memStore) SaveRoster(ctx context.Context, roomID string, users []model.Member, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["SaveRoster"] {
		return errStoreDown
	}
	r := s.ensure(roomID)
	r.Users = append([]model.Member{}, users...)
	r.AdminID = adminID
	return nil
}

func (s *memStore) AppendDrawing(ctx context.Context, roomID string, op model.DrawingOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["AppendDrawing"] {
		return errStoreDown
	}
	r := s.ensure(roomID)
	r.Drawings = append(r.Drawings, op)
	return nil
}

func (s *memStore) TruncateDrawings(ctx context.Context, roomID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["TruncateDrawings"] {
		return errStoreDown
	}
	if r, ok := s.rooms[roomID]; ok && keep < len(r.Drawings) {
		r.Drawings = r.Drawings[:keep]
	}
	return nil
}

func (s *memStore) RoomsWithMember(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["RoomsWithMember"] {
		return nil, errStoreDown
	}
	var ids []string
	for id, r := range s.rooms {
		if r.HasMember(userID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) DeleteRoom(ctx context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["DeleteRoom"] {
		return false, errStoreDown
	}
	_, ok := s.rooms[roomID]
	delete(s.rooms, roomID)
	return ok, nil
}

func (s *memStore) InsertChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["InsertChatMessage"] {
		return errStoreDown
	}
	s.seq++
	msg.Seq = s.seq
	s.chat = append(s.chat, *msg)
	return nil
}

func (s *memStore) RecentChatMessages(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail["RecentChatMessages"] {
		return nil, errStoreDown
	}
	var out []model.ChatMessage
	for _, m := range s.chat {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) room(roomID string) *model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return clone(r)
}

func (s *memStore) chatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chat)
}

// recordingBus delivers synchronously into per-connection inboxes.
type recordingBus struct {
	mu    sync.Mutex
	subs  map[string]map[string]bool
	inbox map[string][]protocol.Event
}

func newRecordingBus() *recordingBus {
	return &recordingBus{
		subs:  make(map[string]map[string]bool),
		inbox: make(map[string][]protocol.Event),
	}
}

func (b *recordingBus) Subscribe(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[string]bool)
	}
	b.subs[roomID][connID] = true
}

func (b *recordingBus) Unsubscribe(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[roomID], connID)
}

func (b *recordingBus) CloseRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, roomID)
}

func (b *recordingBus) ToRoom(roomID string, ev protocol.Event, except string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.subs[roomID] {
		if conn != except {
			b.inbox[conn] = append(b.inbox[conn], ev)
		}
	}
}

func (b *recordingBus) ToConn(connID string, ev protocol.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox[connID] = append(b.inbox[connID], ev)
}

func (b *recordingBus) subscribed(connID, roomID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[roomID][connID]
}

// drain returns and clears connID's received events.
func (b *recordingBus) drain(connID string) []protocol.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	evs := b.inbox[connID]
	delete(b.inbox, connID)
	return evs
}

func (b *recordingBus) drainAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox = make(map[string][]protocol.Event)
}

// ofType filters events by wire type.
func ofType(evs []protocol.Event, typ string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range evs {
		if ev.EventType() == typ {
			out = append(out, ev)
		}
	}
	return out
}

type staticUsers struct{}

func (staticUsers) Ensure(ctx context.Context, userID, email string) (model.User, error) {
	return model.User{UserID: userID, Email: email, Username: model.DefaultUsername(userID, email)}, nil
}

// fakeCache is an in-memory ChatCache.
type fakeCache struct {
	mu      sync.Mutex
	windows map[string][]model.ChatMessage
	reads   int
	fail    bool
}

func (c *fakeCache) Recent(ctx context.Context, roomID string) ([]model.ChatMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.fail {
		return nil, false, errStoreDown
	}
	w, ok := c.windows[roomID]
	return append([]model.ChatMessage{}, w...), ok, nil
}

func (c *fakeCache) Fill(ctx context.Context, roomID string, msgs []model.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.windows == nil {
		c.windows = make(map[string][]model.ChatMessage)
	}
	c.windows[roomID] = append([]model.ChatMessage{}, msgs...)
	return nil
}

func (c *fakeCache) Append(ctx context.Context, msg model.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.windows[msg.RoomID]; ok {
		c.windows[msg.RoomID] = append(w, msg)
	}
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.windows, roomID)
	return nil
}
