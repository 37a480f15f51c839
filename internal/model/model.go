// Package model holds the whiteboard's persisted entities. No transport or locking here.
package model

import (
	"strings"
	"time"
)

const (
	// MaxChatLength is the number of characters a chat message is clipped to.
	MaxChatLength = 2000
)

// User is created on the first authenticated connection and never deleted.
type User struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// DefaultUsername derives a display name from the email local part.
func DefaultUsername(userID, email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	if email != "" {
		return email
	}
	return userID
}

// Member is one roster entry of a room.
type Member struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Shape names a drawable shape. The empty shape is a freehand segment.
type Shape string

const (
	ShapeNone       Shape = ""
	ShapeSquare     Shape = "square"
	ShapeRectangle  Shape = "rectangle"
	ShapeCircle     Shape = "circle"
	ShapeTriangle   Shape = "triangle"
	ShapeStar       Shape = "star"
	ShapePentagon   Shape = "pentagon"
	ShapeHexagon    Shape = "hexagon"
	ShapeArrowUp    Shape = "arrowUp"
	ShapeArrowDown  Shape = "arrowDown"
	ShapeArrowLeft  Shape = "arrowLeft"
	ShapeArrowRight Shape = "arrowRight"
)

var knownShapes = map[Shape]struct{}{
	ShapeSquare: {}, ShapeRectangle: {}, ShapeCircle: {}, ShapeTriangle: {},
	ShapeStar: {}, ShapePentagon: {}, ShapeHexagon: {},
	ShapeArrowUp: {}, ShapeArrowDown: {}, ShapeArrowLeft: {}, ShapeArrowRight: {},
}

// Valid reports whether s names a drawable shape.
func (s Shape) Valid() bool {
	_, ok := knownShapes[s]
	return ok
}

// DrawingOp is one unit of board history: a freehand segment or a shape.
type DrawingOp struct {
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Color     string  `json:"color"`
	Size      float64 `json:"size"`
	Shape     Shape   `json:"shape,omitempty"`
	CreatedBy string  `json:"createdBy"`
}

// IsShape reports whether the op is a shape rather than a freehand segment.
func (op DrawingOp) IsShape() bool {
	return op.Shape != ShapeNone
}

// Room is the durable room document.
type Room struct {
	RoomID   string      `json:"roomId"`
	Users    []Member    `json:"users"`
	Drawings []DrawingOp `json:"drawings"`
	AdminID  string      `json:"adminId"`
}

// HasMember reports whether userID is on the roster.
func (r *Room) HasMember(userID string) bool {
	return r.memberIndex(userID) >= 0
}

// UpsertMember adds the member, or refreshes the stored username if present.
// It reports whether the roster changed.
func (r *Room) UpsertMember(m Member) bool {
	if i := r.memberIndex(m.UserID); i >= 0 {
		if r.Users[i].Username == m.Username {
			return false
		}
		r.Users[i].Username = m.Username
		return true
	}
	r.Users = append(r.Users, m)
	return true
}

// RemoveMember drops userID from the roster and returns the removed entry.
func (r *Room) RemoveMember(userID string) (Member, bool) {
	i := r.memberIndex(userID)
	if i < 0 {
		return Member{}, false
	}
	m := r.Users[i]
	r.Users = append(r.Users[:i:i], r.Users[i+1:]...)
	return m, true
}

// PresentMembers returns the roster entries whose user currently has a live
// connection, in roster order.
func (r *Room) PresentMembers(isPresent func(userID string) bool) []Member {
	out := make([]Member, 0, len(r.Users))
	for _, m := range r.Users {
		if isPresent(m.UserID) {
			out = append(out, m)
		}
	}
	return out
}

// ResolveAdmin keeps the admin if they are still present, otherwise hands the
// slot to the first present member in roster order, or clears it.
// It reports whether AdminID changed.
func (r *Room) ResolveAdmin(present []Member) bool {
	for _, m := range present {
		if m.UserID == r.AdminID {
			return false
		}
	}
	next := ""
	if len(present) > 0 {
		next = present[0].UserID
	}
	if next == r.AdminID {
		return false
	}
	r.AdminID = next
	return true
}

func (r *Room) memberIndex(userID string) int {
	for i, m := range r.Users {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// ChatMessage is an append-only chat entry. Seq is the store's insertion order.
type ChatMessage struct {
	ID        string    `json:"_id"`
	Seq       int64     `json:"seq"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	ClientID  string    `json:"clientId,omitempty"`
}
