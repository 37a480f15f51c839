package protocol

import (
	"encoding/json"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
)

// Event is an outbound payload.
type Event interface {
	EventType() string
}

type UserJoined struct {
	UserID   string         `json:"userId"`
	Users    []model.Member `json:"users"`
	Username string         `json:"username"`
	AdminID  string         `json:"adminId"`
}

type UserLeft struct {
	UserID   string         `json:"userId"`
	Users    []model.Member `json:"users"`
	Username string         `json:"username"`
	AdminID  string         `json:"adminId"`
}

type CursorMoved struct {
	UserID   string  `json:"userId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
}

type Drawn struct {
	model.DrawingOp
}

type ShapeDrawn struct {
	model.DrawingOp
}

type Cleared struct{}

type Undone struct {
	Removed  model.DrawingOp   `json:"removed"`
	Drawings []model.DrawingOp `json:"drawings"`
}

type Redone struct {
	Added    model.DrawingOp   `json:"added"`
	Drawings []model.DrawingOp `json:"drawings"`
}

// ChatHistory is the recent chat window, oldest first.
type ChatHistory []model.ChatMessage

type ChatNew struct {
	model.ChatMessage
}

type ErrorMsg struct {
	Message string `json:"message"`
}

type RoomDeleted struct {
	RoomID string `json:"roomId"`
}

// Ack answers an inbound frame that carried an ack id.
type Ack struct {
	ID      string
	Payload interface{}
}

// JoinAck is the ack payload for joinRoom.
type JoinAck struct {
	OK      bool              `json:"ok"`
	History []model.DrawingOp `json:"history"`
	AdminID string            `json:"adminId"`
	Error   string            `json:"error,omitempty"`
}

// ChatAck is the ack payload for chat:send.
type ChatAck struct {
	OK      bool               `json:"ok"`
	Message *model.ChatMessage `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Result is the ack payload for every other message type.
type Result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (UserJoined) EventType() string  { return TypeUserJoined }
func (UserLeft) EventType() string    { return TypeUserLeft }
func (CursorMoved) EventType() string { return TypeCursorMove }
func (Drawn) EventType() string       { return TypeDraw }
func (ShapeDrawn) EventType() string  { return TypeDrawShape }
func (Cleared) EventType() string     { return TypeClear }
func (Undone) EventType() string      { return TypeUndo }
func (Redone) EventType() string      { return TypeRedo }
func (ChatHistory) EventType() string { return TypeChatHistory }
func (ChatNew) EventType() string     { return TypeChatNew }
func (ErrorMsg) EventType() string    { return TypeErrorMsg }
func (RoomDeleted) EventType() string { return TypeRoomDeleted }
func (Ack) EventType() string         { return TypeAck }

// Encode renders ev as a text frame.
func Encode(ev Event) ([]byte, error) {
	out := struct {
		Type string      `json:"type"`
		Ack  string      `json:"ack,omitempty"`
		Data interface{} `json:"data,omitempty"`
	}{Type: ev.EventType()}

	switch e := ev.(type) {
	case Ack:
		out.Ack = e.ID
		out.Data = e.Payload
	case Cleared:
	case ChatHistory:
		if e == nil {
			e = ChatHistory{}
		}
		out.Data = e
	default:
		out.Data = ev
	}
	return json.Marshal(out)
}
