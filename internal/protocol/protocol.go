// Package protocol defines the JSON frames exchanged with whiteboard clients.
//
// Every frame is an Envelope. Inbound frames decode into one of a closed set of
// Inbound message types; outbound frames wrap an Event.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/apperr"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
)

// Inbound message types
const (
	TypeJoinRoom   = "joinRoom"
	TypeLeaveRoom  = "leaveRoom"
	TypeCursorMove = "cursorMove"
	TypeDraw       = "draw"
	TypeDrawShape  = "drawShape"
	TypeClear      = "clear"
	TypeUndo       = "undo"
	TypeRedo       = "redo"
	TypeChatSend   = "chat:send"
)

// Outbound-only message types
const (
	TypeAck         = "ack"
	TypeUserJoined  = "userJoined"
	TypeUserLeft    = "userLeft"
	TypeChatHistory = "chat:history"
	TypeChatNew     = "chat:new"
	TypeErrorMsg    = "errorMsg"
	TypeRoomDeleted = "roomDeleted"
)

// Envelope is the frame shape in both directions. Ack, when set on an inbound
// frame, asks for an ack frame carrying the same value.
type Envelope struct {
	Type string          `json:"type"`
	Ack  string          `json:"ack,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is implemented only by the message types in this package.
type Inbound interface {
	inbound()
}

type JoinRoom struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId" validate:"max=128"`
}

type CursorMove struct {
	RoomID string  `json:"roomId" validate:"max=128"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Draw is a freehand segment. Any createdBy the client sends is ignored.
type Draw struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Color string  `json:"color" validate:"max=64"`
	Size  float64 `json:"size" validate:"gte=0,lte=1000"`
}

type DrawShape struct {
	Draw
	Shape model.Shape `json:"shape" validate:"required,shape"`
}

type Clear struct{}

type Undo struct {
	RoomID string `json:"roomId" validate:"max=128"`
}

type Redo struct {
	RoomID string `json:"roomId" validate:"max=128"`
}

// ChatSend fields are checked by the session layer so that missing values
// come back as a rejected ack rather than a decode error.
type ChatSend struct {
	RoomID   string `json:"roomId"`
	Text     string `json:"text"`
	ClientID string `json:"clientId,omitempty" validate:"max=128"`
}

func (JoinRoom) inbound()   {}
func (LeaveRoom) inbound()  {}
func (CursorMove) inbound() {}
func (Draw) inbound()       {}
func (DrawShape) inbound()  {}
func (Clear) inbound()      {}
func (Undo) inbound()       {}
func (Redo) inbound()       {}
func (ChatSend) inbound()   {}

// Op converts a drawing message to a history entry stamped with createdBy.
func (d Draw) Op(createdBy string) model.DrawingOp {
	return model.DrawingOp{
		X0:        d.X0,
		Y0:        d.Y0,
		X1:        d.X1,
		Y1:        d.Y1,
		Color:     d.Color,
		Size:      d.Size,
		CreatedBy: createdBy,
	}
}

func (d DrawShape) Op(createdBy string) model.DrawingOp {
	op := d.Draw.Op(createdBy)
	op.Shape = d.Shape
	return op
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("shape", func(fl validator.FieldLevel) bool {
		return model.Shape(fl.Field().String()).Valid()
	})
	return v
}

// Decode parses one inbound frame. The envelope is returned even when the
// payload is rejected so the caller can still answer an ack.
func Decode(frame []byte) (Envelope, Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, nil, apperr.Wrap(apperr.Validation, "Malformed message", err)
	}

	var (
		msg Inbound
		err error
	)
	switch env.Type {
	case TypeJoinRoom:
		var m JoinRoom
		m.RoomID, err = decodeRoomID(env.Data)
		msg = m
	case TypeLeaveRoom:
		var m LeaveRoom
		m.RoomID, err = decodeRoomID(env.Data)
		msg = m
	case TypeUndo:
		var m Undo
		m.RoomID, err = decodeRoomID(env.Data)
		msg = m
	case TypeRedo:
		var m Redo
		m.RoomID, err = decodeRoomID(env.Data)
		msg = m
	case TypeCursorMove:
		var m CursorMove
		err = decodeObject(env.Data, &m)
		msg = m
	case TypeDraw:
		var m Draw
		err = decodeObject(env.Data, &m)
		msg = m
	case TypeDrawShape:
		var m DrawShape
		err = decodeObject(env.Data, &m)
		msg = m
	case TypeClear:
		msg = Clear{}
	case TypeChatSend:
		var m ChatSend
		err = decodeObject(env.Data, &m)
		msg = m
	default:
		return env, nil, apperr.New(apperr.Validation, fmt.Sprintf("Unknown message type %q", env.Type))
	}
	if err != nil {
		return env, nil, apperr.Wrap(apperr.Validation, "Malformed "+env.Type+" payload", err)
	}

	if err := validate.Struct(msg); err != nil {
		return env, nil, apperr.Wrap(apperr.Validation, "Invalid "+env.Type+" payload", err)
	}
	return env, msg, nil
}

// decodeRoomID accepts either a bare JSON string or {"roomId": "..."}.
func decodeRoomID(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var id string
		err := json.Unmarshal(data, &id)
		return id, err
	}
	var obj struct {
		RoomID string `json:"roomId"`
	}
	err := json.Unmarshal(data, &obj)
	return obj.RoomID, err
}

func decodeObject(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
