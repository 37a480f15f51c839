package ws

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/apperr"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/metrics"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/protocol"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/session"
)

// dispatch decodes one frame and runs it against the coordinator.
func (c *Client) dispatch(ctx context.Context, frame []byte) {
	env, msg, err := protocol.Decode(frame)
	if err != nil {
		metrics.DroppedFrames.WithLabelValues("malformed").Inc()
		log.Debug().Err(err).Str("module", "ws").Str("conn", c.id).Msg("rejected frame")
		c.reply(env, nil, err)
		return
	}

	var result interface{}
	switch m := msg.(type) {
	case protocol.JoinRoom:
		// The join ack is always sent, from inside the room lock, so that it
		// reaches the client ahead of any later change to the room.
		err = c.coordinator.JoinRoom(ctx, c.id, m.RoomID, func(res session.JoinResult) {
			c.hub.ToConn(c.id, protocol.Ack{ID: env.Ack, Payload: protocol.JoinAck{
				OK:      true,
				History: res.History,
				AdminID: res.AdminID,
			}})
		})
		if err == nil {
			return
		}
	case protocol.LeaveRoom:
		err = c.coordinator.LeaveRoom(ctx, c.id, m.RoomID)
	case protocol.CursorMove:
		err = c.coordinator.CursorMove(c.id, m.RoomID, m.X, m.Y)
	case protocol.Draw:
		err = c.coordinator.Draw(ctx, c.id, m.Op(c.userID))
	case protocol.DrawShape:
		err = c.coordinator.DrawShape(ctx, c.id, m.Op(c.userID))
	case protocol.Clear:
		err = c.coordinator.Clear(ctx, c.id)
	case protocol.Undo:
		err = c.coordinator.Undo(ctx, c.id, m.RoomID)
	case protocol.Redo:
		err = c.coordinator.Redo(ctx, c.id, m.RoomID)
	case protocol.ChatSend:
		var stored model.ChatMessage
		stored, err = c.coordinator.SendChat(ctx, c.id, session.ChatRequest{
			RoomID:   m.RoomID,
			Text:     m.Text,
			ClientID: m.ClientID,
		})
		if err == nil {
			result = protocol.ChatAck{OK: true, Message: &stored}
		}
	}

	c.reply(env, result, err)
}

// reply answers a handled frame. Failures go to this client only: as a
// rejected ack when the frame asked for one, otherwise as errorMsg.
func (c *Client) reply(env protocol.Envelope, result interface{}, err error) {
	if err != nil {
		if apperr.KindOf(err) == apperr.Persistence || apperr.KindOf(err) == apperr.Internal {
			log.Warn().Err(err).Str("module", "ws").Str("conn", c.id).Str("type", env.Type).Msg("request failed")
		}
		if env.Ack != "" {
			c.hub.ToConn(c.id, protocol.Ack{ID: env.Ack, Payload: protocol.Result{Error: apperr.ClientMessage(err)}})
			return
		}
		c.hub.ToConn(c.id, protocol.ErrorMsg{Message: apperr.ClientMessage(err)})
		return
	}

	if env.Ack == "" {
		return
	}
	if result == nil {
		result = protocol.Result{OK: true}
	}
	c.hub.ToConn(c.id, protocol.Ack{ID: env.Ack, Payload: result})
}
