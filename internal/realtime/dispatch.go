package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/model"
	"github.com/sakif/whiteboard/internal/protocol"
	"github.com/sakif/whiteboard/internal/service"
)

// Rooms is the registry surface the dispatcher drives. *service.Registry
// implements it.
type Rooms interface {
	Connect(sessionID string, sink service.Sink)
	Disconnect(sessionID string)
	JoinRoom(roomID, username, sessionID string) (*service.JoinResult, error)
	AddShape(sessionID string, shape model.Shape) error
	UpdateShape(sessionID string, shape model.Shape) error
	DeleteShape(sessionID string, shapeID model.ShapeID) error
	ClearShapes(sessionID string) error
	UpdateCursor(sessionID string, cursor model.Point) error
	UpdateTool(sessionID, tool string) error
	RelayDrawing(sessionID, event string, data json.RawMessage) error
}

// Dispatcher turns inbound frames into registry calls. Failures are
// reported to the sending session as an "error" event and never end the
// connection.
type Dispatcher struct {
	rooms  Rooms
	logger *slog.Logger
}

func NewDispatcher(rooms Rooms, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{rooms: rooms, logger: logger}
}

// Handle processes one raw frame from conn.
func (d *Dispatcher) Handle(conn *Conn, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic while handling frame",
				slog.String("sessionId", conn.ID()),
				slog.String("panic", fmt.Sprint(rec)),
			)
			d.reply(conn, protocol.EventError, protocol.ErrorMessage{Message: "internal error"})
		}
	}()

	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		d.fail(conn, "", apperror.ValidationFailed("event", "malformed message"))
		return
	}

	if err := d.dispatch(conn, env); err != nil {
		d.fail(conn, env.Event, err)
	}
}

func (d *Dispatcher) dispatch(conn *Conn, env protocol.Envelope) error {
	id := conn.ID()

	switch env.Event {
	case protocol.EventJoinRoom:
		var req protocol.JoinRoomRequest
		if err := decode(env, &req); err != nil {
			return err
		}
		// room-joined is delivered by the registry itself
		_, err := d.rooms.JoinRoom(req.RoomID, req.Username, id)
		return err

	case protocol.EventShapeAdded, protocol.EventShapeUpdated:
		var req protocol.ShapeRequest
		if err := decode(env, &req); err != nil {
			return err
		}
		if env.Event == protocol.EventShapeAdded {
			return d.rooms.AddShape(id, req.Shape)
		}
		return d.rooms.UpdateShape(id, req.Shape)

	case protocol.EventShapeDeleted:
		var req protocol.ShapeDeleteRequest
		if err := decode(env, &req); err != nil {
			return err
		}
		return d.rooms.DeleteShape(id, req.ShapeID)

	case protocol.EventCanvasCleared:
		return d.rooms.ClearShapes(id)

	case protocol.EventCursorMove:
		var req protocol.CursorRequest
		if err := decode(env, &req); err != nil {
			return err
		}
		return d.rooms.UpdateCursor(id, req.Cursor)

	case protocol.EventToolChanged:
		var req protocol.ToolRequest
		if err := decode(env, &req); err != nil {
			return err
		}
		return d.rooms.UpdateTool(id, req.Tool)

	case protocol.EventDrawingStart, protocol.EventDrawingProgress, protocol.EventDrawingEnd:
		return d.rooms.RelayDrawing(id, env.Event, env.Data)

	case protocol.EventPing:
		if len(env.Data) == 0 {
			d.reply(conn, protocol.EventPong, nil)
		} else {
			d.reply(conn, protocol.EventPong, env.Data)
		}
		return nil

	default:
		return apperror.ValidationFailed("event", fmt.Sprintf("unknown event %q", env.Event))
	}
}

func decode(env protocol.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return apperror.ValidationFailed("data", fmt.Sprintf("malformed %s payload: %v", env.Event, err))
	}
	return nil
}

func (d *Dispatcher) fail(conn *Conn, event string, err error) {
	d.logger.Debug("event rejected",
		slog.String("sessionId", conn.ID()),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
	msg := apperror.Message(err, "Failed to process "+event)
	d.reply(conn, protocol.EventError, protocol.ErrorMessage{Message: msg})
}

func (d *Dispatcher) reply(conn *Conn, event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		d.logger.Error("failed to encode reply", slog.String("error", err.Error()))
		return
	}
	conn.Deliver(frame)
}
