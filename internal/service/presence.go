package service

import (
	"encoding/json"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/model"
	"github.com/sakif/whiteboard/internal/protocol"
)

// Presence relays are ephemeral. They never touch a room's shapes and do not
// count as room activity for garbage collection.

// UpdateCursor records the session's cursor and relays it to the room.
func (r *Registry) UpdateCursor(sessionID string, cursor model.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, user, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}
	user.Cursor = cursor

	r.relayLocked(room, sessionID, protocol.EventCursorMove, protocol.CursorMoved{
		UserID:   sessionID,
		Username: user.Username,
		Color:    user.Color,
		Cursor:   cursor,
	})
	return nil
}

// UpdateTool relays the session's tool name verbatim. Any string is
// accepted.
func (r *Registry) UpdateTool(sessionID, tool string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, user, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}

	r.relayLocked(room, sessionID, protocol.EventToolChanged, protocol.ToolChanged{
		UserID:   sessionID,
		Username: user.Username,
		Tool:     tool,
	})
	return nil
}

// RelayDrawing forwards an in-progress stroke frame. event must be one of
// drawing-start, drawing-progress or drawing-end; data is passed through
// untouched. Only drawing-start carries the username.
func (r *Registry) RelayDrawing(sessionID, event string, data json.RawMessage) error {
	if !protocol.IsDrawingEvent(event) {
		return apperror.ValidationFailed("event", "unknown drawing event "+event)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, user, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}

	relay := protocol.DrawingRelay{UserID: sessionID, DrawingData: data}
	if event == protocol.EventDrawingStart {
		relay.Username = user.Username
	}
	r.relayLocked(room, sessionID, event, relay)
	return nil
}
