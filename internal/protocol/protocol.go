// Package protocol defines the real-time event names and payloads exchanged
// between browsers (or the Go client) and the server.
//
// Every websocket text frame carries one Envelope:
//
//	{"event": "shape-added", "data": {"shape": {...}, "userId": "..."}}
//
// Client-to-server payloads are the *Request types. Server-to-client relays
// carry the acting session as "userId".
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/whiteboard/internal/model"
)

// Event names. Most are used in both directions.
const (
	EventJoinRoom        = "join-room"
	EventRoomJoined      = "room-joined"
	EventError           = "error"
	EventShapeAdded      = "shape-added"
	EventShapeUpdated    = "shape-updated"
	EventShapeDeleted    = "shape-deleted"
	EventCanvasCleared   = "canvas-cleared"
	EventCursorMove      = "cursor-move"
	EventDrawingStart    = "drawing-start"
	EventDrawingProgress = "drawing-progress"
	EventDrawingEnd      = "drawing-end"
	EventToolChanged     = "tool-changed"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventPing            = "ping"
	EventPong            = "pong"
)

// Envelope is one websocket frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps payload in an envelope and marshals it. A nil payload leaves
// "data" out.
func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Decode unmarshals an envelope's data into v. Missing data leaves v at its
// zero value.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// === Client to server ===

type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type ShapeRequest struct {
	Shape model.Shape `json:"shape"`
}

type ShapeDeleteRequest struct {
	ShapeID model.ShapeID `json:"shapeId"`
}

type CursorRequest struct {
	Cursor model.Point `json:"cursor"`
}

type ToolRequest struct {
	Tool string `json:"tool"`
}

// === Server to client ===

type RoomJoined struct {
	Room   *model.Room      `json:"room"`
	UserID string           `json:"userId"`
	Shapes []model.Shape    `json:"shapes"`
	Users  []model.Presence `json:"users"`
}

// Ping is the optional ping payload. The server echoes it in the pong, so a
// client can tell its own pong apart.
type Ping struct {
	Nonce string `json:"nonce,omitempty"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type ShapeRelay struct {
	Shape  model.Shape `json:"shape"`
	UserID string      `json:"userId"`
}

type ShapeDeleted struct {
	ShapeID model.ShapeID `json:"shapeId"`
	UserID  string        `json:"userId"`
}

type CanvasCleared struct {
	UserID    string `json:"userId"`
	ClearedBy string `json:"clearedBy"`
}

type CursorMoved struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Color    string      `json:"color"`
	Cursor   model.Point `json:"cursor"`
}

// DrawingRelay wraps whatever the sender put in a drawing-* frame; the
// server never looks inside drawingData. Username is only set on
// drawing-start.
type DrawingRelay struct {
	UserID      string          `json:"userId"`
	Username    string          `json:"username,omitempty"`
	DrawingData json.RawMessage `json:"drawingData"`
}

type ToolChanged struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Tool     string `json:"tool"`
}

type UserJoined struct {
	User       model.Presence `json:"user"`
	TotalUsers int            `json:"totalUsers"`
}

type UserLeft struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	TotalUsers int    `json:"totalUsers"`
}

// IsDrawingEvent reports whether event is one of the three stroke phases.
func IsDrawingEvent(event string) bool {
	switch event {
	case EventDrawingStart, EventDrawingProgress, EventDrawingEnd:
		return true
	}
	return false
}
