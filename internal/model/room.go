package model

import (
	"time"

	"github.com/rs/xid"
)

// Palette is the fixed set of presence colours.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Presence is one connected participant inside a room. It lives exactly as
// long as the session stays attached.
//
// The session id is serialised as "id": that is what the browser client
// keys users by.
type Presence struct {
	SessionID string    `json:"id"`
	Username  string    `json:"username"`
	Color     string    `json:"color"`
	Cursor    Point     `json:"cursor"`
	IsActive  bool      `json:"isActive"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Room is a named, independent drawing session.
//
// Shapes keeps insertion order, which is also the paint order. Lookups by id
// are linear; a room's collection is bounded by what people draw by hand.
type Room struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Shapes       []Shape    `json:"shapes"`
	Users        []Presence `json:"users"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// RoomSummary is the list-view projection of a Room.
type RoomSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	UserCount    int       `json:"userCount"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewRoomID returns a fresh, globally unique room id.
func NewRoomID() string {
	return xid.New().String()
}

// ShapeIndex returns the position of the shape with the given id, or -1.
func (r *Room) ShapeIndex(id ShapeID) int {
	for i := range r.Shapes {
		if r.Shapes[i].ID == id {
			return i
		}
	}
	return -1
}

// UserIndex returns the position of the session's presence, or -1.
func (r *Room) UserIndex(sessionID string) int {
	for i := range r.Users {
		if r.Users[i].SessionID == sessionID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Room) Clone() *Room {
	out := *r
	out.Shapes = CloneShapes(r.Shapes)
	out.Users = make([]Presence, len(r.Users))
	copy(out.Users, r.Users)
	return &out
}

// Summary projects the room for listings.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:           r.ID,
		Name:         r.Name,
		UserCount:    len(r.Users),
		LastActivity: r.LastActivity,
	}
}
