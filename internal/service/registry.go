// Package service holds the authoritative server-side state: rooms, the
// sessions attached to them, presence relays and room garbage collection.
//
// SINGLE LOGICAL SEQUENCE:
// Every Registry method takes one registry-wide mutex and runs to completion
// before the next starts, whichever connection it came from. A room's state
// is therefore never torn, and the order relays go out in is the order the
// registry processed the events.
//
// RELAYS:
// Mutations are relayed to every *other* session in the room through its
// Sink. Sinks must not block (a websocket connection queues the frame or
// drops itself when its buffer is full), so relaying under the lock is safe.
//
// CONSISTENCY:
// Last writer wins. Two sessions updating the same shape id race, and the
// update processed last replaces the other wholesale. There is no merge.
package service

import (
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/clock"
	"github.com/sakif/whiteboard/internal/model"
	"github.com/sakif/whiteboard/internal/protocol"
)

// Sink is the outbound side of one session. Deliver must not block.
type Sink interface {
	Deliver(frame []byte)
}

// Rand picks palette colours. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// JoinResult is returned to the joining session only.
type JoinResult struct {
	Room     *model.Room
	Presence model.Presence
}

// Stats is a point-in-time count for health reporting.
type Stats struct {
	ActiveRooms int `json:"activeRooms"`
	ActiveUsers int `json:"activeUsers"`
}

type session struct {
	id     string
	sink   Sink
	roomID string // "" until joined
}

// Registry owns every room and every connected session.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*model.Room
	sessions map[string]*session

	newID   func() string
	rand    Rand
	clock   clock.Clock
	logger  *slog.Logger
	emptied []func(roomID string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the room id generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithRand replaces the colour picker's random source.
func WithRand(rnd Rand) Option {
	return func(r *Registry) { r.rand = rnd }
}

// WithClock replaces the wall clock used for activity stamps, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithLogger sets the logger for room lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty registry. Without options it uses xid room
// ids, an unseeded random source, the wall clock and slog.Default.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:    make(map[string]*model.Room),
		sessions: make(map[string]*session),
		newID:    model.NewRoomID,
		rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock:    clock.Real(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnRoomEmptied registers fn to run whenever a room's user count drops to
// zero. fn runs after the registry lock is released, so it may call back
// into the registry.
func (r *Registry) OnRoomEmptied(fn func(roomID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emptied = append(r.emptied, fn)
}

// === Rooms ===

// CreateRoom allocates a room with a fresh id. A blank name becomes
// "Room <id>".
func (r *Registry) CreateRoom(name string) *model.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Room " + id
	}
	now := r.clock.Now()
	room := &model.Room{
		ID:           id,
		Name:         name,
		Shapes:       []model.Shape{},
		Users:        []model.Presence{},
		CreatedAt:    now,
		LastActivity: now,
	}
	r.rooms[id] = room

	r.logger.Info("room created", slog.String("roomId", id), slog.String("name", name))
	return room.Clone()
}

// GetRoom returns a copy of the room.
func (r *Registry) GetRoom(id string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, apperror.NotFound("room", id)
	}
	return room.Clone(), nil
}

// ListRooms returns a summary per room, oldest first.
func (r *Registry) ListRooms() []model.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]*model.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	out := make([]model.RoomSummary, len(rooms))
	for i, room := range rooms {
		out[i] = room.Summary()
	}
	return out
}

// Stats counts rooms and sessions currently inside a room.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := 0
	for _, s := range r.sessions {
		if s.roomID != "" {
			users++
		}
	}
	return Stats{ActiveRooms: len(r.rooms), ActiveUsers: users}
}

// === Sessions ===

// Connect registers the outbound sink for a session. Reconnecting an id
// swaps the sink and keeps any room binding.
func (r *Registry) Connect(sessionID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.sink = sink
		return
	}
	r.sessions[sessionID] = &session{id: sessionID, sink: sink}
}

// Disconnect is an implicit Leave followed by forgetting the session.
func (r *Registry) Disconnect(sessionID string) {
	r.mu.Lock()
	emptied := r.leaveLocked(sessionID)
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	r.notifyEmptied(emptied)
}

// JoinRoom attaches a session to a room. The full room state goes to the
// joining session only, both as the return value and as a room-joined frame
// on its sink; the rest of the room gets user-joined. Joining is idempotent per session id: a repeat join
// replaces the session's presence in place. A session attached to another
// room leaves that room first.
func (r *Registry) JoinRoom(roomID, username, sessionID string) (*JoinResult, error) {
	roomID = strings.TrimSpace(roomID)
	username = strings.TrimSpace(username)
	if roomID == "" || username == "" {
		return nil, apperror.ValidationFailed("roomId", "Room ID and username are required")
	}

	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, apperror.NotFound("room", roomID)
	}

	s := r.sessionLocked(sessionID)
	var emptied string
	if s.roomID != "" && s.roomID != roomID {
		emptied = r.leaveLocked(sessionID)
	}

	now := r.clock.Now()
	presence := model.Presence{
		SessionID: sessionID,
		Username:  username,
		Color:     model.Palette[r.rand.IntN(len(model.Palette))],
		IsActive:  true,
		JoinedAt:  now,
	}
	if i := room.UserIndex(sessionID); i >= 0 {
		room.Users[i] = presence
	} else {
		room.Users = append(room.Users, presence)
	}
	room.LastActivity = now
	s.roomID = roomID

	result := &JoinResult{Room: room.Clone(), Presence: presence}
	// queued before any relay the joiner could otherwise see first
	r.deliverLocked(s, protocol.EventRoomJoined, protocol.RoomJoined{
		Room:   result.Room,
		UserID: sessionID,
		Shapes: result.Room.Shapes,
		Users:  result.Room.Users,
	})
	r.relayLocked(room, sessionID, protocol.EventUserJoined, protocol.UserJoined{
		User:       presence,
		TotalUsers: len(room.Users),
	})
	r.mu.Unlock()

	r.logger.Info("user joined room",
		slog.String("roomId", roomID),
		slog.String("sessionId", sessionID),
		slog.String("username", username),
	)
	r.notifyEmptied(emptied)
	return result, nil
}

// Leave detaches a session from its room. Leaving without a room is a
// no-op.
func (r *Registry) Leave(sessionID string) {
	r.mu.Lock()
	emptied := r.leaveLocked(sessionID)
	r.mu.Unlock()

	r.notifyEmptied(emptied)
}

// === Shapes ===

// AddShape stamps the shape with the acting user, appends it and relays it
// to the rest of the room.
func (r *Registry) AddShape(sessionID string, shape model.Shape) error {
	if err := shape.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, user, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}
	if room.ShapeIndex(shape.ID) >= 0 {
		return apperror.Conflict("shape", string(shape.ID))
	}

	now := r.clock.Now()
	stamped := shape.Clone()
	stamped.CreatedBy = user.Username
	stamped.CreatedAt = &now
	room.Shapes = append(room.Shapes, stamped)
	room.LastActivity = now

	r.relayLocked(room, sessionID, protocol.EventShapeAdded, protocol.ShapeRelay{
		Shape:  stamped,
		UserID: sessionID,
	})
	return nil
}

// UpdateShape replaces the shape with the same id wholesale and relays it.
// An unknown id is a no-op.
func (r *Registry) UpdateShape(sessionID string, shape model.Shape) error {
	if err := shape.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, user, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}
	i := room.ShapeIndex(shape.ID)
	if i < 0 {
		r.logger.Debug("update for unknown shape ignored",
			slog.String("roomId", room.ID),
			slog.String("shapeId", string(shape.ID)),
		)
		return nil
	}

	now := r.clock.Now()
	stamped := shape.Clone()
	stamped.LastModifiedBy = user.Username
	stamped.LastModifiedAt = &now
	room.Shapes[i] = stamped
	room.LastActivity = now

	r.relayLocked(room, sessionID, protocol.EventShapeUpdated, protocol.ShapeRelay{
		Shape:  stamped,
		UserID: sessionID,
	})
	return nil
}

// DeleteShape removes the shape if present and relays the id either way, so
// peers holding a stale copy drop it too.
func (r *Registry) DeleteShape(sessionID string, shapeID model.ShapeID) error {
	if err := shapeID.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, _, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}
	if i := room.ShapeIndex(shapeID); i >= 0 {
		room.Shapes = append(room.Shapes[:i], room.Shapes[i+1:]...)
	}
	room.LastActivity = r.clock.Now()

	r.relayLocked(room, sessionID, protocol.EventShapeDeleted, protocol.ShapeDeleted{
		ShapeID: shapeID,
		UserID:  sessionID,
	})
	return nil
}

// ClearShapes empties the room's canvas.
func (r *Registry) ClearShapes(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, user, err := r.actingLocked(sessionID)
	if err != nil {
		return err
	}
	room.Shapes = []model.Shape{}
	room.LastActivity = r.clock.Now()

	r.relayLocked(room, sessionID, protocol.EventCanvasCleared, protocol.CanvasCleared{
		UserID:    sessionID,
		ClearedBy: user.Username,
	})
	return nil
}

// === Garbage collection primitives ===

// DeleteIfEmpty removes the room if nobody is in it. It reports whether the
// room was deleted.
func (r *Registry) DeleteIfEmpty(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || len(room.Users) > 0 {
		return false
	}
	delete(r.rooms, roomID)
	return true
}

// SweepStale deletes every empty room whose last activity is more than
// maxAge ago and returns their ids.
func (r *Registry) SweepStale(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var deleted []string
	for id, room := range r.rooms {
		if len(room.Users) == 0 && now.Sub(room.LastActivity) > maxAge {
			delete(r.rooms, id)
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// === Internals (r.mu held) ===

func (r *Registry) sessionLocked(sessionID string) *session {
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{id: sessionID}
		r.sessions[sessionID] = s
	}
	return s
}

// actingLocked resolves the room and presence a session acts through.
func (r *Registry) actingLocked(sessionID string) (*model.Room, *model.Presence, error) {
	s, ok := r.sessions[sessionID]
	if !ok || s.roomID == "" {
		return nil, nil, apperror.ValidationFailed("roomId", "join a room first")
	}
	room, ok := r.rooms[s.roomID]
	if !ok {
		// collected out from under the session
		roomID := s.roomID
		s.roomID = ""
		return nil, nil, apperror.NotFound("room", roomID)
	}
	i := room.UserIndex(sessionID)
	if i < 0 {
		return nil, nil, apperror.ValidationFailed("roomId", "join a room first")
	}
	return room, &room.Users[i], nil
}

// leaveLocked removes the session's presence and returns the room id if
// the room just became empty.
func (r *Registry) leaveLocked(sessionID string) string {
	s, ok := r.sessions[sessionID]
	if !ok || s.roomID == "" {
		return ""
	}
	roomID := s.roomID
	s.roomID = ""

	room, ok := r.rooms[roomID]
	if !ok {
		return ""
	}
	i := room.UserIndex(sessionID)
	if i < 0 {
		return ""
	}
	user := room.Users[i]
	room.Users = append(room.Users[:i], room.Users[i+1:]...)
	room.LastActivity = r.clock.Now()

	r.relayLocked(room, sessionID, protocol.EventUserLeft, protocol.UserLeft{
		UserID:     sessionID,
		Username:   user.Username,
		TotalUsers: len(room.Users),
	})
	r.logger.Info("user left room",
		slog.String("roomId", roomID),
		slog.String("sessionId", sessionID),
		slog.Int("remaining", len(room.Users)),
	)

	if len(room.Users) == 0 {
		return roomID
	}
	return ""
}

// relayLocked sends event to every session in room except the sender.
func (r *Registry) relayLocked(room *model.Room, senderID, event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode relay",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, u := range room.Users {
		if u.SessionID == senderID {
			continue
		}
		if s, ok := r.sessions[u.SessionID]; ok && s.sink != nil {
			s.sink.Deliver(frame)
		}
	}
}

// deliverLocked sends event to one session.
func (r *Registry) deliverLocked(s *session, event string, payload any) {
	if s.sink == nil {
		return
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode frame",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	s.sink.Deliver(frame)
}

func (r *Registry) notifyEmptied(roomID string) {
	if roomID == "" {
		return
	}
	r.mu.Lock()
	hooks := append([]func(string){}, r.emptied...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(roomID)
	}
}
