package canvas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/geometry"
	"github.com/sakif/whiteboard/internal/model"
	"github.com/sakif/whiteboard/internal/protocol"
)

type emitted struct {
	event   string
	payload any
}

// recordingEmitter captures everything the document sends.
type recordingEmitter struct {
	events []emitted
	err    error
}

func (r *recordingEmitter) Emit(event string, payload any) error {
	r.events = append(r.events, emitted{event, payload})
	return r.err
}

func (r *recordingEmitter) names() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

func circle(id string, x, y, r float64) model.Shape {
	return model.Shape{ID: model.ShapeID(id), X: x, Y: y, Fill: "#FF6B6B", Geometry: &model.Circle{Radius: r}}
}

func ids(shapes []model.Shape) []model.ShapeID {
	out := make([]model.ShapeID, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func envelope(t *testing.T, event string, payload any) protocol.Envelope {
	t.Helper()
	frame, err := protocol.Encode(event, payload)
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	return env
}

func TestDocument_LocalEditsEmit(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)

	require.NoError(t, doc.Add(circle("a", 0, 0, 10)))
	require.NoError(t, doc.Add(circle("b", 100, 0, 10)))

	moved := circle("a", 5, 5, 20)
	require.NoError(t, doc.Update(moved))
	require.NoError(t, doc.Delete("b"))
	require.NoError(t, doc.Clear())

	assert.Equal(t, []string{
		protocol.EventShapeAdded,
		protocol.EventShapeAdded,
		protocol.EventShapeUpdated,
		protocol.EventShapeDeleted,
		protocol.EventCanvasCleared,
	}, em.names())
	assert.Equal(t, protocol.ShapeDeleteRequest{ShapeID: "b"}, em.events[3].payload)
	assert.Empty(t, doc.Shapes())
}

func TestDocument_LocalEditErrors(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)
	require.NoError(t, doc.Add(circle("a", 0, 0, 10)))

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"duplicate add", func() error { return doc.Add(circle("a", 1, 1, 1)) }, apperror.ErrConflict},
		{"invalid add", func() error { return doc.Add(model.Shape{ID: "z"}) }, apperror.ErrValidation},
		{"update missing", func() error { return doc.Update(circle("nope", 0, 0, 1)) }, apperror.ErrNotFound},
		{"delete missing", func() error { return doc.Delete("nope") }, apperror.ErrNotFound},
		{"transform missing", func() error {
			return doc.TransformShape("nope", geometry.Transform{ScaleX: 1, ScaleY: 1})
		}, apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	assert.Len(t, em.events, 1, "failed edits must not emit")
	assert.Equal(t, []model.ShapeID{"a"}, ids(doc.Shapes()))
}

func TestDocument_EmitFailureKeepsLocalEdit(t *testing.T) {
	em := &recordingEmitter{err: errors.New("connection closed")}
	doc := NewDocument(em)

	err := doc.Add(circle("a", 0, 0, 10))
	assert.ErrorContains(t, err, "emitting shape-added")
	assert.Equal(t, []model.ShapeID{"a"}, ids(doc.Shapes()))
}

func TestDocument_OfflineWithoutEmitter(t *testing.T) {
	doc := NewDocument(nil)
	require.NoError(t, doc.Add(circle("a", 0, 0, 10)))
	require.NoError(t, doc.Clear())
	assert.True(t, doc.Undo())
	assert.Len(t, doc.Shapes(), 1)
}

func TestDocument_DrawMintsIDs(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)

	first, err := doc.Draw(circle("", 0, 0, 10))
	require.NoError(t, err)
	second, err := doc.Draw(circle("", 5, 5, 10))
	require.NoError(t, err)
	kept, err := doc.Draw(circle("mine", 9, 9, 10))
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NoError(t, first.Validate())
	assert.NotEqual(t, first, second)
	assert.Equal(t, model.ShapeID("mine"), kept)
	assert.Equal(t, []model.ShapeID{first, second, "mine"}, ids(doc.Shapes()))

	require.Len(t, em.events, 3)
	assert.Equal(t, first, em.events[0].payload.(protocol.ShapeRequest).Shape.ID)

	_, err = doc.Draw(model.Shape{})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Len(t, doc.Shapes(), 3)
}

func TestDocument_TransformShape(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)
	require.NoError(t, doc.Add(circle("a", 0, 0, 50)))

	require.NoError(t, doc.TransformShape("a", geometry.Transform{ScaleX: 2, ScaleY: 2, X: 10, Y: 20}))

	got, ok := doc.Shape("a")
	require.True(t, ok)
	assert.Equal(t, 100.0, got.Geometry.(*model.Circle).Radius)
	assert.Equal(t, 10.0, got.X)

	last := em.events[len(em.events)-1]
	assert.Equal(t, protocol.EventShapeUpdated, last.event)
	assert.Equal(t, 100.0, last.payload.(protocol.ShapeRequest).Shape.Geometry.(*model.Circle).Radius)
}

func TestDocument_EraseAt(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)
	require.NoError(t, doc.Add(circle("near", 100, 100, 20)))
	require.NoError(t, doc.Add(circle("far", 500, 500, 20)))
	em.events = nil

	t.Run("hit removes and emits per shape", func(t *testing.T) {
		removed, err := doc.EraseAt(model.Point{X: 100, Y: 100}, 20)
		require.NoError(t, err)

		assert.Equal(t, []model.ShapeID{"near"}, removed)
		assert.Equal(t, []model.ShapeID{"far"}, ids(doc.Shapes()))
		require.Len(t, em.events, 1)
		assert.Equal(t, protocol.ShapeDeleteRequest{ShapeID: "near"}, em.events[0].payload)
	})

	t.Run("miss records nothing", func(t *testing.T) {
		em.events = nil
		removed, err := doc.EraseAt(model.Point{X: -900, Y: -900}, 20)
		require.NoError(t, err)
		assert.Empty(t, removed)
		assert.Empty(t, em.events)

		// one undo must bring back "near", proving the miss pushed no snapshot
		require.True(t, doc.Undo())
		assert.Equal(t, []model.ShapeID{"near", "far"}, ids(doc.Shapes()))
	})
}

func TestDocument_UndoRedo(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, doc.Add(circle(id, 0, 0, 10)))
	}
	sent := len(em.events)

	require.True(t, doc.Undo())
	assert.Equal(t, []model.ShapeID{"a", "b"}, ids(doc.Shapes()))

	require.True(t, doc.Redo())
	assert.Equal(t, []model.ShapeID{"a", "b", "c"}, ids(doc.Shapes()))
	assert.False(t, doc.Redo())

	for doc.Undo() {
	}
	assert.Empty(t, doc.Shapes())
	assert.False(t, doc.CanUndo())
	assert.True(t, doc.CanRedo())

	assert.Equal(t, sent, len(em.events), "undo and redo stay local")
}

func TestDocument_UndoThenEditDropsRedo(t *testing.T) {
	doc := NewDocument(nil)
	require.NoError(t, doc.Add(circle("a", 0, 0, 10)))
	require.NoError(t, doc.Add(circle("b", 0, 0, 10)))
	require.True(t, doc.Undo())

	require.NoError(t, doc.Add(circle("c", 0, 0, 10)))
	assert.False(t, doc.CanRedo())
	assert.Equal(t, []model.ShapeID{"a", "c"}, ids(doc.Shapes()))
}

func TestDocument_ReturnedShapesAreCopies(t *testing.T) {
	doc := NewDocument(nil)
	require.NoError(t, doc.Add(circle("a", 0, 0, 10)))

	shapes := doc.Shapes()
	shapes[0].Geometry.(*model.Circle).Radius = 999

	got, _ := doc.Shape("a")
	assert.Equal(t, 10.0, got.Geometry.(*model.Circle).Radius)
}

func TestDocument_ApplyRemote(t *testing.T) {
	em := &recordingEmitter{}
	doc := NewDocument(em)
	require.NoError(t, doc.Add(circle("local", 0, 0, 10)))
	em.events = nil

	steps := []struct {
		name  string
		event string
		data  any
		want  []model.ShapeID
	}{
		{"added appends", protocol.EventShapeAdded,
			protocol.ShapeRelay{Shape: circle("r1", 1, 1, 5), UserID: "u2"},
			[]model.ShapeID{"local", "r1"}},
		{"added with known id replaces", protocol.EventShapeAdded,
			protocol.ShapeRelay{Shape: circle("r1", 9, 9, 5), UserID: "u2"},
			[]model.ShapeID{"local", "r1"}},
		{"updated with unknown id inserts", protocol.EventShapeUpdated,
			protocol.ShapeRelay{Shape: circle("r2", 2, 2, 5), UserID: "u2"},
			[]model.ShapeID{"local", "r1", "r2"}},
		{"deleted removes", protocol.EventShapeDeleted,
			protocol.ShapeDeleted{ShapeID: "local", UserID: "u2"},
			[]model.ShapeID{"r1", "r2"}},
		{"deleted unknown is ignored", protocol.EventShapeDeleted,
			protocol.ShapeDeleted{ShapeID: "ghost", UserID: "u2"},
			[]model.ShapeID{"r1", "r2"}},
		{"presence is ignored", protocol.EventCursorMove,
			protocol.CursorMoved{UserID: "u2", Cursor: model.Point{X: 1, Y: 1}},
			[]model.ShapeID{"r1", "r2"}},
		{"cleared empties", protocol.EventCanvasCleared,
			protocol.CanvasCleared{UserID: "u2", ClearedBy: "bob"},
			[]model.ShapeID{}},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			require.NoError(t, doc.ApplyRemote(envelope(t, st.event, st.data)))
			assert.Equal(t, st.want, ids(doc.Shapes()))
		})
	}

	got := doc.Shapes()
	assert.Empty(t, got)
	assert.Empty(t, em.events, "remote merges are never echoed")

	// Remote merges push no history: the only entries are the initial empty
	// canvas and the local add.
	require.True(t, doc.Undo())
	assert.Empty(t, doc.Shapes())
	assert.False(t, doc.Undo())
}

func TestDocument_ApplyRemote_RoomJoinedResets(t *testing.T) {
	doc := NewDocument(nil)
	require.NoError(t, doc.Add(circle("stale", 0, 0, 10)))

	joined := protocol.RoomJoined{
		Room:   &model.Room{ID: "room1"},
		UserID: "u1",
		Shapes: []model.Shape{circle("s1", 0, 0, 10), circle("s2", 5, 5, 10)},
	}
	require.NoError(t, doc.ApplyRemote(envelope(t, protocol.EventRoomJoined, joined)))

	assert.Equal(t, []model.ShapeID{"s1", "s2"}, ids(doc.Shapes()))
	assert.False(t, doc.CanUndo(), "history restarts from the joined room")
}

func TestDocument_ApplyRemote_Malformed(t *testing.T) {
	doc := NewDocument(nil)

	err := doc.ApplyRemote(protocol.Envelope{
		Event: protocol.EventShapeAdded,
		Data:  json.RawMessage(`{"shape": 42}`),
	})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	err = doc.ApplyRemote(protocol.Envelope{
		Event: protocol.EventShapeUpdated,
		Data:  json.RawMessage(`{"userId":"u2"}`),
	})
	assert.True(t, errors.Is(err, apperror.ErrValidation), "a relay without a shape is rejected")
}
