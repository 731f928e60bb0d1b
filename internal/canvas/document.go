// Package canvas is the participant-side copy of a room's shapes.
//
// LOCAL FIRST, THEN TELL THE ROOM:
// Every local edit is applied to the Document immediately, recorded in the
// undo history, and then emitted to the server without waiting for an
// acknowledgement. Edits from other participants arrive through ApplyRemote
// and are merged in without touching history.
//
// Undo and Redo only restore local state. Other participants do not see
// them, so after an undo the local canvas can differ from the room's until
// the next authoritative room-joined.
package canvas

import (
	"fmt"
	"sync"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/geometry"
	"github.com/sakif/whiteboard/internal/history"
	"github.com/sakif/whiteboard/internal/model"
	"github.com/sakif/whiteboard/internal/protocol"
)

// Emitter sends one event to the room. *client.Client implements it.
type Emitter interface {
	Emit(event string, payload any) error
}

// Document holds one participant's shapes and undo history. It is safe for
// concurrent use: local edits and remote events usually come from different
// goroutines.
type Document struct {
	mu      sync.Mutex
	shapes  []model.Shape
	history *history.History
	emitter Emitter
}

// NewDocument returns an empty document. A nil emitter keeps every edit
// local.
func NewDocument(emitter Emitter) *Document {
	d := &Document{
		shapes:  []model.Shape{},
		history: history.New(),
		emitter: emitter,
	}
	d.history.Push(history.NewSnapshot(d.shapes))
	return d
}

// Shapes returns a copy of the current collection in paint order.
func (d *Document) Shapes() []model.Shape {
	d.mu.Lock()
	defer d.mu.Unlock()
	return model.CloneShapes(d.shapes)
}

// Shape returns a copy of one shape.
func (d *Document) Shape(id model.ShapeID) (model.Shape, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexLocked(id); i >= 0 {
		return d.shapes[i].Clone(), true
	}
	return model.Shape{}, false
}

func (d *Document) CanUndo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.CanUndo()
}

func (d *Document) CanRedo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.CanRedo()
}

// === Local edits ===

// Add appends a new shape. The shape must be valid and its id unused.
func (d *Document) Add(s model.Shape) error {
	if err := s.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	if d.indexLocked(s.ID) >= 0 {
		d.mu.Unlock()
		return apperror.Conflict("shape", string(s.ID))
	}
	s = s.Clone()
	d.shapes = append(d.shapes, s)
	d.commitLocked()
	d.mu.Unlock()

	return d.emit(protocol.EventShapeAdded, protocol.ShapeRequest{Shape: s})
}

// Draw adds a freshly drawn shape and returns its id. An empty id is
// replaced with a new one before the shape is validated.
func (d *Document) Draw(s model.Shape) (model.ShapeID, error) {
	if s.ID == "" {
		s.ID = model.NewShapeID()
	}
	if err := d.Add(s); err != nil {
		return "", err
	}
	return s.ID, nil
}

// Update replaces an existing shape wholesale.
func (d *Document) Update(s model.Shape) error {
	if err := s.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	i := d.indexLocked(s.ID)
	if i < 0 {
		d.mu.Unlock()
		return apperror.NotFound("shape", string(s.ID))
	}
	s = s.Clone()
	d.shapes[i] = s
	d.commitLocked()
	d.mu.Unlock()

	return d.emit(protocol.EventShapeUpdated, protocol.ShapeRequest{Shape: s})
}

// Delete removes a shape.
func (d *Document) Delete(id model.ShapeID) error {
	d.mu.Lock()
	i := d.indexLocked(id)
	if i < 0 {
		d.mu.Unlock()
		return apperror.NotFound("shape", string(id))
	}
	d.shapes = append(d.shapes[:i], d.shapes[i+1:]...)
	d.commitLocked()
	d.mu.Unlock()

	return d.emit(protocol.EventShapeDeleted, protocol.ShapeDeleteRequest{ShapeID: id})
}

// Clear empties the canvas.
func (d *Document) Clear() error {
	d.mu.Lock()
	d.shapes = []model.Shape{}
	d.commitLocked()
	d.mu.Unlock()

	return d.emit(protocol.EventCanvasCleared, nil)
}

// TransformShape bakes a committed resize/rotate/move into the shape's
// geometry and emits the result as an update.
func (d *Document) TransformShape(id model.ShapeID, t geometry.Transform) error {
	d.mu.Lock()
	i := d.indexLocked(id)
	if i < 0 {
		d.mu.Unlock()
		return apperror.NotFound("shape", string(id))
	}
	s := geometry.ApplyTransform(d.shapes[i], t)
	d.shapes[i] = s
	d.commitLocked()
	s = s.Clone()
	d.mu.Unlock()

	return d.emit(protocol.EventShapeUpdated, protocol.ShapeRequest{Shape: s})
}

// EraseAt removes every shape the eraser touches at p with the given tool
// size and emits one delete per removed shape. A miss changes nothing and
// records no history.
func (d *Document) EraseAt(p model.Point, size float64) ([]model.ShapeID, error) {
	d.mu.Lock()
	kept, removed := geometry.Erase(p, geometry.EraserRadius(size), d.shapes)
	if len(removed) == 0 {
		d.mu.Unlock()
		return nil, nil
	}
	d.shapes = kept
	d.commitLocked()
	d.mu.Unlock()

	for _, id := range removed {
		if err := d.emit(protocol.EventShapeDeleted, protocol.ShapeDeleteRequest{ShapeID: id}); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Undo restores the previous snapshot. It reports false when there is
// nothing to undo.
func (d *Document) Undo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap, ok := d.history.Undo()
	if ok {
		d.shapes = snap.Shapes()
	}
	return ok
}

// Redo re-applies the next snapshot.
func (d *Document) Redo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap, ok := d.history.Redo()
	if ok {
		d.shapes = snap.Shapes()
	}
	return ok
}

// === Remote events ===

// ApplyRemote merges one server event into the document. Events that do not
// touch shapes (presence, drawing previews, errors) are ignored.
//
// room-joined replaces the collection and restarts history from it, since
// snapshots taken before joining describe a different canvas.
func (d *Document) ApplyRemote(env protocol.Envelope) error {
	switch env.Event {
	case protocol.EventRoomJoined:
		var msg protocol.RoomJoined
		if err := env.Decode(&msg); err != nil {
			return remoteErr(env.Event, err)
		}
		d.mu.Lock()
		d.shapes = model.CloneShapes(msg.Shapes)
		d.history = history.New()
		d.history.Push(history.NewSnapshot(d.shapes))
		d.mu.Unlock()

	case protocol.EventShapeAdded, protocol.EventShapeUpdated:
		var msg protocol.ShapeRelay
		if err := env.Decode(&msg); err != nil {
			return remoteErr(env.Event, err)
		}
		if msg.Shape.Geometry == nil {
			return remoteErr(env.Event, fmt.Errorf("shape %q has no geometry", msg.Shape.ID))
		}
		d.mu.Lock()
		if i := d.indexLocked(msg.Shape.ID); i >= 0 {
			d.shapes[i] = msg.Shape
		} else {
			d.shapes = append(d.shapes, msg.Shape)
		}
		d.mu.Unlock()

	case protocol.EventShapeDeleted:
		var msg protocol.ShapeDeleted
		if err := env.Decode(&msg); err != nil {
			return remoteErr(env.Event, err)
		}
		d.mu.Lock()
		if i := d.indexLocked(msg.ShapeID); i >= 0 {
			d.shapes = append(d.shapes[:i], d.shapes[i+1:]...)
		}
		d.mu.Unlock()

	case protocol.EventCanvasCleared:
		d.mu.Lock()
		d.shapes = []model.Shape{}
		d.mu.Unlock()
	}
	return nil
}

func (d *Document) indexLocked(id model.ShapeID) int {
	for i := range d.shapes {
		if d.shapes[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) commitLocked() {
	d.history.Push(history.NewSnapshot(d.shapes))
}

func (d *Document) emit(event string, payload any) error {
	if d.emitter == nil {
		return nil
	}
	if err := d.emitter.Emit(event, payload); err != nil {
		return fmt.Errorf("emitting %s: %w", event, err)
	}
	return nil
}

func remoteErr(event string, err error) error {
	return apperror.ValidationFailed("data", fmt.Sprintf("malformed %s payload: %v", event, err))
}
