// Package history is the client-local undo/redo stack.
//
// A History is a linear list of snapshots with a cursor. Pushing a snapshot
// after an undo discards the redo tail. Snapshots are deep copies of the shape
// collection and are never sent over the wire; undo and redo only restore
// local state and do not notify other participants.
package history

import "github.com/sakif/whiteboard/internal/model"

// Snapshot is an immutable copy of a shape collection at one committed
// mutation boundary. Callers receive their own copy from Undo, Redo and
// Current.
type Snapshot struct {
	shapes []model.Shape
}

// NewSnapshot copies shapes into a snapshot.
func NewSnapshot(shapes []model.Shape) Snapshot {
	return Snapshot{shapes: model.CloneShapes(shapes)}
}

// Shapes returns a fresh copy of the snapshot's collection.
func (s Snapshot) Shapes() []model.Shape {
	return model.CloneShapes(s.shapes)
}

// Len is the number of shapes in the snapshot.
func (s Snapshot) Len() int {
	return len(s.shapes)
}

// History is not safe for concurrent use; it belongs to a single document.
type History struct {
	entries []Snapshot
	index   int // -1 when empty
}

// New returns an empty history.
func New() *History {
	return &History{index: -1}
}

// Push discards everything after the cursor, appends snap and moves the
// cursor onto it.
func (h *History) Push(snap Snapshot) {
	h.entries = append(h.entries[:h.index+1], snap)
	h.index = len(h.entries) - 1
}

// Undo steps back one entry and returns it. At the first entry (or on an
// empty history) it returns false and changes nothing.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	h.index--
	return h.entries[h.index], true
}

// Redo steps forward one entry and returns it. At the last entry it returns
// false and changes nothing.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *History) CanUndo() bool { return h.index > 0 }

func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

func (h *History) Len() int { return len(h.entries) }

// Current returns the entry under the cursor.
func (h *History) Current() (Snapshot, bool) {
	if h.index < 0 {
		return Snapshot{}, false
	}
	return h.entries[h.index], true
}
