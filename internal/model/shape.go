// Package model defines the data structures shared by the server, the
// client-side document and the wire protocol.
//
// SHAPES AS A CLOSED UNION:
// A Shape carries the fields every drawable element has (id, origin,
// rotation, colours, provenance) plus a Geometry value holding the
// variant-specific fields. Geometry is an interface with an unexported
// method, so only the types in this package can implement it. Code that
// needs per-variant behaviour does a type switch over Geometry:
//
//	switch g := shape.Geometry.(type) {
//	case *model.Circle:
//	    ...
//	case *model.Rectangle:
//	    ...
//	}
//
// On the wire the union is flattened: variant fields sit next to "type" in a
// single JSON object (see json.go).
package model

import (
	"time"

	"github.com/rs/xid"
)

// Kind is the wire tag naming a shape variant.
type Kind string

const (
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rectangle"
	KindEllipse   Kind = "ellipse"
	KindPolygon   Kind = "polygon"
	KindStar      Kind = "star"
	KindLine      Kind = "line"
	KindArrow     Kind = "arrow"
	KindPath      Kind = "pen"
	KindText      Kind = "text"
	KindArc       Kind = "arc"
)

// Kinds lists every variant in declaration order.
var Kinds = []Kind{
	KindCircle, KindRectangle, KindEllipse, KindPolygon, KindStar,
	KindLine, KindArrow, KindPath, KindText, KindArc,
}

// ShapeID identifies a shape within a room. Clients mint them; the server
// never rewrites them. A numeric id is held as its JSON literal and written
// back as a number.
type ShapeID string

// NewShapeID returns a fresh, time-ordered shape id.
func NewShapeID() ShapeID {
	return ShapeID(xid.New().String())
}

// Geometry is the variant-specific part of a Shape.
type Geometry interface {
	Kind() Kind
	cloneGeometry() Geometry
}

// Provenance records who created and last touched a shape. The server
// stamps these; clients echo whatever they last received.
type Provenance struct {
	CreatedBy      string
	CreatedAt      *time.Time
	LastModifiedBy string
	LastModifiedAt *time.Time
}

// Shape is one drawable element.
type Shape struct {
	ID          ShapeID
	X           float64
	Y           float64
	Rotation    float64 // degrees
	Fill        string
	Stroke      string
	StrokeWidth float64
	Provenance

	Geometry Geometry
}

// Kind returns the variant tag, or "" for a shape without geometry.
func (s Shape) Kind() Kind {
	if s.Geometry == nil {
		return ""
	}
	return s.Geometry.Kind()
}

// Clone returns a deep copy: point slices and timestamps are not shared.
func (s Shape) Clone() Shape {
	out := s
	if s.Geometry != nil {
		out.Geometry = s.Geometry.cloneGeometry()
	}
	out.CreatedAt = cloneTime(s.CreatedAt)
	out.LastModifiedAt = cloneTime(s.LastModifiedAt)
	return out
}

// CloneShapes deep-copies a shape collection. A nil input yields an empty,
// non-nil slice so it encodes as [] rather than null.
func CloneShapes(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Circle is centred on the shape origin.
type Circle struct {
	Radius float64
}

// Rectangle has its top-left corner at the shape origin.
type Rectangle struct {
	Width  float64
	Height float64
}

// Ellipse is centred on the shape origin.
type Ellipse struct {
	RadiusX float64
	RadiusY float64
}

// Polygon is a regular polygon inscribed in a circle of Radius.
type Polygon struct {
	Radius float64
	Sides  int
}

// Star alternates between OuterRadius and InnerRadius vertices.
type Star struct {
	NumPoints   int
	InnerRadius float64
	OuterRadius float64
}

// Line is an open polyline. Points is a flat x,y,x,y... sequence of offsets
// from the shape origin.
type Line struct {
	Points []float64
}

// Arrow is a Line with a pointer head at its last point. Zero pointer
// dimensions mean "renderer default".
type Arrow struct {
	Points        []float64
	PointerLength float64
	PointerWidth  float64
}

// Path is a freehand pen stroke, rendered with rounded caps and joins.
type Path struct {
	Points []float64
}

// Text is a single text block.
type Text struct {
	Text       string
	FontSize   float64
	FontFamily string
	FontStyle  string
	Width      float64
}

// Arc is an annular sector of Angle degrees.
type Arc struct {
	InnerRadius float64
	OuterRadius float64
	Angle       float64
}

func (*Circle) Kind() Kind    { return KindCircle }
func (*Rectangle) Kind() Kind { return KindRectangle }
func (*Ellipse) Kind() Kind   { return KindEllipse }
func (*Polygon) Kind() Kind   { return KindPolygon }
func (*Star) Kind() Kind      { return KindStar }
func (*Line) Kind() Kind      { return KindLine }
func (*Arrow) Kind() Kind     { return KindArrow }
func (*Path) Kind() Kind      { return KindPath }
func (*Text) Kind() Kind      { return KindText }
func (*Arc) Kind() Kind       { return KindArc }

func (g *Circle) cloneGeometry() Geometry    { c := *g; return &c }
func (g *Rectangle) cloneGeometry() Geometry { c := *g; return &c }
func (g *Ellipse) cloneGeometry() Geometry   { c := *g; return &c }
func (g *Polygon) cloneGeometry() Geometry   { c := *g; return &c }
func (g *Star) cloneGeometry() Geometry      { c := *g; return &c }
func (g *Text) cloneGeometry() Geometry      { c := *g; return &c }
func (g *Arc) cloneGeometry() Geometry       { c := *g; return &c }

func (g *Line) cloneGeometry() Geometry {
	return &Line{Points: clonePoints(g.Points)}
}

func (g *Arrow) cloneGeometry() Geometry {
	c := *g
	c.Points = clonePoints(g.Points)
	return &c
}

func (g *Path) cloneGeometry() Geometry {
	return &Path{Points: clonePoints(g.Points)}
}

func clonePoints(p []float64) []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
