// Package geometry holds the pure shape math: folding a resize/rotate
// gesture into a shape's semantic fields, clamping interactive resize boxes
// and the eraser hit-test.
//
// Every function here takes values and returns values. Nothing touches a
// room, a connection or a clock, so the client document and the tests call
// them directly.
package geometry

import (
	"fmt"
	"math"

	"github.com/sakif/whiteboard/internal/model"
)

// Minimum sizes a committed transform may produce.
const (
	MinRadius     = 5.0
	MinRectSide   = 10.0
	MinFontSize   = 8.0
	MinTextWidth  = 10.0
	MinPointerDim = 5.0
)

// Transform is what a resize/rotate gesture leaves on a node when it ends:
// a scale pair, an absolute rotation in degrees and a new origin.
type Transform struct {
	ScaleX   float64
	ScaleY   float64
	Rotation float64
	X        float64
	Y        float64
}

// Identity returns a transform that keeps the shape where it is.
func Identity(s model.Shape) Transform {
	return Transform{ScaleX: 1, ScaleY: 1, Rotation: s.Rotation, X: s.X, Y: s.Y}
}

// ApplyTransform folds t into s and returns the new shape. The result keeps
// the variant and id; scale is consumed, never stored. The input is not
// modified.
//
// SYMMETRIC VARIANTS:
// Circles, polygons, stars and arcs scale by min(ScaleX, ScaleY) so they stay
// round. Everything with independent axes (rectangle, ellipse, point lists)
// scales each axis on its own.
func ApplyTransform(s model.Shape, t Transform) model.Shape {
	out := s.Clone()
	out.X, out.Y, out.Rotation = t.X, t.Y, t.Rotation
	uniform := math.Min(t.ScaleX, t.ScaleY)

	switch g := out.Geometry.(type) {
	case *model.Circle:
		g.Radius = floor(g.Radius*uniform, MinRadius)
	case *model.Rectangle:
		g.Width = floor(g.Width*t.ScaleX, MinRectSide)
		g.Height = floor(g.Height*t.ScaleY, MinRectSide)
	case *model.Ellipse:
		g.RadiusX = floor(g.RadiusX*t.ScaleX, MinRadius)
		g.RadiusY = floor(g.RadiusY*t.ScaleY, MinRadius)
	case *model.Polygon:
		g.Radius = floor(g.Radius*uniform, MinRadius)
	case *model.Star:
		g.InnerRadius = floor(g.InnerRadius*uniform, MinRadius)
		g.OuterRadius = floor(g.OuterRadius*uniform, MinRadius)
	case *model.Line:
		scalePoints(g.Points, t.ScaleX, t.ScaleY)
	case *model.Arrow:
		scalePoints(g.Points, t.ScaleX, t.ScaleY)
		// zero means "renderer default" and stays that way
		if g.PointerLength > 0 {
			g.PointerLength = floor(g.PointerLength*uniform, MinPointerDim)
		}
		if g.PointerWidth > 0 {
			g.PointerWidth = floor(g.PointerWidth*uniform, MinPointerDim)
		}
	case *model.Path:
		scalePoints(g.Points, t.ScaleX, t.ScaleY)
	case *model.Text:
		g.FontSize = floor(g.FontSize*uniform, MinFontSize)
		if g.Width > 0 {
			g.Width = floor(g.Width*t.ScaleX, MinTextWidth)
		}
	case *model.Arc:
		g.InnerRadius = math.Max(0, g.InnerRadius*uniform)
		g.OuterRadius = floor(g.OuterRadius*uniform, MinRadius)
	default:
		panic(fmt.Sprintf("geometry: unhandled geometry %T", g))
	}

	return out
}

// scalePoints scales a flat x,y,x,y... slice in place.
func scalePoints(points []float64, sx, sy float64) {
	for i := range points {
		if i%2 == 0 {
			points[i] *= sx
		} else {
			points[i] *= sy
		}
	}
}

// floor also catches NaN from a degenerate scale.
func floor(v, min float64) float64 {
	if !(v >= min) {
		return min
	}
	return v
}
