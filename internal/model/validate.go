package model

import (
	"fmt"
	"math"
	"unicode"

	"github.com/sakif/whiteboard/internal/apperror"
)

// MaxShapeIDLength bounds client-minted ids.
const MaxShapeIDLength = 64

// MaxPoints bounds the number of coordinates in a line, arrow or pen stroke.
const MaxPoints = 20000

// Validate checks the structural shape of an inbound payload: a well-formed
// id, finite coordinates and the required fields of its variant. It does not
// judge content (colours, text, font names are relayed as-is).
func (s Shape) Validate() error {
	if err := s.ID.Validate(); err != nil {
		return err
	}
	if !finite(s.X, s.Y, s.Rotation, s.StrokeWidth) {
		return apperror.ValidationFailed("shape", "shape coordinates must be finite numbers")
	}
	if s.StrokeWidth < 0 {
		return apperror.ValidationFailed("strokeWidth", "strokeWidth must not be negative")
	}

	switch g := s.Geometry.(type) {
	case *Circle:
		return positive("radius", g.Radius)
	case *Rectangle:
		if err := positive("width", g.Width); err != nil {
			return err
		}
		return positive("height", g.Height)
	case *Ellipse:
		if err := positive("radiusX", g.RadiusX); err != nil {
			return err
		}
		return positive("radiusY", g.RadiusY)
	case *Polygon:
		if g.Sides < 3 {
			return apperror.ValidationFailed("sides", "polygon needs at least 3 sides")
		}
		return positive("radius", g.Radius)
	case *Star:
		if g.NumPoints < 2 {
			return apperror.ValidationFailed("numPoints", "star needs at least 2 points")
		}
		if err := positive("innerRadius", g.InnerRadius); err != nil {
			return err
		}
		return positive("outerRadius", g.OuterRadius)
	case *Line:
		return validPoints(g.Points, 4)
	case *Arrow:
		if !finite(g.PointerLength, g.PointerWidth) || g.PointerLength < 0 || g.PointerWidth < 0 {
			return apperror.ValidationFailed("pointerLength", "arrow pointer dimensions must be non-negative")
		}
		return validPoints(g.Points, 4)
	case *Path:
		return validPoints(g.Points, 2)
	case *Text:
		if !finite(g.Width) || g.Width < 0 {
			return apperror.ValidationFailed("width", "text width must not be negative")
		}
		return positive("fontSize", g.FontSize)
	case *Arc:
		if !finite(g.Angle) {
			return apperror.ValidationFailed("angle", "arc angle must be finite")
		}
		if err := positive("outerRadius", g.OuterRadius); err != nil {
			return err
		}
		if g.InnerRadius < 0 || !finite(g.InnerRadius) {
			return apperror.ValidationFailed("innerRadius", "innerRadius must not be negative")
		}
		return nil
	case nil:
		return apperror.ValidationFailed("type", "shape type is required")
	default:
		panic(fmt.Sprintf("model: unhandled geometry %T", g))
	}
}

// Validate reports whether the id is usable as a collection key.
func (id ShapeID) Validate() error {
	if id == "" {
		return apperror.ValidationFailed("id", "shape id is required")
	}
	if len(id) > MaxShapeIDLength {
		return apperror.ValidationFailed("id",
			fmt.Sprintf("shape id must be %d characters or less", MaxShapeIDLength))
	}
	for _, r := range string(id) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return apperror.ValidationFailed("id", "shape id must not contain whitespace")
		}
	}
	return nil
}

func positive(field string, v float64) error {
	if !finite(v) || v <= 0 {
		return apperror.ValidationFailed(field, field+" must be a positive number")
	}
	return nil
}

func validPoints(points []float64, min int) error {
	switch {
	case len(points) < min:
		return apperror.ValidationFailed("points", fmt.Sprintf("points needs at least %d values", min))
	case len(points)%2 != 0:
		return apperror.ValidationFailed("points", "points must hold x,y pairs")
	case len(points) > MaxPoints:
		return apperror.ValidationFailed("points",
			fmt.Sprintf("points must hold %d values or less", MaxPoints))
	}
	if !finite(points...) {
		return apperror.ValidationFailed("points", "points must be finite numbers")
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
