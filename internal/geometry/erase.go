package geometry

import (
	"fmt"
	"math"

	"github.com/sakif/whiteboard/internal/model"
)

const (
	// DefaultStarExtent stands in for a polygon or star without a radius.
	DefaultStarExtent = 50.0
	// DefaultExtent covers every variant without its own rule.
	DefaultExtent = 30.0
)

// EraserRadius converts the eraser tool size (a diameter) to the radius the
// hit-test works with.
func EraserRadius(size float64) float64 {
	return size / 2
}

// Hit reports whether an eraser of the given radius at p removes s.
//
// Closed shapes use a bounding circle around the origin: the shape goes when
// the distance from p to its origin is at most radius plus the variant's
// extent. The test is deliberately coarse. Freehand paths are the exact
// case: the stroke goes only when one of its points lies strictly inside
// the eraser circle.
func Hit(p model.Point, radius float64, s model.Shape) bool {
	if path, ok := s.Geometry.(*model.Path); ok {
		for i := 0; i+1 < len(path.Points); i += 2 {
			px := path.Points[i] + s.X
			py := path.Points[i+1] + s.Y
			if math.Hypot(px-p.X, py-p.Y) < radius {
				return true
			}
		}
		return false
	}

	distance := math.Hypot(p.X-s.X, p.Y-s.Y)
	return distance <= radius+Extent(s)
}

// Extent is the bounding radius Hit uses for a closed shape.
func Extent(s model.Shape) float64 {
	switch g := s.Geometry.(type) {
	case *model.Circle:
		return g.Radius
	case *model.Rectangle:
		return math.Max(g.Width, g.Height) / 2
	case *model.Ellipse:
		return math.Max(g.RadiusX, g.RadiusY)
	case *model.Polygon:
		return orDefault(g.Radius, DefaultStarExtent)
	case *model.Star:
		return orDefault(g.OuterRadius, DefaultStarExtent)
	case *model.Text:
		return math.Max(g.Width, g.FontSize)
	case *model.Line, *model.Arrow, *model.Path, *model.Arc:
		return DefaultExtent
	default:
		panic(fmt.Sprintf("geometry: unhandled geometry %T", g))
	}
}

// Erase runs Hit over a collection and splits it. kept preserves order and
// is never nil; removed lists the ids in collection order.
func Erase(p model.Point, radius float64, shapes []model.Shape) (kept []model.Shape, removed []model.ShapeID) {
	kept = make([]model.Shape, 0, len(shapes))
	for _, s := range shapes {
		if Hit(p, radius, s) {
			removed = append(removed, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
