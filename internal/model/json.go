package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// shapeJSON is the flattened wire form of a Shape. Variant fields are
// pointers so absent fields stay absent when a shape is relayed.
type shapeJSON struct {
	ID          ShapeID `json:"id"`
	Type        Kind    `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Rotation    float64 `json:"rotation"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`

	Radius        *float64  `json:"radius,omitempty"`
	Width         *float64  `json:"width,omitempty"`
	Height        *float64  `json:"height,omitempty"`
	RadiusX       *float64  `json:"radiusX,omitempty"`
	RadiusY       *float64  `json:"radiusY,omitempty"`
	Sides         *int      `json:"sides,omitempty"`
	NumPoints     *int      `json:"numPoints,omitempty"`
	InnerRadius   *float64  `json:"innerRadius,omitempty"`
	OuterRadius   *float64  `json:"outerRadius,omitempty"`
	Angle         *float64  `json:"angle,omitempty"`
	Points        []float64 `json:"points,omitempty"`
	PointerLength *float64  `json:"pointerLength,omitempty"`
	PointerWidth  *float64  `json:"pointerWidth,omitempty"`
	LineCap       string    `json:"lineCap,omitempty"`
	LineJoin      string    `json:"lineJoin,omitempty"`
	Text          *string   `json:"text,omitempty"`
	FontSize      *float64  `json:"fontSize,omitempty"`
	FontFamily    string    `json:"fontFamily,omitempty"`
	FontStyle     string    `json:"fontStyle,omitempty"`

	CreatedBy      string     `json:"createdBy,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastModifiedBy string     `json:"lastModifiedBy,omitempty"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
}

// MarshalJSON flattens the shape into a single object tagged with "type".
func (s Shape) MarshalJSON() ([]byte, error) {
	w := shapeJSON{
		ID:             s.ID,
		Type:           s.Kind(),
		X:              s.X,
		Y:              s.Y,
		Rotation:       s.Rotation,
		Fill:           s.Fill,
		Stroke:         s.Stroke,
		StrokeWidth:    s.StrokeWidth,
		CreatedBy:      s.CreatedBy,
		CreatedAt:      s.CreatedAt,
		LastModifiedBy: s.LastModifiedBy,
		LastModifiedAt: s.LastModifiedAt,
	}

	switch g := s.Geometry.(type) {
	case *Circle:
		w.Radius = &g.Radius
	case *Rectangle:
		w.Width, w.Height = &g.Width, &g.Height
	case *Ellipse:
		w.RadiusX, w.RadiusY = &g.RadiusX, &g.RadiusY
	case *Polygon:
		w.Radius, w.Sides = &g.Radius, &g.Sides
	case *Star:
		w.NumPoints, w.InnerRadius, w.OuterRadius = &g.NumPoints, &g.InnerRadius, &g.OuterRadius
	case *Line:
		w.Points = g.Points
	case *Arrow:
		w.Points = g.Points
		w.PointerLength = optional(g.PointerLength)
		w.PointerWidth = optional(g.PointerWidth)
	case *Path:
		w.Points = g.Points
		w.LineCap, w.LineJoin = "round", "round"
	case *Text:
		w.Text, w.FontSize = &g.Text, &g.FontSize
		w.FontFamily, w.FontStyle = g.FontFamily, g.FontStyle
		w.Width = optional(g.Width)
	case *Arc:
		w.InnerRadius, w.OuterRadius, w.Angle = &g.InnerRadius, &g.OuterRadius, &g.Angle
	case nil:
		return nil, fmt.Errorf("model: shape %q has no geometry", s.ID)
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes the flattened wire form. An unknown or missing
// "type" is an error; missing variant fields decode as zero and are caught
// by Validate.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var w shapeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var g Geometry
	switch w.Type {
	case KindCircle:
		g = &Circle{Radius: deref(w.Radius)}
	case KindRectangle:
		g = &Rectangle{Width: deref(w.Width), Height: deref(w.Height)}
	case KindEllipse:
		g = &Ellipse{RadiusX: deref(w.RadiusX), RadiusY: deref(w.RadiusY)}
	case KindPolygon:
		g = &Polygon{Radius: deref(w.Radius), Sides: deref(w.Sides)}
	case KindStar:
		g = &Star{NumPoints: deref(w.NumPoints), InnerRadius: deref(w.InnerRadius), OuterRadius: deref(w.OuterRadius)}
	case KindLine:
		g = &Line{Points: w.Points}
	case KindArrow:
		g = &Arrow{Points: w.Points, PointerLength: deref(w.PointerLength), PointerWidth: deref(w.PointerWidth)}
	case KindPath:
		g = &Path{Points: w.Points}
	case KindText:
		g = &Text{Text: deref(w.Text), FontSize: deref(w.FontSize), FontFamily: w.FontFamily, FontStyle: w.FontStyle, Width: deref(w.Width)}
	case KindArc:
		g = &Arc{InnerRadius: deref(w.InnerRadius), OuterRadius: deref(w.OuterRadius), Angle: deref(w.Angle)}
	case "":
		return fmt.Errorf("model: shape %q is missing a type", w.ID)
	default:
		return fmt.Errorf("model: unknown shape type %q", w.Type)
	}

	*s = Shape{
		ID:          w.ID,
		X:           w.X,
		Y:           w.Y,
		Rotation:    w.Rotation,
		Fill:        w.Fill,
		Stroke:      w.Stroke,
		StrokeWidth: w.StrokeWidth,
		Provenance: Provenance{
			CreatedBy:      w.CreatedBy,
			CreatedAt:      w.CreatedAt,
			LastModifiedBy: w.LastModifiedBy,
			LastModifiedAt: w.LastModifiedAt,
		},
		Geometry: g,
	}
	return nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number. Browser
// clients mint ids with Date.now(), which arrive as numbers; the literal is
// kept as written so it can be relayed back unchanged.
func (id *ShapeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ShapeID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: shape id must be a string or number: %w", err)
	}
	*id = ShapeID(n.String())
	return nil
}

// MarshalJSON writes an id that is a JSON number literal as a bare number,
// so numeric ids round-trip in the form the client sent them.
func (id ShapeID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the id is a JSON number literal.
func (id ShapeID) IsNumeric() bool {
	s := string(id)
	if s == "" {
		return false
	}
	first, last := s[0], s[len(s)-1]
	if first != '-' && (first < '0' || first > '9') {
		return false
	}
	if last < '0' || last > '9' {
		return false
	}
	return json.Valid([]byte(s))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func optional(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
