// Package export renders a room's canvas to PDF.
//
// The canvas is unbounded, so the renderer first measures the shapes, then
// scales the whole drawing to fit one landscape A4 page. Each variant maps to
// the nearest gofpdf primitive; regular polygons, stars and arcs are emitted
// as polygons.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/sakif/whiteboard/internal/model"
)

const (
	pageW  = 297.0 // mm, A4 landscape
	pageH  = 210.0
	margin = 10.0
	header = 8.0
)

// RenderRoom writes a single-page PDF of room to w.
func RenderRoom(w io.Writer, room *model.Room) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(room.Name, true)
	pdf.SetCreator("whiteboard", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(60, 60, 60)
	pdf.Text(margin, margin+4, pdf.UnicodeTranslatorFromDescriptor("")(room.Name))

	v := fit(room.Shapes)
	for _, s := range room.Shapes {
		drawShape(pdf, v, s)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering room %s: %w", room.ID, err)
	}
	return pdf.Output(w)
}

// viewport maps canvas pixels to page millimetres.
type viewport struct {
	scale  float64
	minX   float64
	minY   float64
	offset gofpdf.PointType
}

func (v viewport) pt(x, y float64) gofpdf.PointType {
	return gofpdf.PointType{
		X: v.offset.X + (x-v.minX)*v.scale,
		Y: v.offset.Y + (y-v.minY)*v.scale,
	}
}

func (v viewport) mm(d float64) float64 { return d * v.scale }

// fit picks a scale that shows every shape's bounds on the page. Drawings
// smaller than the page are not enlarged.
func fit(shapes []model.Shape) viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range shapes {
		x0, y0, x1, y1 := bounds(s)
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}
	if len(shapes) == 0 {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}

	availW := pageW - 2*margin
	availH := pageH - 2*margin - header
	scale := math.Min(availW/math.Max(maxX-minX, 1), availH/math.Max(maxY-minY, 1))
	// 1px = 0.2645mm at 96dpi
	scale = math.Min(scale, 0.2645)

	return viewport{
		scale:  scale,
		minX:   minX,
		minY:   minY,
		offset: gofpdf.PointType{X: margin, Y: margin + header},
	}
}

// bounds is an axis-aligned box around the shape, ignoring rotation.
func bounds(s model.Shape) (x0, y0, x1, y1 float64) {
	switch g := s.Geometry.(type) {
	case *model.Rectangle:
		return s.X, s.Y, s.X + g.Width, s.Y + g.Height
	case *model.Text:
		w := math.Max(g.Width, float64(len(g.Text))*g.FontSize*0.6)
		return s.X, s.Y, s.X + w, s.Y + g.FontSize*1.2
	case *model.Line:
		return pointBounds(s, g.Points)
	case *model.Arrow:
		return pointBounds(s, g.Points)
	case *model.Path:
		return pointBounds(s, g.Points)
	}
	r := radius(s)
	return s.X - r, s.Y - r, s.X + r, s.Y + r
}

func radius(s model.Shape) float64 {
	switch g := s.Geometry.(type) {
	case *model.Circle:
		return g.Radius
	case *model.Ellipse:
		return math.Max(g.RadiusX, g.RadiusY)
	case *model.Polygon:
		return g.Radius
	case *model.Star:
		return math.Max(g.OuterRadius, g.InnerRadius)
	case *model.Arc:
		return g.OuterRadius
	}
	return 0
}

func pointBounds(s model.Shape, points []float64) (x0, y0, x1, y1 float64) {
	if len(points) < 2 {
		return s.X, s.Y, s.X, s.Y
	}
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(points); i += 2 {
		x, y := points[i]+s.X, points[i+1]+s.Y
		x0, y0 = math.Min(x0, x), math.Min(y0, y)
		x1, y1 = math.Max(x1, x), math.Max(y1, y)
	}
	return x0, y0, x1, y1
}

func drawShape(pdf *gofpdf.Fpdf, v viewport, s model.Shape) {
	origin := v.pt(s.X, s.Y)
	style := applyStyle(pdf, v, s)

	if s.Rotation != 0 {
		pdf.TransformBegin()
		// gofpdf rotates counter-clockwise; canvas rotation is clockwise
		pdf.TransformRotate(-s.Rotation, origin.X, origin.Y)
		defer pdf.TransformEnd()
	}

	switch g := s.Geometry.(type) {
	case *model.Circle:
		pdf.Circle(origin.X, origin.Y, v.mm(g.Radius), style)
	case *model.Rectangle:
		pdf.Rect(origin.X, origin.Y, v.mm(g.Width), v.mm(g.Height), style)
	case *model.Ellipse:
		pdf.Ellipse(origin.X, origin.Y, v.mm(g.RadiusX), v.mm(g.RadiusY), 0, style)
	case *model.Polygon:
		pdf.Polygon(regular(origin, v.mm(g.Radius), v.mm(g.Radius), g.Sides), style)
	case *model.Star:
		pdf.Polygon(regular(origin, v.mm(g.OuterRadius), v.mm(g.InnerRadius), g.NumPoints*2), style)
	case *model.Line:
		polyline(pdf, v, s, g.Points)
	case *model.Arrow:
		polyline(pdf, v, s, g.Points)
		arrowHead(pdf, v, s, g)
	case *model.Path:
		pdf.SetLineCapStyle("round")
		pdf.SetLineJoinStyle("round")
		polyline(pdf, v, s, g.Points)
		pdf.SetLineCapStyle("butt")
		pdf.SetLineJoinStyle("miter")
	case *model.Text:
		drawText(pdf, v, origin, s, g)
	case *model.Arc:
		pdf.Polygon(sector(origin, v.mm(g.InnerRadius), v.mm(g.OuterRadius), g.Angle), style)
	default:
		panic(fmt.Sprintf("export: unhandled geometry %T", g))
	}
}

// applyStyle sets colours and line width and returns the gofpdf style string.
func applyStyle(pdf *gofpdf.Fpdf, v viewport, s model.Shape) string {
	style := "D"
	if r, g, b, ok := parseColor(s.Stroke); ok {
		pdf.SetDrawColor(r, g, b)
	} else {
		pdf.SetDrawColor(0, 0, 0)
	}
	if r, g, b, ok := parseColor(s.Fill); ok {
		pdf.SetFillColor(r, g, b)
		style = "FD"
	}
	pdf.SetLineWidth(math.Max(v.mm(s.StrokeWidth), 0.1))
	return style
}

func polyline(pdf *gofpdf.Fpdf, v viewport, s model.Shape, points []float64) {
	for i := 2; i+1 < len(points); i += 2 {
		a := v.pt(points[i-2]+s.X, points[i-1]+s.Y)
		b := v.pt(points[i]+s.X, points[i+1]+s.Y)
		pdf.Line(a.X, a.Y, b.X, b.Y)
	}
}

func arrowHead(pdf *gofpdf.Fpdf, v viewport, s model.Shape, g *model.Arrow) {
	n := len(g.Points)
	if n < 4 {
		return
	}
	tip := v.pt(g.Points[n-2]+s.X, g.Points[n-1]+s.Y)
	tail := v.pt(g.Points[n-4]+s.X, g.Points[n-3]+s.Y)
	length, width := g.PointerLength, g.PointerWidth
	if length == 0 {
		length = 10
	}
	if width == 0 {
		width = 10
	}
	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	back := gofpdf.PointType{
		X: tip.X - v.mm(length)*math.Cos(angle),
		Y: tip.Y - v.mm(length)*math.Sin(angle),
	}
	half := v.mm(width) / 2
	pdf.Polygon([]gofpdf.PointType{
		tip,
		{X: back.X + half*math.Sin(angle), Y: back.Y - half*math.Cos(angle)},
		{X: back.X - half*math.Sin(angle), Y: back.Y + half*math.Cos(angle)},
	}, "FD")
}

func drawText(pdf *gofpdf.Fpdf, v viewport, origin gofpdf.PointType, s model.Shape, g *model.Text) {
	style := ""
	if strings.Contains(g.FontStyle, "bold") {
		style += "B"
	}
	if strings.Contains(g.FontStyle, "italic") {
		style += "I"
	}
	sizeMM := v.mm(g.FontSize)
	pdf.SetFont("Helvetica", style, sizeMM*72/25.4)
	if r, gr, b, ok := parseColor(s.Fill); ok {
		pdf.SetTextColor(r, gr, b)
	} else {
		pdf.SetTextColor(0, 0, 0)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.Text(origin.X, origin.Y+sizeMM*0.8, tr(g.Text))
}

// regular returns n vertices alternating between r1 and r2, starting at the
// top. r1 == r2 gives a regular polygon.
func regular(c gofpdf.PointType, r1, r2 float64, n int) []gofpdf.PointType {
	pts := make([]gofpdf.PointType, 0, n)
	for i := 0; i < n; i++ {
		r := r1
		if i%2 == 1 {
			r = r2
		}
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		pts = append(pts, gofpdf.PointType{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)})
	}
	return pts
}

// sector approximates an annular sector of angle degrees, clockwise from
// the positive x axis.
func sector(c gofpdf.PointType, inner, outer, angle float64) []gofpdf.PointType {
	const steps = 32
	rad := angle * math.Pi / 180
	pts := make([]gofpdf.PointType, 0, 2*(steps+1))
	for i := 0; i <= steps; i++ {
		a := rad * float64(i) / steps
		pts = append(pts, gofpdf.PointType{X: c.X + outer*math.Cos(a), Y: c.Y + outer*math.Sin(a)})
	}
	for i := steps; i >= 0; i-- {
		a := rad * float64(i) / steps
		pts = append(pts, gofpdf.PointType{X: c.X + inner*math.Cos(a), Y: c.Y + inner*math.Sin(a)})
	}
	return pts
}

var namedColors = map[string][3]int{
	"black": {0, 0, 0},
	"white": {255, 255, 255},
	"red":   {255, 0, 0},
	"green": {0, 128, 0},
	"blue":  {0, 0, 255},
}

// parseColor understands #rgb, #rrggbb and a few names. Empty,
// "transparent" and anything unrecognised report ok=false.
func parseColor(c string) (r, g, b int, ok bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	if rgb, found := namedColors[c]; found {
		return rgb[0], rgb[1], rgb[2], true
	}
	if !strings.HasPrefix(c, "#") {
		return 0, 0, 0, false
	}
	hex := c[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
