package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/whiteboard/internal/model"
)

func everyVariant() []model.Shape {
	return []model.Shape{
		{ID: "c", X: 100, Y: 100, Fill: "#FF6B6B", Stroke: "black", StrokeWidth: 2, Geometry: &model.Circle{Radius: 50}},
		{ID: "r", X: 200, Y: 50, Rotation: 30, Fill: "transparent", Stroke: "#333", Geometry: &model.Rectangle{Width: 100, Height: 60}},
		{ID: "e", X: 400, Y: 100, Geometry: &model.Ellipse{RadiusX: 80, RadiusY: 40}},
		{ID: "g", X: 600, Y: 100, Geometry: &model.Polygon{Radius: 50, Sides: 6}},
		{ID: "s", X: 100, Y: 300, Fill: "#F7DC6F", Geometry: &model.Star{NumPoints: 5, InnerRadius: 25, OuterRadius: 50}},
		{ID: "l", X: 300, Y: 300, Geometry: &model.Line{Points: []float64{-50, 0, 50, 0}}},
		{ID: "a", X: 500, Y: 300, Geometry: &model.Arrow{Points: []float64{-50, 0, 50, 20}}},
		{ID: "p", X: 0, Y: 0, Stroke: "#4ECDC4", StrokeWidth: 3, Geometry: &model.Path{Points: []float64{10, 400, 20, 410, 35, 405}}},
		{ID: "t", X: 600, Y: 300, Fill: "blue", Geometry: &model.Text{Text: "Hello, board", FontSize: 24, FontStyle: "bold italic"}},
		{ID: "x", X: 700, Y: 400, Geometry: &model.Arc{InnerRadius: 20, OuterRadius: 40, Angle: 120}},
	}
}

func TestRenderRoom(t *testing.T) {
	room := &model.Room{ID: "r1", Name: "Sprint planning", Shapes: everyVariant()}
	require.Len(t, room.Shapes, len(model.Kinds))

	var buf bytes.Buffer
	require.NoError(t, RenderRoom(&buf, room))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderRoom_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRoom(&buf, &model.Room{ID: "r1", Name: "Empty"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFit_KeepsDrawingOnThePage(t *testing.T) {
	shapes := []model.Shape{
		{X: -5000, Y: -5000, Geometry: &model.Circle{Radius: 10}},
		{X: 5000, Y: 5000, Geometry: &model.Rectangle{Width: 100, Height: 100}},
	}
	v := fit(shapes)

	topLeft := v.pt(-5010, -5010)
	bottomRight := v.pt(5100, 5100)
	assert.InDelta(t, margin, topLeft.X, 0.001)
	assert.LessOrEqual(t, bottomRight.X, pageW-margin+0.001)
	assert.LessOrEqual(t, bottomRight.Y, pageH-margin+0.001)
}

func TestFit_DoesNotEnlargeSmallDrawings(t *testing.T) {
	v := fit([]model.Shape{{X: 10, Y: 10, Geometry: &model.Circle{Radius: 5}}})
	assert.Equal(t, 0.2645, v.scale)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b int
		ok      bool
	}{
		{"#FF6B6B", 255, 107, 107, true},
		{"#abc", 170, 187, 204, true},
		{" Black ", 0, 0, 0, true},
		{"transparent", 0, 0, 0, false},
		{"", 0, 0, 0, false},
		{"#12345", 0, 0, 0, false},
		{"#zzzzzz", 0, 0, 0, false},
		{"rgb(1,2,3)", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, g, b, ok := parseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, []int{tt.r, tt.g, tt.b}, []int{r, g, b})
			}
		})
	}
}
