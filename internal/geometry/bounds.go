package geometry

import "math"

// Minimum box sides accepted while a resize is still in progress.
const (
	LivePreviewMinBox = 5.0
	EditorMinBox      = 20.0
)

// Box is an axis-aligned bounding box as a resize handle reports it.
// Width and Height may go negative when the handle is dragged past the
// opposite edge.
type Box struct {
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
}

// ClampBox decides whether a proposed interactive resize is allowed. A box
// with either side smaller than min is refused by handing back old; any
// other box is accepted as-is.
func ClampBox(old, proposed Box, min float64) Box {
	if math.Abs(proposed.Width) < min || math.Abs(proposed.Height) < min {
		return old
	}
	return proposed
}
