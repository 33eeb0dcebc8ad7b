package wrapper

import "math"

// markerPadding is the gap kept between the drawn marker box and the elements it encloses
const markerPadding = 5

// Rect is an axis-aligned box in CSS pixels
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size is a width/height pair, used for the window and the viewport
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position on screen
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Area returns height x width
func (r Rect) Area() float64 {
	return r.Height * r.Width
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 {
	return r.X + r.Width
}

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// HasExtent reports whether the box is wider or taller than zero
func (r Rect) HasExtent() bool {
	return r.Width > 0 || r.Height > 0
}

// VisibleOrSized is the "plausibly visible" heuristic: the bottom-right corner
// lies at non-negative coordinates, or the box has positive width and height.
func (r Rect) VisibleOrSized() bool {
	if r.Right() >= 0 && r.Bottom() >= 0 {
		return true
	}
	return r.Width > 0 && r.Height > 0
}

// Contains reports whether other lies inside r. Touching edges count as inside.
func (r Rect) Contains(other Rect) bool {
	if other.X < r.X || other.Y < r.Y {
		return false
	}
	if other.Right() > r.Right() {
		return false
	}
	if other.Bottom() > r.Bottom() {
		return false
	}
	return true
}

// Area returns height x width
func (s Size) Area() float64 {
	return s.Height * s.Width
}

// Enclose returns the box around all rects, grown outward by pad.
// The width and height are measured from the padded origin, so the box ends
// pad pixels past the right-most and bottom-most edges.
func Enclose(rects []Rect, pad float64) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range rects {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}

	x := minX - pad
	y := minY - pad
	return Rect{
		X:      x,
		Y:      y,
		Width:  maxX - x + pad,
		Height: maxY - y + pad,
	}, true
}
