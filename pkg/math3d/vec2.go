package math3d

// Vec2 is a 2D vector, used for pointer positions in normalized device
// coordinates and for texture coordinates.
type Vec2 struct {
	X, Y float64
}

// V2 creates a new Vec2.
func V2(x, y float64) Vec2 {
	return Vec2{x, y}
}

// Add returns a + b.
func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{a.X + b.X, a.Y + b.Y}
}

// Sub returns a - b.
func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{a.X - b.X, a.Y - b.Y}
}

// Scale returns a * s.
func (a Vec2) Scale(s float64) Vec2 {
	return Vec2{a.X * s, a.Y * s}
}

// ScreenToNDC maps a pixel coordinate inside a w×h viewport to normalized
// device coordinates in [-1, 1]². Y is flipped: screen rows grow downward,
// NDC Y grows upward.
func ScreenToNDC(x, y, w, h float64) Vec2 {
	if w <= 0 || h <= 0 {
		return Vec2{}
	}
	return Vec2{
		X: x/w*2 - 1,
		Y: -(y/h)*2 + 1,
	}
}

// NDCToScreen is the inverse of ScreenToNDC.
func NDCToScreen(ndc Vec2, w, h float64) Vec2 {
	return Vec2{
		X: (ndc.X + 1) / 2 * w,
		Y: (1 - ndc.Y) / 2 * h,
	}
}
