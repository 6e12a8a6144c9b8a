package render

import (
	"github.com/taigrr/diorama/pkg/math3d"
)

// Wireframe draws world-space lines over a rendered frame without depth
// testing.
type Wireframe struct {
	fb       *Framebuffer
	viewProj math3d.Mat4
}

// NewWireframe creates a wireframe drawer for the given camera matrix.
func NewWireframe(fb *Framebuffer, viewProj math3d.Mat4) *Wireframe {
	return &Wireframe{fb: fb, viewProj: viewProj}
}

// DrawLine3D draws a line in 3D space, clipped against the near plane.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	a := w.viewProj.MulVec4(math3d.V4FromV3(p1, 1))
	b := w.viewProj.MulVec4(math3d.V4FromV3(p2, 1))
	da, db := a.Z+a.W, b.Z+b.W
	if da < 0 && db < 0 {
		return
	}
	if da < 0 || db < 0 {
		t := da / (da - db)
		m := math3d.V4(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t, a.Z+(b.Z-a.Z)*t, a.W+(b.W-a.W)*t)
		if da < 0 {
			a = m
		} else {
			b = m
		}
	}
	if a.W <= 0 || b.W <= 0 {
		return
	}
	x1, y1 := w.toPixel(a)
	x2, y2 := w.toPixel(b)
	w.fb.DrawLine(x1, y1, x2, y2, color)
}

func (w *Wireframe) toPixel(c math3d.Vec4) (int, int) {
	ndc := c.PerspectiveDivide()
	p := math3d.NDCToScreen(math3d.V2(ndc.X, ndc.Y), float64(w.fb.Width), float64(w.fb.Height))
	return int(p.X), int(p.Y)
}

// DrawBox draws the twelve edges of a hexahedron given as a near face and a
// far face, each wound the same way.
func (w *Wireframe) DrawBox(c [8]math3d.Vec3, color Color) {
	for i := range 4 {
		j := (i + 1) % 4
		w.DrawLine3D(c[i], c[j], color)
		w.DrawLine3D(c[i+4], c[j+4], color)
		w.DrawLine3D(c[i], c[i+4], color)
	}
}

// DrawAABB draws an axis-aligned box.
func (w *Wireframe) DrawAABB(b math3d.AABB, color Color) {
	lo, hi := b.Min, b.Max
	w.DrawBox([8]math3d.Vec3{
		math3d.V3(lo.X, lo.Y, lo.Z), math3d.V3(hi.X, lo.Y, lo.Z), math3d.V3(hi.X, hi.Y, lo.Z), math3d.V3(lo.X, hi.Y, lo.Z),
		math3d.V3(lo.X, lo.Y, hi.Z), math3d.V3(hi.X, lo.Y, hi.Z), math3d.V3(hi.X, hi.Y, hi.Z), math3d.V3(lo.X, hi.Y, hi.Z),
	}, color)
}

// DrawAxes draws the world X, Y and Z axes in red, green and blue.
func (w *Wireframe) DrawAxes(length float64) {
	o := math3d.Zero3()
	w.DrawLine3D(o, math3d.V3(length, 0, 0), RGB(255, 0, 0))
	w.DrawLine3D(o, math3d.V3(0, length, 0), RGB(0, 255, 0))
	w.DrawLine3D(o, math3d.V3(0, 0, length), RGB(0, 0, 255))
}

// drawVolume outlines the view volume of volume as seen through viewProj.
func drawVolume(fb *Framebuffer, viewProj, volume math3d.Mat4, color Color) {
	corners, ok := FrustumCorners(volume)
	if !ok {
		return
	}
	NewWireframe(fb, viewProj).DrawBox(corners, color)
}
