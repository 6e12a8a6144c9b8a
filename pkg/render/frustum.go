package render

import (
	"github.com/taigrr/diorama/pkg/math3d"
)

// Plane is Normal·p + D = 0. Points with positive distance are on the
// normal side.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// Normalize scales the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum holds the six inward-facing planes of a view volume, ordered
// Left, Right, Bottom, Top, Near, Far.
type Frustum struct {
	Planes [6]Plane
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// NewFrustumFromMatrix extracts the planes of a view-projection matrix
// (Gribb/Hartmann).
func NewFrustumFromMatrix(m math3d.Mat4) Frustum {
	// row i of a column-major matrix is m[i], m[i+4], m[i+8], m[i+12]
	row := func(i int) (math3d.Vec3, float64) {
		return math3d.V3(m[i], m[i+4], m[i+8]), m[i+12]
	}
	n3, d3 := row(3)

	var f Frustum
	for axis := range 3 {
		n, d := row(axis)
		f.Planes[axis*2] = Plane{Normal: n3.Add(n), D: d3 + d}
		f.Planes[axis*2+1] = Plane{Normal: n3.Sub(n), D: d3 - d}
	}
	for i := range f.Planes {
		f.Planes[i].Normalize()
	}
	return f
}

// IntersectAABB reports whether any part of box may be inside the frustum.
// It tests the corner furthest along each plane normal, so boxes near a
// frustum edge can pass when they are in fact outside.
func (f Frustum) IntersectAABB(box math3d.AABB) bool {
	if box.IsEmpty() {
		return false
	}
	for _, plane := range f.Planes {
		p := math3d.V3(
			pick(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			pick(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			pick(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere tests if a sphere intersects the frustum.
func (f Frustum) IntersectsSphere(center math3d.Vec3, radius float64) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}

// FrustumCorners returns the eight world-space corners of the volume
// described by viewProj: near face first, counter-clockwise from
// bottom-left, then the far face in the same order.
func FrustumCorners(viewProj math3d.Mat4) ([8]math3d.Vec3, bool) {
	var out [8]math3d.Vec3
	inv, ok := viewProj.Invert()
	if !ok {
		return out, false
	}
	i := 0
	for _, z := range [2]float64{-1, 1} {
		for _, xy := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			out[i] = inv.MulVec4(math3d.V4(xy[0], xy[1], z, 1)).PerspectiveDivide()
			i++
		}
	}
	return out, true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
