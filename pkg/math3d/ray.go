package math3d

import "math"

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// NewRay normalizes dir. A zero direction yields a ray that hits nothing.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Direction: dir.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Transform maps the ray through m. The direction is renormalized, so
// distances along the result are in the target space.
func (r Ray) Transform(m Mat4) Ray {
	return NewRay(m.MulVec3(r.Origin), m.MulVec3Dir(r.Direction))
}

// IntersectAABB runs the slab test and returns the entry distance. A ray
// starting inside the box reports its exit distance.
func (r Ray) IntersectAABB(b AABB) (float64, bool) {
	if b.IsEmpty() || r.Direction.LenSq() == 0 {
		return 0, false
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for axis := range 3 {
		o := r.Origin.Component(axis)
		d := r.Direction.Component(axis)
		lo, hi := b.Min.Component(axis), b.Max.Component(axis)
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

const triangleEpsilon = 1e-12

// IntersectTriangle is the Möller–Trumbore test. Both faces count as hits.
func (r Ray) IntersectTriangle(a, b, c Vec3) (float64, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < triangleEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

// IntersectPlane returns the distance to the plane through point with the
// given normal. Rays parallel to the plane miss.
func (r Ray) IntersectPlane(point, normal Vec3) (float64, bool) {
	denom := normal.Dot(r.Direction)
	if math.Abs(denom) < triangleEpsilon {
		return 0, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return 0, false
	}
	return t, true
}
