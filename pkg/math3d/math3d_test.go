package math3d

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestPerspectiveMatchesMathGL(t *testing.T) {
	got := Perspective(75*math.Pi/180, 16.0/9, 0.1, 1000)
	want := Mat4(mgl64.Perspective(75*math.Pi/180, 16.0/9, 0.1, 1000))
	assert.True(t, got.ApproxEqual(want, 1e-9), "got %v want %v", got, want)
}

func TestComposeDecompose(t *testing.T) {
	tr := V3(1, -2, 3)
	rot := QuatFromEuler(0.3, -0.7, 1.1)
	sc := V3(2, 0.5, 3)

	m := Compose(tr, rot, sc)
	gotT, gotR, gotS := m.Decompose()

	assert.True(t, gotT.ApproxEqual(tr, eps))
	assert.True(t, gotR.ApproxEqual(rot, 1e-9))
	assert.True(t, gotS.ApproxEqual(sc, 1e-9))

	p := V3(0.4, 1, -2)
	want := tr.Add(rot.Rotate(p.Mul(sc)))
	assert.True(t, m.MulVec3(p).ApproxEqual(want, 1e-9))
}

func TestQuatFromEulerMatchesMatrices(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
		m       Mat4
	}{
		{"x", 0.5, 0, 0, RotateX(0.5)},
		{"y", 0, 0.5, 0, RotateY(0.5)},
		{"z", 0, 0, 0.5, RotateZ(0.5)},
		{"xyz", 0.2, 0.4, 0.6, RotateX(0.2).Mul(RotateY(0.4)).Mul(RotateZ(0.6))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatFromEuler(tt.x, tt.y, tt.z)
			assert.True(t, q.Mat4().ApproxEqual(tt.m, 1e-9), "got %v want %v", q.Mat4(), tt.m)
		})
	}
}

func TestQuatSlerpHalfway(t *testing.T) {
	a := QuatIdentity()
	b := QuatAxisAngle(Up(), math.Pi/2)
	mid := a.Slerp(b, 0.5)
	assert.True(t, mid.ApproxEqual(QuatAxisAngle(Up(), math.Pi/4), 1e-9))
}

func TestQuatLookAt(t *testing.T) {
	q := QuatLookAt(V3(0, 0, 3), Zero3(), Up())
	// cameras look down their local -Z
	fwd := q.Rotate(V3(0, 0, -1))
	assert.True(t, fwd.ApproxEqual(V3(0, 0, -1), 1e-9), "forward %v", fwd)

	q = QuatLookAt(V3(3, 0, 0), Zero3(), Up())
	fwd = q.Rotate(V3(0, 0, -1))
	assert.True(t, fwd.ApproxEqual(V3(-1, 0, 0), 1e-9), "forward %v", fwd)
	assert.True(t, q.Rotate(Up()).ApproxEqual(Up(), 1e-9))
}

func TestSphericalRoundTrip(t *testing.T) {
	v := Spherical(4, 0.8, 1.2)
	r, az, pol := ToSpherical(v)
	assert.InDelta(t, 4, r, eps)
	assert.InDelta(t, 0.8, az, eps)
	assert.InDelta(t, 1.2, pol, eps)

	// azimuth 0 on the equator is +Z, matching a camera placed at z=d
	assert.True(t, Spherical(3, 0, math.Pi/2).ApproxEqual(V3(0, 0, 3), eps))
}

func TestScreenToNDC(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want Vec2
	}{
		{"top-left", 0, 0, V2(-1, 1)},
		{"center", 400, 300, V2(0, 0)},
		{"bottom-right", 800, 600, V2(1, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScreenToNDC(tt.x, tt.y, 800, 600)
			assert.InDelta(t, tt.want.X, got.X, eps)
			assert.InDelta(t, tt.want.Y, got.Y, eps)
			back := NDCToScreen(got, 800, 600)
			assert.InDelta(t, tt.x, back.X, eps)
			assert.InDelta(t, tt.y, back.Y, eps)
		})
	}
	assert.Equal(t, Vec2{}, ScreenToNDC(1, 1, 0, 600))
}

func TestRayIntersectAABB(t *testing.T) {
	box := NewAABB(V3(-1, -1, -1), V3(1, 1, 1))
	tests := []struct {
		name   string
		ray    Ray
		hit    bool
		distTo float64
	}{
		{"front", NewRay(V3(0, 0, 5), V3(0, 0, -1)), true, 4},
		{"miss", NewRay(V3(3, 0, 5), V3(0, 0, -1)), false, 0},
		{"behind", NewRay(V3(0, 0, 5), V3(0, 0, 1)), false, 0},
		{"inside", NewRay(Zero3(), V3(1, 0, 0)), true, 1},
		{"parallel outside", NewRay(V3(0, 2, 5), V3(0, 0, -1)), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.ray.IntersectAABB(box)
			assert.Equal(t, tt.hit, ok)
			if tt.hit {
				assert.InDelta(t, tt.distTo, d, eps)
			}
		})
	}
	_, ok := NewRay(V3(0, 0, 5), V3(0, 0, -1)).IntersectAABB(EmptyAABB())
	assert.False(t, ok)
}

func TestRayIntersectTriangle(t *testing.T) {
	a, b, c := V3(-1, -1, 0), V3(1, -1, 0), V3(0, 1, 0)

	d, ok := NewRay(V3(0, 0, 2), V3(0, 0, -1)).IntersectTriangle(a, b, c)
	assert.True(t, ok)
	assert.InDelta(t, 2, d, eps)

	// back face still hits
	d, ok = NewRay(V3(0, 0, -2), V3(0, 0, 1)).IntersectTriangle(a, b, c)
	assert.True(t, ok)
	assert.InDelta(t, 2, d, eps)

	_, ok = NewRay(V3(2, 2, 2), V3(0, 0, -1)).IntersectTriangle(a, b, c)
	assert.False(t, ok)

	_, ok = NewRay(V3(0, 0, 2), V3(1, 0, 0)).IntersectTriangle(a, b, c)
	assert.False(t, ok)
}

func TestRayIntersectPlane(t *testing.T) {
	r := NewRay(V3(0, 5, 0), V3(0, -1, 0))
	d, ok := r.IntersectPlane(Zero3(), Up())
	assert.True(t, ok)
	assert.InDelta(t, 5, d, eps)
	assert.True(t, r.At(d).ApproxEqual(Zero3(), eps))
}

func TestAABBTransform(t *testing.T) {
	box := NewAABB(V3(-1, -1, -1), V3(1, 1, 1))
	got := box.Transform(Translate(V3(5, 0, 0)).Mul(Scale(V3(2, 1, 1))))
	assert.True(t, got.Min.ApproxEqual(V3(3, -1, -1), eps))
	assert.True(t, got.Max.ApproxEqual(V3(7, 1, 1), eps))
	assert.True(t, EmptyAABB().Transform(Identity()).IsEmpty())
}

func TestInvertSingular(t *testing.T) {
	_, ok := Scale(V3(0, 1, 1)).Invert()
	assert.False(t, ok)
	assert.Equal(t, Identity(), Scale(V3(0, 1, 1)).Inverse())
}

func TestQuatEulerRoundTrip(t *testing.T) {
	tests := []Vec3{
		V3(0, 0, 0),
		V3(0, 0, 2.5),
		V3(0.3, -0.4, 1.2),
		V3(-1.0, 0.2, -3.0),
	}
	for _, e := range tests {
		q := QuatFromEuler(e.X, e.Y, e.Z)
		got := q.Euler()
		assert.True(t, QuatFromEuler(got.X, got.Y, got.Z).ApproxEqual(q, 1e-9), "euler %v -> %v", e, got)
	}
}
