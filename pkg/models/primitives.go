package models

import "github.com/taigrr/diorama/pkg/math3d"

// NewBox builds a w×h×d box centred on the origin with flat normals, four
// vertices per side.
func NewBox(w, h, d float64) *Mesh {
	m := NewMesh("box")
	hx, hy, hz := w/2, h/2, d/2
	sides := []struct {
		n, u, v math3d.Vec3
	}{
		{math3d.V3(1, 0, 0), math3d.V3(0, 0, -1), math3d.V3(0, 1, 0)},
		{math3d.V3(-1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)},
		{math3d.V3(0, 1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, -1)},
		{math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, 1)},
		{math3d.V3(0, 0, 1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0)},
		{math3d.V3(0, 0, -1), math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0)},
	}
	half := math3d.V3(hx, hy, hz)
	for _, s := range sides {
		base := len(m.Vertices)
		center := s.n.Mul(half)
		du := s.u.Mul(half)
		dv := s.v.Mul(half)
		corners := [4]struct {
			su, sv float64
		}{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			m.Vertices = append(m.Vertices, MeshVertex{
				Position: center.Add(du.Scale(c.su)).Add(dv.Scale(c.sv)),
				Normal:   s.n,
				UV:       math3d.V2((c.su+1)/2, (c.sv+1)/2),
			})
		}
		m.Faces = append(m.Faces,
			Face{V: [3]int{base, base + 1, base + 2}},
			Face{V: [3]int{base, base + 2, base + 3}},
		)
	}
	m.CalculateBounds()
	return m
}

// NewPlane builds a w×h plane in the XY plane facing +Z.
func NewPlane(w, h float64) *Mesh {
	m := NewMesh("plane")
	hw, hh := w/2, h/2
	n := math3d.V3(0, 0, 1)
	m.Vertices = []MeshVertex{
		{Position: math3d.V3(-hw, -hh, 0), Normal: n, UV: math3d.V2(0, 0)},
		{Position: math3d.V3(hw, -hh, 0), Normal: n, UV: math3d.V2(1, 0)},
		{Position: math3d.V3(hw, hh, 0), Normal: n, UV: math3d.V2(1, 1)},
		{Position: math3d.V3(-hw, hh, 0), Normal: n, UV: math3d.V2(0, 1)},
	}
	m.Faces = []Face{
		{V: [3]int{0, 1, 2}},
		{V: [3]int{0, 2, 3}},
	}
	m.CalculateBounds()
	return m
}
