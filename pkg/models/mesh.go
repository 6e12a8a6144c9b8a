// Package models holds the geometry and material payloads that scene nodes
// carry: triangle meshes, procedural primitives and surface materials.
package models

import (
	"github.com/taigrr/diorama/pkg/math3d"
)

// Mesh is an indexed triangle mesh. Front faces wind counter-clockwise.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face

	bounds math3d.AABB
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
}

// Face is a triangle referencing three entries of Mesh.Vertices.
type Face struct {
	V [3]int
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:   name,
		bounds: math3d.EmptyAABB(),
	}
}

// CalculateBounds recomputes the local bounding box. Call it after editing
// Vertices directly.
func (m *Mesh) CalculateBounds() {
	b := math3d.EmptyAABB()
	for _, v := range m.Vertices {
		b = b.Extend(v.Position)
	}
	m.bounds = b
}

// Bounds returns the local bounding box. Empty meshes report an empty box.
func (m *Mesh) Bounds() math3d.AABB {
	return m.bounds
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Triangle returns the local-space corners of face i.
func (m *Mesh) Triangle(i int) (a, b, c math3d.Vec3) {
	f := m.Faces[i].V
	return m.Vertices[f[0]].Position, m.Vertices[f[1]].Position, m.Vertices[f[2]].Position
}

// CalculateNormals assigns each face normal to its vertices. Shared
// vertices end up with the normal of the last face that touches them.
func (m *Mesh) CalculateNormals() {
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f.V[0]].Position, m.Vertices[f.V[1]].Position, m.Vertices[f.V[2]].Position
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		for _, vi := range f.V {
			m.Vertices[vi].Normal = n
		}
	}
}

// CalculateSmoothNormals computes area-weighted averaged vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f.V[0]].Position, m.Vertices[f.V[1]].Position, m.Vertices[f.V[2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		for _, vi := range f.V {
			m.Vertices[vi].Normal = m.Vertices[vi].Normal.Add(n)
		}
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Transform bakes mat into the vertex data.
func (m *Mesh) Transform(mat math3d.Mat4) {
	normalMat := mat.Inverse().Transpose()
	for i := range m.Vertices {
		m.Vertices[i].Position = mat.MulVec3(m.Vertices[i].Position)
		m.Vertices[i].Normal = normalMat.MulVec3Dir(m.Vertices[i].Normal).Normalize()
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:     m.Name,
		Vertices: make([]MeshVertex, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
		bounds:   m.bounds,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	return clone
}
