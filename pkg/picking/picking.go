// Package picking turns a pointer position into the list of scene nodes
// under it, nearest first.
package picking

import (
	"iter"
	"math"
	"slices"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/scene"
)

// Intersection is one ray hit.
type Intersection struct {
	Node     *scene.Node
	Distance float64
	Point    math3d.Vec3
	// Face is the index of the hit triangle in Node.Mesh.Faces.
	Face int
}

// RayFromCamera builds the world-space ray from the camera position through
// an NDC point, so hit distances are measured from the eye.
func RayFromCamera(ndc math3d.Vec2, cam *scene.Camera) math3d.Ray {
	eye := cam.WorldPosition()
	through := cam.Unproject(math3d.V3(ndc.X, ndc.Y, 0.5))
	return math3d.NewRay(eye, through.Sub(eye))
}

// Pick casts a ray from cam through ndc and tests every candidate that
// carries geometry. Nodes without a mesh, hidden nodes and disposed nodes
// are skipped. The result is sorted by ascending distance and empty on a
// miss. The scan is linear in the number of candidates; a spatial index can
// replace it without changing the result.
func Pick(ndc math3d.Vec2, cam *scene.Camera, candidates iter.Seq[*scene.Node]) []Intersection {
	ray := RayFromCamera(ndc, cam)
	var hits []Intersection
	for n := range candidates {
		if n == nil || n.Mesh == nil || !n.Visible || n.IsDisposed() {
			continue
		}
		if hit, ok := Intersect(ray, n); ok {
			hits = append(hits, hit)
		}
	}
	slices.SortStableFunc(hits, func(a, b Intersection) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return hits
}

// Intersect returns the nearest hit of a world-space ray on n's mesh.
func Intersect(ray math3d.Ray, n *scene.Node) (Intersection, bool) {
	if n.Mesh == nil || n.Mesh.TriangleCount() == 0 {
		return Intersection{}, false
	}
	world := n.WorldMatrix()
	if _, ok := ray.IntersectAABB(n.Mesh.Bounds().Transform(world)); !ok {
		return Intersection{}, false
	}

	best := Intersection{Node: n, Distance: math.Inf(1), Face: -1}
	for i := range n.Mesh.Faces {
		a, b, c := n.Mesh.Triangle(i)
		t, ok := ray.IntersectTriangle(world.MulVec3(a), world.MulVec3(b), world.MulVec3(c))
		if ok && t < best.Distance {
			best.Distance = t
			best.Face = i
		}
	}
	if best.Face < 0 {
		return Intersection{}, false
	}
	best.Point = ray.At(best.Distance)
	return best, true
}
