// Package scene is the retained scene graph: a tree of nodes with local
// transforms, optional mesh and light payloads, and lazily cached world
// matrices.
package scene

import (
	"iter"
	"sync/atomic"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
)

var nodeIDCounter atomic.Uint64

// Node is one element of the scene tree. A node is owned by its parent; the
// Graph owns the root.
type Node struct {
	ID   uint64
	Name string

	// Visible nodes and their visible descendants are rendered and pickable.
	Visible bool

	// Renderable payload. A node is a mesh node when Mesh is non-nil.
	Mesh          *models.Mesh
	Material      *models.Material
	CastShadow    bool
	ReceiveShadow bool

	Light *Light

	UserData any

	parent   *Node
	children []*Node

	position math3d.Vec3
	rotation math3d.Quat
	scale    math3d.Vec3

	local      math3d.Mat4
	world      math3d.Mat4
	localDirty bool
	worldDirty bool

	disposed bool
}

// NewNode creates an empty group node at the origin.
func NewNode(name string) *Node {
	return &Node{
		ID:         nodeIDCounter.Add(1),
		Name:       name,
		Visible:    true,
		rotation:   math3d.QuatIdentity(),
		scale:      math3d.V3(1, 1, 1),
		localDirty: true,
		worldDirty: true,
	}
}

// NewMeshNode creates a renderable node.
func NewMeshNode(name string, mesh *models.Mesh, mat *models.Material) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	n.Material = mat
	return n
}

// Parent returns the parent node, or nil for roots and detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct children. The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// IsDisposed reports whether Dispose has been called on n or an ancestor.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// Position returns the local translation.
func (n *Node) Position() math3d.Vec3 { return n.position }

// Rotation returns the local rotation.
func (n *Node) Rotation() math3d.Quat { return n.rotation }

// Scale returns the local scale.
func (n *Node) Scale() math3d.Vec3 { return n.scale }

// SetPosition sets the local translation.
func (n *Node) SetPosition(p math3d.Vec3) {
	n.position = p
	n.invalidateLocal()
}

// SetRotation sets the local rotation.
func (n *Node) SetRotation(q math3d.Quat) {
	n.rotation = q.Normalize()
	n.invalidateLocal()
}

// SetEuler sets the local rotation from XYZ Euler angles in radians.
func (n *Node) SetEuler(x, y, z float64) {
	n.SetRotation(math3d.QuatFromEuler(x, y, z))
}

// Euler returns the local rotation as XYZ Euler angles.
func (n *Node) Euler() math3d.Vec3 {
	return n.rotation.Euler()
}

// SetScale sets the local scale.
func (n *Node) SetScale(s math3d.Vec3) {
	n.scale = s
	n.invalidateLocal()
}

// SetScaleUniform sets the same scale on all three axes.
func (n *Node) SetScaleUniform(s float64) {
	n.SetScale(math3d.V3(s, s, s))
}

// SetMatrix replaces the local transform with the decomposition of m.
func (n *Node) SetMatrix(m math3d.Mat4) {
	n.position, n.rotation, n.scale = m.Decompose()
	n.invalidateLocal()
}

// LocalMatrix returns translation * rotation * scale.
func (n *Node) LocalMatrix() math3d.Mat4 {
	if n.localDirty {
		n.local = math3d.Compose(n.position, n.rotation, n.scale)
		n.localDirty = false
	}
	return n.local
}

// WorldMatrix returns the composition of every ancestor's local transform
// with this node's. It is recomputed only after something above or at this
// node changed.
func (n *Node) WorldMatrix() math3d.Mat4 {
	if n.worldDirty {
		if n.parent == nil {
			n.world = n.LocalMatrix()
		} else {
			n.world = n.parent.WorldMatrix().Mul(n.LocalMatrix())
		}
		n.worldDirty = false
	}
	return n.world
}

// WorldPosition returns the node origin in world space.
func (n *Node) WorldPosition() math3d.Vec3 {
	return n.WorldMatrix().Translation()
}

// WorldRotation returns the accumulated rotation of the node.
func (n *Node) WorldRotation() math3d.Quat {
	q := n.rotation
	for p := n.parent; p != nil; p = p.parent {
		q = p.rotation.Mul(q)
	}
	return q
}

// WorldBounds returns the mesh bounds in world space, or an empty box for
// nodes without geometry.
func (n *Node) WorldBounds() math3d.AABB {
	if n.Mesh == nil {
		return math3d.EmptyAABB()
	}
	return n.Mesh.Bounds().Transform(n.WorldMatrix())
}

// LookAt rotates the node so its -Z axis points at a world-space target.
func (n *Node) LookAt(target math3d.Vec3) {
	q := math3d.QuatLookAt(n.WorldPosition(), target, math3d.Up())
	if n.parent != nil {
		q = n.parent.WorldRotation().Inverse().Mul(q)
	}
	n.SetRotation(q)
}

// Walk yields n and its descendants in depth-first pre-order.
func (n *Node) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield, nil)
	}
}

// walk reports false when the consumer stopped early. prune, if set, skips
// the subtree of any node it returns true for.
func (n *Node) walk(yield func(*Node) bool, prune func(*Node) bool) bool {
	if prune != nil && prune(n) {
		return true
	}
	if !yield(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(yield, prune) {
			return false
		}
	}
	return true
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (n *Node) invalidateLocal() {
	n.localDirty = true
	n.invalidateWorld()
}

// invalidateWorld marks n and its subtree stale. A clean node always has
// clean ancestors, so an already-dirty node has an all-dirty subtree.
func (n *Node) invalidateWorld() {
	if n.worldDirty {
		return
	}
	n.worldDirty = true
	for _, c := range n.children {
		c.invalidateWorld()
	}
}

func (n *Node) isAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}
