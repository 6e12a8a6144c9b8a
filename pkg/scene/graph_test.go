package scene

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
)

func names(g *Graph) []string {
	var out []string
	for n := range g.Traverse() {
		out = append(out, n.Name)
	}
	return out
}

func buildTree(t *testing.T) (*Graph, map[string]*Node) {
	t.Helper()
	g := New()
	nodes := map[string]*Node{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		nodes[name] = NewNode(name)
	}
	require.NoError(t, g.Add(nodes["a"]))
	require.NoError(t, g.Attach(nodes["a"], nodes["b"]))
	require.NoError(t, g.Attach(nodes["b"], nodes["c"]))
	require.NoError(t, g.Attach(nodes["a"], nodes["d"]))
	require.NoError(t, g.Add(nodes["e"]))
	return g, nodes
}

func TestTraversePreOrder(t *testing.T) {
	g, _ := buildTree(t)
	assert.Equal(t, []string{"root", "a", "b", "c", "d", "e"}, names(g))
	// restartable with identical results
	assert.Equal(t, names(g), names(g))
}

func TestTraverseEarlyExit(t *testing.T) {
	g, _ := buildTree(t)
	var seen []string
	for n := range g.Traverse() {
		seen = append(seen, n.Name)
		if n.Name == "b" {
			break
		}
	}
	assert.Equal(t, []string{"root", "a", "b"}, seen)
}

func TestAttachCycleLeavesGraphUnchanged(t *testing.T) {
	g, n := buildTree(t)
	before := names(g)

	tests := []struct {
		name          string
		parent, child *Node
	}{
		{"self", n["b"], n["b"]},
		{"ancestor under descendant", n["c"], n["a"]},
		{"parent under child", n["c"], n["b"]},
		{"root under leaf", n["d"], g.Root()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Attach(tt.parent, tt.child)
			var cycle *CycleError
			require.True(t, errors.As(err, &cycle), "got %v", err)
			assert.Same(t, tt.child, cycle.Child)
			assert.Equal(t, before, names(g))
		})
	}
}

func TestAttachReparents(t *testing.T) {
	g, n := buildTree(t)
	require.NoError(t, g.Attach(n["e"], n["b"]))
	assert.Equal(t, []string{"root", "a", "d", "e", "b", "c"}, names(g))
	assert.Same(t, n["e"], n["b"].Parent())
	assert.NotContains(t, n["a"].Children(), n["b"])
}

func TestAttachRejectsNilAndDisposed(t *testing.T) {
	g := New()
	assert.ErrorIs(t, g.Attach(nil, NewNode("x")), ErrNilNode)

	n := NewNode("gone")
	require.NoError(t, g.Add(n))
	g.Dispose(n)
	assert.True(t, n.IsDisposed())
	assert.ErrorIs(t, g.Add(n), ErrDisposed)
}

func TestDetachKeepsSubtree(t *testing.T) {
	g, n := buildTree(t)
	g.Detach(n["b"])

	assert.Equal(t, []string{"root", "a", "d", "e"}, names(g))
	assert.Nil(t, n["b"].Parent())
	var sub []string
	for x := range n["b"].Walk() {
		sub = append(sub, x.Name)
	}
	assert.Equal(t, []string{"b", "c"}, sub)
	assert.False(t, g.Contains(n["c"]))

	// detaching again and detaching the root are no-ops
	g.Detach(n["b"])
	g.Detach(g.Root())
	assert.Equal(t, []string{"root", "a", "d", "e"}, names(g))
}

func TestDisposeMarksSubtree(t *testing.T) {
	g, n := buildTree(t)
	g.Dispose(n["b"])
	assert.True(t, n["b"].IsDisposed())
	assert.True(t, n["c"].IsDisposed())
	assert.False(t, n["a"].IsDisposed())
	assert.False(t, g.Contains(n["b"]))
	assert.True(t, g.Contains(n["d"]))
}

func TestWorldMatrixComposition(t *testing.T) {
	g := New()
	parent := NewNode("parent")
	child := NewNode("child")
	require.NoError(t, g.Add(parent))
	require.NoError(t, g.Attach(parent, child))

	parent.SetPosition(math3d.V3(1, 0, 0))
	parent.SetScaleUniform(2)
	child.SetPosition(math3d.V3(0, 1, 0))
	assert.True(t, child.WorldPosition().ApproxEqual(math3d.V3(1, 2, 0), 1e-9))

	// parent change after the child was computed must propagate
	parent.SetPosition(math3d.V3(0, 0, 5))
	assert.True(t, child.WorldPosition().ApproxEqual(math3d.V3(0, 2, 5), 1e-9))

	// rotating the parent a quarter turn about Z moves the child's +Y onto -X
	parent.SetEuler(0, 0, 1.5707963267948966)
	assert.True(t, child.WorldPosition().ApproxEqual(math3d.V3(-2, 0, 5), 1e-9), "%v", child.WorldPosition())

	// reparenting to the root drops the parent transform
	require.NoError(t, g.Add(child))
	assert.True(t, child.WorldPosition().ApproxEqual(math3d.V3(0, 1, 0), 1e-9))
}

func TestRenderablesAndLights(t *testing.T) {
	g := New()
	box := NewMeshNode("box", models.NewBox(1, 1, 1), models.NewMaterial("m", 0x00ff00))
	hiddenGroup := NewNode("hidden")
	hiddenGroup.Visible = false
	inner := NewMeshNode("inner", models.NewBox(1, 1, 1), nil)
	sun := NewDirectionalLight("sun", 0xffffff, 3)
	require.NoError(t, g.Add(box))
	require.NoError(t, g.Add(hiddenGroup))
	require.NoError(t, g.Attach(hiddenGroup, inner))
	require.NoError(t, g.Add(sun))

	assert.Equal(t, []*Node{box}, slices.Collect(g.Renderables()))
	assert.Equal(t, []*Node{sun}, slices.Collect(g.Lights()))
	assert.Same(t, inner, g.Find("inner"))
	assert.Same(t, box, g.FindByID(box.ID))
	assert.Nil(t, g.Find("missing"))
}

func TestWorldBounds(t *testing.T) {
	n := NewMeshNode("box", models.NewBox(1, 1, 1), nil)
	n.SetPosition(math3d.V3(0, 0, 1.5))
	b := n.WorldBounds()
	assert.InDelta(t, 1.0, b.Min.Z, 1e-9)
	assert.InDelta(t, 2.0, b.Max.Z, 1e-9)
	assert.True(t, NewNode("empty").WorldBounds().IsEmpty())
}

func TestNodeLookAtUnderRotatedParent(t *testing.T) {
	g := New()
	parent := NewNode("p")
	parent.SetEuler(0, 1.2, 0)
	child := NewNode("c")
	require.NoError(t, g.Add(parent))
	require.NoError(t, g.Attach(parent, child))
	child.SetPosition(math3d.V3(0, 0, 0))

	target := math3d.V3(4, 1, -3)
	child.LookAt(target)
	fwd := child.WorldRotation().Rotate(math3d.V3(0, 0, -1))
	assert.True(t, fwd.ApproxEqual(target.Normalize(), 1e-9), "forward %v", fwd)
}
