package scene

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

var (
	// ErrNilNode is returned when Attach is given a nil parent or child.
	ErrNilNode = errors.New("scene: nil node")
	// ErrDisposed is returned when Attach is given a disposed node.
	ErrDisposed = errors.New("scene: node disposed")
)

// CycleError is returned by Attach when the child is the parent itself or
// one of its ancestors. The graph is left unchanged.
type CycleError struct {
	Parent *Node
	Child  *Node
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("scene: attaching %q (id %d) under %q (id %d) would create a cycle",
		e.Child.Name, e.Child.ID, e.Parent.Name, e.Parent.ID)
}

// Graph owns the root node of a scene.
type Graph struct {
	root *Node
	log  *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for structural changes.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.log = l
	}
}

// New creates a graph with an empty root.
func New(opts ...Option) *Graph {
	g := &Graph{
		root: NewNode("root"),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Root returns the root node.
func (g *Graph) Root() *Node {
	return g.root
}

// Add attaches child directly under the root.
func (g *Graph) Add(child *Node) error {
	return g.Attach(g.root, child)
}

// Attach makes child the last child of parent. A child that already has a
// parent is moved. Subtrees that are not (yet) under the root may be built
// with Attach too.
func (g *Graph) Attach(parent, child *Node) error {
	if parent == nil || child == nil {
		return ErrNilNode
	}
	if parent.disposed || child.disposed {
		return ErrDisposed
	}
	if child.isAncestorOf(parent) {
		err := &CycleError{Parent: parent, Child: child}
		g.log.Debug("attach rejected", "parent", parent.Name, "child", child.Name, "err", err)
		return err
	}
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = parent
	parent.children = append(parent.children, child)
	child.invalidateWorld()
	return nil
}

// Detach removes node and its subtree from its parent. Both halves remain
// valid trees. Detaching a parentless node is a no-op.
func (g *Graph) Detach(node *Node) {
	if node == nil || node.parent == nil {
		return
	}
	node.parent.removeChild(node)
	node.parent = nil
	node.invalidateWorld()
}

// Dispose detaches node and marks its whole subtree inert. Disposed nodes
// cannot be attached again and animation players bound to them finish.
func (g *Graph) Dispose(node *Node) {
	if node == nil || node == g.root {
		return
	}
	g.Detach(node)
	for n := range node.Walk() {
		n.disposed = true
	}
}

// Contains reports whether node is reachable from the root.
func (g *Graph) Contains(node *Node) bool {
	return node != nil && !node.disposed && node.Root() == g.root
}

// Traverse yields every node in depth-first pre-order, starting at the
// root. Each call starts a fresh traversal.
func (g *Graph) Traverse() iter.Seq[*Node] {
	return g.root.Walk()
}

// Renderables yields visible mesh nodes. Invisible nodes hide their subtree.
func (g *Graph) Renderables() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		g.root.walk(func(n *Node) bool {
			if n.Mesh == nil {
				return true
			}
			return yield(n)
		}, hidden)
	}
}

// Lights yields visible light nodes.
func (g *Graph) Lights() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		g.root.walk(func(n *Node) bool {
			if n.Light == nil {
				return true
			}
			return yield(n)
		}, hidden)
	}
}

// Find returns the first node named name in traversal order.
func (g *Graph) Find(name string) *Node {
	for n := range g.Traverse() {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// FindByID returns the node with the given ID, or nil.
func (g *Graph) FindByID(id uint64) *Node {
	for n := range g.Traverse() {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func hidden(n *Node) bool {
	return !n.Visible
}
