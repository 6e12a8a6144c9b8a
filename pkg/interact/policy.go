// Package interact maps clicks on scene nodes to colour changes.
package interact

import (
	"iter"
	"log/slog"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/picking"
	"github.com/taigrr/diorama/pkg/scene"
)

// ColorTable holds the four colours of the click table, indexed by whether
// the node is the primary node and by click parity.
type ColorTable struct {
	PrimaryEven uint32
	PrimaryOdd  uint32
	OtherEven   uint32
	OtherOdd    uint32
}

// DefaultColors is green/red for the primary node and blue/orange for
// everything else.
func DefaultColors() ColorTable {
	return ColorTable{
		PrimaryEven: 0x00ff00,
		PrimaryOdd:  0xff0000,
		OtherEven:   0x0000ff,
		OtherOdd:    0xff6000,
	}
}

// Pick returns the colour for a node with the given role and prior click
// count.
func (t ColorTable) Pick(primary bool, count int) uint32 {
	even := count%2 == 0
	switch {
	case primary && even:
		return t.PrimaryEven
	case primary:
		return t.PrimaryOdd
	case even:
		return t.OtherEven
	default:
		return t.OtherOdd
	}
}

// Toggle describes one applied colour change.
type Toggle struct {
	Node    *scene.Node
	Primary bool
	// Count is the number of clicks the node had received before this one.
	Count int
	Color uint32
	Hit   picking.Intersection
}

// Policy applies the click colour table. It is not safe for concurrent use;
// the frame loop serializes all calls.
type Policy struct {
	cam        *scene.Camera
	candidates func() iter.Seq[*scene.Node]
	colors     ColorTable
	log        *slog.Logger

	primary *scene.Node
	counts  map[uint64]int
	pointer math3d.Vec2

	// OnToggle, if set, is called after every applied change.
	OnToggle func(Toggle)
}

// NewPolicy creates a policy picking against candidates from cam.
func NewPolicy(cam *scene.Camera, candidates func() iter.Seq[*scene.Node], colors ColorTable, log *slog.Logger) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{
		cam:        cam,
		candidates: candidates,
		colors:     colors,
		log:        log,
		counts:     map[uint64]int{},
	}
}

// SetPrimary designates the node that uses the primary colour pair.
func (p *Policy) SetPrimary(n *scene.Node) {
	p.primary = n
}

// Primary returns the primary node.
func (p *Policy) Primary() *scene.Node {
	return p.primary
}

// PointerMove records the latest pointer position in NDC.
func (p *Policy) PointerMove(ndc math3d.Vec2) {
	p.pointer = ndc
}

// Count returns how many times n has been toggled.
func (p *Policy) Count(n *scene.Node) int {
	return p.counts[n.ID]
}

// Click picks at the latest pointer position and recolours the nearest
// node hit. It reports whether anything was toggled; a miss changes nothing.
func (p *Policy) Click() (Toggle, bool) {
	hits := picking.Pick(p.pointer, p.cam, p.candidates())
	if len(hits) == 0 {
		p.log.Debug("click missed", "x", p.pointer.X, "y", p.pointer.Y)
		return Toggle{}, false
	}
	return p.Apply(hits[0]), true
}

// ClickAt moves the pointer and clicks.
func (p *Policy) ClickAt(ndc math3d.Vec2) (Toggle, bool) {
	p.PointerMove(ndc)
	return p.Click()
}

// Apply recolours the node of hit and advances its click counter.
func (p *Policy) Apply(hit picking.Intersection) Toggle {
	n := hit.Node
	count := p.counts[n.ID]
	tg := Toggle{
		Node:    n,
		Primary: n == p.primary,
		Count:   count,
		Hit:     hit,
	}
	tg.Color = p.colors.Pick(tg.Primary, count)
	if n.Material != nil {
		n.Material.SetHex(tg.Color)
	}
	p.counts[n.ID] = count + 1
	p.log.Debug("toggled", "node", n.Name, "id", n.ID, "primary", tg.Primary, "count", count, "color", tg.Color)
	if p.OnToggle != nil {
		p.OnToggle(tg)
	}
	return tg
}
