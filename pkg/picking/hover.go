package picking

import (
	"iter"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/scene"
)

// Hover tracks the node under the pointer across frames. Refresh is meant
// to run once per frame after the camera and animations have moved.
type Hover struct {
	cam        *scene.Camera
	candidates func() iter.Seq[*scene.Node]

	pointer math3d.Vec2
	active  bool
	current *scene.Node
	hits    []Intersection

	// OnEnter and OnLeave fire when the nearest hovered node changes.
	OnEnter func(*scene.Node)
	OnLeave func(*scene.Node)
}

// NewHover creates a tracker. candidates is called on every refresh so
// nodes added later are picked up.
func NewHover(cam *scene.Camera, candidates func() iter.Seq[*scene.Node]) *Hover {
	return &Hover{cam: cam, candidates: candidates}
}

// SetPointer records the pointer position in NDC.
func (h *Hover) SetPointer(ndc math3d.Vec2) {
	h.pointer = ndc
	h.active = true
}

// ClearPointer marks the pointer as outside the viewport.
func (h *Hover) ClearPointer() {
	h.active = false
}

// Pointer returns the last recorded pointer position.
func (h *Hover) Pointer() math3d.Vec2 {
	return h.pointer
}

// Refresh re-picks at the current pointer and fires enter/leave callbacks.
func (h *Hover) Refresh() {
	var next *scene.Node
	h.hits = h.hits[:0]
	if h.active {
		h.hits = Pick(h.pointer, h.cam, h.candidates())
		if len(h.hits) > 0 {
			next = h.hits[0].Node
		}
	}
	if next == h.current {
		return
	}
	if h.current != nil && h.OnLeave != nil {
		h.OnLeave(h.current)
	}
	h.current = next
	if next != nil && h.OnEnter != nil {
		h.OnEnter(next)
	}
}

// Current returns the hovered node, or nil.
func (h *Hover) Current() *scene.Node {
	return h.current
}

// Hits returns the intersections from the last refresh.
func (h *Hover) Hits() []Intersection {
	return h.hits
}
