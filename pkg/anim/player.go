package anim

import (
	"math"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/scene"
)

// LoopMode controls what happens when the playhead reaches an end.
type LoopMode int

const (
	// LoopOnce clamps at the end and finishes.
	LoopOnce LoopMode = iota
	// LoopRepeat wraps the playhead modulo the duration.
	LoopRepeat
	// LoopPingPong reflects at each end and reverses direction.
	LoopPingPong
)

func (m LoopMode) String() string {
	switch m {
	case LoopOnce:
		return "once"
	case LoopRepeat:
		return "repeat"
	case LoopPingPong:
		return "pingpong"
	default:
		return "unknown"
	}
}

// State is the playback state of a Player.
type State int

const (
	Playing State = iota
	Paused
	Finished
	Stopped
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type binding struct {
	track *Track
	node  *scene.Node
}

// Player binds one clip to one target subtree.
type Player struct {
	clip   *Clip
	target *scene.Node
	mode   LoopMode

	time      float64
	direction float64
	rate      float64
	state     State

	bindings []binding
	scratch  [4]float64
}

func newPlayer(target *scene.Node, clip *Clip, mode LoopMode) *Player {
	p := &Player{
		clip:      clip,
		target:    target,
		mode:      mode,
		direction: 1,
		rate:      1,
	}
	if target == nil || clip == nil {
		p.state = Finished
		return p
	}
	p.bind()
	return p
}

// bind resolves each track's target by name, first match in pre-order.
func (p *Player) bind() {
	byName := map[string]*scene.Node{}
	for n := range p.target.Walk() {
		if _, seen := byName[n.Name]; !seen {
			byName[n.Name] = n
		}
	}
	for i := range p.clip.tracks {
		tr := &p.clip.tracks[i]
		node := p.target
		if tr.Target != "" && tr.Target != p.target.Name {
			node = byName[tr.Target]
		}
		if node != nil {
			p.bindings = append(p.bindings, binding{track: tr, node: node})
		}
	}
}

// Clip returns the clip being played.
func (p *Player) Clip() *Clip { return p.clip }

// Target returns the bound node.
func (p *Player) Target() *scene.Node { return p.target }

// Mode returns the loop mode.
func (p *Player) Mode() LoopMode { return p.mode }

// Time returns the playhead in seconds.
func (p *Player) Time() float64 { return p.time }

// Direction is +1 while moving forward through the clip and -1 while a
// ping-pong player runs backwards.
func (p *Player) Direction() float64 { return p.direction }

// State returns the playback state.
func (p *Player) State() State { return p.state }

// Bound returns the number of tracks that found a target node.
func (p *Player) Bound() int { return len(p.bindings) }

// SetRate scales playback speed. Negative rates play backwards.
func (p *Player) SetRate(r float64) { p.rate = r }

// Pause freezes the playhead.
func (p *Player) Pause() {
	if p.state == Playing {
		p.state = Paused
	}
}

// Resume continues a paused player.
func (p *Player) Resume() {
	if p.state == Paused {
		p.state = Playing
	}
}

// Replay rewinds a player to the start and plays it again. Stopped players
// stay stopped.
func (p *Player) Replay() {
	if p.state == Stopped || p.target == nil || p.clip == nil {
		return
	}
	p.time = 0
	p.direction = 1
	p.state = Playing
}

// Seek moves the playhead without applying it. Players without a clip
// ignore it.
func (p *Player) Seek(t float64) {
	if p.clip == nil {
		return
	}
	p.time = math3d.Clamp(t, 0, p.clip.duration)
}

// advance moves the playhead by dt and applies the sampled pose.
func (p *Player) advance(dt float64) {
	if p.state != Playing || p.clip.Empty() {
		return
	}
	d := p.clip.duration
	t := p.time + dt*p.rate*p.direction

	switch p.mode {
	case LoopOnce:
		if t >= d {
			t = d
			p.state = Finished
		} else if t <= 0 && dt*p.rate*p.direction < 0 {
			t = 0
			p.state = Finished
		}
	case LoopRepeat:
		t = math.Mod(t, d)
		if t < 0 {
			t += d
		}
	case LoopPingPong:
		if t < 0 || t > d {
			// number of end reflections crossed on the way to t
			k := math.Floor(t / d)
			u := math.Mod(t, 2*d)
			if u < 0 {
				u += 2 * d
			}
			if u > d {
				u = 2*d - u
			}
			if int64(k)%2 != 0 {
				p.direction = -p.direction
			}
			t = u
		}
	}
	p.time = t
	p.apply()
}

func (p *Player) apply() {
	for _, b := range p.bindings {
		if b.node.IsDisposed() {
			continue
		}
		out := p.scratch[:b.track.Property.Width()]
		b.track.Sample(p.time, out)
		write(b.node, b.track.Property, out)
	}
}

func write(n *scene.Node, prop Property, v []float64) {
	switch prop {
	case PropTranslation:
		n.SetPosition(math3d.V3(v[0], v[1], v[2]))
	case PropRotation:
		n.SetRotation(math3d.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]})
	case PropScale:
		n.SetScale(math3d.V3(v[0], v[1], v[2]))
	case PropRotationX, PropRotationY, PropRotationZ:
		e := n.Euler()
		switch prop {
		case PropRotationX:
			e.X = v[0]
		case PropRotationY:
			e.Y = v[0]
		default:
			e.Z = v[0]
		}
		n.SetEuler(e.X, e.Y, e.Z)
	}
}
