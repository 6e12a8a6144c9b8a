package anim

import (
	"log/slog"
	"slices"

	"github.com/taigrr/diorama/pkg/scene"
)

// Controller owns the active players. Players are advanced in the order
// they were started, so when two players drive the same property of the
// same node the most recently started one wins.
type Controller struct {
	players []*Player
	graph   *scene.Graph
	log     *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithGraph makes players finish once their target is no longer reachable
// from the graph root. Without it only disposed targets finish players.
func WithGraph(g *scene.Graph) Option {
	return func(c *Controller) {
		c.graph = g
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// NewController creates an empty controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play starts clip on target and returns its player. Playing a nil clip or
// on a nil target returns a finished player that is not registered.
func (c *Controller) Play(target *scene.Node, clip *Clip, mode LoopMode) *Player {
	p := newPlayer(target, clip, mode)
	if p.state == Finished {
		c.log.Warn("animation not started", "clip_nil", clip == nil, "target_nil", target == nil)
		return p
	}
	if clip.Empty() {
		c.log.Debug("playing empty clip", "clip", clip.name)
	}
	if missing := len(clip.tracks) - len(p.bindings); missing > 0 {
		c.log.Debug("unbound animation tracks", "clip", clip.name, "target", target.Name, "missing", missing)
	}
	c.players = append(c.players, p)
	return p
}

// Stop removes a player. Its pose is left as last applied.
func (c *Controller) Stop(p *Player) {
	i := slices.Index(c.players, p)
	if i < 0 {
		return
	}
	c.players = slices.Delete(c.players, i, i+1)
	p.state = Stopped
}

// StopAll removes every player.
func (c *Controller) StopAll() {
	for _, p := range c.players {
		p.state = Stopped
	}
	c.players = nil
}

// Players returns the registered players in start order.
func (c *Controller) Players() []*Player {
	return slices.Clone(c.players)
}

// Advance moves every live player forward by dt seconds and writes the
// sampled values to the bound nodes.
func (c *Controller) Advance(dt float64) {
	for _, p := range c.players {
		if p.state != Playing {
			continue
		}
		if !c.alive(p.target) {
			p.state = Finished
			c.log.Debug("animation target gone", "clip", p.clip.name, "target", p.target.Name)
			continue
		}
		p.advance(dt)
	}
}

func (c *Controller) alive(n *scene.Node) bool {
	if n.IsDisposed() {
		return false
	}
	if c.graph != nil && !c.graph.Contains(n) {
		return false
	}
	return true
}
