package anim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/tanema/gween/ease"
)

// Clip is an immutable named set of tracks. Players reference clips; they
// never modify them.
type Clip struct {
	name     string
	duration float64
	tracks   []Track
}

// NewClip validates tracks and derives the duration from the latest key.
// A clip with no tracks is valid and plays as a no-op.
func NewClip(name string, tracks []Track) (*Clip, error) {
	c := &Clip{name: name, tracks: slices.Clone(tracks)}
	for i := range c.tracks {
		if err := c.tracks[i].Validate(); err != nil {
			return nil, fmt.Errorf("clip %q track %d: %w", name, i, err)
		}
		c.duration = max(c.duration, c.tracks[i].End())
	}
	return c, nil
}

// Name returns the clip name.
func (c *Clip) Name() string { return c.name }

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 { return c.duration }

// Tracks returns the clip's tracks. The slice must not be modified.
func (c *Clip) Tracks() []Track { return c.tracks }

// Empty reports whether playing the clip can have any effect.
func (c *Clip) Empty() bool {
	return c == nil || c.duration <= 0 || len(c.tracks) == 0
}

// NewTweenClip builds a two-key clip that moves prop from `from` to `to`
// over duration seconds, shaped by fn. Pair it with LoopPingPong for a
// yoyo tween.
func NewTweenClip(name string, prop Property, from, to []float64, duration float64, fn ease.TweenFunc) (*Clip, error) {
	vals := make([]float64, 0, len(from)+len(to))
	vals = append(vals, from...)
	vals = append(vals, to...)
	return NewClip(name, []Track{{
		Property: prop,
		Ease:     fn,
		Times:    []float64{0, duration},
		Values:   vals,
	}})
}

// ClipSet indexes clips by name. Build it once when an asset is loaded.
type ClipSet map[string]*Clip

// NewClipSet indexes clips. A later clip replaces an earlier one with the
// same name.
func NewClipSet(clips ...*Clip) ClipSet {
	s := make(ClipSet, len(clips))
	for _, c := range clips {
		s.Add(c)
	}
	return s
}

// Add inserts or replaces a clip.
func (s ClipSet) Add(c *Clip) {
	if c != nil {
		s[c.name] = c
	}
}

// Get returns the clip called name.
func (s ClipSet) Get(name string) (*Clip, bool) {
	c, ok := s[name]
	return c, ok
}

// Names returns the clip names in sorted order.
func (s ClipSet) Names() []string {
	return slices.Sorted(maps.Keys(s))
}
