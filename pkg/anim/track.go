// Package anim plays keyframe clips against scene nodes. A Controller owns
// the active players and advances them once per frame.
package anim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tanema/gween/ease"

	"github.com/taigrr/diorama/pkg/math3d"
)

// Property is the node attribute a track drives.
type Property int

const (
	// PropTranslation drives the local position (3 values per key).
	PropTranslation Property = iota
	// PropRotation drives the local rotation as a quaternion x, y, z, w.
	PropRotation
	// PropScale drives the local scale (3 values per key).
	PropScale
	// PropRotationX drives a single Euler angle, keeping the other two.
	PropRotationX
	// PropRotationY drives a single Euler angle, keeping the other two.
	PropRotationY
	// PropRotationZ drives a single Euler angle, keeping the other two.
	PropRotationZ
)

// Width returns the number of values per keyframe.
func (p Property) Width() int {
	switch p {
	case PropTranslation, PropScale:
		return 3
	case PropRotation:
		return 4
	default:
		return 1
	}
}

func (p Property) String() string {
	switch p {
	case PropTranslation:
		return "translation"
	case PropRotation:
		return "rotation"
	case PropScale:
		return "scale"
	case PropRotationX:
		return "rotation.x"
	case PropRotationY:
		return "rotation.y"
	case PropRotationZ:
		return "rotation.z"
	default:
		return fmt.Sprintf("property(%d)", int(p))
	}
}

// Interpolation selects how values between keyframes are computed.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
	// InterpCubicSpline stores in-tangent, value, out-tangent per key, as
	// glTF does.
	InterpCubicSpline
)

var errBadTrack = errors.New("anim: invalid track")

// Track is one animated property of one node.
type Track struct {
	// Target names the node inside the bound subtree. Empty targets the
	// bound node itself.
	Target        string
	Property      Property
	Interpolation Interpolation
	// Ease reshapes the fraction between linear keys. Nil means linear.
	Ease ease.TweenFunc

	Times  []float64
	Values []float64
}

// stride is the number of floats stored per keyframe.
func (t *Track) stride() int {
	if t.Interpolation == InterpCubicSpline {
		return 3 * t.Property.Width()
	}
	return t.Property.Width()
}

// Validate checks that times are ascending and values match them.
func (t *Track) Validate() error {
	if len(t.Times) == 0 {
		return fmt.Errorf("%w: %s has no keyframes", errBadTrack, t.Property)
	}
	if len(t.Values) != len(t.Times)*t.stride() {
		return fmt.Errorf("%w: %s has %d values for %d keys", errBadTrack, t.Property, len(t.Values), len(t.Times))
	}
	for i := 1; i < len(t.Times); i++ {
		if t.Times[i] < t.Times[i-1] {
			return fmt.Errorf("%w: %s times not ascending at key %d", errBadTrack, t.Property, i)
		}
	}
	return nil
}

// End returns the time of the last keyframe.
func (t *Track) End() float64 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

// value returns the keyed value (not tangents) of key i.
func (t *Track) value(i int) []float64 {
	w := t.Property.Width()
	s := t.stride()
	off := i * s
	if t.Interpolation == InterpCubicSpline {
		off += w
	}
	return t.Values[off : off+w]
}

// Sample writes the value at time into out, which must hold
// Property.Width() floats. Times outside the keyed range clamp to the
// first or last key.
func (t *Track) Sample(time float64, out []float64) {
	n := len(t.Times)
	if time <= t.Times[0] {
		copy(out, t.value(0))
		return
	}
	if time >= t.Times[n-1] {
		copy(out, t.value(n-1))
		return
	}
	// first key strictly after time
	k := sort.Search(n, func(i int) bool { return t.Times[i] > time })
	i := k - 1
	t0, t1 := t.Times[i], t.Times[k]
	span := t1 - t0
	if span <= 0 {
		copy(out, t.value(k))
		return
	}
	frac := (time - t0) / span

	switch t.Interpolation {
	case InterpStep:
		copy(out, t.value(i))
	case InterpCubicSpline:
		t.hermite(i, k, frac, span, out)
	default:
		if t.Ease != nil {
			frac = float64(t.Ease(float32(frac), 0, 1, 1))
		}
		t.lerp(t.value(i), t.value(k), frac, out)
	}
	if t.Property == PropRotation {
		q := math3d.Quat{X: out[0], Y: out[1], Z: out[2], W: out[3]}.Normalize()
		out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
	}
}

func (t *Track) lerp(a, b []float64, frac float64, out []float64) {
	if t.Property == PropRotation {
		qa := math3d.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
		qb := math3d.Quat{X: b[0], Y: b[1], Z: b[2], W: b[3]}
		q := qa.Slerp(qb, frac)
		out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
		return
	}
	for j := range a {
		out[j] = a[j] + (b[j]-a[j])*frac
	}
}

func (t *Track) hermite(i, k int, s, span float64, out []float64) {
	w := t.Property.Width()
	st := t.stride()
	p0 := t.Values[i*st+w : i*st+2*w]
	m0 := t.Values[i*st+2*w : i*st+3*w]
	m1 := t.Values[k*st : k*st+w]
	p1 := t.Values[k*st+w : k*st+2*w]

	s2, s3 := s*s, s*s*s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	for j := range w {
		out[j] = h00*p0[j] + h10*span*m0[j] + h01*p1[j] + h11*span*m1[j]
	}
}
