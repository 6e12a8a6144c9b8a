// Package rig implements an orbit camera controller. The camera sits on a
// sphere around a target point and always looks at it.
package rig

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/scene"
)

// PolarEpsilon keeps the camera off the poles, where the view direction
// would be parallel to up.
const PolarEpsilon = 1e-6

// settleThreshold is the speed below which damped motion stops.
const settleThreshold = 1e-5

// Config tunes the rig.
type Config struct {
	// RotateSpeed converts drag units to radians.
	RotateSpeed float64
	// ZoomSpeed is the exponent applied per scroll unit: each unit scales
	// the distance by 1.05^ZoomSpeed.
	ZoomSpeed   float64
	MinDistance float64
	MaxDistance float64
	// Damping keeps the rig moving after input stops, decaying with a
	// critically damped spring.
	Damping          bool
	DampingFrequency float64
}

// DefaultConfig returns the defaults used by the demo.
func DefaultConfig() Config {
	return Config{
		RotateSpeed:      math.Pi,
		ZoomSpeed:        1,
		MinDistance:      0.1,
		MaxDistance:      500,
		DampingFrequency: 4.0,
	}
}

// axis is one damped degree of freedom, the same velocity-decay scheme as
// a spring pulling the velocity toward zero.
type axis struct {
	velocity float64
	accel    float64
}

func (a *axis) decay(s harmonica.Spring) {
	a.velocity, a.accel = s.Update(a.velocity, a.accel, 0)
	if math.Abs(a.velocity) < settleThreshold && math.Abs(a.accel) < settleThreshold {
		a.velocity, a.accel = 0, 0
	}
}

func (a *axis) moving() bool {
	return a.velocity != 0 || a.accel != 0
}

// Rig is an orbit controller bound to one camera.
type Rig struct {
	cam *scene.Camera
	cfg Config

	target   math3d.Vec3
	distance float64
	azimuth  float64
	polar    float64

	dx, dy, dz float64

	az, pol, zoom axis
	spring        harmonica.Spring
	springDT      float64

	home struct {
		target                   math3d.Vec3
		distance, azimuth, polar float64
	}
}

// New creates a rig around target, taking the spherical coordinates from
// the camera's current position. The camera is turned to face target.
func New(cam *scene.Camera, target math3d.Vec3, cfg Config) *Rig {
	r := &Rig{cam: cam, cfg: cfg, target: target}
	r.distance, r.azimuth, r.polar = math3d.ToSpherical(cam.WorldPosition().Sub(target))
	if r.distance == 0 {
		r.distance, r.polar = math.Max(cfg.MinDistance, 1), math.Pi/2
	}
	r.clamp()
	r.home.target = r.target
	r.home.distance, r.home.azimuth, r.home.polar = r.distance, r.azimuth, r.polar
	r.place()
	return r
}

// Drag queues a rotation. Positive dx orbits the camera to the left of the
// target, positive dy raises it.
func (r *Rig) Drag(dx, dy float64) {
	r.dx += dx
	r.dy += dy
}

// Scroll queues a zoom. Positive values move the camera away.
func (r *Rig) Scroll(dz float64) {
	r.dz += dz
}

// Update consumes the input queued since the last call and repositions the
// camera. It reports whether the camera moved; with no input and no damped
// motion left it does nothing.
func (r *Rig) Update(dt float64) bool {
	dAz := -r.dx * r.cfg.RotateSpeed
	dPol := -r.dy * r.cfg.RotateSpeed
	dZoom := r.dz * r.cfg.ZoomSpeed
	r.dx, r.dy, r.dz = 0, 0, 0

	if r.cfg.Damping {
		r.az.velocity += dAz
		r.pol.velocity += dPol
		r.zoom.velocity += dZoom
		if !r.az.moving() && !r.pol.moving() && !r.zoom.moving() {
			return false
		}
		dAz, dPol, dZoom = r.az.velocity, r.pol.velocity, r.zoom.velocity
		if dt > 0 {
			if dt != r.springDT {
				r.spring = harmonica.NewSpring(dt, r.cfg.DampingFrequency, 1.0)
				r.springDT = dt
			}
			r.az.decay(r.spring)
			r.pol.decay(r.spring)
			r.zoom.decay(r.spring)
		}
	} else if dAz == 0 && dPol == 0 && dZoom == 0 {
		return false
	}

	r.azimuth += dAz
	r.polar += dPol
	r.distance *= math.Pow(1.05, dZoom)
	if r.clamp() {
		r.pol = axis{}
	}
	r.place()
	return true
}

// SetTarget moves the orbit centre, keeping distance and angles.
func (r *Rig) SetTarget(t math3d.Vec3) {
	r.target = t
	r.place()
}

// Reset returns to the pose the rig was created with.
func (r *Rig) Reset() {
	r.target = r.home.target
	r.distance, r.azimuth, r.polar = r.home.distance, r.home.azimuth, r.home.polar
	r.dx, r.dy, r.dz = 0, 0, 0
	r.az, r.pol, r.zoom = axis{}, axis{}, axis{}
	r.place()
}

// Target returns the orbit centre.
func (r *Rig) Target() math3d.Vec3 { return r.target }

// Camera returns the controlled camera.
func (r *Rig) Camera() *scene.Camera { return r.cam }

// Spherical returns distance, azimuth and polar angle.
func (r *Rig) Spherical() (distance, azimuth, polar float64) {
	return r.distance, r.azimuth, r.polar
}

// clamp enforces the polar and distance limits. It reports whether the
// polar angle hit a limit.
func (r *Rig) clamp() bool {
	p := math3d.Clamp(r.polar, PolarEpsilon, math.Pi-PolarEpsilon)
	hit := p != r.polar
	r.polar = p
	lo, hi := r.cfg.MinDistance, r.cfg.MaxDistance
	if hi <= 0 {
		hi = math.Inf(1)
	}
	r.distance = math3d.Clamp(r.distance, math.Max(lo, PolarEpsilon), hi)
	return hit
}

func (r *Rig) place() {
	r.cam.SetPosition(r.target.Add(math3d.Spherical(r.distance, r.azimuth, r.polar)))
	r.cam.LookAt(r.target)
}
