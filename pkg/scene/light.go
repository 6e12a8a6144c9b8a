package scene

import (
	"github.com/taigrr/diorama/pkg/math3d"
)

// LightKind selects how a light contributes to shading.
type LightKind int

const (
	// LightAmbient lights every surface evenly.
	LightAmbient LightKind = iota
	// LightDirectional shines parallel rays from the node position toward
	// Light.Target.
	LightDirectional
	// LightPoint radiates from the node position.
	LightPoint
)

func (k LightKind) String() string {
	switch k {
	case LightAmbient:
		return "ambient"
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	default:
		return "unknown"
	}
}

// ShadowConfig describes the shadow map of a shadow-casting light. The
// shadow camera of a directional light is orthographic, spanning
// [-Extent, Extent] on both axes.
type ShadowConfig struct {
	MapSize int
	Radius  float64
	Near    float64
	Far     float64
	Extent  float64
	Bias    float64
}

// DefaultShadowConfig returns a 512² map with a small PCF radius.
func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		MapSize: 512,
		Radius:  1,
		Near:    0.5,
		Far:     500,
		Extent:  5,
		Bias:    0.005,
	}
}

// Light is the payload of a light node.
type Light struct {
	Kind       LightKind
	Color      [3]float64
	Intensity  float64
	CastShadow bool
	Shadow     ShadowConfig
	// Target is the world point a directional light aims at.
	Target math3d.Vec3
	// Range limits point lights; zero means unlimited.
	Range float64
}

func newLight(kind LightKind, hex uint32, intensity float64) *Light {
	return &Light{
		Kind: kind,
		Color: [3]float64{
			float64(hex>>16&0xff) / 255,
			float64(hex>>8&0xff) / 255,
			float64(hex&0xff) / 255,
		},
		Intensity: intensity,
		Shadow:    DefaultShadowConfig(),
	}
}

// NewAmbientLight creates an ambient light node.
func NewAmbientLight(name string, hex uint32, intensity float64) *Node {
	n := NewNode(name)
	n.Light = newLight(LightAmbient, hex, intensity)
	return n
}

// NewDirectionalLight creates a directional light node aimed at the origin.
func NewDirectionalLight(name string, hex uint32, intensity float64) *Node {
	n := NewNode(name)
	n.Light = newLight(LightDirectional, hex, intensity)
	return n
}

// NewPointLight creates a point light node.
func NewPointLight(name string, hex uint32, intensity, rng float64) *Node {
	n := NewNode(name)
	n.Light = newLight(LightPoint, hex, intensity)
	n.Light.Range = rng
	return n
}

// LightDirection returns the unit direction light travels in, for
// directional lights. Other kinds return the zero vector.
func (n *Node) LightDirection() math3d.Vec3 {
	if n.Light == nil || n.Light.Kind != LightDirectional {
		return math3d.Zero3()
	}
	return n.Light.Target.Sub(n.WorldPosition()).Normalize()
}

// ShadowCamera returns the view and orthographic projection of a directional
// light's shadow map. ok is false for lights that cannot cast shadows.
func (n *Node) ShadowCamera() (view, proj math3d.Mat4, ok bool) {
	if n.Light == nil || n.Light.Kind != LightDirectional || !n.Light.CastShadow {
		return math3d.Mat4{}, math3d.Mat4{}, false
	}
	s := n.Light.Shadow
	if s.Far <= s.Near || s.Extent <= 0 {
		return math3d.Mat4{}, math3d.Mat4{}, false
	}
	eye := n.WorldPosition()
	up := math3d.Up()
	if d := n.LightDirection(); d.Cross(up).LenSq() < 1e-12 {
		up = math3d.V3(0, 0, 1)
	}
	view = math3d.LookAt(eye, n.Light.Target, up)
	proj = math3d.Orthographic(-s.Extent, s.Extent, -s.Extent, s.Extent, s.Near, s.Far)
	return view, proj, true
}
