package models

import (
	"fmt"
	"image/color"
	"math"
)

// Shading selects the lighting model a material is rendered with.
type Shading int

const (
	// ShadingLambert is diffuse lighting, the default.
	ShadingLambert Shading = iota
	// ShadingPhong adds a specular highlight from directional lights.
	ShadingPhong
	// ShadingUnlit ignores lights.
	ShadingUnlit
)

// Material describes how a renderable node's surface responds to light.
// Color is sRGB-encoded in [0, 1]; the renderer linearizes it.
type Material struct {
	Name      string
	Color     [3]float64
	Opacity   float64
	Shading   Shading
	Shininess float64
	Metallic  float64
	Roughness float64
}

// NewMaterial returns an opaque Lambert material of the given 0xRRGGBB color.
func NewMaterial(name string, hex uint32) *Material {
	m := &Material{Name: name, Opacity: 1, Roughness: 1, Shininess: 30}
	m.SetHex(hex)
	return m
}

// SetHex sets the base color from a 0xRRGGBB value.
func (m *Material) SetHex(hex uint32) {
	m.Color = [3]float64{
		float64(hex>>16&0xff) / 255,
		float64(hex>>8&0xff) / 255,
		float64(hex&0xff) / 255,
	}
}

// Hex returns the base color as 0xRRGGBB.
func (m *Material) Hex() uint32 {
	c := m.RGBA()
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// RGBA returns the base color as 8-bit RGBA.
func (m *Material) RGBA() color.RGBA {
	return color.RGBA{
		R: channel(m.Color[0]),
		G: channel(m.Color[1]),
		B: channel(m.Color[2]),
		A: channel(m.Opacity),
	}
}

// Clone returns an independent copy.
func (m *Material) Clone() *Material {
	c := *m
	return &c
}

func (m *Material) String() string {
	return fmt.Sprintf("%s(#%06x)", m.Name, m.Hex())
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
