package render

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
	"github.com/taigrr/diorama/pkg/scene"
)

// specularF0 is the reflectance used for Phong highlights.
const specularF0 = 0.04

type directional struct {
	node     *scene.Node
	toLight  math3d.Vec3
	radiance [3]float64
}

type point struct {
	pos      math3d.Vec3
	radiance [3]float64
	rng      float64
}

// lights is the per-frame light environment.
type lights struct {
	ambient     [3]float64
	directional []directional
	points      []point
	// shadow indexes the directional light whose contribution is shadowed,
	// or -1.
	shadow int
}

// linear converts an sRGB-encoded color in [0, 1] to linear RGB.
func linear(c [3]float64) [3]float64 {
	r, g, b := colorful.Color{R: c[0], G: c[1], B: c[2]}.LinearRgb()
	return [3]float64{r, g, b}
}

func scale3(c [3]float64, s float64) [3]float64 {
	return [3]float64{c[0] * s, c[1] * s, c[2] * s}
}

func collectLights(nodes []*scene.Node, shadows bool) lights {
	ls := lights{shadow: -1}
	for _, n := range nodes {
		l := n.Light
		radiance := scale3(linear(l.Color), l.Intensity)
		switch l.Kind {
		case scene.LightAmbient:
			for k := range 3 {
				ls.ambient[k] += radiance[k]
			}
		case scene.LightDirectional:
			if shadows && ls.shadow < 0 && l.CastShadow {
				ls.shadow = len(ls.directional)
			}
			ls.directional = append(ls.directional, directional{
				node:     n,
				toLight:  n.LightDirection().Negate(),
				radiance: radiance,
			})
		case scene.LightPoint:
			ls.points = append(ls.points, point{pos: n.WorldPosition(), radiance: radiance, rng: l.Range})
		}
	}
	return ls
}

// shade evaluates a Lambert or Blinn-Phong BRDF at a vertex. The shadowed
// light's share is returned separately in direct.
func (ls *lights) shade(mat *models.Material, pos, normal, eye math3d.Vec3) (base, direct [3]float64) {
	albedo := linear(mat.Color)
	if mat.Shading == models.ShadingUnlit {
		return albedo, direct
	}

	diffuse := scale3(albedo, 1/math.Pi)
	add := func(dst *[3]float64, irradiance [3]float64, toLight math3d.Vec3) {
		spec := 0.0
		if mat.Shading == models.ShadingPhong {
			h := toLight.Add(eye.Sub(pos).Normalize()).Normalize()
			nh := math.Max(0, normal.Dot(h))
			spec = specularF0 * 0.25 * (mat.Shininess*0.5 + 1) / math.Pi * math.Pow(nh, mat.Shininess)
		}
		for k := range 3 {
			dst[k] += irradiance[k] * (diffuse[k] + spec)
		}
	}

	for k := range 3 {
		base[k] = ls.ambient[k] * diffuse[k]
	}
	for i, d := range ls.directional {
		nl := normal.Dot(d.toLight)
		if nl <= 0 {
			continue
		}
		if i == ls.shadow {
			add(&direct, scale3(d.radiance, nl), d.toLight)
		} else {
			add(&base, scale3(d.radiance, nl), d.toLight)
		}
	}
	for _, p := range ls.points {
		toLight := p.pos.Sub(pos)
		dist := toLight.Len()
		if dist == 0 {
			continue
		}
		toLight = toLight.Scale(1 / dist)
		nl := normal.Dot(toLight)
		if nl <= 0 {
			continue
		}
		add(&base, scale3(p.radiance, nl*attenuation(dist, p.rng)), toLight)
	}
	return base, direct
}

// attenuation is inverse-square falloff smoothly cut off at rng. A zero
// range never cuts off.
func attenuation(dist, rng float64) float64 {
	a := 1 / math.Max(dist*dist, 0.01)
	if rng > 0 {
		f := math3d.Clamp(1-math.Pow(dist/rng, 4), 0, 1)
		a *= f * f
	}
	return a
}
