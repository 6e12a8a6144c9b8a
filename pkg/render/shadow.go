package render

import (
	"math"

	"github.com/taigrr/diorama/pkg/math3d"
)

// ShadowMap is a square depth map rendered from a directional light's
// orthographic shadow camera.
type ShadowMap struct {
	size     int
	depth    []float64
	viewProj math3d.Mat4
	bias     float64
	radius   int
}

// NewShadowMap allocates a size x size map.
func NewShadowMap(size int) *ShadowMap {
	size = max(size, 1)
	return &ShadowMap{size: size, depth: make([]float64, size*size)}
}

// Size returns the map resolution.
func (s *ShadowMap) Size() int { return s.size }

// Begin clears the map for a new frame. radius is the PCF kernel radius
// in texels; bias is subtracted from receiver depth before comparing.
func (s *ShadowMap) Begin(viewProj math3d.Mat4, bias, radius float64) {
	s.viewProj = viewProj
	s.bias = bias
	s.radius = max(0, int(math.Round(radius)))
	clearDepth(s.depth)
}

func (s *ShadowMap) texel(ndc math3d.Vec3) (float64, float64) {
	return (ndc.X + 1) * 0.5 * float64(s.size), (1 - ndc.Y) * 0.5 * float64(s.size)
}

// DrawCaster writes a world-space triangle into the map. Both faces cast.
func (s *ShadowMap) DrawCaster(a, b, c math3d.Vec3) {
	var nd [3]math3d.Vec3
	var pts [3][2]float64
	for i, p := range [3]math3d.Vec3{a, b, c} {
		nd[i] = s.viewProj.MulVec4(math3d.V4FromV3(p, 1)).PerspectiveDivide()
		pts[i][0], pts[i][1] = s.texel(nd[i])
	}
	if signedArea(pts[0][0], pts[0][1], pts[1][0], pts[1][1], pts[2][0], pts[2][1]) < 0 {
		pts[1], pts[2] = pts[2], pts[1]
		nd[1], nd[2] = nd[2], nd[1]
	}
	rasterize(pts, s.size, s.size, func(x, y int, b0, b1, b2 float64) {
		z := b0*nd[0].Z + b1*nd[1].Z + b2*nd[2].Z
		idx := y*s.size + x
		if z < s.depth[idx] {
			s.depth[idx] = z
		}
	})
}

// Visibility returns the lit fraction of world point p in [0, 1] using
// percentage-closer filtering. Points outside the shadow camera are lit.
func (s *ShadowMap) Visibility(p math3d.Vec3) float64 {
	ndc := s.viewProj.MulVec4(math3d.V4FromV3(p, 1)).PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z > 1 {
		return 1
	}
	tx, ty := s.texel(ndc)
	cx, cy := int(tx), int(ty)
	z := ndc.Z - s.bias

	lit, total := 0, 0
	for dy := -s.radius; dy <= s.radius; dy++ {
		for dx := -s.radius; dx <= s.radius; dx++ {
			total++
			x, y := cx+dx, cy+dy
			if x < 0 || x >= s.size || y < 0 || y >= s.size || z <= s.depth[y*s.size+x] {
				lit++
			}
		}
	}
	return float64(lit) / float64(total)
}
