package render

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/diorama/pkg/math3d"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// RGB creates an opaque color from 8-bit components.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// Vertex is a world-space vertex with its lighting already evaluated.
// Base is linear radiance that shadows do not affect; Direct comes from the
// shadow-casting light and is scaled by the shadow map's visibility.
type Vertex struct {
	Position math3d.Vec3
	Base     [3]float64
	Direct   [3]float64
}

// Triangle is three vertices wound counter-clockwise when seen from the
// front.
type Triangle struct {
	V [3]Vertex
}

// Stats counts the work done for the last frame.
type Stats struct {
	MeshesTested  int
	MeshesCulled  int
	MeshesDrawn   int
	Triangles     int
	ShadowCasters int
}

// Rasterizer draws lit triangles into a framebuffer with a depth buffer.
type Rasterizer struct {
	fb       *Framebuffer
	zbuffer  []float64
	viewProj math3d.Mat4

	// Shadow, when set, attenuates Vertex.Direct per pixel.
	Shadow *ShadowMap
	// DoubleSided disables back-face culling.
	DoubleSided bool
}

// NewRasterizer creates a rasterizer drawing into fb.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{fb: fb, viewProj: math3d.Identity()}
	r.Resize()
	return r
}

// Resize matches the depth buffer to the framebuffer.
func (r *Rasterizer) Resize() {
	if n := r.fb.Width * r.fb.Height; len(r.zbuffer) != n {
		r.zbuffer = make([]float64, n)
	}
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int { return r.fb.Width }

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int { return r.fb.Height }

// SetViewProjection sets the matrix taking world positions to clip space.
func (r *Rasterizer) SetViewProjection(m math3d.Mat4) {
	r.viewProj = m
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	clearDepth(r.zbuffer)
}

func clearDepth(z []float64) {
	// copy-doubling
	if len(z) == 0 {
		return
	}
	z[0] = math.MaxFloat64
	for i := 1; i < len(z); i *= 2 {
		copy(z[i:], z[:i])
	}
}

// depth returns the stored depth at (x, y), or MaxFloat64 out of bounds.
func (r *Rasterizer) depth(x, y int) float64 {
	if x < 0 || x >= r.fb.Width || y < 0 || y >= r.fb.Height {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.fb.Width+x]
}

// clipVertex is a vertex in homogeneous clip space.
type clipVertex struct {
	clip math3d.Vec4
	v    Vertex
}

func lerpClip(a, b clipVertex, t float64) clipVertex {
	return clipVertex{
		clip: math3d.V4(
			a.clip.X+(b.clip.X-a.clip.X)*t,
			a.clip.Y+(b.clip.Y-a.clip.Y)*t,
			a.clip.Z+(b.clip.Z-a.clip.Z)*t,
			a.clip.W+(b.clip.W-a.clip.W)*t,
		),
		v: Vertex{
			Position: a.v.Position.Lerp(b.v.Position, t),
			Base:     lerp3(a.v.Base, b.v.Base, t),
			Direct:   lerp3(a.v.Direct, b.v.Direct, t),
		},
	}
}

func lerp3(a, b [3]float64, t float64) [3]float64 {
	return [3]float64{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t, a[2] + (b[2]-a[2])*t}
}

// clipNear clips a polygon against the near plane z >= -w.
func clipNear(in []clipVertex, out []clipVertex) []clipVertex {
	out = out[:0]
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := a.clip.Z+a.clip.W, b.clip.Z+b.clip.W
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpClip(a, b, da/(da-db)))
		}
	}
	return out
}

// DrawTriangle clips, culls and rasterizes tri.
func (r *Rasterizer) DrawTriangle(tri Triangle) {
	var in, buf [4]clipVertex
	for i := range 3 {
		in[i] = clipVertex{clip: r.viewProj.MulVec4(math3d.V4FromV3(tri.V[i].Position, 1)), v: tri.V[i]}
	}
	poly := clipNear(in[:3], buf[:0])
	for i := 1; i+1 < len(poly); i++ {
		r.drawClipped(poly[0], poly[i], poly[i+1])
	}
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y float64 // pixel coordinates, Y down
	Z    float64 // NDC depth
	InvW float64
	v    Vertex
}

func (r *Rasterizer) toScreen(c clipVertex) screenVertex {
	invW := 1 / c.clip.W
	return screenVertex{
		X:    (c.clip.X*invW + 1) * 0.5 * float64(r.fb.Width),
		Y:    (1 - c.clip.Y*invW) * 0.5 * float64(r.fb.Height),
		Z:    c.clip.Z * invW,
		InvW: invW,
		v:    c.v,
	}
}

func (r *Rasterizer) drawClipped(a, b, c clipVertex) {
	if a.clip.W <= 0 || b.clip.W <= 0 || c.clip.W <= 0 {
		return
	}
	sv := [3]screenVertex{r.toScreen(a), r.toScreen(b), r.toScreen(c)}

	// The screen Y flip turns counter-clockwise fronts into negative area.
	area := signedArea(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y)
	if area == 0 || (area > 0 && !r.DoubleSided) {
		return
	}
	if area < 0 {
		sv[1], sv[2] = sv[2], sv[1]
	}

	pts := [3][2]float64{{sv[0].X, sv[0].Y}, {sv[1].X, sv[1].Y}, {sv[2].X, sv[2].Y}}
	rasterize(pts, r.fb.Width, r.fb.Height, func(x, y int, b0, b1, b2 float64) {
		z := b0*sv[0].Z + b1*sv[1].Z + b2*sv[2].Z
		idx := y*r.fb.Width + x
		if z >= r.zbuffer[idx] || z < -1 || z > 1 {
			return
		}

		// perspective-correct weights
		p0, p1, p2 := b0*sv[0].InvW, b1*sv[1].InvW, b2*sv[2].InvW
		s := 1 / (p0 + p1 + p2)
		p0, p1, p2 = p0*s, p1*s, p2*s

		vis := 1.0
		if r.Shadow != nil {
			pos := sv[0].v.Position.Scale(p0).Add(sv[1].v.Position.Scale(p1)).Add(sv[2].v.Position.Scale(p2))
			vis = r.Shadow.Visibility(pos)
		}
		var lin [3]float64
		for k := range 3 {
			base := p0*sv[0].v.Base[k] + p1*sv[1].v.Base[k] + p2*sv[2].v.Base[k]
			direct := p0*sv[0].v.Direct[k] + p1*sv[1].v.Direct[k] + p2*sv[2].v.Direct[k]
			lin[k] = base + direct*vis
		}

		r.zbuffer[idx] = z
		r.fb.Pix[idx] = encode(lin)
	})
}

// encode converts linear radiance to an 8-bit sRGB pixel.
func encode(lin [3]float64) Color {
	c := colorful.LinearRgb(lin[0], lin[1], lin[2]).Clamped()
	r, g, b := c.RGB255()
	return RGB(r, g, b)
}

func signedArea(x0, y0, x1, y1, x2, y2 float64) float64 {
	return (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0)
}

// edgeCoeffs returns A, B, C for edge(x, y) = A*x + B*y + C, positive to
// the left of the edge from (x0, y0) to (x1, y1) in Y-down coordinates.
func edgeCoeffs(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1
	B = x1 - x0
	C = x0*y1 - x1*y0
	return
}

// rasterize calls frag with barycentric weights for every pixel center
// inside a triangle of positive signed area, clipped to width x height.
// Edge functions are stepped incrementally across the bounding box.
func rasterize(p [3][2]float64, width, height int, frag func(x, y int, b0, b1, b2 float64)) {
	area := signedArea(p[0][0], p[0][1], p[1][0], p[1][1], p[2][0], p[2][1])
	if area <= 0 {
		return
	}
	minX := max(0, int(math.Floor(min(p[0][0], p[1][0], p[2][0]))))
	maxX := min(width-1, int(math.Ceil(max(p[0][0], p[1][0], p[2][0]))))
	minY := max(0, int(math.Floor(min(p[0][1], p[1][1], p[2][1]))))
	maxY := min(height-1, int(math.Ceil(max(p[0][1], p[1][1], p[2][1]))))
	if minX > maxX || minY > maxY {
		return
	}

	// edge i is opposite vertex i
	A0, B0, C0 := edgeCoeffs(p[1][0], p[1][1], p[2][0], p[2][1])
	A1, B1, C1 := edgeCoeffs(p[2][0], p[2][1], p[0][0], p[0][1])
	A2, B2, C2 := edgeCoeffs(p[0][0], p[0][1], p[1][0], p[1][1])
	inv := 1 / area

	px, py := float64(minX)+0.5, float64(minY)+0.5
	w0Row := A0*px + B0*py + C0
	w1Row := A1*px + B1*py + C1
	w2Row := A2*px + B2*py + C2

	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row
		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				frag(x, y, w0*inv, w1*inv, w2*inv)
			}
			w0 += A0
			w1 += A1
			w2 += A2
		}
		w0Row += B0
		w1Row += B1
		w2Row += B2
	}
}
