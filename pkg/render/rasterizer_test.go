package render

import (
	"math"
	"testing"

	"github.com/taigrr/diorama/pkg/math3d"
)

func createTestRasterizer(width, height int) (*Rasterizer, *Framebuffer) {
	fb := NewFramebuffer(width, height)
	r := NewRasterizer(fb)
	r.SetViewProjection(math3d.Perspective(math.Pi/2, float64(width)/float64(height), 0.1, 100))
	r.ClearDepth()
	return r, fb
}

func flatTriangle(a, b, c math3d.Vec3, lin float64) Triangle {
	v := func(p math3d.Vec3) Vertex {
		return Vertex{Position: p, Base: [3]float64{lin, lin, lin}}
	}
	return Triangle{V: [3]Vertex{v(a), v(b), v(c)}}
}

func countLit(fb *Framebuffer) int {
	n := 0
	for _, p := range fb.Pix {
		if p.A != 0 {
			n++
		}
	}
	return n
}

func TestRasterizeCoverage(t *testing.T) {
	// lower-left half of a 10x10 square, positive area in Y-down space
	pts := [3][2]float64{{0, 0}, {10, 10}, {0, 10}}
	count := 0
	rasterize(pts, 10, 10, func(x, y int, b0, b1, b2 float64) {
		count++
		if s := b0 + b1 + b2; math.Abs(s-1) > 1e-9 {
			t.Fatalf("weights at (%d,%d) sum to %v", x, y, s)
		}
	})
	// pixel centers on or below the diagonal: 10+9+...+1
	if count != 55 {
		t.Errorf("covered %d pixels, want 55", count)
	}

	count = 0
	rasterize([3][2]float64{{0, 0}, {0, 10}, {10, 10}}, 10, 10, func(int, int, float64, float64, float64) { count++ })
	if count != 0 {
		t.Errorf("negative-area triangle covered %d pixels", count)
	}
}

func TestDrawTriangleBackfaceCulling(t *testing.T) {
	a, b, c := math3d.V3(-1, -1, -2), math3d.V3(1, -1, -2), math3d.V3(0, 1, -2)

	t.Run("front", func(t *testing.T) {
		r, fb := createTestRasterizer(40, 40)
		r.DrawTriangle(flatTriangle(a, b, c, 1))
		if countLit(fb) == 0 {
			t.Error("counter-clockwise triangle should be drawn")
		}
	})

	t.Run("back", func(t *testing.T) {
		r, fb := createTestRasterizer(40, 40)
		r.DrawTriangle(flatTriangle(a, c, b, 1))
		if n := countLit(fb); n != 0 {
			t.Errorf("clockwise triangle drew %d pixels", n)
		}
	})

	t.Run("double sided", func(t *testing.T) {
		r, fb := createTestRasterizer(40, 40)
		r.DoubleSided = true
		r.DrawTriangle(flatTriangle(a, c, b, 1))
		if countLit(fb) == 0 {
			t.Error("double-sided triangle should be drawn either way")
		}
	})
}

func TestDrawTriangleDepth(t *testing.T) {
	near := flatTriangle(math3d.V3(-1, -1, -2), math3d.V3(1, -1, -2), math3d.V3(0, 1, -2), 1)
	far := flatTriangle(math3d.V3(-4, -4, -5), math3d.V3(4, -4, -5), math3d.V3(0, 4, -5), 0)

	for _, order := range [][2]Triangle{{near, far}, {far, near}} {
		r, fb := createTestRasterizer(40, 40)
		r.DrawTriangle(order[0])
		r.DrawTriangle(order[1])
		if got := fb.GetPixel(20, 20); got != RGB(255, 255, 255) {
			t.Errorf("center pixel = %v, want the nearer white triangle", got)
		}
	}
}

func TestDrawTriangleNearClip(t *testing.T) {
	// ground-like triangle extending behind the camera
	r, fb := createTestRasterizer(40, 40)
	r.DrawTriangle(flatTriangle(math3d.V3(-5, -1, 5), math3d.V3(5, -1, 5), math3d.V3(0, -1, -20), 1))
	if countLit(fb) == 0 {
		t.Error("clipped triangle should still cover visible pixels")
	}
	for y := 0; y < 20; y++ {
		for x := range 40 {
			if fb.GetPixel(x, y).A != 0 {
				t.Fatalf("floor below the eye drew in the upper half at (%d,%d)", x, y)
			}
		}
	}
}

func TestDrawTriangleFullyBehind(t *testing.T) {
	r, fb := createTestRasterizer(20, 20)
	r.DrawTriangle(flatTriangle(math3d.V3(-1, -1, 2), math3d.V3(1, -1, 2), math3d.V3(0, 1, 2), 1))
	if n := countLit(fb); n != 0 {
		t.Errorf("triangle behind camera drew %d pixels", n)
	}
}

func TestEncode(t *testing.T) {
	if got := encode([3]float64{0, 0, 0}); got != RGB(0, 0, 0) {
		t.Errorf("black = %v", got)
	}
	if got := encode([3]float64{1, 2, 5}); got != RGB(255, 255, 255) {
		t.Errorf("overexposed should clamp, got %v", got)
	}
	// linear 0.5 encodes brighter than half in sRGB
	if got := encode([3]float64{0.5, 0.5, 0.5}); got.R <= 128 {
		t.Errorf("mid grey = %v, want > 128", got)
	}
}

func TestRasterizerClearDepth(t *testing.T) {
	r, _ := createTestRasterizer(7, 5)
	for i := range r.zbuffer {
		r.zbuffer[i] = 0.5
	}
	r.ClearDepth()
	for i, z := range r.zbuffer {
		if z != math.MaxFloat64 {
			t.Fatalf("zbuffer[%d] = %v after clear", i, z)
		}
	}
	if r.depth(-1, 0) != math.MaxFloat64 || r.depth(0, 99) != math.MaxFloat64 {
		t.Error("out of bounds depth should read as MaxFloat64")
	}
}

func TestShadowMapVisibility(t *testing.T) {
	// light above the origin looking down -Y
	view := math3d.LookAt(math3d.V3(0, 10, 0), math3d.Zero3(), math3d.V3(0, 0, -1))
	proj := math3d.Orthographic(-5, 5, -5, 5, 0.5, 30)

	sm := NewShadowMap(64)
	sm.Begin(proj.Mul(view), 0.005, 0)
	// occluder square at y=1 covering x,z in [-1, 1]
	sm.DrawCaster(math3d.V3(-1, 1, -1), math3d.V3(1, 1, -1), math3d.V3(1, 1, 1))
	sm.DrawCaster(math3d.V3(-1, 1, -1), math3d.V3(1, 1, 1), math3d.V3(-1, 1, 1))

	tests := []struct {
		name string
		p    math3d.Vec3
		want float64
	}{
		{"under occluder", math3d.V3(0, 0, 0), 0},
		{"beside occluder", math3d.V3(3, 0, 0), 1},
		{"above occluder", math3d.V3(0, 2, 0), 1},
		{"outside map", math3d.V3(20, 0, 0), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sm.Visibility(tc.p); got != tc.want {
				t.Errorf("Visibility(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}

	// a PCF kernel straddling the occluder edge gives partial light
	sm.Begin(proj.Mul(view), 0.005, 2)
	sm.DrawCaster(math3d.V3(-1, 1, -1), math3d.V3(1, 1, -1), math3d.V3(1, 1, 1))
	sm.DrawCaster(math3d.V3(-1, 1, -1), math3d.V3(1, 1, 1), math3d.V3(-1, 1, 1))
	if v := sm.Visibility(math3d.V3(1, 0, 0)); v <= 0 || v >= 1 {
		t.Errorf("edge visibility = %v, want strictly between 0 and 1", v)
	}
}

func TestClipNear(t *testing.T) {
	in := []clipVertex{
		{clip: math3d.V4(0, 0, -2, 1)}, // behind: z+w < 0
		{clip: math3d.V4(0, 0, 0, 1)},
		{clip: math3d.V4(1, 0, 0, 1)},
	}
	out := clipNear(in, nil)
	if len(out) != 4 {
		t.Fatalf("got %d vertices, want 4", len(out))
	}
	for i, v := range out {
		if v.clip.Z+v.clip.W < -1e-12 {
			t.Errorf("vertex %d still behind near plane: %v", i, v.clip)
		}
	}
}

func BenchmarkDrawTriangle(b *testing.B) {
	r, _ := createTestRasterizer(200, 100)
	tri := flatTriangle(math3d.V3(-1, -1, -2), math3d.V3(1, -1, -2), math3d.V3(0, 1, -2), 0.5)
	for b.Loop() {
		r.ClearDepth()
		r.DrawTriangle(tri)
	}
}

func BenchmarkShadowVisibility(b *testing.B) {
	sm := NewShadowMap(512)
	sm.Begin(math3d.Orthographic(-5, 5, -5, 5, 0.5, 30).Mul(math3d.LookAt(math3d.V3(3, 0, 3), math3d.Zero3(), math3d.Up())), 0.005, 2)
	p := math3d.V3(0.2, 0.1, 0)
	for b.Loop() {
		_ = sm.Visibility(p)
	}
}
