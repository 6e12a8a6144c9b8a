package render

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/scene"
)

// ErrNoCamera is returned when Render is called without a root or camera.
var ErrNoCamera = errors.New("render: nil root or camera")

// SceneRenderer rasterizes a scene graph and presents it to a Surface.
// It is not safe for concurrent use; the frame loop owns it.
type SceneRenderer struct {
	surface    Surface
	background Color
	shadows    bool
	helper     bool
	log        *slog.Logger

	fb        *Framebuffer
	rast      *Rasterizer
	shadowMap *ShadowMap
	stats     Stats

	meshes []*scene.Node
	lights []*scene.Node
}

// Option configures a SceneRenderer.
type Option func(*SceneRenderer)

// WithBackground sets the clear color.
func WithBackground(c color.RGBA) Option {
	return func(r *SceneRenderer) { r.background = c }
}

// WithShadows enables shadow mapping for the first shadow-casting
// directional light.
func WithShadows(on bool) Option {
	return func(r *SceneRenderer) { r.shadows = on }
}

// WithShadowHelper draws the shadow camera's volume as a wireframe.
func WithShadowHelper(on bool) Option {
	return func(r *SceneRenderer) { r.helper = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *SceneRenderer) { r.log = l }
}

// NewSceneRenderer creates a renderer presenting to s.
func NewSceneRenderer(s Surface, opts ...Option) *SceneRenderer {
	r := &SceneRenderer{
		surface:    s,
		background: RGB(30, 30, 40),
		shadows:    true,
		log:        slog.Default(),
		fb:         NewFramebuffer(0, 0),
	}
	for _, o := range opts {
		o(r)
	}
	r.rast = NewRasterizer(r.fb)
	return r
}

// Stats returns counters for the last rendered frame.
func (r *SceneRenderer) Stats() Stats { return r.stats }

// Framebuffer returns the last rendered frame.
func (r *SceneRenderer) Framebuffer() *Framebuffer { return r.fb }

// Render draws every visible mesh under root as seen by cam. A zero-sized
// surface renders nothing.
func (r *SceneRenderer) Render(root *scene.Node, cam *scene.Camera) error {
	if root == nil || cam == nil {
		return ErrNoCamera
	}
	w, h := r.surface.Size()
	if w <= 0 || h <= 0 {
		return nil
	}
	if w != r.fb.Width || h != r.fb.Height {
		r.fb.Resize(w, h)
		r.rast.Resize()
		r.log.Debug("framebuffer resized", "width", w, "height", h)
	}

	r.stats = Stats{}
	r.meshes, r.lights = r.meshes[:0], r.lights[:0]
	r.collect(root)
	ls := collectLights(r.lights, r.shadows)

	r.rast.Shadow = nil
	if ls.shadow >= 0 {
		r.rast.Shadow = r.renderShadowMap(ls.directional[ls.shadow].node)
	}

	r.fb.Clear(r.background)
	r.rast.ClearDepth()
	viewProj := cam.ViewProjectionMatrix()
	r.rast.SetViewProjection(viewProj)
	frustum := NewFrustumFromMatrix(viewProj)
	eye := cam.WorldPosition()

	for _, n := range r.meshes {
		r.stats.MeshesTested++
		if !frustum.IntersectAABB(n.WorldBounds()) {
			r.stats.MeshesCulled++
			continue
		}
		r.stats.MeshesDrawn++
		r.drawMesh(n, &ls, eye)
	}

	if r.helper && ls.shadow >= 0 {
		if view, proj, ok := ls.directional[ls.shadow].node.ShadowCamera(); ok {
			drawVolume(r.fb, viewProj, proj.Mul(view), RGB(255, 200, 0))
		}
	}

	if err := r.surface.Present(r.fb); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// collect gathers visible meshes and lights. Hidden nodes hide their
// subtree.
func (r *SceneRenderer) collect(n *scene.Node) {
	if !n.Visible || n.IsDisposed() {
		return
	}
	if n.Mesh != nil && n.Material != nil {
		r.meshes = append(r.meshes, n)
	}
	if n.Light != nil {
		r.lights = append(r.lights, n)
	}
	for _, c := range n.Children() {
		r.collect(c)
	}
}

func (r *SceneRenderer) renderShadowMap(light *scene.Node) *ShadowMap {
	view, proj, ok := light.ShadowCamera()
	if !ok {
		return nil
	}
	cfg := light.Light.Shadow
	if r.shadowMap == nil || r.shadowMap.Size() != max(cfg.MapSize, 1) {
		r.shadowMap = NewShadowMap(cfg.MapSize)
	}
	vp := proj.Mul(view)
	r.shadowMap.Begin(vp, cfg.Bias, cfg.Radius)
	frustum := NewFrustumFromMatrix(vp)

	for _, n := range r.meshes {
		if !n.CastShadow || !frustum.IntersectAABB(n.WorldBounds()) {
			continue
		}
		r.stats.ShadowCasters++
		world := n.WorldMatrix()
		m := n.Mesh
		for _, f := range m.Faces {
			r.shadowMap.DrawCaster(
				world.MulVec3(m.Vertices[f.V[0]].Position),
				world.MulVec3(m.Vertices[f.V[1]].Position),
				world.MulVec3(m.Vertices[f.V[2]].Position),
			)
		}
	}
	return r.shadowMap
}

func (r *SceneRenderer) drawMesh(n *scene.Node, ls *lights, eye math3d.Vec3) {
	world := n.WorldMatrix()
	inv, ok := world.Invert()
	if !ok {
		return
	}
	normalMat := inv.Transpose()
	m, mat := n.Mesh, n.Material

	// light each vertex once
	verts := make([]Vertex, len(m.Vertices))
	for i, v := range m.Vertices {
		pos := world.MulVec3(v.Position)
		nrm := normalMat.MulVec3Dir(v.Normal).Normalize()
		base, direct := ls.shade(mat, pos, nrm, eye)
		if !n.ReceiveShadow {
			for k := range 3 {
				base[k] += direct[k]
				direct[k] = 0
			}
		}
		verts[i] = Vertex{Position: pos, Base: base, Direct: direct}
	}

	shadow := r.rast.Shadow
	if !n.ReceiveShadow {
		r.rast.Shadow = nil
	}
	for _, f := range m.Faces {
		r.rast.DrawTriangle(Triangle{V: [3]Vertex{verts[f.V[0]], verts[f.V[1]], verts[f.V[2]]}})
	}
	r.rast.Shadow = shadow
	r.stats.Triangles += len(m.Faces)
}
