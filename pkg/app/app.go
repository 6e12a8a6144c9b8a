// Package app wires the scene graph, camera rig, animation controller,
// picking, click policy and renderer into one frame loop. An App owns every
// component; nothing is shared through package state.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/tanema/gween/ease"

	"github.com/taigrr/diorama/pkg/anim"
	"github.com/taigrr/diorama/pkg/assets"
	"github.com/taigrr/diorama/pkg/config"
	"github.com/taigrr/diorama/pkg/interact"
	"github.com/taigrr/diorama/pkg/loop"
	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
	"github.com/taigrr/diorama/pkg/picking"
	"github.com/taigrr/diorama/pkg/render"
	"github.com/taigrr/diorama/pkg/rig"
	"github.com/taigrr/diorama/pkg/scene"
)

// Option configures an App.
type Option func(*options)

type options struct {
	log       *slog.Logger
	loader    assets.Loader
	clock     loop.Clock
	scheduler loop.Scheduler
}

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithLoader replaces the glTF loader.
func WithLoader(l assets.Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithClock replaces the wall clock.
func WithClock(c loop.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithScheduler replaces the frame scheduler.
func WithScheduler(s loop.Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// App is the application context.
type App struct {
	cfg config.Config
	log *slog.Logger

	graph    *scene.Graph
	camera   *scene.Camera
	rig      *rig.Rig
	anims    *anim.Controller
	hover    *picking.Hover
	policy   *interact.Policy
	renderer *render.SceneRenderer
	loop     *loop.Loop
	loader   assets.Loader

	box    *scene.Node
	ground *scene.Node
	sun    *scene.Node

	model  *scene.Node
	player *anim.Player

	// OnLoadError is called on the loop goroutine for every failed load.
	OnLoadError func(error)
	// OnLoaded is called on the loop goroutine after a model is attached.
	OnLoaded func(*assets.Asset)
}

// New builds the demo scene for cfg, rendering to surface.
func New(cfg config.Config, surface render.Surface, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		l := assets.NewGLTFLoader()
		l.Logger = o.log
		o.loader = l
	}
	if o.scheduler == nil {
		o.scheduler = loop.NewFrameScheduler(cfg.Loop.FPS)
	}

	colors, err := colorTable(cfg.Colors)
	if err != nil {
		return nil, err
	}
	bg, err := config.ParseColor(cfg.Background)
	if err != nil {
		return nil, err
	}

	w, h := surface.Size()
	camera, err := scene.NewPerspectiveCamera(cfg.Camera.FOVRadians(), aspect(w, h), cfg.Camera.Near, cfg.Camera.Far)
	if err != nil {
		return nil, err
	}
	camera.SetPosition(vec(cfg.Camera.Position))

	a := &App{
		cfg:    cfg,
		log:    o.log,
		graph:  scene.New(scene.WithLogger(o.log)),
		camera: camera,
		loader: o.loader,
	}
	if err := a.graph.Add(camera.Node); err != nil {
		return nil, err
	}

	rc := rig.DefaultConfig()
	rc.Damping = cfg.Camera.Damping
	a.rig = rig.New(camera, vec(cfg.Camera.Target), rc)
	a.anims = anim.NewController(anim.WithGraph(a.graph), anim.WithLogger(o.log))
	a.hover = picking.NewHover(camera, a.graph.Traverse)
	a.hover.OnEnter = func(n *scene.Node) { a.log.Debug("hover enter", "node", n.Name) }
	a.hover.OnLeave = func(n *scene.Node) { a.log.Debug("hover leave", "node", n.Name) }
	a.policy = interact.NewPolicy(camera, a.graph.Traverse, colors, o.log)
	a.renderer = render.NewSceneRenderer(surface,
		render.WithBackground(render.RGB(uint8(bg>>16), uint8(bg>>8), uint8(bg))),
		render.WithShadows(cfg.Shadow.Enabled),
		render.WithShadowHelper(cfg.Shadow.Helper),
		render.WithLogger(o.log),
	)

	boxColor, err := config.ParseColor(cfg.Colors.Box)
	if err != nil {
		return nil, err
	}
	if err := a.populate(boxColor); err != nil {
		return nil, err
	}

	lc := loop.Config{
		Root:          a.graph.Root(),
		Camera:        camera,
		CameraUpdater: a.rig,
		Animator:      a.anims,
		Renderer:      a.renderer,
		Clock:         o.clock,
		Scheduler:     o.scheduler,
		MaxDelta:      cfg.Loop.MaxDelta,
		Logger:        o.log,
	}
	if cfg.Loop.Hover {
		lc.Hover = a.hover
	}
	a.loop, err = loop.New(lc)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// populate adds the lights, the spinning box and the ground.
func (a *App) populate(boxColor uint32) error {
	ambient := scene.NewAmbientLight("ambient", 0xffffff, 0.5)

	a.sun = scene.NewDirectionalLight("sun", 0xffffff, 3)
	a.sun.SetPosition(math3d.V3(3, 0, 3))
	a.sun.Light.CastShadow = a.cfg.Shadow.Enabled
	a.sun.Light.Shadow.MapSize = a.cfg.Shadow.MapSize
	a.sun.Light.Shadow.Radius = a.cfg.Shadow.Radius
	a.sun.Light.Shadow.Near = a.cfg.Shadow.Near
	a.sun.Light.Shadow.Far = a.cfg.Shadow.Far

	boxMat := models.NewMaterial("box", boxColor)
	boxMat.Shading = models.ShadingUnlit
	a.box = scene.NewMeshNode("box", models.NewBox(1, 1, 1), boxMat)
	a.box.SetPosition(math3d.V3(0, 0, 1.5))
	a.box.CastShadow = true

	groundMat := models.NewMaterial("ground", 0xffffff)
	groundMat.Shading = models.ShadingPhong
	a.ground = scene.NewMeshNode("ground", models.NewPlane(10, 10), groundMat)
	a.ground.ReceiveShadow = true

	for _, n := range []*scene.Node{ambient, a.sun, a.box, a.ground} {
		if err := a.graph.Add(n); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	a.policy.SetPrimary(a.box)

	spin, err := anim.NewTweenClip("spin", anim.PropRotationZ, []float64{0}, []float64{2 * math.Pi}, 3, ease.Linear)
	if err != nil {
		return err
	}
	a.anims.Play(a.box, spin, anim.LoopPingPong)
	return nil
}

// Run loads the configured model, then runs the frame loop until ctx is
// done.
func (a *App) Run(ctx context.Context) error {
	if src := a.cfg.Model.Source; src != "" {
		a.LoadModel(ctx, src)
		if a.cfg.Model.Watch {
			if err := a.WatchModel(ctx, src); err != nil {
				a.log.Warn("model watch disabled", "source", src, "err", err)
			}
		}
	}
	return a.loop.Run(ctx)
}

// Stop ends the frame loop for good.
func (a *App) Stop() {
	a.loop.Stop()
}

// Step runs one frame synchronously.
func (a *App) Step() {
	a.loop.Step()
}

// LoadModel starts an asynchronous load. The model is attached at the start
// of a later frame; failures go to OnLoadError.
func (a *App) LoadModel(ctx context.Context, src string) {
	a.log.Info("loading model", "source", src)
	results := assets.LoadAsync(ctx, a.loader, src)
	go a.forward(results)
}

// WatchModel reloads src whenever the file changes.
func (a *App) WatchModel(ctx context.Context, src string) error {
	results, err := assets.Watch(ctx, a.loader, src)
	if err != nil {
		return err
	}
	go a.forward(results)
	return nil
}

func (a *App) forward(results <-chan assets.Result) {
	for r := range results {
		a.loop.Post(func() { a.apply(r) })
	}
}

// apply runs inside a tick.
func (a *App) apply(r assets.Result) {
	if r.Err != nil {
		a.log.Error("model load failed", "source", r.Source, "err", r.Err)
		if a.OnLoadError != nil {
			a.OnLoadError(r.Err)
		}
		return
	}
	if a.model != nil {
		if a.player != nil {
			a.anims.Stop(a.player)
			a.player = nil
		}
		a.graph.Dispose(a.model)
	}

	root := r.Asset.Root
	root.SetScaleUniform(a.cfg.Model.Scale)
	root.SetPosition(vec(a.cfg.Model.Position))
	for n := range root.Walk() {
		if n.Mesh != nil {
			n.CastShadow = true
		}
	}
	if err := a.graph.Add(root); err != nil {
		a.log.Error("model attach failed", "source", r.Source, "err", err)
		return
	}
	a.model = root

	if name := a.cfg.Model.Clip; name != "" {
		if clip, ok := r.Asset.Clips.Get(name); ok {
			a.player = a.anims.Play(root, clip, anim.LoopRepeat)
		} else {
			a.log.Warn("clip not found", "clip", name, "available", r.Asset.Clips.Names())
		}
	}
	a.log.Info("model attached", "source", r.Source, "meshes", r.Asset.Meshes, "triangles", r.Asset.Triangles)
	if a.OnLoaded != nil {
		a.OnLoaded(r.Asset)
	}
}

// PointerMove records the pointer position in NDC.
func (a *App) PointerMove(ndc math3d.Vec2) {
	a.loop.Post(func() {
		a.policy.PointerMove(ndc)
		a.hover.SetPointer(ndc)
	})
}

// PointerLeave clears hover state.
func (a *App) PointerLeave() {
	a.loop.Post(a.hover.ClearPointer)
}

// Click applies the click policy at the last pointer position.
func (a *App) Click() {
	a.loop.Post(func() { a.policy.Click() })
}

// Drag orbits the camera. Deltas are fractions of the viewport.
func (a *App) Drag(dx, dy float64) {
	a.loop.Post(func() { a.rig.Drag(dx, dy) })
}

// Scroll zooms the camera.
func (a *App) Scroll(dz float64) {
	a.loop.Post(func() { a.rig.Scroll(dz) })
}

// ResetView returns the camera to its starting pose.
func (a *App) ResetView() {
	a.loop.Post(a.rig.Reset)
}

// Resize updates the camera aspect for a surface of w×h pixels.
func (a *App) Resize(w, h int) {
	a.loop.Post(func() {
		if err := a.camera.SetAspect(aspect(w, h)); err != nil {
			a.log.Warn("resize ignored", "width", w, "height", h, "err", err)
		}
	})
}

// Graph returns the scene graph.
func (a *App) Graph() *scene.Graph { return a.graph }

// Camera returns the camera.
func (a *App) Camera() *scene.Camera { return a.camera }

// Rig returns the orbit controller.
func (a *App) Rig() *rig.Rig { return a.rig }

// Animations returns the animation controller.
func (a *App) Animations() *anim.Controller { return a.anims }

// Policy returns the click policy.
func (a *App) Policy() *interact.Policy { return a.policy }

// Hover returns the hover tracker.
func (a *App) Hover() *picking.Hover { return a.hover }

// Renderer returns the renderer.
func (a *App) Renderer() *render.SceneRenderer { return a.renderer }

// Loop returns the frame loop.
func (a *App) Loop() *loop.Loop { return a.loop }

// Box returns the primary node.
func (a *App) Box() *scene.Node { return a.box }

// Ground returns the ground plane.
func (a *App) Ground() *scene.Node { return a.ground }

// Sun returns the shadow-casting light.
func (a *App) Sun() *scene.Node { return a.sun }

// Model returns the attached model root, or nil.
func (a *App) Model() *scene.Node { return a.model }

func colorTable(c config.Colors) (interact.ColorTable, error) {
	var t interact.ColorTable
	for _, f := range []struct {
		dst *uint32
		hex string
	}{
		{&t.PrimaryEven, c.PrimaryEven},
		{&t.PrimaryOdd, c.PrimaryOdd},
		{&t.OtherEven, c.OtherEven},
		{&t.OtherOdd, c.OtherOdd},
	} {
		v, err := config.ParseColor(f.hex)
		if err != nil {
			return t, err
		}
		*f.dst = v
	}
	return t, nil
}

func aspect(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return float64(w) / float64(h)
}

func vec(v [3]float64) math3d.Vec3 {
	return math3d.V3(v[0], v[1], v[2])
}
