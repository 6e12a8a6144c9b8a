package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/diorama/pkg/anim"
	"github.com/taigrr/diorama/pkg/assets"
	"github.com/taigrr/diorama/pkg/config"
	"github.com/taigrr/diorama/pkg/loop"
	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
	"github.com/taigrr/diorama/pkg/render"
	"github.com/taigrr/diorama/pkg/scene"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeLoader struct {
	asset *assets.Asset
	err   error
}

func (l fakeLoader) Load(ctx context.Context, src string) (*assets.Asset, error) {
	if l.err != nil {
		return nil, &assets.LoadError{Source: src, Op: "open", Err: l.err}
	}
	return l.asset, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg config.Config, opts ...Option) (*App, *render.ImageSurface, *fakeClock) {
	t.Helper()
	surface := render.NewImageSurface(80, 40)
	clock := &fakeClock{now: time.Unix(0, 0)}
	opts = append([]Option{
		WithLogger(quiet()),
		WithClock(clock),
		WithScheduler(&loop.ManualScheduler{}),
	}, opts...)
	a, err := New(cfg, surface, opts...)
	require.NoError(t, err)
	return a, surface, clock
}

func modelAsset(t *testing.T) *assets.Asset {
	t.Helper()
	root := scene.NewNode("model")
	body := scene.NewMeshNode("body", models.NewBox(0.1, 0.1, 0.1), models.NewMaterial("fur", 0x996633))
	g := scene.New()
	require.NoError(t, g.Attach(root, body))

	clip, err := anim.NewClip("nyi_loop", []anim.Track{{
		Target:   "body",
		Property: anim.PropTranslation,
		Times:    []float64{0, 1},
		Values:   []float64{0, 0, 0, 0, 0.1, 0},
	}})
	require.NoError(t, err)
	return &assets.Asset{
		Source:    "raccoon.glb",
		Root:      root,
		Clips:     anim.NewClipSet(clip),
		Meshes:    1,
		Triangles: 12,
	}
}

func TestNewBuildsDemoScene(t *testing.T) {
	a, surface, _ := newTestApp(t, config.Default())

	assert.Same(t, a.Box(), a.Policy().Primary())
	assert.Equal(t, uint32(0xc8c8c8), a.Box().Material.Hex())
	assert.True(t, a.Box().CastShadow)
	assert.True(t, a.Ground().ReceiveShadow)
	assert.True(t, a.Sun().Light.CastShadow)
	assert.Equal(t, 30.0, a.Sun().Light.Shadow.Far)
	assert.InDelta(t, 2.0, a.Camera().Aspect(), 1e-9)
	assert.Len(t, a.Animations().Players(), 1)

	a.Step()
	assert.Equal(t, 1, surface.Frames())
	assert.Equal(t, 2, a.Renderer().Stats().MeshesDrawn)
	assert.Equal(t, loop.Stopped, a.Loop().State())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Camera.Far = cfg.Camera.Near
	_, err := New(cfg, render.NewImageSurface(10, 10))
	require.ErrorIs(t, err, scene.ErrDegenerateCamera)
}

func TestBoxSpins(t *testing.T) {
	a, _, clock := newTestApp(t, config.Default())
	a.Step()
	clock.advance(50 * time.Millisecond)
	a.Step()
	assert.InDelta(t, 0.05*2*3.141592653589793/3, a.Box().Euler().Z, 1e-6)
}

func TestClickCyclesColors(t *testing.T) {
	a, _, _ := newTestApp(t, config.Default())

	a.PointerMove(math3d.V2(0, 0))
	want := []uint32{0x00ff00, 0xff0000, 0x00ff00, 0xff0000}
	require.NotEqual(t, want[0], a.Box().Material.Hex(), "first click must be visible")
	for i, c := range want {
		a.Click()
		a.Step()
		assert.Equal(t, c, a.Box().Material.Hex(), "click %d", i)
	}
	assert.Equal(t, 4, a.Policy().Count(a.Box()))

	a.PointerMove(math3d.V2(0.9, 0.9))
	for i, c := range []uint32{0x0000ff, 0xff6000, 0x0000ff, 0xff6000} {
		a.Click()
		a.Step()
		assert.Equal(t, c, a.Ground().Material.Hex(), "ground click %d", i)
	}
}

func TestClickOnEmptySpaceIsNoop(t *testing.T) {
	cfg := config.Default()
	a, _, _ := newTestApp(t, cfg)
	// Looking away from everything.
	a.Camera().LookAt(math3d.V3(0, 0, 10))
	a.PointerMove(math3d.V2(0, 0))
	a.Click()
	a.Step()
	assert.Equal(t, 0, a.Policy().Count(a.Box()))
	assert.Equal(t, 0, a.Policy().Count(a.Ground()))
}

func TestHoverTracksPointer(t *testing.T) {
	a, _, _ := newTestApp(t, config.Default())
	a.PointerMove(math3d.V2(0, 0))
	a.Step()
	assert.Same(t, a.Box(), a.Hover().Current())

	a.PointerLeave()
	a.Step()
	assert.Nil(t, a.Hover().Current())
}

func TestDragMovesCamera(t *testing.T) {
	a, _, _ := newTestApp(t, config.Default())
	before := a.Camera().Position()
	a.Drag(0.1, 0)
	a.Step()
	assert.False(t, before.ApproxEqual(a.Camera().Position(), 1e-9))

	a.ResetView()
	a.Step()
	assert.True(t, before.ApproxEqual(a.Camera().Position(), 1e-9))
}

func TestResize(t *testing.T) {
	a, _, _ := newTestApp(t, config.Default())
	a.Resize(100, 25)
	a.Step()
	assert.InDelta(t, 4.0, a.Camera().Aspect(), 1e-9)

	a.Resize(0, 0)
	a.Step()
	assert.InDelta(t, 1.0, a.Camera().Aspect(), 1e-9)
}

func stepUntil(t *testing.T, a *App, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		a.Step()
		time.Sleep(time.Millisecond)
	}
}

func TestLoadModelAttachesAndPlays(t *testing.T) {
	asset := modelAsset(t)
	a, _, _ := newTestApp(t, config.Default(), WithLoader(fakeLoader{asset: asset}))

	var loaded *assets.Asset
	a.OnLoaded = func(as *assets.Asset) { loaded = as }
	a.LoadModel(context.Background(), "raccoon.glb")
	stepUntil(t, a, func() bool { return a.Model() != nil })

	assert.Same(t, asset, loaded)
	assert.True(t, a.Graph().Contains(asset.Root))
	assert.InDelta(t, 5.0, asset.Root.Scale().X, 1e-9)
	assert.InDelta(t, 0.5, asset.Root.Position().Z, 1e-9)
	assert.True(t, a.Graph().Find("body").CastShadow)

	players := a.Animations().Players()
	require.Len(t, players, 2)
	assert.Equal(t, "nyi_loop", players[1].Clip().Name())
	assert.Equal(t, anim.LoopRepeat, players[1].Mode())
}

func TestReloadReplacesModel(t *testing.T) {
	first := modelAsset(t)
	a, _, _ := newTestApp(t, config.Default(), WithLoader(fakeLoader{asset: first}))
	a.LoadModel(context.Background(), "raccoon.glb")
	stepUntil(t, a, func() bool { return a.Model() != nil })

	second := modelAsset(t)
	a.loader = fakeLoader{asset: second}
	a.LoadModel(context.Background(), "raccoon.glb")
	stepUntil(t, a, func() bool { return a.Model() == second.Root })

	assert.True(t, first.Root.IsDisposed())
	assert.Len(t, a.Animations().Players(), 2)
}

func TestLoadErrorKeepsRendering(t *testing.T) {
	boom := errors.New("connection refused")
	a, surface, _ := newTestApp(t, config.Default(), WithLoader(fakeLoader{err: boom}))

	var got error
	a.OnLoadError = func(err error) { got = err }
	a.LoadModel(context.Background(), "http://example.com/raccoon.gltf")
	stepUntil(t, a, func() bool { return got != nil })

	var le *assets.LoadError
	require.ErrorAs(t, got, &le)
	assert.ErrorIs(t, got, boom)
	assert.Nil(t, a.Model())

	frames := surface.Frames()
	a.Step()
	assert.Equal(t, frames+1, surface.Frames())
}

func TestMissingClipStillAttaches(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Clip = "dance"
	a, _, _ := newTestApp(t, cfg, WithLoader(fakeLoader{asset: modelAsset(t)}))
	a.LoadModel(context.Background(), "raccoon.glb")
	stepUntil(t, a, func() bool { return a.Model() != nil })
	assert.Len(t, a.Animations().Players(), 1)
}

func TestStopEndsRun(t *testing.T) {
	a, err := New(config.Default(), render.NewImageSurface(8, 8), WithLogger(quiet()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	require.Eventually(t, func() bool { return a.Loop().Frames() > 0 }, 2*time.Second, 5*time.Millisecond)
	a.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	a, err := New(config.Default(), render.NewImageSurface(8, 8), WithLogger(quiet()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.Loop().Frames() > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, loop.Stopped, a.Loop().State())
}
