package interact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
	"github.com/taigrr/diorama/pkg/scene"
)

func setup(t *testing.T) (*Policy, *scene.Node, *scene.Node) {
	t.Helper()
	cam, err := scene.NewPerspectiveCamera(75*math.Pi/180, 1, 0.1, 1000)
	require.NoError(t, err)
	cam.SetPosition(math3d.V3(0, 0, 3))

	g := scene.New()
	box := scene.NewMeshNode("box", models.NewBox(1, 1, 1), models.NewMaterial("box", 0x00ff00))
	box.SetPosition(math3d.V3(0, 0, 1.5))
	ground := scene.NewMeshNode("ground", models.NewPlane(10, 10), models.NewMaterial("ground", 0xffffff))
	require.NoError(t, g.Add(box))
	require.NoError(t, g.Add(ground))

	p := NewPolicy(cam, g.Renderables, DefaultColors(), nil)
	p.SetPrimary(box)
	return p, box, ground
}

func TestPrimaryAlternatesGreenRed(t *testing.T) {
	p, box, _ := setup(t)
	want := []uint32{0x00ff00, 0xff0000, 0x00ff00, 0xff0000}
	for i, c := range want {
		tg, ok := p.ClickAt(math3d.V2(0, 0))
		require.True(t, ok)
		assert.Same(t, box, tg.Node)
		assert.Equal(t, i, tg.Count)
		assert.Equal(t, c, box.Material.Hex(), "click %d", i+1)
	}
	assert.Equal(t, 4, p.Count(box))
}

func TestOtherAlternatesBlueOrange(t *testing.T) {
	p, box, ground := setup(t)
	// off to the side: only the ground is under the pointer
	ndc, ok := p.cam.Project(math3d.V3(3, 3, 0))
	require.True(t, ok)
	at := math3d.V2(ndc.X, ndc.Y)

	want := []uint32{0x0000ff, 0xff6000, 0x0000ff, 0xff6000}
	for i, c := range want {
		tg, ok := p.ClickAt(at)
		require.True(t, ok)
		assert.Same(t, ground, tg.Node)
		assert.False(t, tg.Primary)
		assert.Equal(t, c, ground.Material.Hex(), "click %d", i+1)
	}
	assert.Equal(t, 0x00ff00, int(box.Material.Hex()), "only the nearest hit changes")
	assert.Equal(t, 0, p.Count(box))
}

func TestMissIsNoOp(t *testing.T) {
	p, box, ground := setup(t)
	var events int
	p.OnToggle = func(Toggle) { events++ }

	p.cam.LookAt(math3d.V3(0, 100, 3))
	_, ok := p.ClickAt(math3d.V2(0, 0))
	assert.False(t, ok)
	assert.Zero(t, events)
	assert.Zero(t, p.Count(box))
	assert.Zero(t, p.Count(ground))
	assert.Equal(t, uint32(0x00ff00), box.Material.Hex())
}

func TestOnToggleEvent(t *testing.T) {
	p, box, _ := setup(t)
	var got []Toggle
	p.OnToggle = func(tg Toggle) { got = append(got, tg) }

	p.PointerMove(math3d.V2(0, 0))
	p.Click()
	p.Click()
	require.Len(t, got, 2)
	assert.Same(t, box, got[1].Node)
	assert.True(t, got[1].Primary)
	assert.Equal(t, uint32(0xff0000), got[1].Color)
	assert.InDelta(t, 1.0, got[0].Hit.Distance, 1e-9)
}

func TestNodeWithoutMaterialStillCounts(t *testing.T) {
	p, box, _ := setup(t)
	box.Material = nil
	tg, ok := p.ClickAt(math3d.V2(0, 0))
	require.True(t, ok)
	assert.Equal(t, uint32(0x00ff00), tg.Color)
	assert.Equal(t, 1, p.Count(box))
}

func TestColorTable(t *testing.T) {
	tbl := ColorTable{PrimaryEven: 1, PrimaryOdd: 2, OtherEven: 3, OtherOdd: 4}
	assert.Equal(t, uint32(1), tbl.Pick(true, 0))
	assert.Equal(t, uint32(2), tbl.Pick(true, 1))
	assert.Equal(t, uint32(3), tbl.Pick(false, 2))
	assert.Equal(t, uint32(4), tbl.Pick(false, 3))
}
