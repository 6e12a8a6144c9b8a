package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/diorama/pkg/math3d"
)

func TestPerspectiveValidation(t *testing.T) {
	fov := 75 * math.Pi / 180
	tests := []struct {
		name                    string
		fov, aspect, near, far float64
		ok                      bool
	}{
		{"valid", fov, 16.0 / 9, 0.1, 1000, true},
		{"far equals near", fov, 1, 1, 1, false},
		{"far below near", fov, 1, 10, 1, false},
		{"zero aspect", fov, 0, 0.1, 100, false},
		{"negative aspect", fov, -1, 0.1, 100, false},
		{"zero near", fov, 1, 0, 100, false},
		{"zero fov", 0, 1, 0.1, 100, false},
		{"straight fov", math.Pi, 1, 0.1, 100, false},
		{"nan aspect", fov, math.NaN(), 0.1, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam, err := NewPerspectiveCamera(tt.fov, tt.aspect, tt.near, tt.far)
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, cam)
				return
			}
			assert.ErrorIs(t, err, ErrDegenerateCamera)
			assert.Nil(t, cam)
		})
	}
}

func TestSetAspectRejectsDegenerate(t *testing.T) {
	cam, err := NewPerspectiveCamera(1, 1.5, 0.1, 100)
	require.NoError(t, err)
	before := cam.ProjectionMatrix()

	assert.ErrorIs(t, cam.SetAspect(0), ErrDegenerateCamera)
	assert.Equal(t, 1.5, cam.Aspect())
	assert.Equal(t, before, cam.ProjectionMatrix())

	require.NoError(t, cam.SetAspect(2))
	assert.NotEqual(t, before, cam.ProjectionMatrix())
}

func TestProjectUnprojectRoundTrip(t *testing.T) {
	cam, err := NewPerspectiveCamera(75*math.Pi/180, 4.0/3, 0.1, 1000)
	require.NoError(t, err)
	cam.SetPosition(math3d.V3(2, 1, 3))
	cam.LookAt(math3d.Zero3())

	// points on the z=0 plane survive project -> unproject
	for _, p := range []math3d.Vec3{
		math3d.V3(0, 0, 0),
		math3d.V3(0.5, -0.25, 0),
		math3d.V3(-1, 0.75, 0),
	} {
		ndc, ok := cam.Project(p)
		require.True(t, ok)
		back := cam.Unproject(ndc)
		assert.True(t, back.ApproxEqual(p, 1e-6), "%v -> %v -> %v", p, ndc, back)
	}

	_, ok := cam.Project(math3d.V3(4, 2, 6))
	assert.False(t, ok, "point behind the camera")
}

func TestCameraLooksDownNegativeZ(t *testing.T) {
	cam, err := NewPerspectiveCamera(1, 1, 0.1, 100)
	require.NoError(t, err)
	cam.SetPosition(math3d.V3(0, 0, 3))

	ndc, ok := cam.Project(math3d.Zero3())
	require.True(t, ok)
	assert.InDelta(t, 0, ndc.X, 1e-9)
	assert.InDelta(t, 0, ndc.Y, 1e-9)

	x, y, _, visible := cam.WorldToScreen(math3d.Zero3(), 100, 50)
	assert.True(t, visible)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 25, y, 1e-9)
}

func TestShadowCamera(t *testing.T) {
	sun := NewDirectionalLight("sun", 0xffffff, 3)
	sun.SetPosition(math3d.V3(3, 0, 3))
	_, _, ok := sun.ShadowCamera()
	assert.False(t, ok, "shadows are off by default")

	sun.Light.CastShadow = true
	sun.Light.Shadow.Far = 30
	view, proj, ok := sun.ShadowCamera()
	require.True(t, ok)

	// the light target projects onto the centre of the shadow map
	p := proj.Mul(view).MulVec3(math3d.Zero3())
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.True(t, sun.LightDirection().ApproxEqual(math3d.V3(-1, 0, -1).Normalize(), 1e-9))
}
