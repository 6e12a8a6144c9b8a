package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/diorama/pkg/math3d"
)

// ErrDegenerateCamera is returned for projection parameters that cannot
// produce a valid frustum: far <= near, near <= 0, aspect <= 0 or a field
// of view outside (0, π).
var ErrDegenerateCamera = errors.New("scene: degenerate camera")

// Camera is a perspective camera. Its transform is that of the embedded
// node; the view matrix is the inverse of the node's world matrix.
type Camera struct {
	*Node

	fov    float64
	aspect float64
	near   float64
	far    float64

	proj      math3d.Mat4
	projDirty bool
}

// ValidatePerspective checks projection parameters. fov is the vertical
// field of view in radians.
func ValidatePerspective(fov, aspect, near, far float64) error {
	switch {
	case !(fov > 0 && fov < math.Pi):
		return fmt.Errorf("%w: fov %g outside (0, π)", ErrDegenerateCamera, fov)
	case !(aspect > 0) || math.IsInf(aspect, 0):
		return fmt.Errorf("%w: aspect %g", ErrDegenerateCamera, aspect)
	case !(near > 0):
		return fmt.Errorf("%w: near %g must be positive", ErrDegenerateCamera, near)
	case !(far > near) || math.IsInf(far, 0):
		return fmt.Errorf("%w: far %g must exceed near %g", ErrDegenerateCamera, far, near)
	}
	return nil
}

// NewPerspectiveCamera creates a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float64) (*Camera, error) {
	if err := ValidatePerspective(fov, aspect, near, far); err != nil {
		return nil, err
	}
	return &Camera{
		Node:      NewNode("camera"),
		fov:       fov,
		aspect:    aspect,
		near:      near,
		far:       far,
		projDirty: true,
	}, nil
}

// FOV returns the vertical field of view in radians.
func (c *Camera) FOV() float64 { return c.fov }

// Aspect returns width / height.
func (c *Camera) Aspect() float64 { return c.aspect }

// Near returns the near clip distance.
func (c *Camera) Near() float64 { return c.near }

// Far returns the far clip distance.
func (c *Camera) Far() float64 { return c.far }

// SetPerspective replaces all projection parameters. Invalid parameters
// leave the camera unchanged.
func (c *Camera) SetPerspective(fov, aspect, near, far float64) error {
	if err := ValidatePerspective(fov, aspect, near, far); err != nil {
		return err
	}
	c.fov, c.aspect, c.near, c.far = fov, aspect, near, far
	c.projDirty = true
	return nil
}

// SetAspect updates the aspect ratio, typically after a resize.
func (c *Camera) SetAspect(aspect float64) error {
	return c.SetPerspective(c.fov, aspect, c.near, c.far)
}

// ProjectionMatrix returns the perspective projection.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.proj = math3d.Perspective(c.fov, c.aspect, c.near, c.far)
		c.projDirty = false
	}
	return c.proj
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return c.WorldMatrix().Inverse()
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// Project maps a world point to normalized device coordinates. ok is false
// for points behind the camera.
func (c *Camera) Project(world math3d.Vec3) (ndc math3d.Vec3, ok bool) {
	clip := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(world, 1))
	if clip.W <= 0 {
		return math3d.Vec3{}, false
	}
	return clip.PerspectiveDivide(), true
}

// Unproject maps an NDC point (z in [-1, 1], -1 on the near plane) back to
// world space.
func (c *Camera) Unproject(ndc math3d.Vec3) math3d.Vec3 {
	inv := c.ViewProjectionMatrix().Inverse()
	return inv.MulVec4(math3d.V4FromV3(ndc, 1)).PerspectiveDivide()
}

// WorldToScreen transforms a world point to pixel coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(world math3d.Vec3, width, height int) (x, y, depth float64, visible bool) {
	ndc, ok := c.Project(world)
	if !ok {
		return 0, 0, 0, false
	}
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}
	p := math3d.NDCToScreen(math3d.V2(ndc.X, ndc.Y), float64(width), float64(height))
	return p.X, p.Y, ndc.Z, true
}
