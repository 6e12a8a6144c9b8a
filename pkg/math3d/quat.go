package math3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Quat is a unit rotation quaternion. The arithmetic is delegated to mgl64;
// Quat only adapts it to the package's Vec3 and Mat4 types.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

func fromMgl(q mgl64.Quat) Quat {
	return Quat{W: q.W, X: q.V[0], Y: q.V[1], Z: q.V[2]}
}

func (q Quat) mgl() mgl64.Quat {
	return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
}

func (v Vec3) mgl() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// QuatAxisAngle returns a rotation of angle radians around axis.
func QuatAxisAngle(axis Vec3, angle float64) Quat {
	return fromMgl(mgl64.QuatRotate(angle, axis.Normalize().mgl()))
}

// QuatFromEuler returns the rotation for intrinsic X, then Y, then Z angles,
// matching Mat4 RotateX(x).Mul(RotateY(y)).Mul(RotateZ(z)).
func QuatFromEuler(x, y, z float64) Quat {
	return fromMgl(mgl64.AnglesToQuat(x, y, z, mgl64.XYZ))
}

// QuatFromMat4 extracts the rotation of a pure rotation matrix.
func QuatFromMat4(m Mat4) Quat {
	return fromMgl(mgl64.Mat4ToQuat(mgl64.Mat4(m))).Normalize()
}

// QuatLookAt returns the orientation whose -Z axis points from eye toward
// center with the given up vector, the convention cameras use.
func QuatLookAt(eye, center, up Vec3) Quat {
	f := center.Sub(eye).Normalize()
	if f.LenSq() == 0 {
		return QuatIdentity()
	}
	r := f.Cross(up).Normalize()
	if r.LenSq() == 0 {
		// up is parallel to the view direction; pick any perpendicular.
		r = f.Cross(V3(0, 0, 1)).Normalize()
		if r.LenSq() == 0 {
			r = f.Cross(V3(1, 0, 0)).Normalize()
		}
	}
	u := r.Cross(f)
	m := Mat4{
		r.X, r.Y, r.Z, 0,
		u.X, u.Y, u.Z, 0,
		-f.X, -f.Y, -f.Z, 0,
		0, 0, 0, 1,
	}
	return QuatFromMat4(m)
}

// Mul returns the composition q * o (o applied first).
func (q Quat) Mul(o Quat) Quat {
	return fromMgl(q.mgl().Mul(o.mgl()))
}

// Normalize returns the unit quaternion, or identity for a zero quaternion.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if l == 0 {
		return QuatIdentity()
	}
	return Quat{q.W / l, q.X / l, q.Y / l, q.Z / l}
}

// Inverse returns the inverse rotation.
func (q Quat) Inverse() Quat {
	return fromMgl(q.mgl().Inverse())
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	r := q.mgl().Rotate(v.mgl())
	return Vec3{r[0], r[1], r[2]}
}

// Mat4 returns the rotation matrix.
func (q Quat) Mat4() Mat4 {
	return Mat4(q.mgl().Mat4())
}

// Slerp interpolates along the shortest arc from q to o.
func (q Quat) Slerp(o Quat, t float64) Quat {
	if q.Dot(o) < 0 {
		o = Quat{-o.W, -o.X, -o.Y, -o.Z}
	}
	return fromMgl(mgl64.QuatSlerp(q.mgl(), o.mgl(), t)).Normalize()
}

// Dot returns the 4D dot product.
func (q Quat) Dot(o Quat) float64 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

// ApproxEqual reports whether q and o describe the same rotation within eps.
// q and -q are the same rotation.
func (q Quat) ApproxEqual(o Quat, eps float64) bool {
	return math.Abs(math.Abs(q.Dot(o))-1) <= eps
}

// Euler returns XYZ angles such that QuatFromEuler(e.X, e.Y, e.Z) == q.
// Near gimbal lock Z is reported as zero.
func (q Quat) Euler() Vec3 {
	m := q.Mat4()
	// row-major names: m13 is row 1, column 3
	m11, m12, m13 := m[0], m[4], m[8]
	m22, m23 := m[5], m[9]
	m32, m33 := m[6], m[10]

	y := math.Asin(Clamp(m13, -1, 1))
	if math.Abs(m13) < 0.9999999 {
		return Vec3{math.Atan2(-m23, m33), y, math.Atan2(-m12, m11)}
	}
	return Vec3{math.Atan2(m32, m22), y, 0}
}
