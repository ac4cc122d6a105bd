package r3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

var (
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// Compose builds translation * rotation * uniform scale.
// Same result as Translate3D(p).Mul4(r.Mat4()).Mul4(Scale3D(s, s, s)),
// without the two intermediate matrix products.
func Compose(position mgl32.Vec3, rotation mgl32.Quat, scale float32) mgl32.Mat4 {
	w, x, y, z := rotation.W, rotation.V[0], rotation.V[1], rotation.V[2]

	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return mgl32.Mat4{
		(1 - 2*yy - 2*zz) * scale, (2*xy + 2*wz) * scale, (2*xz - 2*wy) * scale, 0,
		(2*xy - 2*wz) * scale, (1 - 2*xx - 2*zz) * scale, (2*yz + 2*wx) * scale, 0,
		(2*xz + 2*wy) * scale, (2*yz - 2*wx) * scale, (1 - 2*xx - 2*yy) * scale, 0,
		position[0], position[1], position[2], 1,
	}
}

// RotateAroundAxis returns rotation of angle radians around axis.
// axis is expected to be normalized.
func RotateAroundAxis(axis mgl32.Vec3, angle float32) mgl32.Quat {
	return mgl32.QuatRotate(angle, axis)
}

// Decompose splits a Compose result back into parts. Only valid for
// matrices with uniform positive scale.
func Decompose(m mgl32.Mat4) (position mgl32.Vec3, rotation mgl32.Quat, scale float32) {
	position = m.Col(3).Vec3()
	scale = m.Col(0).Vec3().Len()
	if scale == 0 {
		return position, mgl32.QuatIdent(), 0
	}
	inv := 1 / scale
	rotation = mgl32.Mat4ToQuat(mgl32.Mat4{
		m[0] * inv, m[1] * inv, m[2] * inv, 0,
		m[4] * inv, m[5] * inv, m[6] * inv, 0,
		m[8] * inv, m[9] * inv, m[10] * inv, 0,
		0, 0, 0, 1,
	}).Normalize()
	return position, rotation, scale
}
