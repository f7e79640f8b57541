package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// AxisX is the world-space +X axis.
	AxisX = mgl32.Vec3{1, 0, 0}
	// AxisY is the world-space +Y axis.
	AxisY = mgl32.Vec3{0, 1, 0}
	// AxisZ is the world-space +Z axis.
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// Perspective creates a perspective projection matrix using the WebGPU clip-space
// depth convention [0, 1], unlike mgl32.Perspective which maps to [-1, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	out := mgl32.Mat4{}
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// EulerToQuat builds an orientation from Euler angles in degrees. The rotation is
// composed as Y * X * Z, so Z is applied first, then X, then Y.
//
// Parameters:
//   - degrees: rotation about X, Y and Z in degrees
//
// Returns:
//   - mgl32.Quat: the normalized orientation
func EulerToQuat(degrees mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(degrees[0]), AxisX)
	qy := mgl32.QuatRotate(mgl32.DegToRad(degrees[1]), AxisY)
	qz := mgl32.QuatRotate(mgl32.DegToRad(degrees[2]), AxisZ)
	return qy.Mul(qx).Mul(qz).Normalize()
}

// EulerAngles recovers the Euler angles of an orientation in degrees, each wrapped into
// [0, 360). It is the inverse of EulerToQuat. At the X = ±90° singularity the Z angle
// is folded into Y and reported as zero.
//
// Parameters:
//   - q: the orientation
//
// Returns:
//   - mgl32.Vec3: rotation about X, Y and Z in degrees
func EulerAngles(q mgl32.Quat) mgl32.Vec3 {
	m := q.Normalize().Mat4()

	// R = Ry * Rx * Rz, so row 1 column 2 holds -sin(x).
	sinX := -m.At(1, 2)
	sinX = mgl32.Clamp(sinX, -1, 1)
	x := math.Asin(float64(sinX))

	var y, z float64
	if math.Abs(float64(sinX)) < 0.99999 {
		y = math.Atan2(float64(m.At(0, 2)), float64(m.At(2, 2)))
		z = math.Atan2(float64(m.At(1, 0)), float64(m.At(1, 1)))
	} else {
		y = math.Atan2(float64(-m.At(2, 0)), float64(m.At(0, 0)))
		z = 0
	}

	return mgl32.Vec3{
		WrapDegrees(mgl32.RadToDeg(float32(x))),
		WrapDegrees(mgl32.RadToDeg(float32(y))),
		WrapDegrees(mgl32.RadToDeg(float32(z))),
	}
}

// WrapDegrees folds an angle in degrees into [0, 360).
//
// Parameters:
//   - deg: the angle in degrees
//
// Returns:
//   - float32: the equivalent angle in [0, 360)
func WrapDegrees(deg float32) float32 {
	w := float32(math.Mod(float64(deg), 360))
	if w < 0 {
		w += 360
	}
	if w >= 360 {
		w -= 360
	}
	return w
}

// TRS builds a local-to-world matrix from translation, rotation and scale (T * R * S).
//
// Parameters:
//   - position: translation in world space
//   - rotation: orientation
//   - scale: per-axis scale factors
//
// Returns:
//   - mgl32.Mat4: the column-major model matrix
func TRS(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(position[0], position[1], position[2]).
		Mul4(rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// WorkgroupCount returns the number of workgroups needed to cover extent threads with
// groups of tile threads, rounding up.
//
// Parameters:
//   - extent: the number of threads to cover
//   - tile: the workgroup size along the same axis
//
// Returns:
//   - uint32: ceil(extent / tile), or 0 when either input is 0
func WorkgroupCount(extent, tile uint32) uint32 {
	if extent == 0 || tile == 0 {
		return 0
	}
	return (extent + tile - 1) / tile
}

// PutFloat32s writes little-endian float32 values into buf starting at offset.
//
// Parameters:
//   - buf: destination buffer
//   - offset: byte offset of the first value
//   - values: the values to write
func PutFloat32s(buf []byte, offset int, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v))
	}
}
