package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// WorldUp is the canonical up vector every fractal part is oriented against.
var WorldUp = mgl32.Vec3{0, 1, 0}

// Radians converts an angle in degrees to radians in single precision.
//
// Parameters:
//   - degrees: the angle in degrees
//
// Returns:
//   - float32: the angle in radians
func Radians(degrees float32) float32 {
	return mgl32.DegToRad(degrees)
}

// RotateY returns the quaternion rotating by angle radians about the Y axis.
//
// Parameters:
//   - angle: rotation angle in radians
//
// Returns:
//   - mgl32.Quat: the rotation
func RotateY(angle float32) mgl32.Quat {
	return mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
}

// RotateX returns the quaternion rotating by angle radians about the X axis.
//
// Parameters:
//   - angle: rotation angle in radians
//
// Returns:
//   - mgl32.Quat: the rotation
func RotateX(angle float32) mgl32.Quat {
	return mgl32.QuatRotate(angle, mgl32.Vec3{1, 0, 0})
}

// RotateZ returns the quaternion rotating by angle radians about the Z axis.
//
// Parameters:
//   - angle: rotation angle in radians
//
// Returns:
//   - mgl32.Quat: the rotation
func RotateZ(angle float32) mgl32.Quat {
	return mgl32.QuatRotate(angle, mgl32.Vec3{0, 0, 1})
}

// PackAffine packs a rotation, uniform scale, and translation into a column-major 3x4 matrix.
// Columns 0-2 hold the scaled rotation basis and column 3 holds the translation, which is the
// 48-byte per-instance layout the instanced vertex shader reads.
//
// Parameters:
//   - rotation: unit quaternion describing the orientation
//   - scale: uniform scale applied to the basis
//   - translation: world-space translation
//
// Returns:
//   - mgl32.Mat3x4: the packed affine transform
func PackAffine(rotation mgl32.Quat, scale float32, translation mgl32.Vec3) mgl32.Mat3x4 {
	c0, c1, c2 := rotation.Mat4().Mat3().Mul(scale).Cols()
	return mgl32.Mat3x4FromCols(c0, c1, c2, translation)
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}
