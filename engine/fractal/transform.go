package fractal

import (
	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/go-gl/mathgl/mgl32"
)

// partOffset is the distance between a part and its parent, in units of the child's scale.
const partOffset = 1.5

// RootTransform is the external object's transform that drives the root part each frame.
type RootTransform struct {
	// Position is the world-space position of the root.
	Position mgl32.Vec3
	// Rotation is the world-space orientation of the root.
	Rotation mgl32.Quat
	// Scale is the uniform scale of the root; every deeper level halves it.
	Scale float32
}

// IdentityRoot returns a root transform at the origin with no rotation and unit scale.
//
// Returns:
//   - RootTransform: the identity root transform
func IdentityRoot() RootTransform {
	return RootTransform{Rotation: mgl32.QuatIdent(), Scale: 1}
}

// updateRoot advances the root part's spin and resolves it directly from the external transform.
// The root never sags.
func updateRoot(part *Part, root RootTransform, deltaTime float32) mgl32.Mat3x4 {
	part.SpinAngle += part.SpinVelocity * deltaTime
	part.WorldRotation = root.Rotation.Mul(
		part.Rotation.Mul(common.RotateY(part.SpinAngle)),
	)
	part.WorldPosition = root.Position
	return common.PackAffine(part.WorldRotation, root.Scale, part.WorldPosition)
}

// updatePart advances a part's spin, applies sag relative to world-up, and resolves its world
// transform from its already-resolved parent. Rotations compose right to left: spin first, then
// the fixed local orientation, then the sagged parent orientation.
func updatePart(parent *Part, part *Part, scale, deltaTime float32) mgl32.Mat3x4 {
	part.SpinAngle += part.SpinVelocity * deltaTime

	upAxis := parent.WorldRotation.Mul(part.Rotation).Rotate(common.WorldUp)
	sagAxis := common.WorldUp.Cross(upAxis)

	baseRotation := parent.WorldRotation
	if sagMagnitude := sagAxis.Len(); sagMagnitude > 0 {
		sagAxis = sagAxis.Mul(1 / sagMagnitude)
		sagRotation := mgl32.QuatRotate(part.MaxSagAngle*sagMagnitude, sagAxis)
		baseRotation = sagRotation.Mul(parent.WorldRotation)
	}

	part.WorldRotation = baseRotation.Mul(
		part.Rotation.Mul(common.RotateY(part.SpinAngle)),
	)
	part.WorldPosition = parent.WorldPosition.Add(
		part.WorldRotation.Rotate(mgl32.Vec3{0, partOffset * scale, 0}),
	)
	return common.PackAffine(part.WorldRotation, scale, part.WorldPosition)
}
