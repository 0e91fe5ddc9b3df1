package fractal

import (
	"math"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Part is one node of the fractal. Rotation, MaxSagAngle and SpinVelocity are fixed at
// construction; the remaining fields are rewritten by every propagation.
type Part struct {
	// WorldPosition is the resolved world-space position of the part.
	WorldPosition mgl32.Vec3
	// Rotation is the part's fixed orientation relative to its parent.
	Rotation mgl32.Quat
	// WorldRotation is the resolved world-space orientation of the part.
	WorldRotation mgl32.Quat
	// MaxSagAngle bounds the droop towards world-down, in radians.
	MaxSagAngle float32
	// SpinAngle is the accumulated spin about the part's local Y axis, in radians.
	SpinAngle float32
	// SpinVelocity is the signed spin speed, in radians per second.
	SpinVelocity float32
}

// childRotations holds the canonical orientation of each child slot: straight up, then right,
// left, forward and back.
var childRotations = [5]mgl32.Quat{
	mgl32.QuatIdent(),
	common.RotateZ(-0.5 * math.Pi), common.RotateZ(0.5 * math.Pi),
	common.RotateX(0.5 * math.Pi), common.RotateX(-0.5 * math.Pi),
}

// ChildRotation returns the canonical local orientation for a child slot. Slots beyond the five
// canonical orientations wrap around the table.
//
// Parameters:
//   - childIndex: the child slot within its parent
//
// Returns:
//   - mgl32.Quat: the local orientation
func ChildRotation(childIndex int) mgl32.Quat {
	return childRotations[childIndex%len(childRotations)]
}

// newPart draws a part for the given child slot from the configured ranges.
// Ranges in cfg are in degrees; the part stores radians.
func newPart(childIndex int, cfg Config, rng *rand.Rand) Part {
	spinDirection := float32(1)
	if rng.Float32() < cfg.ReverseSpinChance {
		spinDirection = -1
	}
	return Part{
		Rotation:      ChildRotation(childIndex),
		WorldRotation: mgl32.QuatIdent(),
		MaxSagAngle:   common.Radians(drawRange(cfg.MaxSagAngle, rng)),
		SpinVelocity:  spinDirection * common.Radians(drawRange(cfg.SpinSpeed, rng)),
	}
}

func drawRange(r Range, rng *rand.Rand) float32 {
	return r.Min + rng.Float32()*(r.Max-r.Min)
}
