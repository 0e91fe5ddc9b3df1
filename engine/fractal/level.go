package fractal

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// Level stores every part at one depth of the fractal together with their packed transforms.
// Parts and Matrices are indexed identically; the children of part i on this level occupy
// indices [i*childCount, (i+1)*childCount) on the next level.
type Level struct {
	// Index is the depth of the level, 0 for the root.
	Index int
	// Scale is the uniform scale applied to this level during the last propagation.
	Scale float32
	// Parts holds the node state of every part on the level.
	Parts []Part
	// Matrices holds the packed 3x4 transform of every part, ready for upload.
	Matrices []mgl32.Mat3x4
	// SequenceNumbers are four random values drawn per level at construction for the renderer.
	SequenceNumbers mgl32.Vec4
}

// Len returns the number of parts on the level.
//
// Returns:
//   - int: the part count
func (l *Level) Len() int {
	return len(l.Parts)
}

// ParentIndex returns the index on the previous level of the parent of part i.
//
// Parameters:
//   - i: the part index on this level
//   - childCount: the branching factor
//
// Returns:
//   - int: the parent's index
func ParentIndex(i, childCount int) int {
	return i / childCount
}

// LevelScale returns the uniform scale of a level given the root's scale. Each level is half the
// size of the one above it.
//
// Parameters:
//   - rootScale: the scale of level 0
//   - level: the level index
//
// Returns:
//   - float32: the scale of the level
func LevelScale(rootScale float32, level int) float32 {
	scale := rootScale
	for li := 0; li < level; li++ {
		scale *= 0.5
	}
	return scale
}

// buildLevels allocates and populates every level for a validated configuration.
// The root uses child slot 0; every other level fills each parent's children slot by slot.
func buildLevels(cfg Config, rng *rand.Rand) []*Level {
	levels := make([]*Level, cfg.Depth)
	for li, length := 0, 1; li < cfg.Depth; li, length = li+1, length*cfg.ChildCount {
		levels[li] = &Level{
			Index:    li,
			Parts:    make([]Part, length),
			Matrices: make([]mgl32.Mat3x4, length),
			SequenceNumbers: mgl32.Vec4{
				rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32(),
			},
		}
	}

	levels[0].Parts[0] = newPart(0, cfg, rng)
	for li := 1; li < len(levels); li++ {
		parts := levels[li].Parts
		for fpi := 0; fpi < len(parts); fpi += cfg.ChildCount {
			for ci := 0; ci < cfg.ChildCount; ci++ {
				parts[fpi+ci] = newPart(ci, cfg, rng)
			}
		}
	}
	return levels
}
