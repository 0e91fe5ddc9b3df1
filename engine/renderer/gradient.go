package renderer

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorKey is an RGBA colour pinned to a position in [0, 1] along a Gradient.
type ColorKey struct {
	Color mgl32.Vec4
	Time  float32
}

// Gradient linearly interpolates between colour keys.
type Gradient struct {
	keys []ColorKey
}

// NewGradient creates a gradient from colour keys. Keys are sorted by time.
//
// Parameters:
//   - keys: the colour keys
//
// Returns:
//   - Gradient: the gradient
func NewGradient(keys ...ColorKey) Gradient {
	sorted := make([]ColorKey, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return Gradient{keys: sorted}
}

// Keys returns the sorted colour keys.
//
// Returns:
//   - []ColorKey: the keys
func (g Gradient) Keys() []ColorKey {
	return g.keys
}

// Evaluate returns the colour at t. Values outside the first and last key are clamped to those
// keys; a gradient with no keys is white.
//
// Parameters:
//   - t: the position along the gradient
//
// Returns:
//   - mgl32.Vec4: the interpolated colour
func (g Gradient) Evaluate(t float32) mgl32.Vec4 {
	if len(g.keys) == 0 {
		return mgl32.Vec4{1, 1, 1, 1}
	}
	if t <= g.keys[0].Time {
		return g.keys[0].Color
	}
	for i := 1; i < len(g.keys); i++ {
		next := g.keys[i]
		if t > next.Time {
			continue
		}
		prev := g.keys[i-1]
		span := next.Time - prev.Time
		if span <= 0 {
			return next.Color
		}
		f := (t - prev.Time) / span
		return prev.Color.Mul(1 - f).Add(next.Color.Mul(f))
	}
	return g.keys[len(g.keys)-1].Color
}

// LevelPalette assigns the two shading colours of every level. Interior levels sample both
// gradients by depth; the leaf level uses a fixed pair.
type LevelPalette struct {
	GradientA Gradient
	GradientB Gradient
	LeafA     mgl32.Vec4
	LeafB     mgl32.Vec4
}

// DefaultPalette returns a bark-to-branch palette with green leaves.
//
// Returns:
//   - LevelPalette: the default palette
func DefaultPalette() LevelPalette {
	return LevelPalette{
		GradientA: NewGradient(
			ColorKey{Color: mgl32.Vec4{0.30, 0.20, 0.12, 1}, Time: 0},
			ColorKey{Color: mgl32.Vec4{0.55, 0.42, 0.30, 1}, Time: 1},
		),
		GradientB: NewGradient(
			ColorKey{Color: mgl32.Vec4{0.22, 0.15, 0.10, 1}, Time: 0},
			ColorKey{Color: mgl32.Vec4{0.45, 0.35, 0.25, 1}, Time: 1},
		),
		LeafA: mgl32.Vec4{0.35, 0.65, 0.20, 1},
		LeafB: mgl32.Vec4{0.60, 0.80, 0.25, 1},
	}
}

// Colors returns the colour pair for a level of a fractal with the given depth.
// Interior level i samples the gradients at i / (depth-2); with depth <= 2 the sample point is 0.
//
// Parameters:
//   - level: the level index
//   - depth: the number of levels
//
// Returns:
//   - mgl32.Vec4: the first colour
//   - mgl32.Vec4: the second colour
func (p LevelPalette) Colors(level, depth int) (mgl32.Vec4, mgl32.Vec4) {
	if level == depth-1 {
		return p.LeafA, p.LeafB
	}
	var t float32
	if depth > 2 {
		t = float32(level) / float32(depth-2)
	}
	return p.GradientA.Evaluate(t), p.GradientB.Evaluate(t)
}
