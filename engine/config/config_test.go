package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/Carmen-Shannon/oxy-fractal/engine/fractal"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, delta float64, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.InDeltaSlice(t, want[:], got[:], delta, msgAndArgs...)
}

// assertQuatNear compares quaternions component-wise with an absolute tolerance.
func assertQuatNear(t *testing.T, want, got mgl32.Quat, delta float64, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.InDeltaSlice(t,
		[]float32{want.W, want.V[0], want.V[1], want.V[2]},
		[]float32{got.W, got.V[0], got.V[1], got.V[2]},
		delta, msgAndArgs...)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, "fractal.yaml", `
fractal:
  depth: 6
  childCount: 3
  maxSagAngle:
    min: 5
    max: 10
  reverseSpinChance: 0.5
  seed: 7
engine:
  tickRate: 30
  frames: 120
  sink: wgpu
  profileInterval: 250ms
  root:
    position: [1, 2, 3]
    scale: 2
log:
  level: debug
`)

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Fractal.Depth)
	assert.Equal(t, 3, cfg.Fractal.ChildCount)
	assert.Equal(t, fractal.Range{Min: 5, Max: 10}, cfg.Fractal.MaxSagAngle)
	assert.Equal(t, fractal.Range{Min: 20, Max: 25}, cfg.Fractal.SpinSpeed)
	assert.Equal(t, float32(0.5), cfg.Fractal.ReverseSpinChance)
	assert.Equal(t, uint64(7), cfg.Fractal.Seed)

	assert.Equal(t, 30.0, cfg.Engine.TickRate)
	assert.Equal(t, uint64(120), cfg.Engine.Frames)
	assert.Equal(t, SinkWGPU, cfg.Engine.Sink)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.ProfileInterval)
	assert.Equal(t, [3]float32{1, 2, 3}, cfg.Engine.Root.Position)
	assert.Equal(t, float32(2), cfg.Engine.Root.Scale)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OXY_FRACTAL_FRACTAL_DEPTH", "3")
	t.Setenv("OXY_FRACTAL_ENGINE_FRAMES", "10")

	path := writeConfig(t, "fractal.yaml", "fractal:\n  depth: 6\n")
	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fractal.Depth)
	assert.Equal(t, uint64(10), cfg.Engine.Frames)
}

func TestLoadExplicitOverride(t *testing.T) {
	v := viper.New()
	v.Set("engine.tickRate", 120.0)

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 120.0, cfg.Engine.TickRate)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		cause   error
	}{
		{"zero depth", "fractal:\n  depth: 0\n", fractal.ErrInvalidConfig},
		{"too large", "fractal:\n  depth: 14\n", fractal.ErrStructureTooLarge},
		{"bad sink", "engine:\n  sink: vulkan\n", ErrInvalidAppConfig},
		{"bad tick rate", "engine:\n  tickRate: 0\n", ErrInvalidAppConfig},
		{"bad log level", "log:\n  level: loud\n", ErrInvalidAppConfig},
		{"bad scale", "engine:\n  root:\n    scale: -1\n", ErrInvalidAppConfig},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(nil, writeConfig(t, "fractal.yaml", tc.content))
			assert.ErrorIs(t, err, tc.cause)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Fractal.Depth = 5
	cfg.Fractal.Seed = 42
	cfg.Engine.Frames = 300
	cfg.Engine.ProfileInterval = 2 * time.Second
	cfg.Engine.Root = RootConfig{Position: [3]float32{0, 1, 0}, Rotation: [3]float32{0, 45, 0}, Scale: 1.5}

	out, err := cfg.YAML()
	require.NoError(t, err)

	loaded, err := Load(nil, writeConfig(t, "round.yaml", string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestRootConfigTransform(t *testing.T) {
	root := RootConfig{Position: [3]float32{1, 2, 3}, Scale: 2}.Transform()
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, root.Position)
	assert.Equal(t, float32(2), root.Scale)
	assertQuatNear(t, mgl32.QuatIdent(), root.Rotation, 1e-6)

	// X is applied before Z
	root = RootConfig{Rotation: [3]float32{90, 0, 90}, Scale: 1}.Transform()
	got := root.Rotation.Rotate(common.WorldUp)
	assertVec3Near(t, mgl32.Vec3{0, 0, 1}, got, 1e-5, "got %v", got)

	got = root.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	assertVec3Near(t, mgl32.Vec3{0, 1, 0}, got, 1e-5, "got %v", got)
}
