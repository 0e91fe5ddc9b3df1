package fractal

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/Carmen-Shannon/oxy-fractal/engine/job"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(depth int) Config {
	cfg := DefaultConfig()
	cfg.Depth = depth
	cfg.Seed = 42
	return cfg
}

// stillConfig builds parts that neither spin nor sag.
func stillConfig(depth int) Config {
	cfg := testConfig(depth)
	cfg.MaxSagAngle = Range{}
	cfg.SpinSpeed = Range{}
	cfg.ReverseSpinChance = 0
	return cfg
}

func newTestFractal(t *testing.T, cfg Config, options ...FractalBuilderOption) Fractal {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	options = append([]FractalBuilderOption{
		WithConfig(cfg),
		WithLogger(log),
		WithSchedulerOptions(job.WithWorkers(4)),
	}, options...)
	f, err := NewFractal(options...)
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

func snapshot(f Fractal) [][]Part {
	out := make([][]Part, f.Depth())
	for li := range out {
		out[li] = append([]Part(nil), f.Level(li).Parts...)
	}
	return out
}

func TestNewFractalLogsSeed(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	f, err := NewFractal(WithConfig(testConfig(3)), WithLogger(log))
	require.NoError(t, err)
	defer f.Release()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "fractal built", entry.Message)
	assert.Equal(t, uint64(42), entry.Data["seed"])
	assert.Equal(t, 31, entry.Data["parts"])
	assert.Equal(t, uint64(42), f.Seed())
}

func TestNewFractalRandomSeed(t *testing.T) {
	cfg := testConfig(2)
	cfg.Seed = 0
	f := newTestFractal(t, cfg)
	assert.NotZero(t, f.Seed())
}

func TestNewFractalRejectsConfig(t *testing.T) {
	cfg := testConfig(0)
	f, err := NewFractal(WithConfig(cfg))
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig(20)
	f, err = NewFractal(WithConfig(cfg))
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrStructureTooLarge)
}

func TestFractalShape(t *testing.T) {
	f := newTestFractal(t, testConfig(4))

	assert.True(t, f.Initialized())
	assert.Equal(t, 4, f.Depth())
	assert.Equal(t, 3, f.LeafLevel())
	assert.Nil(t, f.Level(-1))
	assert.Nil(t, f.Level(4))
	assert.Zero(t, f.Frame())

	want := 1
	for li := range f.Depth() {
		assert.Equal(t, want, f.Level(li).Len())
		want *= 5
	}
}

func TestPropagateHalvesScale(t *testing.T) {
	f := newTestFractal(t, testConfig(5))

	root := IdentityRoot()
	root.Scale = 2
	require.NoError(t, f.Propagate(0.016, root))

	for li := range f.Depth() {
		level := f.Level(li)
		want := 2 * float32(math.Pow(0.5, float64(li)))
		assert.Equal(t, want, level.Scale, "level %d", li)

		c0, _, _, _ := level.Matrices[0].Cols()
		assert.InDelta(t, want, c0.Len(), 1e-5)
	}
}

func TestPropagateChildrenHangOffParents(t *testing.T) {
	f := newTestFractal(t, testConfig(4))

	root := RootTransform{
		Position: mgl32.Vec3{3, -1, 2},
		Rotation: common.RotateZ(0.4).Mul(common.RotateX(-0.2)),
		Scale:    1.5,
	}
	for range 3 {
		require.NoError(t, f.Propagate(0.1, root))
	}

	for li := 1; li < f.Depth(); li++ {
		parents, level := f.Level(li-1), f.Level(li)
		for i, part := range level.Parts {
			parent := parents.Parts[ParentIndex(i, 5)]
			dist := part.WorldPosition.Sub(parent.WorldPosition).Len()
			assert.InDelta(t, partOffset*level.Scale, dist, 1e-4, "level %d part %d", li, i)

			_, _, _, c3 := level.Matrices[i].Cols()
			assert.Equal(t, part.WorldPosition, c3)
		}
	}
}

func TestPropagateZeroDeltaIsIdempotent(t *testing.T) {
	f := newTestFractal(t, testConfig(4))
	root := RootTransform{Position: mgl32.Vec3{1, 0, 0}, Rotation: common.RotateY(1), Scale: 1}

	require.NoError(t, f.Propagate(0.25, root))
	before := snapshot(f)
	matrices := append([]mgl32.Mat3x4(nil), f.Level(3).Matrices...)

	require.NoError(t, f.Propagate(0, root))
	after := snapshot(f)

	assert.Equal(t, before, after)
	assert.Equal(t, matrices, f.Level(3).Matrices)
	assert.Equal(t, uint64(2), f.Frame())
}

func TestPropagateIsDeterministic(t *testing.T) {
	a := newTestFractal(t, testConfig(4))
	b := newTestFractal(t, testConfig(4))

	root := RootTransform{Position: mgl32.Vec3{0, 2, 0}, Rotation: common.RotateX(0.3), Scale: 1}
	for _, dt := range []float32{0.016, 0.033, 0.5, 0} {
		require.NoError(t, a.Propagate(dt, root))
		require.NoError(t, b.Propagate(dt, root))
	}

	for li := range a.Depth() {
		assert.Equal(t,
			common.SliceToBytes(a.Level(li).Matrices),
			common.SliceToBytes(b.Level(li).Matrices),
			"level %d", li)
	}
}

func TestPropagateIndependentOfBatchSize(t *testing.T) {
	cfg := testConfig(4)
	a := newTestFractal(t, cfg)
	cfg.BatchSize = 3
	b := newTestFractal(t, cfg, WithSchedulerOptions(job.WithWorkers(1)))

	root := IdentityRoot()
	for range 4 {
		require.NoError(t, a.Propagate(0.1, root))
		require.NoError(t, b.Propagate(0.1, root))
	}
	assert.Equal(t, a.Level(3).Matrices, b.Level(3).Matrices)
}

func TestPropagateStillChild(t *testing.T) {
	f := newTestFractal(t, stillConfig(2))

	require.NoError(t, f.Propagate(1, IdentityRoot()))

	child := f.Level(1).Parts[0]
	assertVec3Near(t, mgl32.Vec3{0, 0.75, 0}, child.WorldPosition, eps, "got %v", child.WorldPosition)
	assertQuatNear(t, mgl32.QuatIdent(), child.WorldRotation, eps, "got %v", child.WorldRotation)
}

func TestPropagateHalfTurnChild(t *testing.T) {
	f := newTestFractal(t, stillConfig(2))
	f.Level(1).Parts[0].SpinVelocity = math.Pi

	require.NoError(t, f.Propagate(1, IdentityRoot()))

	child := f.Level(1).Parts[0]
	assert.InDelta(t, math.Pi, child.SpinAngle, eps)
	assertQuatNear(t, common.RotateY(math.Pi), child.WorldRotation, eps, "got %v", child.WorldRotation)
	assertVec3Near(t, mgl32.Vec3{0, 0.75, 0}, child.WorldPosition, eps, "got %v", child.WorldPosition)

	forward := child.WorldRotation.Rotate(mgl32.Vec3{0, 0, 1})
	assertVec3Near(t, mgl32.Vec3{0, 0, -1}, forward, eps, "got %v", forward)
}

func TestRootDoesNotSag(t *testing.T) {
	cfg := testConfig(1)
	cfg.MaxSagAngle = Range{Min: 80, Max: 80}
	cfg.SpinSpeed = Range{}
	f := newTestFractal(t, cfg)

	root := RootTransform{Rotation: common.RotateZ(math.Pi / 2), Scale: 1}
	require.NoError(t, f.Propagate(1, root))

	assertQuatNear(t, root.Rotation, f.Level(0).Parts[0].WorldRotation, eps)
}

func TestRebuild(t *testing.T) {
	f := newTestFractal(t, testConfig(3))
	require.NoError(t, f.Propagate(0.1, IdentityRoot()))
	require.Equal(t, uint64(1), f.Frame())

	err := f.Rebuild(testConfig(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 3, f.Depth())
	assert.Equal(t, uint64(1), f.Frame())

	err = f.Rebuild(testConfig(30))
	assert.ErrorIs(t, err, ErrStructureTooLarge)
	assert.Equal(t, 3, f.Depth())

	cfg := testConfig(5)
	cfg.ChildCount = 2
	require.NoError(t, f.Rebuild(cfg))
	assert.Equal(t, 5, f.Depth())
	assert.Equal(t, 16, f.Level(4).Len())
	assert.Zero(t, f.Frame())
	assert.Equal(t, cfg, f.Config())

	require.NoError(t, f.Propagate(0.1, IdentityRoot()))
	assert.Equal(t, uint64(1), f.Frame())
}

func TestReleaseSkipsFrames(t *testing.T) {
	f := newTestFractal(t, testConfig(3))
	f.Release()

	assert.False(t, f.Initialized())
	assert.Equal(t, 0, f.Depth())
	assert.Equal(t, -1, f.LeafLevel())
	assert.ErrorIs(t, f.Propagate(0.1, IdentityRoot()), ErrNotInitialized)
	assert.ErrorIs(t, f.View(func([]*Level, RootTransform, uint64) error { return nil }), ErrNotInitialized)

	// released fractals can be rebuilt
	require.NoError(t, f.Rebuild(testConfig(2)))
	assert.NoError(t, f.Propagate(0.1, IdentityRoot()))
}

func TestSharedSchedulerOutlivesFractal(t *testing.T) {
	s := job.NewScheduler(job.WithWorkers(2))
	defer s.Release()

	f := newTestFractal(t, testConfig(3), WithScheduler(s))
	require.NoError(t, f.Propagate(0.1, IdentityRoot()))
	f.Release()

	var ran atomic.Int32
	s.ScheduleParallel(4, 1, job.Handle{}, func(int) { ran.Add(1) }).Complete()
	assert.Equal(t, int32(4), ran.Load())
}

func TestViewReportsState(t *testing.T) {
	f := newTestFractal(t, testConfig(2))
	root := RootTransform{Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent(), Scale: 1}
	require.NoError(t, f.Propagate(0.1, root))

	err := f.View(func(levels []*Level, r RootTransform, frame uint64) error {
		assert.Len(t, levels, 2)
		assert.Equal(t, root, r)
		assert.Equal(t, uint64(1), frame)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, root, f.Root())
}
