package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fractal/engine/fractal"
	"github.com/Carmen-Shannon/oxy-fractal/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fractal/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRenderer struct {
	renderer.Renderer
}

func (failingRenderer) DrawLevels([]renderer.DrawRequest) error {
	return errors.New("device lost")
}

type fixture struct {
	fractal   fractal.Fractal
	publisher fractal.Publisher
	sink      renderer.HostBufferSink
	renderer  renderer.Renderer
	log       *logrus.Logger
	hook      *logtest.Hook
}

func newFixture(t *testing.T, r renderer.Renderer) fixture {
	t.Helper()
	log, hook := logtest.NewNullLogger()

	cfg := fractal.DefaultConfig()
	cfg.Depth = 3
	cfg.Seed = 1
	f, err := fractal.NewFractal(fractal.WithConfig(cfg), fractal.WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(f.Release)

	sink := renderer.NewHostBufferSink()
	if r == nil {
		r = renderer.NewLogRenderer(renderer.WithBufferSink(sink), renderer.WithLogger(log))
	}
	p := fractal.NewPublisher(sink, r, fractal.WithPublisherLogger(log))
	t.Cleanup(p.Release)

	return fixture{fractal: f, publisher: p, sink: sink, renderer: r, log: log, hook: hook}
}

func TestStepPublishesFrame(t *testing.T) {
	fx := newFixture(t, nil)
	root := fractal.RootTransform{Position: mgl32.Vec3{0, 1, 0}, Rotation: mgl32.QuatIdent(), Scale: 2}
	e := NewEngine(fx.fractal, fx.publisher, WithRoot(root), WithLogger(fx.log))

	var ticks []float32
	e.SetTickCallback(func(dt float32) { ticks = append(ticks, dt) })

	require.NoError(t, e.Step(0.1))
	require.NoError(t, e.Step(0.2))

	assert.Equal(t, []float32{0.1, 0.2}, ticks)
	assert.Equal(t, uint64(2), e.Frames())
	assert.Equal(t, uint64(2), fx.fractal.Frame())
	assert.Equal(t, uint64(2), fx.renderer.Frames())
	assert.Equal(t, 3, fx.sink.Buffers())
	assert.Equal(t, root, fx.fractal.Root())
}

func TestStepSkipsReleasedFractal(t *testing.T) {
	fx := newFixture(t, nil)
	e := NewEngine(fx.fractal, fx.publisher, WithLogger(fx.log))

	fx.fractal.Release()
	require.NoError(t, e.Step(0.1))
	assert.Zero(t, e.Frames())
	assert.Equal(t, uint64(1), e.SkippedFrames())

	cfg := fractal.DefaultConfig()
	cfg.Depth = 2
	require.NoError(t, e.Rebuild(cfg))
	require.NoError(t, e.Step(0.1))
	assert.Equal(t, uint64(1), e.Frames())
	assert.Equal(t, 2, fx.sink.Buffers())
}

func TestStepReportsDrawFailure(t *testing.T) {
	fx := newFixture(t, failingRenderer{})
	e := NewEngine(fx.fractal, fx.publisher, WithLogger(fx.log))

	err := e.Step(0.1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Zero(t, e.Frames())
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	fx := newFixture(t, nil)
	prof := profiler.NewProfiler(profiler.WithInterval(time.Nanosecond), profiler.WithLogger(fx.log))
	e := NewEngine(fx.fractal, fx.publisher,
		WithTickRate(1000),
		WithFrameLimit(5),
		WithProfiling(true),
		WithProfiler(prof),
		WithLogger(fx.log),
	)

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(5), e.Frames())
	assert.Equal(t, uint64(5), fx.renderer.Frames())
	assert.NotZero(t, prof.Last().Frames)
}

func TestRunStopsOnQuit(t *testing.T) {
	fx := newFixture(t, nil)
	e := NewEngine(fx.fractal, fx.publisher, WithTickRate(500), WithLogger(fx.log))

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		if ticks.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after Quit")
	}
	assert.GreaterOrEqual(t, e.Frames(), uint64(3))
	e.Quit()
}

func TestRunReturnsFrameError(t *testing.T) {
	fx := newFixture(t, failingRenderer{})
	e := NewEngine(fx.fractal, fx.publisher, WithTickRate(1000), WithLogger(fx.log))

	err := e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draw levels")

	entry := fx.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "engine stopped", entry.Message)
}

func TestSetTickRateWhileRunning(t *testing.T) {
	fx := newFixture(t, nil)
	e := NewEngine(fx.fractal, fx.publisher, WithTickRate(1000), WithFrameLimit(20), WithLogger(fx.log))

	changed := make(chan struct{})
	go func() {
		defer close(changed)
		for i := 0; i < 100; i++ {
			e.SetTickRate(float64(1000 + i))
		}
	}()

	require.NoError(t, e.Run())
	<-changed
	assert.Equal(t, uint64(20), e.Frames())

	e.SetTickRate(250)
	assert.Equal(t, 4*time.Millisecond, e.(*engine).tickRate())
}

func TestNewEnginePanicsWithoutCollaborators(t *testing.T) {
	fx := newFixture(t, nil)
	assert.Panics(t, func() { NewEngine(nil, fx.publisher) })
	assert.Panics(t, func() { NewEngine(fx.fractal, nil) })
}

func TestTickDuration(t *testing.T) {
	assert.Equal(t, time.Second/60, tickDuration(0))
	assert.Equal(t, 10*time.Millisecond, tickDuration(100))
	sec := float64(time.Second)
	assert.Equal(t, time.Duration(sec/144), tickDuration(144))
}
