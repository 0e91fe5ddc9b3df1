package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-fractal/engine/fractal"
	"github.com/Carmen-Shannon/oxy-fractal/engine/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// engine implements the Engine interface.
// Coordinates the tick loop and the quit signal.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	fractal   fractal.Fractal
	publisher fractal.Publisher
	root      fractal.RootTransform

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameLimit     uint64

	frames  atomic.Uint64
	skipped atomic.Uint64
	err     error

	log logrus.FieldLogger
}

// Engine drives a fractal frame by frame: every tick it propagates transforms from the root
// outwards and then publishes the resolved levels to the renderer.
type Engine interface {
	// Fractal returns the fractal the engine drives.
	//
	// Returns:
	//   - fractal.Fractal: the fractal
	Fractal() fractal.Fractal

	// Publisher returns the publisher that uploads each resolved frame.
	//
	// Returns:
	//   - fractal.Publisher: the publisher
	Publisher() fractal.Publisher

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the start of each frame, before
	// propagation. Use it to move the root or request a rebuild.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRoot sets the transform the root part follows from the next frame on.
	//
	// Parameters:
	//   - root: the root transform
	SetRoot(root fractal.RootTransform)

	// Root returns the transform the root part follows.
	//
	// Returns:
	//   - fractal.RootTransform: the root transform
	Root() fractal.RootTransform

	// Rebuild reconstructs the fractal from cfg between frames.
	//
	// Parameters:
	//   - cfg: the new configuration
	//
	// Returns:
	//   - error: an error wrapping fractal.ErrInvalidConfig or fractal.ErrStructureTooLarge
	Rebuild(cfg fractal.Config) error

	// Step runs a single frame synchronously. Frames that cannot be resolved or published
	// because the fractal is not built are skipped, not failed.
	//
	// Parameters:
	//   - deltaTime: elapsed seconds since the previous frame
	//
	// Returns:
	//   - error: an upload or draw error
	Step(deltaTime float32) error

	// Frames returns the number of frames published.
	//
	// Returns:
	//   - uint64: the published frame count
	Frames() uint64

	// SkippedFrames returns the number of frames skipped because the fractal was not built.
	//
	// Returns:
	//   - uint64: the skipped frame count
	SkippedFrames() uint64

	// Run starts the tick loop and blocks until Quit is called, the frame limit is reached,
	// or a frame fails. Run may be called once.
	//
	// Returns:
	//   - error: the error of the failing frame, or nil
	Run() error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine driving f and publishing through p.
// Panics if f or p is nil.
//
// Parameters:
//   - f: the fractal to propagate
//   - p: the publisher for resolved frames
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(f fractal.Fractal, p fractal.Publisher, options ...EngineBuilderOption) Engine {
	if f == nil {
		panic("engine: NewEngine requires a non-nil Fractal")
	}
	if p == nil {
		panic("engine: NewEngine requires a non-nil Publisher")
	}

	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		wg:              sync.WaitGroup{},
		fractal:         f,
		publisher:       p,
		root:            fractal.IdentityRoot(),
		engineTickRate:  time.Second / 60,
		log:             logrus.StandardLogger(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.log))
	}
	return e
}

func (e *engine) Fractal() fractal.Fractal {
	return e.fractal
}

func (e *engine) Publisher() fractal.Publisher {
	return e.publisher
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.log.WithFields(logrus.Fields{
		"tickRate":   e.tickRate(),
		"frameLimit": e.frameLimit,
	}).Info("engine started")

	e.handle()
	e.wg.Wait()
	e.running.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.WithFields(logrus.Fields{
		"frames":  e.frames.Load(),
		"skipped": e.skipped.Load(),
	}).Info("engine stopped")
	return e.err
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handle launches the engine and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Runs one frame per tick and listens for dynamic rate changes via tickRateChannel.
// Exits when the quit channel is closed, the frame limit is reached, or a frame fails.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate())
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if err := e.Step(dt); err != nil {
				e.mu.Lock()
				e.err = err
				e.mu.Unlock()
				e.log.WithError(err).Error("frame failed")
				e.signalQuit()
				return
			}
			if e.frameLimit > 0 && e.frames.Load() >= e.frameLimit {
				e.signalQuit()
				return
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) Step(deltaTime float32) error {
	e.mu.Lock()
	callback := e.tickCallback
	e.mu.Unlock()
	if callback != nil {
		callback(deltaTime)
	}

	root := e.Root()
	start := time.Now()
	if err := e.fractal.Propagate(deltaTime, root); err != nil {
		if errors.Is(err, fractal.ErrNotInitialized) {
			e.skip(err)
			return nil
		}
		return errors.Wrap(err, "propagate")
	}
	propagated := time.Now()

	if err := e.publisher.Publish(e.fractal); err != nil {
		if errors.Is(err, fractal.ErrNothingToPublish) || errors.Is(err, fractal.ErrNotInitialized) {
			e.skip(err)
			return nil
		}
		return errors.Wrap(err, "publish")
	}
	e.frames.Add(1)

	if e.profilingEnabled.Load() {
		e.profiler.Record(propagated.Sub(start), time.Since(propagated))
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) skip(reason error) {
	e.skipped.Add(1)
	e.log.WithError(reason).Debug("frame skipped")
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *engine) SkippedFrames() uint64 {
	return e.skipped.Load()
}

func (e *engine) SetRoot(root fractal.RootTransform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root = root
}

func (e *engine) Root() fractal.RootTransform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

func (e *engine) Rebuild(cfg fractal.Config) error {
	return e.fractal.Rebuild(cfg)
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickDuration(fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			select {
			case e.tickRateChannel <- newRate:
			default:
			}
		}
	}
}

// tickRate returns the current tick period.
func (e *engine) tickRate() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engineTickRate
}

// SetTickCallback registers the function called at the start of each frame.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

// tickDuration converts a rate in frames per second to a tick period, defaulting to 60Hz.
func tickDuration(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}
