package engine

import (
	"github.com/Carmen-Shannon/oxy-fractal/engine/fractal"
	"github.com/Carmen-Shannon/oxy-fractal/engine/profiler"
	"github.com/sirupsen/logrus"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler sets a preconfigured profiler. Profiling still has to be enabled.
//
// Parameters:
//   - p: the profiler to report frames to
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickDuration(fps)
	}
}

// WithFrameLimit stops Run after n published frames. 0 runs until Quit.
//
// Parameters:
//   - n: the number of frames to publish
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = n
	}
}

// WithRoot sets the initial root transform.
//
// Parameters:
//   - root: the root transform
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRoot(root fractal.RootTransform) EngineBuilderOption {
	return func(e *engine) {
		e.root = root
	}
}

// WithTickCallback registers the per-frame callback during construction.
//
// Parameters:
//   - callback: function receiving the delta time in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}

// WithLogger sets the logger for engine lifecycle messages.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(log logrus.FieldLogger) EngineBuilderOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}
