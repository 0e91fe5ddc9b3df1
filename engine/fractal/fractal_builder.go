package fractal

import (
	"github.com/Carmen-Shannon/oxy-fractal/engine/job"
	"github.com/sirupsen/logrus"
)

// FractalBuilderOption is a functional option for configuring a Fractal.
type FractalBuilderOption func(*fractal)

// WithConfig sets the construction configuration. The configuration is validated by NewFractal.
//
// Parameters:
//   - cfg: the configuration to build from
//
// Returns:
//   - FractalBuilderOption: the option function
func WithConfig(cfg Config) FractalBuilderOption {
	return func(f *fractal) {
		f.cfg = cfg
	}
}

// WithScheduler sets a shared job scheduler. A shared scheduler is not released by the fractal.
//
// Parameters:
//   - s: the scheduler to run level jobs on
//
// Returns:
//   - FractalBuilderOption: the option function
func WithScheduler(s job.Scheduler) FractalBuilderOption {
	return func(f *fractal) {
		f.scheduler = s
		f.ownsScheduler = false
	}
}

// WithSchedulerOptions sets the options used when the fractal creates its own scheduler.
// Ignored when WithScheduler is also given.
//
// Parameters:
//   - options: the scheduler options
//
// Returns:
//   - FractalBuilderOption: the option function
func WithSchedulerOptions(options ...job.SchedulerBuilderOption) FractalBuilderOption {
	return func(f *fractal) {
		f.schedulerOpts = append(f.schedulerOpts, options...)
	}
}

// WithLogger sets the logger used for lifecycle messages.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - FractalBuilderOption: the option function
func WithLogger(log logrus.FieldLogger) FractalBuilderOption {
	return func(f *fractal) {
		if log != nil {
			f.log = log
		}
	}
}
