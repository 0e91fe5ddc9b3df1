package profiler

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged. Values <= 0 are ignored.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger sets the logger statistics are written to.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(log logrus.FieldLogger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if log != nil {
			p.log = log
		}
	}
}
