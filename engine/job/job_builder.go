package job

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SchedulerBuilderOption is a functional option for configuring a Scheduler during construction.
type SchedulerBuilderOption func(*scheduler)

// WithWorkers sets the number of worker goroutines in the pool.
// Values <= 0 leave the default (NumCPU-1, minimum 1) in place.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithWorkers(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the pool's task queue. Submitting a batch while the queue is
// full blocks the dispatching goroutine until a worker frees a slot.
//
// Parameters:
//   - n: the queue capacity
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithQueueSize(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n > 0 {
			s.queue = n
		}
	}
}

// WithIdleTimeout sets the worker idle timeout passed to the pool.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithIdleTimeout(d time.Duration) SchedulerBuilderOption {
	return func(s *scheduler) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithLogger sets the logger used for scheduler lifecycle messages.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithLogger(l logrus.FieldLogger) SchedulerBuilderOption {
	return func(s *scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
