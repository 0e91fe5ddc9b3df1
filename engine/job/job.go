package job

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/sirupsen/logrus"
)

// Handle tracks completion of a scheduled job. A job scheduled with a Handle as its dependency
// will not begin executing until that Handle completes. The zero Handle is already complete and
// may be used as the dependency of the first job in a chain.
type Handle struct {
	done chan struct{}
}

// Complete blocks until the job behind this Handle has finished all of its work.
// Every write performed by the job happens-before Complete returns.
func (h Handle) Complete() {
	if h.done == nil {
		return
	}
	<-h.done
}

// IsCompleted reports whether the job has finished without blocking.
//
// Returns:
//   - bool: true if the job has finished
func (h Handle) IsCompleted() bool {
	if h.done == nil {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// scheduler is the implementation of the Scheduler interface.
type scheduler struct {
	mu       *sync.Mutex
	pool     worker.DynamicWorkerPool
	workers  int
	queue    int
	idle     time.Duration
	nextTask atomic.Int64
	released atomic.Bool
	log      logrus.FieldLogger
}

// Scheduler distributes parallel-for jobs across a persistent pool of worker goroutines.
//
// Jobs are expressed as an index range and a per-index function. The range is cut into
// fixed-size batches and every batch is submitted to the pool as a single task, so indices inside
// one batch run sequentially on one worker. Jobs are chained through Handles: a job never starts
// before its dependency completes, which lets a caller queue a whole chain of stages up front and
// block once on the last Handle.
type Scheduler interface {
	// ScheduleParallel schedules execute(i) for every i in [0, length) in batches of batchSize.
	// The call returns immediately; the returned Handle completes once every index has run.
	// Execution does not begin until dependsOn has completed.
	//
	// Parameters:
	//   - length: the number of indices to process
	//   - batchSize: the number of consecutive indices handed to a worker at once (values < 1 are treated as 1)
	//   - dependsOn: the Handle that must complete before any index is processed
	//   - execute: the per-index work function; it must only touch state owned by index i
	//
	// Returns:
	//   - Handle: completes when the whole range has been processed
	ScheduleParallel(length, batchSize int, dependsOn Handle, execute func(index int)) Handle

	// Workers returns the maximum number of worker goroutines in the pool.
	//
	// Returns:
	//   - int: the configured worker count
	Workers() int

	// Release stops the worker pool. Jobs must not be scheduled after Release.
	Release()
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler backed by a DynamicWorkerPool.
// The worker count defaults to one less than the number of CPUs (minimum 1), matching the
// compute pool sizing used for per-frame CPU prep.
//
// Parameters:
//   - options: functional options to configure the scheduler
//
// Returns:
//   - Scheduler: the newly created scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		mu:      &sync.Mutex{},
		workers: max(runtime.NumCPU()-1, 1),
		queue:   256,
		idle:    time.Second,
		log:     logrus.StandardLogger(),
	}

	for _, option := range options {
		option(s)
	}

	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queue, s.idle)
	s.log.WithFields(logrus.Fields{"workers": s.workers, "queue": s.queue}).Debug("job scheduler started")
	return s
}

func (s *scheduler) ScheduleParallel(length, batchSize int, dependsOn Handle, execute func(index int)) Handle {
	if batchSize < 1 {
		batchSize = 1
	}

	h := Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		dependsOn.Complete()
		if length <= 0 {
			return
		}

		var wg sync.WaitGroup
		for start := 0; start < length; start += batchSize {
			end := min(start+batchSize, length)
			wg.Add(1)
			s.pool.SubmitTask(worker.Task{
				ID:      int(s.nextTask.Add(1)),
				Payload: [2]int{start, end},
				Do: func() (any, error) {
					defer wg.Done()
					for i := start; i < end; i++ {
						execute(i)
					}
					return nil, nil
				},
			})
		}
		wg.Wait()
	}()
	return h
}

func (s *scheduler) Workers() int {
	return s.workers
}

func (s *scheduler) Release() {
	if s.released.Swap(true) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool.Stop()
	s.log.Debug("job scheduler stopped")
}
