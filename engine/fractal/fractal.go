package fractal

import (
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/Carmen-Shannon/oxy-fractal/engine/job"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// fractal is the implementation of the Fractal interface.
type fractal struct {
	mu *sync.Mutex

	cfg       Config
	batchSize int
	seed      uint64
	levels    []*Level

	root  RootTransform
	frame uint64

	scheduler     job.Scheduler
	ownsScheduler bool
	schedulerOpts []job.SchedulerBuilderOption
	log           logrus.FieldLogger
}

// Fractal is a self-similar tree of parts stored level by level, whose world transforms are
// propagated from the root outwards once per frame.
//
// Level 0 holds the single root part and is resolved synchronously from the external root
// transform. Every deeper level is resolved by a parallel job that depends on the job of the
// level above, so a part is never updated before its parent. Propagate blocks until the deepest
// level has finished, after which every level's packed matrices are consistent and may be
// uploaded.
//
// Fractal is safe for concurrent use: Propagate, Rebuild, Release and View serialize on an
// internal lock, so a rebuild never overlaps an in-flight propagation.
type Fractal interface {
	// Config returns the configuration the current structure was built from.
	//
	// Returns:
	//   - Config: the active configuration
	Config() Config

	// Seed returns the seed the construction random source was initialized with.
	//
	// Returns:
	//   - uint64: the seed
	Seed() uint64

	// Depth returns the number of levels, or 0 if the fractal has been released.
	//
	// Returns:
	//   - int: the level count
	Depth() int

	// LeafLevel returns the index of the deepest level, or -1 if the fractal has been released.
	//
	// Returns:
	//   - int: the leaf level index
	LeafLevel() int

	// Level returns the level at index i, or nil when out of range.
	// The returned level is owned by the fractal and is rewritten by every Propagate.
	//
	// Parameters:
	//   - i: the level index
	//
	// Returns:
	//   - *Level: the level or nil
	Level(i int) *Level

	// Frame returns the number of propagation cycles that ran to completion since the structure
	// was last built. 0 means no consistent output exists yet.
	//
	// Returns:
	//   - uint64: the resolved frame count
	Frame() uint64

	// Root returns the root transform used by the last completed propagation.
	//
	// Returns:
	//   - RootTransform: the last root transform
	Root() RootTransform

	// Initialized reports whether levels are currently allocated.
	//
	// Returns:
	//   - bool: true if the fractal can be propagated
	Initialized() bool

	// Propagate advances every part by deltaTime and resolves all world transforms from the root
	// outwards. It blocks until the deepest level has been written.
	//
	// Parameters:
	//   - deltaTime: elapsed seconds since the previous frame
	//   - root: the external transform driving the root part
	//
	// Returns:
	//   - error: ErrNotInitialized if there is nothing to propagate, otherwise nil
	Propagate(deltaTime float32, root RootTransform) error

	// Rebuild discards every level and constructs a new structure from cfg.
	// If cfg is invalid or too large the current structure is left untouched.
	//
	// Parameters:
	//   - cfg: the new configuration
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidConfig or ErrStructureTooLarge, or nil
	Rebuild(cfg Config) error

	// View runs fn with the fractal locked so no propagation or rebuild can run concurrently.
	// The levels slice must not be retained after fn returns.
	//
	// Parameters:
	//   - fn: the function receiving the levels, root-first
	//
	// Returns:
	//   - error: the error returned by fn, or ErrNotInitialized
	View(fn func(levels []*Level, root RootTransform, frame uint64) error) error

	// Release frees every level and stops the job scheduler if the fractal created it.
	// The fractal may be rebuilt afterwards with Rebuild.
	Release()
}

var _ Fractal = &fractal{}

// NewFractal validates the configuration, allocates every level and draws the construction
// values of every part. Nothing is allocated when the configuration is rejected.
//
// Parameters:
//   - options: functional options to configure the fractal
//
// Returns:
//   - Fractal: the newly created fractal
//   - error: an error wrapping ErrInvalidConfig or ErrStructureTooLarge
func NewFractal(options ...FractalBuilderOption) (Fractal, error) {
	f := &fractal{
		mu:  &sync.Mutex{},
		cfg: DefaultConfig(),
		log: logrus.StandardLogger(),
	}

	for _, option := range options {
		option(f)
	}

	if err := f.build(f.cfg); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *fractal) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fractal) Seed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed
}

func (f *fractal) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.levels)
}

func (f *fractal) LeafLevel() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.levels) - 1
}

func (f *fractal) Level(i int) *Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.levels) {
		return nil
	}
	return f.levels[i]
}

func (f *fractal) Frame() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fractal) Root() RootTransform {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root
}

func (f *fractal) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels != nil
}

func (f *fractal) Propagate(deltaTime float32, root RootTransform) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.levels == nil {
		return ErrNotInitialized
	}

	rootLevel := f.levels[0]
	rootLevel.Scale = root.Scale
	rootLevel.Matrices[0] = updateRoot(&rootLevel.Parts[0], root, deltaTime)

	// Each level's job depends on the handle of the level above, so the chain is queued in one
	// pass and only the last handle is waited on.
	scale := root.Scale
	var handle job.Handle
	for li := 1; li < len(f.levels); li++ {
		scale *= 0.5
		level := f.levels[li]
		level.Scale = scale
		j := &levelJob{
			parents:    f.levels[li-1].Parts,
			parts:      level.Parts,
			matrices:   level.Matrices,
			childCount: f.cfg.ChildCount,
			scale:      scale,
			deltaTime:  deltaTime,
		}
		handle = f.scheduler.ScheduleParallel(len(level.Parts), f.batchSize, handle, j.Execute)
	}
	handle.Complete()

	f.root = root
	f.frame++
	return nil
}

func (f *fractal) Rebuild(cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.build(cfg)
}

func (f *fractal) View(fn func(levels []*Level, root RootTransform, frame uint64) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.levels == nil {
		return ErrNotInitialized
	}
	return fn(f.levels, f.root, f.frame)
}

func (f *fractal) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.levels = nil
	f.frame = 0
	if f.ownsScheduler && f.scheduler != nil {
		f.scheduler.Release()
		f.scheduler = nil
	}
	f.log.Debug("fractal released")
}

// build validates cfg, allocates a complete new structure and swaps it in. Must be called with
// f.mu held (or before the fractal is shared).
func (f *fractal) build(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	parts, err := cfg.PartCount()
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	levels := buildLevels(cfg, rng)

	if f.scheduler == nil {
		f.scheduler = job.NewScheduler(append([]job.SchedulerBuilderOption{job.WithLogger(f.log)}, f.schedulerOpts...)...)
		f.ownsScheduler = true
	}

	f.cfg = cfg
	f.seed = seed
	f.levels = levels
	f.batchSize = common.Coalesce(cfg.BatchSize, cfg.ChildCount)
	f.frame = 0
	f.root = RootTransform{}

	f.log.WithFields(logrus.Fields{
		"depth":      cfg.Depth,
		"childCount": cfg.ChildCount,
		"parts":      parts,
		"batchSize":  f.batchSize,
		"seed":       seed,
	}).Info("fractal built")
	return nil
}

// Rejected reports whether err is a configuration or sizing failure from NewFractal or Rebuild.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - bool: true if err was caused by ErrInvalidConfig or ErrStructureTooLarge
func Rejected(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrInvalidConfig || cause == ErrStructureTooLarge
}
