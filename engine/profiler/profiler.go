package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats is one reporting window of frame statistics.
type Stats struct {
	Frames       int
	FPS          float64
	AvgPropagate time.Duration
	MaxPropagate time.Duration
	AvgPublish   time.Duration
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	MaxPauseUs   uint64
}

// Profiler tracks frame rate, propagation/publish timing and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	propagateTotal time.Duration
	propagateMax   time.Duration
	publishTotal   time.Duration
	timedFrames    int

	last Stats
	log  logrus.FieldLogger
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: time.Second,
		log:            logrus.StandardLogger(),
	}

	for _, option := range options {
		option(p)
	}
	return p
}

// Record adds the duration of one frame's propagation and publication to the current window.
//
// Parameters:
//   - propagate: time spent resolving every level
//   - publish: time spent uploading and issuing draws
func (p *Profiler) Record(propagate, publish time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.propagateTotal += propagate
	p.publishTotal += publish
	p.propagateMax = max(p.propagateMax, propagate)
	p.timedFrames++
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		Frames:      p.frameCount,
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}
	if p.timedFrames > 0 {
		stats.AvgPropagate = p.propagateTotal / time.Duration(p.timedFrames)
		stats.AvgPublish = p.publishTotal / time.Duration(p.timedFrames)
		stats.MaxPropagate = p.propagateMax
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.log.WithFields(logrus.Fields{
		"fps":          stats.FPS,
		"propagateAvg": stats.AvgPropagate,
		"propagateMax": stats.MaxPropagate,
		"publishAvg":   stats.AvgPublish,
	}).Infof("[Profiler] FPS: %.2f | Propagate: %v (max %v) | Publish: %v | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max pause: %d µs)",
		stats.FPS, stats.AvgPropagate, stats.MaxPropagate, stats.AvgPublish, stats.HeapMB, stats.AllocRateMB, stats.GCCount, stats.MaxPauseUs)

	p.last = stats
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.propagateTotal, p.propagateMax, p.publishTotal, p.timedFrames = 0, 0, 0, 0
	return true
}

// Last returns the statistics of the most recently logged window.
//
// Returns:
//   - Stats: the last window's statistics
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
