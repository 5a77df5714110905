package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Summary is the statistics of one profiler interval.
type Summary struct {
	FPS float64
	// FrameTime is the mean CPU time of a frame.
	FrameTime time.Duration
	// Commands are the device commands issued during the interval.
	Commands renderer.Stats
	// Samples is the number of ground height samples drained.
	Samples int
}

// Profiler tracks frame rate, device work and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	clock          clock.Clock
	logger         *zap.SugaredLogger
	stats          func() renderer.Stats
	frameCount     int
	frameTime      time.Duration
	samples        int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastStats      renderer.Stats
	lastGCCount    uint32
	last           Summary
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		clock:          clock.New(),
		logger:         zap.NewNop().Sugar(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.clock.Now()
	if p.stats != nil {
		p.lastStats = p.stats()
	}
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, mean frame time, device commands, feedback samples, heap usage and GC pauses.
//
// Parameters:
//   - frameTime: the CPU time the frame took
//   - samples: the feedback samples drained this frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(frameTime time.Duration, samples int) bool {
	p.frameCount++
	p.frameTime += frameTime
	p.samples += samples
	currentTime := p.clock.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	var stats renderer.Stats
	if p.stats != nil {
		stats = p.stats()
	}
	summary := Summary{
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
		FrameTime: p.frameTime / time.Duration(p.frameCount),
		Commands: renderer.Stats{
			Dispatches: stats.Dispatches - p.lastStats.Dispatches,
			Barriers:   stats.Barriers - p.lastStats.Barriers,
			Copies:     stats.Copies - p.lastStats.Copies,
			Fences:     stats.Fences - p.lastStats.Fences,
			Draws:      stats.Draws - p.lastStats.Draws,
		},
		Samples: p.samples,
	}

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
			maxPauseUs = pause
		}
	}

	p.logger.Infow("profiler",
		"fps", summary.FPS,
		"frame_time", summary.FrameTime,
		"dispatches", summary.Commands.Dispatches,
		"fences", summary.Commands.Fences,
		"draws", summary.Commands.Draws,
		"samples", summary.Samples,
		"heap_mb", allocMB,
		"gc", gcCount,
		"gc_max_pause_us", maxPauseUs,
	)

	p.last = summary
	p.frameCount = 0
	p.frameTime = 0
	p.samples = 0
	p.lastTime = currentTime
	p.lastStats = stats
	p.lastGCCount = gcCount
	return true
}

// Last returns the summary of the most recent completed interval.
func (p *Profiler) Last() Summary {
	return p.last
}
