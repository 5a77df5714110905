package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(p *Profiler)

// WithClock sets the clock intervals are measured with.
//
// Parameters:
//   - c: the clock, typically a mock in tests
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithClock(c clock.Clock) ProfilerBuilderOption {
	return func(p *Profiler) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger summaries are written to.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logger *zap.SugaredLogger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInterval sets how often a summary is logged.
//
// Parameters:
//   - interval: the summary interval, ignored when not positive
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithStats sets the source of device command counts.
//
// Parameters:
//   - stats: returns the cumulative command counts, e.g. renderer.Device.Stats
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithStats(stats func() renderer.Stats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}
