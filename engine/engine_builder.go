package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-planet/engine/ecs"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/systems"
	"github.com/Carmen-Shannon/oxy-planet/engine/window"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
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
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window whose events feed the store. Without one the engine runs headless.
//
// Parameters:
//   - w: a spawned Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice sets the device the engine resizes, profiles and closes.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d renderer.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithStore sets a pre-populated entity store.
//
// Parameters:
//   - s: the store
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStore(s *ecs.Store) EngineBuilderOption {
	return func(e *engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithSystems registers systems during engine construction.
//
// Parameters:
//   - s: the systems
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSystems(s ...systems.System) EngineBuilderOption {
	return func(e *engine) {
		for _, sys := range s {
			e.AddSystem(sys)
		}
	}
}

// WithClock sets the clock frames are timed with.
//
// Parameters:
//   - c: the clock, typically a mock in tests
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(c clock.Clock) EngineBuilderOption {
	return func(e *engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the engine logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.SugaredLogger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
