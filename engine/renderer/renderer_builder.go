package renderer

import (
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"go.uber.org/zap"
)

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithLogger sets the logger used by the device and its backend.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option to a device
func WithLogger(logger *zap.SugaredLogger) DeviceBuilderOption {
	return func(d *device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode option to a device
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *device) {
		d.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the presented frame.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - DeviceBuilderOption: a function that applies the MSAA option to a device
func WithMSAA(count MSAASampleCount) DeviceBuilderOption {
	return func(d *device) {
		d.msaa = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the force software renderer option to a device
func WithForceSoftwareRenderer(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}

// WithElevationField sets the field evaluated by the software backend. The wgpu backend evaluates its own
// shader-side field and ignores this option.
//
// Parameters:
//   - field: the elevation field
//
// Returns:
//   - DeviceBuilderOption: a function that applies the field option to a device
func WithElevationField(field terrain.Field) DeviceBuilderOption {
	return func(d *device) {
		d.field = field
	}
}

// WithWorkers sets how many goroutines the software backend fans each dispatch out to.
//
// Parameters:
//   - n: the worker count, defaults to runtime.NumCPU()
//
// Returns:
//   - DeviceBuilderOption: a function that applies the worker option to a device
func WithWorkers(n int) DeviceBuilderOption {
	return func(d *device) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueDepth sets how many commands the software backend buffers before the caller waits.
//
// Parameters:
//   - n: the queue depth, defaults to 256
//
// Returns:
//   - DeviceBuilderOption: a function that applies the queue depth option to a device
func WithQueueDepth(n int) DeviceBuilderOption {
	return func(d *device) {
		if n > 0 {
			d.queueDepth = n
		}
	}
}
