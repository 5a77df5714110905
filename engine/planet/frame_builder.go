package planet

import (
	"github.com/Carmen-Shannon/oxy-planet/engine/camera"
	"go.uber.org/zap"
)

// PassBuilderOption is a functional option for configuring a Pass.
type PassBuilderOption func(p *Pass)

// WithLogger sets the logger used by the pass and by the atlases and feedback queues it creates.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithLogger(logger *zap.SugaredLogger) PassBuilderOption {
	return func(p *Pass) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCamera sets the camera used to build view-projections. A default camera is created otherwise.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithCamera(cam camera.Camera) PassBuilderOption {
	return func(p *Pass) {
		p.camera = cam
	}
}
