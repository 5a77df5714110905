// Package systems holds the per-frame passes the engine runs over the entity store, in priority order.
package systems

import (
	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/camera"
	"github.com/Carmen-Shannon/oxy-planet/engine/ecs"
	"github.com/Carmen-Shannon/oxy-planet/engine/planet"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Default priorities. Lower runs first.
const (
	PriorityInput  = 0
	PriorityCamera = 10
	PriorityPlanet = 20
	PriorityRender = 30
)

// System is one per-frame pass over the store.
type System interface {
	// Name identifies the system in errors and logs.
	Name() string

	// Priority orders the systems of a frame, lowest first.
	Priority() int

	// Update runs the system for one frame.
	//
	// Parameters:
	//   - store: the entity store
	//   - dt: the frame duration in seconds
	//
	// Returns:
	//   - error: an error that stops the engine
	Update(store *ecs.Store, dt float64) error
}

// InputSystem snapshots the input record at the start of each frame.
type InputSystem struct{}

var _ System = &InputSystem{}

func (s *InputSystem) Name() string  { return "input" }
func (s *InputSystem) Priority() int { return PriorityInput }

func (s *InputSystem) Update(store *ecs.Store, _ float64) error {
	in, err := ecs.GetOne(store, ecs.Inputs)
	if err != nil {
		return err
	}
	params, err := ecs.GetOne(store, ecs.Parameters)
	if err != nil {
		return err
	}
	in.Consume(params.SmoothingFactor)
	return nil
}

// CameraSystem moves the viewer relative to the nearest planet in range.
type CameraSystem struct {
	controller camera.CameraController
}

var _ System = &CameraSystem{}

// NewCameraSystem creates the viewer movement system.
//
// Parameters:
//   - controller: the flight controller
//
// Returns:
//   - *CameraSystem: the system
func NewCameraSystem(controller camera.CameraController) *CameraSystem {
	return &CameraSystem{controller: controller}
}

func (s *CameraSystem) Name() string  { return "camera" }
func (s *CameraSystem) Priority() int { return PriorityCamera }

func (s *CameraSystem) Update(store *ecs.Store, dt float64) error {
	view, err := ecs.GetOne(store, ecs.Viewers)
	if err != nil {
		return err
	}
	in, err := ecs.GetOne(store, ecs.Inputs)
	if err != nil {
		return err
	}
	s.controller.Update(view, NearestPlanet(store, *view), in.Last(), dt)
	return nil
}

// NearestPlanet returns the in-range planet whose ground is closest to the viewer, or nil.
//
// Parameters:
//   - store: the entity store
//   - view: the viewer record
//
// Returns:
//   - *camera.Body: the planet, or nil when none shares the viewer's coarse cell
func NearestPlanet(store *ecs.Store, view scene.State) *camera.Body {
	var best *camera.Body
	bestAltitude := 0.0
	for e := range store.Iterate(ecs.KindPlanet) {
		p, _ := ecs.Get(store, ecs.Planets, e)
		if !p.InRange(view.Position) {
			continue
		}
		body := p.Body()
		altitude := view.Position.Sub(p.Position).FineVector().Norm() - float64(p.Radius+p.PlayerTerrainHeight)
		if best == nil || altitude < bestAltitude {
			best, bestAltitude = &body, altitude
		}
	}
	return best
}

// RotationSystem spins every planet at the configured rate.
type RotationSystem struct{}

var _ System = &RotationSystem{}

func (s *RotationSystem) Name() string  { return "rotation" }
func (s *RotationSystem) Priority() int { return PriorityPlanet }

func (s *RotationSystem) Update(store *ecs.Store, dt float64) error {
	params, err := ecs.GetOne(store, ecs.Parameters)
	if err != nil {
		return err
	}
	if params.RotationRate == 0 {
		return nil
	}
	for e := range store.Iterate(ecs.KindPlanet) {
		p, _ := ecs.Get(store, ecs.Planets, e)
		p.Rotate(dt, params.RotationRate)
	}
	return nil
}

// RenderSystem runs the planet pass for every planet.
type RenderSystem struct {
	pass   *planet.Pass
	logger *zap.SugaredLogger

	samples int
}

var _ System = &RenderSystem{}

// NewRenderSystem creates the planet render system.
//
// Parameters:
//   - device: the device planets draw with
//   - params: the tuning parameters
//   - logger: the logger, nil for none
//
// Returns:
//   - *RenderSystem: the system
func NewRenderSystem(device renderer.Device, params config.Parameters, logger *zap.SugaredLogger) *RenderSystem {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RenderSystem{
		pass:   planet.NewPass(device, params, planet.WithLogger(logger)),
		logger: logger,
	}
}

func (s *RenderSystem) Name() string  { return "render" }
func (s *RenderSystem) Priority() int { return PriorityRender }

func (s *RenderSystem) Update(store *ecs.Store, _ float64) error {
	view, err := ecs.GetOne(store, ecs.Viewers)
	if err != nil {
		return err
	}
	for e := range store.Iterate(ecs.KindPlanet) {
		p, _ := ecs.Get(store, ecs.Planets, e)
		report, err := s.pass.Frame(p, *view)
		if err != nil {
			return errors.Wrapf(err, "entity %d", e)
		}
		s.samples += report.Samples
	}
	return nil
}

// TakeSamples returns the feedback samples drained since the last call and resets the count.
func (s *RenderSystem) TakeSamples() int {
	n := s.samples
	s.samples = 0
	return n
}
