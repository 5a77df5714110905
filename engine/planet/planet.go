// Package planet holds the per-planet record and the frame pass that drives its level of detail, atlas
// updates, draw list and ground height feedback.
package planet

import (
	"math"

	"github.com/Carmen-Shannon/oxy-planet/engine/atlas"
	"github.com/Carmen-Shannon/oxy-planet/engine/camera"
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
	"github.com/Carmen-Shannon/oxy-planet/engine/feedback"
	"github.com/Carmen-Shannon/oxy-planet/engine/lod"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// State is the record of one planet.
type State struct {
	// Label names the planet's device resources.
	Label string
	// Radius is the planet radius in millimeters.
	Radius int64
	// Position is the planet center.
	Position coords.Coordinate
	// TerrainFactor scales elevation samples to fractions of the radius.
	TerrainFactor float64
	// RotationAngle is the spin about the planet's z axis, in radians.
	RotationAngle float64

	// PlayerTerrainHeight is the ground height under the viewer in millimeters above the radius, as of the
	// last drained feedback sample.
	PlayerTerrainHeight int64
	// BaseHeight is the base offset part of PlayerTerrainHeight.
	BaseHeight int64
	// BaseOffsetUV are the base offsets of the last sampled slot.
	BaseOffsetUV [2]float64
	// SnapNumbers is the per-level snap record of the last frame, index 0 being level 0.
	SnapNumbers []lod.Level

	// Atlas and Feedback are created by the first frame that reaches the planet.
	Atlas    atlas.Atlas
	Feedback feedback.Pipeline
}

// NewState creates a planet record.
//
// Parameters:
//   - radius: the planet radius in millimeters
//   - options: builder options
//
// Returns:
//   - State: the planet record
func NewState(radius int64, options ...StateBuilderOption) State {
	s := State{
		Label:         "Planet",
		Radius:        radius,
		TerrainFactor: 0.0001,
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Body returns the planet as seen by viewer movement.
func (s *State) Body() camera.Body {
	return camera.Body{
		Position:      s.Position,
		Radius:        s.Radius,
		TerrainHeight: s.PlayerTerrainHeight,
	}
}

// InRange reports whether the viewer shares the planet's coarse cell, the condition for any per-frame work.
func (s *State) InRange(viewer coords.Coordinate) bool {
	return viewer.InRange(s.Position)
}

// Rotate advances the spin angle, wrapped to [0, 2π).
//
// Parameters:
//   - dt: elapsed time in seconds
//   - rate: spin rate in radians per second
func (s *State) Rotate(dt, rate float64) {
	a := math.Mod(s.RotationAngle+dt*rate, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	s.RotationAngle = a
}

// ToLocal rotates a vector from the scene frame into the planet's spinning frame.
func (s *State) ToLocal(v r3.Vector) r3.Vector {
	m := mgl64.Rotate3DZ(-s.RotationAngle)
	l := m.Mul3x1(mgl64.Vec3{v.X, v.Y, v.Z})
	return r3.Vector{X: l[0], Y: l[1], Z: l[2]}
}

// Altitude returns the viewer's height above the ground as a fraction of the radius, given the viewer's
// offset from the center.
func (s *State) Altitude(offset r3.Vector) float64 {
	r := float64(s.Radius)
	return (offset.Norm() - r - float64(s.PlayerTerrainHeight)) / r
}

// apply folds a drained feedback sample into the ground height.
func (s *State) apply(sample feedback.Sample) {
	scale := s.TerrainFactor * float64(s.Radius)
	s.BaseOffsetUV = [2]float64{sample.BaseU, sample.BaseV}
	s.BaseHeight = int64(math.Round(sample.Base() * scale))
	s.PlayerTerrainHeight = int64(math.Round(sample.Raw*scale)) + s.BaseHeight
}
