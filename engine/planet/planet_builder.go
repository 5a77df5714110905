package planet

import (
	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
)

// StateBuilderOption is a functional option for configuring a planet State.
type StateBuilderOption func(s *State)

// WithLabel sets the name used for the planet's device resources.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - StateBuilderOption: option function to apply
func WithLabel(label string) StateBuilderOption {
	return func(s *State) {
		s.Label = common.Coalesce(label, s.Label)
	}
}

// WithPosition sets the planet center.
//
// Parameters:
//   - pos: the absolute center position
//
// Returns:
//   - StateBuilderOption: option function to apply
func WithPosition(pos coords.Coordinate) StateBuilderOption {
	return func(s *State) {
		s.Position = pos
	}
}

// WithTerrainFactor sets the scale of elevation relative to the radius.
//
// Parameters:
//   - factor: elevation 1 maps to factor·radius millimeters
//
// Returns:
//   - StateBuilderOption: option function to apply
func WithTerrainFactor(factor float64) StateBuilderOption {
	return func(s *State) {
		s.TerrainFactor = factor
	}
}

// WithRotationAngle sets the initial spin angle.
//
// Parameters:
//   - angle: radians about the planet's z axis
//
// Returns:
//   - StateBuilderOption: option function to apply
func WithRotationAngle(angle float64) StateBuilderOption {
	return func(s *State) {
		s.RotationAngle = angle
	}
}
