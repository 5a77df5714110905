package scene

import (
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
	"github.com/golang/geo/r3"
)

// SceneBuilderOption is a functional option for configuring the viewer State.
// Use the With* functions to create options.
type SceneBuilderOption func(s *State)

// WithWindowSize sets the framebuffer size used for the projection aspect.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWindowSize(width, height int) SceneBuilderOption {
	return func(s *State) {
		s.WindowSize = [2]int{width, height}
	}
}

// WithPosition sets the absolute viewer position.
//
// Parameters:
//   - pos: the viewer position
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPosition(pos coords.Coordinate) SceneBuilderOption {
	return func(s *State) {
		s.Position = pos
	}
}

// WithLook sets the view direction. Zero vectors are ignored.
//
// Parameters:
//   - look: the view direction, normalized on apply
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLook(look r3.Vector) SceneBuilderOption {
	return func(s *State) {
		if look.Norm() > 0 {
			s.Look = look.Normalize()
		}
	}
}

// WithUp sets the up direction. Zero vectors are ignored.
//
// Parameters:
//   - up: the up direction, normalized on apply
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUp(up r3.Vector) SceneBuilderOption {
	return func(s *State) {
		if up.Norm() > 0 {
			s.Up = up.Normalize()
		}
	}
}
