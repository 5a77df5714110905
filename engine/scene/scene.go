// Package scene holds the viewer singleton: where the viewer is, where it looks and the size of the view.
package scene

import (
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
	"github.com/golang/geo/r3"
)

// State is the viewer record. There is exactly one per store.
type State struct {
	// WindowSize is the framebuffer size in pixels.
	WindowSize [2]int
	// Position is the absolute viewer position.
	Position coords.Coordinate
	// Look is the unit view direction.
	Look r3.Vector
	// Up is the unit up direction, orthogonal to Look.
	Up r3.Vector
}

// NewState creates the viewer record. The default viewer sits at the origin looking down +y with +z up.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - State: the viewer record
func NewState(options ...SceneBuilderOption) State {
	s := State{
		WindowSize: [2]int{1280, 720},
		Look:       r3.Vector{Y: 1},
		Up:         r3.Vector{Z: 1},
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Aspect returns the width to height ratio of the view, 1 for a degenerate size.
func (s State) Aspect() float64 {
	if s.WindowSize[0] <= 0 || s.WindowSize[1] <= 0 {
		return 1
	}
	return float64(s.WindowSize[0]) / float64(s.WindowSize[1])
}

// Right returns the unit vector to the viewer's right.
func (s State) Right() r3.Vector {
	return s.Look.Cross(s.Up).Normalize()
}

// Orthonormalize renormalizes Look and rebuilds Up orthogonal to it, correcting drift from repeated
// rotations.
func (s *State) Orthonormalize() {
	s.Look = s.Look.Normalize()
	right := s.Look.Cross(s.Up)
	if right.Norm() == 0 {
		right = s.Look.Ortho()
	}
	s.Up = right.Cross(s.Look).Normalize()
}
