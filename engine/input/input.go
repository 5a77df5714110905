// Package input holds the keyboard and mouse record fed by window callbacks and consumed once per frame.
package input

import (
	"sync"
)

// State is the input singleton record.
//
// Window callbacks write it through Press, Release and MoveMouse; the input system reads and resets the
// accumulated mouse delta once per frame with Consume. State is safe for concurrent use.
type State struct {
	mu *sync.Mutex

	keys     map[uint32]bool
	captured bool
	cursor   *[2]int32
	delta    [2]float64
	smoothed [2]float64
	frame    Frame
}

// Frame is the input snapshot taken at the start of a frame.
type Frame struct {
	// Keys are the keys held down when the frame started.
	Keys map[uint32]bool
	// MouseDelta is the smoothed cursor movement since the previous frame, in pixels. It is zero while the
	// cursor is not captured.
	MouseDelta [2]float64
}

// Pressed reports whether key was held down when the frame started.
func (f Frame) Pressed(key uint32) bool {
	return f.Keys[key]
}

// NewState creates an empty input record.
//
// Returns:
//   - *State: the input record
func NewState() *State {
	return &State{
		mu:   &sync.Mutex{},
		keys: map[uint32]bool{},
	}
}

// Press marks key as held.
func (s *State) Press(key uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = true
}

// Release marks key as released.
func (s *State) Release(key uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

// SetCaptured toggles cursor capture. Movement only accumulates while the cursor is captured, and the
// first movement after a capture change only records the cursor position.
//
// Parameters:
//   - captured: whether the cursor drives the view
func (s *State) SetCaptured(captured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = captured
	s.cursor = nil
}

// Captured reports whether the cursor drives the view.
func (s *State) Captured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}

// MoveMouse records a cursor position.
//
// Parameters:
//   - x: the cursor x position in pixels
//   - y: the cursor y position in pixels
func (s *State) MoveMouse(x, y int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.captured {
		return
	}
	if s.cursor != nil {
		s.delta[0] += float64(x - s.cursor[0])
		s.delta[1] += float64(y - s.cursor[1])
	}
	s.cursor = &[2]int32{x, y}
}

// Consume snapshots the held keys and the mouse movement accumulated since the last call, then resets the
// accumulator. The movement is exponentially smoothed: each frame moves 1/smoothing of the way from the
// previous smoothed delta towards the raw one. A smoothing factor of 1 or less disables smoothing.
//
// Parameters:
//   - smoothing: the smoothing factor
//
// Returns:
//   - Frame: the snapshot
func (s *State) Consume(smoothing float64) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[uint32]bool, len(s.keys))
	for k := range s.keys {
		keys[k] = true
	}

	alpha := 1.0
	if smoothing > 1 {
		alpha = 1 / smoothing
	}
	for i := range s.delta {
		s.smoothed[i] += (s.delta[i] - s.smoothed[i]) * alpha
	}
	s.delta = [2]float64{}

	s.frame = Frame{Keys: keys, MouseDelta: s.smoothed}
	return s.frame
}

// Last returns the snapshot taken by the most recent Consume.
func (s *State) Last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}
