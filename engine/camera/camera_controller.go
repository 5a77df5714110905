package camera

import (
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
	"github.com/Carmen-Shannon/oxy-planet/engine/input"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
)

// Body is the planet the viewer moves relative to.
type Body struct {
	// Position is the planet center.
	Position coords.Coordinate
	// Radius is the planet radius in millimeters.
	Radius int64
	// TerrainHeight is the last known ground height under the viewer, in millimeters above the radius.
	TerrainHeight int64
}

// CameraController defines the union interface for viewer control. It embeds lookController for mouse
// look and flightController for keyboard movement; Update applies both for one frame.
type CameraController interface {
	lookController
	flightController

	// Update rotates the view by the frame's mouse movement, then moves the viewer by the held keys.
	//
	// Parameters:
	//   - view: the viewer record to update
	//   - body: the planet the viewer is near, or nil in open space
	//   - in: the frame's input snapshot
	//   - dt: the frame duration in seconds
	Update(view *scene.State, body *Body, in input.Frame, dt float64)
}

// lookController defines mouse-look methods.
type lookController interface {
	// Rotate turns the view by a cursor movement. Horizontal movement yaws about the up vector and vertical
	// movement pitches about the right vector, carrying the up vector along.
	//
	// Parameters:
	//   - view: the viewer record to update
	//   - dx: horizontal movement in pixels
	//   - dy: vertical movement in pixels, positive downwards
	Rotate(view *scene.State, dx, dy float64)

	// AnglePerPixel returns the rotation per pixel of cursor movement.
	//
	// Returns:
	//   - float64: degrees per pixel
	AnglePerPixel() float64
}

// flightController defines free-flight movement methods.
type flightController interface {
	// Speed returns the movement speed for the viewer's altitude above body.
	//
	// Parameters:
	//   - view: the viewer record
	//   - body: the planet the viewer is near, or nil in open space
	//
	// Returns:
	//   - float64: millimeters per second
	Speed(view scene.State, body *Body) float64

	// Move translates the viewer along its look, right and up axes by the held movement keys, then keeps it
	// at least PlayerHeight above the ground of body.
	//
	// Parameters:
	//   - view: the viewer record to update
	//   - body: the planet the viewer is near, or nil in open space
	//   - in: the frame's input snapshot
	//   - dt: the frame duration in seconds
	Move(view *scene.State, body *Body, in input.Frame, dt float64)

	// Clamp pushes the viewer out to at least PlayerHeight above the ground of body along its current
	// direction from the planet center.
	//
	// Parameters:
	//   - view: the viewer record to update
	//   - body: the planet the viewer is near
	Clamp(view *scene.State, body Body)

	// PlayerHeight returns the minimum clearance above the ground.
	//
	// Returns:
	//   - int64: millimeters
	PlayerHeight() int64
}
