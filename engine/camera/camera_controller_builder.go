package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithAnglePerPixel sets the mouse-look rotation per pixel.
//
// Parameters:
//   - degrees: rotation in degrees per pixel of cursor movement
//
// Returns:
//   - CameraControllerOption: functional option to set the look sensitivity
func WithAnglePerPixel(degrees float64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.anglePerPixel = degrees
	}
}

// WithPlayerHeight sets the minimum clearance kept between the viewer and the ground.
//
// Parameters:
//   - height: the clearance in millimeters
//
// Returns:
//   - CameraControllerOption: functional option to set the clearance
func WithPlayerHeight(height int64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if height >= 0 {
			cc.playerHeight = height
		}
	}
}

// WithSpeedFactor sets the movement speed as a multiple of the altitude, per second.
//
// Parameters:
//   - factor: speed divided by altitude
//
// Returns:
//   - CameraControllerOption: functional option to set the speed factor
func WithSpeedFactor(factor float64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.speedFactor = factor
	}
}

// WithOpenSpaceSpeed sets the movement speed used when no planet is in range.
//
// Parameters:
//   - speed: millimeters per second
//
// Returns:
//   - CameraControllerOption: functional option to set the open space speed
func WithOpenSpaceSpeed(speed float64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.openSpaceSpeed = speed
	}
}
