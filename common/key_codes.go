package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87  // W key (ASCII), move forward
	KeyA     = 65  // A key (ASCII), strafe left
	KeyS     = 83  // S key (ASCII), move backward
	KeyD     = 68  // D key (ASCII), strafe right
	KeyR     = 82  // R key (ASCII), rise
	KeyF     = 70  // F key (ASCII), sink
	KeySpace = 32  // Spacebar (ASCII), toggles mouse capture
	KeyEsc   = 256 // Escape key (GLFW)
)

// Additional non-printable keys
const (
	KeyLeftShift  = 340 // Left Shift (GLFW)
	KeyRightShift = 344 // Right Shift (GLFW)
)
