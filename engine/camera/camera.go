// Package camera moves the viewer and builds the view-projection used to draw planets.
package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

type cameraImpl struct {
	mu *sync.Mutex

	fov    float64
	aspect float64
	near   float64
	far    float64

	projectionMatrix mgl64.Mat4
}

// Camera holds the perspective settings of the view.
//
// Planets are drawn in radius units around their own center, so the eye passed to ViewProjection is the
// viewer's offset from the planet center divided by the radius and the clip planes are sized for that
// space.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float64: field of view in radians
	Fov() float64

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float64: the aspect ratio
	Aspect() float64

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float64: near plane distance
	Near() float64

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float64: far plane distance
	Far() float64

	// SetAspect sets the aspect ratio (width / height) and recomputes the projection.
	// Non-positive ratios are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float64)

	// ProjectionMatrix returns the current perspective projection.
	//
	// Returns:
	//   - mgl64.Mat4: the projection matrix
	ProjectionMatrix() mgl64.Mat4

	// ViewProjection builds the combined view-projection for an eye looking along look.
	//
	// Parameters:
	//   - eye: the eye position
	//   - look: the unit view direction
	//   - up: the unit up direction
	//
	// Returns:
	//   - mgl32.Mat4: the view-projection matrix, ready for upload
	ViewProjection(eye, look, up r3.Vector) mgl32.Mat4
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with a 45 degree field of view and clip planes at 0.1 and 10.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		fov:    45.0 * (math.Pi / 180.0),
		aspect: 1.0,
		near:   0.1,
		far:    10.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateProjection()
	return c
}

func (c *cameraImpl) Fov() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetAspect(aspect float64) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateProjection()
}

func (c *cameraImpl) ProjectionMatrix() mgl64.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjection(eye, look, up r3.Vector) mgl32.Mat4 {
	c.mu.Lock()
	proj := c.projectionMatrix
	c.mu.Unlock()

	e := vec3(eye)
	view := mgl64.LookAtV(e, e.Add(vec3(look)), vec3(up))
	vp := proj.Mul4(view)

	var out mgl32.Mat4
	for i := range vp {
		out[i] = float32(vp[i])
	}
	return out
}

// updateProjection recalculates the projection matrix. Caller must hold the mutex.
func (c *cameraImpl) updateProjection() {
	c.projectionMatrix = mgl64.Perspective(c.fov, c.aspect, c.near, c.far)
}

func vec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromVec3(v mgl64.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
