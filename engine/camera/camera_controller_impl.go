package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/Carmen-Shannon/oxy-planet/engine/input"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	anglePerPixel  float64
	playerHeight   int64
	speedFactor    float64
	openSpaceSpeed float64
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a flight controller. By default the viewer turns half a degree per pixel,
// keeps one meter of clearance, and flies at three times its altitude per second, or 3e13 mm/s in open
// space.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:             &sync.Mutex{},
		anglePerPixel:  0.5,
		playerHeight:   1000,
		speedFactor:    3,
		openSpaceSpeed: 3e13,
	}
	for _, opt := range options {
		opt(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) AnglePerPixel() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.anglePerPixel
}

func (cc *cameraControllerImpl) PlayerHeight() int64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.playerHeight
}

func (cc *cameraControllerImpl) Update(view *scene.State, body *Body, in input.Frame, dt float64) {
	if in.MouseDelta != [2]float64{} {
		cc.Rotate(view, in.MouseDelta[0], in.MouseDelta[1])
	}
	cc.Move(view, body, in, dt)
}

func (cc *cameraControllerImpl) Rotate(view *scene.State, dx, dy float64) {
	perPixel := mgl64.DegToRad(cc.AnglePerPixel())

	right := vec3(view.Right())
	pitch := mgl64.QuatRotate(-dy*perPixel, right)
	yaw := mgl64.QuatRotate(-dx*perPixel, vec3(view.Up))

	look := yaw.Rotate(pitch.Rotate(vec3(view.Look)))
	up := pitch.Rotate(vec3(view.Up))

	view.Look = fromVec3(look)
	view.Up = fromVec3(up)
	view.Orthonormalize()
}

func (cc *cameraControllerImpl) Speed(view scene.State, body *Body) float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if body == nil {
		return cc.openSpaceSpeed
	}
	altitude := view.Position.Sub(body.Position).FineVector().Norm() - float64(body.Radius+body.TerrainHeight)
	return cc.speedFactor * math.Max(altitude, float64(cc.playerHeight))
}

func (cc *cameraControllerImpl) Move(view *scene.State, body *Body, in input.Frame, dt float64) {
	var dir r3.Vector
	right := view.Right()
	if in.Pressed(common.KeyW) {
		dir = dir.Add(view.Look)
	}
	if in.Pressed(common.KeyS) {
		dir = dir.Sub(view.Look)
	}
	if in.Pressed(common.KeyD) {
		dir = dir.Add(right)
	}
	if in.Pressed(common.KeyA) {
		dir = dir.Sub(right)
	}
	if in.Pressed(common.KeyR) {
		dir = dir.Add(view.Up)
	}
	if in.Pressed(common.KeyF) {
		dir = dir.Sub(view.Up)
	}

	if dir.Norm() > 0 {
		view.Position = view.Position.AddFine(dir.Mul(cc.Speed(*view, body) * dt))
	}
	if body != nil {
		cc.Clamp(view, *body)
	}
}

func (cc *cameraControllerImpl) Clamp(view *scene.State, body Body) {
	rel := view.Position.Sub(body.Position)
	if !rel.Coarse.IsZero() {
		return
	}
	offset := rel.FineVector()
	floor := float64(body.Radius + body.TerrainHeight + cc.PlayerHeight())
	dist := offset.Norm()
	if dist >= floor {
		return
	}
	if dist == 0 {
		offset = view.Up
		dist = 1
	}
	view.Position = body.Position.AddFine(offset.Mul(floor / dist))
}
