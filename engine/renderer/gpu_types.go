package renderer

import (
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/go-gl/mathgl/mgl32"
)

// Image is an opaque handle to a layered single-channel float image owned by a Device.
type Image interface {
	Label() string
	// Size returns the edge length of each layer in texels.
	Size() int
	// Layers returns the number of layers.
	Layers() int
}

// Buffer is an opaque handle to a float buffer owned by a Device.
type Buffer interface {
	Label() string
	// Len returns the capacity in float32 elements.
	Len() int
}

// Fence reports completion of every command issued before it.
type Fence interface {
	// IsReady polls the fence without blocking.
	IsReady() bool
}

// InitializeJob writes the six whole-face layers of an atlas.
type InitializeJob struct {
	Image Image
	// Offsets is the per-slot base offset store; the six face slots are reset to zero.
	Offsets Buffer
}

// DetailJob regenerates one atlas layer from the elevation field.
type DetailJob struct {
	Image   Image
	Offsets Buffer

	Target int
	Parent int
	Face   cubesphere.Face

	// Tile is the window the target layer covers after the update.
	Tile terrain.Tile
	// ParentTile is the committed window of the parent layer.
	ParentTile terrain.Tile
	// Prev is the window the target layer held before, or nil to regenerate every texel and reset the
	// layer's base offsets from the parent.
	Prev *terrain.Tile

	// Derivatives and Curvature are evaluated at the tile center.
	Derivatives cubesphere.Derivatives
	Curvature   cubesphere.Curvature
}

// InstanceAttributes is the per-instance vertex data of one drawn tile.
type InstanceAttributes struct {
	Offset  [2]float32
	Scale   float32
	Face    uint32
	Discard [4]float32
	Slot    uint32
	_       [3]uint32
}

// DrawUniforms is the per-planet uniform block of the terrain draw.
type DrawUniforms struct {
	ViewProjection mgl32.Mat4
	Fx             [4]float32
	Fy             [4]float32
	Fxx            [4]float32
	Fxy            [4]float32
	Fyy            [4]float32
	// Viewer holds the viewer's face coordinate in xy, the face index in z and the distance from the planet
	// center in radii in w.
	Viewer [4]float32
	// Terrain holds the terrain factor in x and the player terrain height in radii in y.
	Terrain [4]float32
}

// DrawList is everything the rasterization stage needs to draw one planet for one frame.
type DrawList struct {
	Label     string
	Atlas     Image
	Offsets   Buffer
	Uniforms  DrawUniforms
	Instances []InstanceAttributes
}

// Stats counts the commands a Device has accepted.
type Stats struct {
	Dispatches int
	Barriers   int
	Copies     int
	Fences     int
	Draws      int
}
