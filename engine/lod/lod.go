// Package lod decides how many detail levels a planet needs, which tile of which level must be regenerated
// this frame, and what instances are drawn.
package lod

import (
	"math"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/golang/geo/r2"
)

// LevelsOfDetail maps the viewer's height above ground, as a fraction of the radius, to the number of levels
// to keep resident, in [1, maxLods+1]. One level is added per halving of the distance.
//
// Parameters:
//   - d: distance to the ground divided by the planet radius
//   - p: the tuning parameters
//
// Returns:
//   - int: the number of levels including level 0
func LevelsOfDetail(d float64, p config.Parameters) int {
	hi := p.MaxLods + 1
	if d <= 0 {
		return hi
	}
	// Ilogb saturates at MaxInt32 for NaN and infinities; int is wide enough for the subtraction.
	raw := p.ZoomFactor - math.Ilogb(d)
	return common.Clamp(raw, 1, hi)
}

// Level is the snap state a level was last generated with.
type Level struct {
	Snap [2]int64
	Face cubesphere.Face
}

// Region is an axis-aligned rectangle in a tile's local coordinates.
type Region struct {
	Min, Max r2.Point
}

// Empty reports whether the region covers nothing.
func (r Region) Empty() bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}

// Instance is one tile to be drawn.
type Instance struct {
	// Offset is the tile center relative to the viewer, in face units.
	Offset r2.Point
	// Center is the tile center in face coordinates.
	Center r2.Point
	Face   cubesphere.Face
	Scale  float64
	Lod    int
	// Discard is the part of this tile covered by its child, in this tile's local [-1, 1]² coordinates.
	Discard Region
	// Slot is the atlas layer holding the tile, filled in by the atlas.
	Slot int
}

// Update describes the single level regenerated this frame.
type Update struct {
	Lod  int
	Face cubesphere.Face
	// Prev is the snap state the level's layer already holds, or nil when it must be generated from scratch.
	Prev *Level
	// Next is the snap number the level moves to.
	Next [2]int64
	// ParentSnap is the snap number of the level above, already committed.
	ParentSnap [2]int64
}

// Tile returns the tile the update writes.
func (u Update) Tile(snapSize int) terrain.Tile {
	return terrain.Tile{Lod: u.Lod, Snap: u.Next, SnapSize: snapSize}
}

// Selection is the outcome of one frame of level selection.
type Selection struct {
	// Requested is the level count asked for by the viewer distance.
	Requested int
	// Levels is the level count actually drawn, lower than Requested while levels are still being created.
	Levels int
	// Faces holds the six level-0 instances, indexed by face.
	Faces [cubesphere.FaceCount]Instance
	// Higher holds the instances of levels 1..Levels-1, coarsest first.
	Higher []Instance
	// Update is the level to regenerate this frame, or nil.
	Update *Update
	// Snaps is the new per-level snap record, index 0 being level 0.
	Snaps []Level
}

// Select computes this frame's instances and the single update to issue.
//
// Levels are scanned from coarsest to finest. The first level whose snap number moved, whose face changed, or
// that was never populated is selected for regeneration and uses its new snap number. Every other level keeps
// the snap number it was last generated with, and a level that has nothing to show yet truncates the list.
//
// Parameters:
//   - view: the viewer's cube coordinate
//   - d: distance to the ground divided by the planet radius
//   - prev: the snap record returned by the previous frame's Selection, nil on the first frame
//   - p: the tuning parameters
//
// Returns:
//   - Selection: the frame's selection
func Select(view cubesphere.Coordinate, d float64, prev []Level, p config.Parameters) Selection {
	sel := Selection{Requested: LevelsOfDetail(d, p)}
	levels := sel.Requested
	cellSize := p.CellSize()

	for f := cubesphere.Face(0); f < cubesphere.FaceCount; f++ {
		sel.Faces[f] = Instance{Face: f, Scale: 1}
	}
	sel.Faces[view.Face].Offset = r2.Point{X: -view.Pos.X, Y: -view.Pos.Y}

	snaps := []Level{{Face: view.Face}}
	for l := 1; l < levels; l++ {
		tile := terrain.Tile{Lod: l, SnapSize: p.SnapSize}
		mod := tile.Modulus()
		candidate := [2]int64{
			int64(math.Round(view.Pos.X / mod)),
			int64(math.Round(view.Pos.Y / mod)),
		}

		populated := l < len(prev) && prev[l].Face == view.Face
		snap := candidate
		switch {
		case sel.Update == nil && (!populated || prev[l].Snap != candidate):
			up := &Update{Lod: l, Face: view.Face, Next: candidate, ParentSnap: snaps[l-1].Snap}
			if populated {
				old := prev[l]
				up.Prev = &old
			}
			sel.Update = up
		case !populated:
			levels = l
		default:
			snap = prev[l].Snap
		}
		if levels == l {
			break
		}

		tile.Snap = snap
		center := tile.Center()
		if l == 1 {
			sel.Faces[view.Face].Discard = centeredRegion(center, 0.5)
		} else {
			parent := snaps[l-1].Snap
			r := r2.Point{
				X: float64(snap[0]-2*parent[0]) * cellSize,
				Y: float64(snap[1]-2*parent[1]) * cellSize,
			}
			sel.Higher[len(sel.Higher)-1].Discard = centeredRegion(r, 0.5)
		}

		sel.Higher = append(sel.Higher, Instance{
			Offset: center.Sub(view.Pos),
			Center: center,
			Face:   view.Face,
			Scale:  tile.Scale(),
			Lod:    l,
		})
		snaps = append(snaps, Level{Snap: snap, Face: view.Face})
	}

	sel.Levels = levels
	sel.Snaps = snaps
	return sel
}

// Rendered returns the instances to draw. When more than maxRenderLods higher levels are resident only the
// viewer's face and the finest maxRenderLods levels are drawn, with the face masking the coarsest drawn level.
//
// Parameters:
//   - viewFace: the face under the viewer
//   - maxRenderLods: the cap on drawn higher levels
//
// Returns:
//   - []Instance: the instances to draw, coarsest first
func (s Selection) Rendered(viewFace cubesphere.Face, maxRenderLods int) []Instance {
	if len(s.Higher) <= maxRenderLods {
		out := make([]Instance, 0, cubesphere.FaceCount+len(s.Higher))
		out = append(out, s.Faces[:]...)
		return append(out, s.Higher...)
	}

	kept := s.Higher[len(s.Higher)-maxRenderLods:]
	face := s.Faces[viewFace]
	face.Discard = centeredRegion(kept[0].Center, kept[0].Scale)

	out := make([]Instance, 0, 1+len(kept))
	out = append(out, face)
	return append(out, kept...)
}

// Finest returns the finest higher-level instance, if any.
func (s Selection) Finest() (Instance, bool) {
	if len(s.Higher) == 0 {
		return Instance{}, false
	}
	return s.Higher[len(s.Higher)-1], true
}

func centeredRegion(c r2.Point, half float64) Region {
	return Region{
		Min: r2.Point{X: c.X - half, Y: c.Y - half},
		Max: r2.Point{X: c.X + half, Y: c.Y + half},
	}
}
