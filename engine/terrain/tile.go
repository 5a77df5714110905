package terrain

import (
	"math"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/golang/geo/r2"
)

// Tile describes the face window covered by one atlas layer.
//
// A tile of level L has half-width s = 2^-L and is centered on Snap·mod, where mod = 2s/SnapSize is the
// width of one snap cell. Texels are addressed toroidally: a face point p is stored at
// floor(fract(p/(2s) + 1/2)·size), so a texel keeps its face position while the window slides and only
// texels entering the window need to be regenerated.
type Tile struct {
	Lod      int
	Snap     [2]int64
	SnapSize int
}

// Scale returns the half-width of the tile in face units, 2^-Lod.
func (t Tile) Scale() float64 {
	return math.Ldexp(1, -t.Lod)
}

// Modulus returns the width of one snap cell in face units.
func (t Tile) Modulus() float64 {
	return t.Scale() * 2 / float64(t.SnapSize)
}

// Center returns the tile center in face coordinates.
func (t Tile) Center() r2.Point {
	m := t.Modulus()
	return r2.Point{X: float64(t.Snap[0]) * m, Y: float64(t.Snap[1]) * m}
}

// Align returns the toroidal alignment offset of the window's lower corner, in [0, 1)².
func (t Tile) Align() r2.Point {
	a := common.EucMod2(t.Snap, int64(t.SnapSize))
	return r2.Point{X: float64(a[0]) / float64(t.SnapSize), Y: float64(a[1]) / float64(t.SnapSize)}
}

// TexelShift returns the stored texel index of the window's lower corner.
func (t Tile) TexelShift(size int) [2]int {
	a := common.EucMod2(t.Snap, int64(t.SnapSize))
	per := int64(size / t.SnapSize)
	return [2]int{int(a[0] * per), int(a[1] * per)}
}

// Local converts a stored texel index to its position inside the window, counted from the lower corner.
func (t Tile) Local(x, y, size int) (lx, ly int) {
	s := t.TexelShift(size)
	return int(common.EucMod(int64(x-s[0]), int64(size))), int(common.EucMod(int64(y-s[1]), int64(size)))
}

// Point returns the face coordinate sampled by the center of stored texel (x, y).
func (t Tile) Point(x, y, size int) r2.Point {
	lx, ly := t.Local(x, y, size)
	s := t.Scale()
	c := t.Center()
	cell := 2 * s / float64(size)
	return r2.Point{
		X: c.X - s + (float64(lx)+0.5)*cell,
		Y: c.Y - s + (float64(ly)+0.5)*cell,
	}
}

// Texel returns the stored texel holding face point p, clamped to the window.
func (t Tile) Texel(p r2.Point, size int) (x, y int) {
	s := t.Scale()
	c := t.Center()
	cell := 2 * s / float64(size)
	lx := common.Clamp(int(math.Floor((p.X-(c.X-s))/cell)), 0, size-1)
	ly := common.Clamp(int(math.Floor((p.Y-(c.Y-s))/cell)), 0, size-1)
	sh := t.TexelShift(size)
	return (lx + sh[0]) % size, (ly + sh[1]) % size
}

// TexelDelta returns the offset, in texels, that maps a window-local index of t to the window-local index of
// the same face position in prev. Both tiles must be of the same level.
func (t Tile) TexelDelta(prev Tile, size int) [2]int {
	per := int64(size / t.SnapSize)
	return [2]int{int((t.Snap[0] - prev.Snap[0]) * per), int((t.Snap[1] - prev.Snap[1]) * per)}
}

// Retains reports whether stored texel (x, y) of t already held valid data when the same layer covered prev.
// Both tiles must be of the same level.
func (t Tile) Retains(prev Tile, x, y, size int) bool {
	lx, ly := t.Local(x, y, size)
	d := t.TexelDelta(prev, size)
	ox, oy := lx+d[0], ly+d[1]
	return ox >= 0 && ox < size && oy >= 0 && oy < size
}
