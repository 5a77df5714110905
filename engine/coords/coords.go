// Package coords implements the two-level absolute position used for planetary and astronomical distances.
package coords

import (
	"math"

	"github.com/golang/geo/r3"
)

// MillimetersPerCell is the nominal width of one coarse cell.
// Fine offsets are not carried into the coarse field, so this constant only documents the scale at which
// the coarse index is meant to step; see Sub.
const MillimetersPerCell int64 = 1 << 50

// Int3 is an integer 3-vector.
type Int3 [3]int64

// Add returns the componentwise sum.
func (a Int3) Add(b Int3) Int3 {
	return Int3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub returns the componentwise difference.
func (a Int3) Sub(b Int3) Int3 {
	return Int3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// IsZero reports whether every component is zero.
func (a Int3) IsZero() bool {
	return a == Int3{}
}

// Vector converts the value to floating point.
func (a Int3) Vector() r3.Vector {
	return r3.Vector{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}

// Coordinate is an absolute position made of a coarse cell index and a millimeter offset.
type Coordinate struct {
	Coarse Int3
	Fine   Int3
}

// New builds a Coordinate from a coarse cell and a fine millimeter offset.
func New(coarse, fine Int3) Coordinate {
	return Coordinate{Coarse: coarse, Fine: fine}
}

// Add combines both fields componentwise, with no carry between them.
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{Coarse: c.Coarse.Add(o.Coarse), Fine: c.Fine.Add(o.Fine)}
}

// Sub combines both fields componentwise, with no borrow between them.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{Coarse: c.Coarse.Sub(o.Coarse), Fine: c.Fine.Sub(o.Fine)}
}

// AddFine returns c moved by a floating point millimeter delta, rounded to the nearest millimeter.
func (c Coordinate) AddFine(delta r3.Vector) Coordinate {
	c.Fine = c.Fine.Add(Int3{
		int64(math.Round(delta.X)),
		int64(math.Round(delta.Y)),
		int64(math.Round(delta.Z)),
	})
	return c
}

// InRange reports whether c and o share the same coarse cell. The test is exact.
func (c Coordinate) InRange(o Coordinate) bool {
	return c.Sub(o).Coarse.IsZero()
}

// FineVector returns the fine offset as a floating point vector.
func (c Coordinate) FineVector() r3.Vector {
	return c.Fine.Vector()
}
