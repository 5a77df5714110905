// Package cubesphere maps points on the unit sphere to the six faces of the unit cube and back.
//
// The mapping is the area-correcting projection: a face point (x, y) maps to
//
//	X = x·sqrt(1/2 - y²/6), Y = y·sqrt(1/2 - x²/6), Z = sqrt(1 - x²/2 - y²/2 + x²y²/3)
//
// in face-local axes, which Face.Apply permutes back into sphere space. Cubize inverts it in closed form.
package cubesphere

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Face identifies one of the six cube sides.
type Face int

const (
	FacePosX Face = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// FaceCount is the number of cube faces.
const FaceCount = 6

// Apply permutes a face-local vector into sphere space.
func (f Face) Apply(v r3.Vector) r3.Vector {
	switch f {
	case FacePosX:
		return r3.Vector{X: v.Z, Y: v.X, Z: v.Y}
	case FaceNegX:
		return r3.Vector{X: -v.Z, Y: -v.X, Z: v.Y}
	case FacePosY:
		return r3.Vector{X: v.Y, Y: v.Z, Z: v.X}
	case FaceNegY:
		return r3.Vector{X: v.Y, Y: -v.Z, Z: -v.X}
	case FacePosZ:
		return v
	case FaceNegZ:
		return r3.Vector{X: -v.X, Y: v.Y, Z: -v.Z}
	}
	return r3.Vector{}
}

func (f Face) String() string {
	switch f {
	case FacePosX:
		return "+x"
	case FaceNegX:
		return "-x"
	case FacePosY:
		return "+y"
	case FaceNegY:
		return "-y"
	case FacePosZ:
		return "+z"
	case FaceNegZ:
		return "-z"
	}
	return "invalid"
}

// Coordinate is a location on the unfolded cube, Pos in [-1, 1]².
type Coordinate struct {
	Pos  r2.Point
	Face Face
}

// Derivatives are the first partial derivatives of the face-to-sphere mapping, in sphere space.
type Derivatives struct {
	Fx, Fy r3.Vector
}

// Curvature holds the second partial derivatives of the face-to-sphere mapping, in sphere space.
type Curvature struct {
	Fxx, Fxy, Fyy r3.Vector
}

// Cubize maps a unit vector to its cube face and area-corrected face coordinate.
// Ties between axes resolve to x, then y, then z. v must be a unit vector.
func Cubize(v r3.Vector) Coordinate {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)

	var face Face
	var c r2.Point
	switch {
	case ax >= ay && ax >= az:
		if v.X >= 0 {
			face, c = FacePosX, r2.Point{X: v.Y, Y: v.Z}
		} else {
			face, c = FaceNegX, r2.Point{X: -v.Y, Y: v.Z}
		}
	case ay >= az:
		if v.Y >= 0 {
			face, c = FacePosY, r2.Point{X: v.Z, Y: v.X}
		} else {
			face, c = FaceNegY, r2.Point{X: -v.Z, Y: v.X}
		}
	default:
		if v.Z >= 0 {
			face, c = FacePosZ, r2.Point{X: v.X, Y: v.Y}
		} else {
			face, c = FaceNegZ, r2.Point{X: -v.X, Y: v.Y}
		}
	}

	sx, sy := c.X*c.X, c.Y*c.Y
	t0 := 2*sy - 2*sx - 3
	u0 := math.Sqrt(math.Max(t0*t0-24*sx, 0))
	v0 := 2*sx - 2*sy
	t1 := 2*sx - 2*sy - 3
	u1 := math.Sqrt(math.Max(t1*t1-24*sy, 0))
	v1 := 2*sy - 2*sx

	return Coordinate{
		Pos: r2.Point{
			X: math.Sqrt(math.Max((3-(u1+v1))/2, 0)) * sign(c.X),
			Y: math.Sqrt(math.Max((3-(u0+v0))/2, 0)) * sign(c.Y),
		},
		Face: face,
	}
}

// Spherize is the inverse of Cubize: it maps a face coordinate to a unit vector.
func Spherize(pos r2.Point, face Face) r3.Vector {
	sx, sy := pos.X*pos.X, pos.Y*pos.Y
	return face.Apply(r3.Vector{
		X: pos.X * math.Sqrt(math.Max(0.5-sy/6, 0)),
		Y: pos.Y * math.Sqrt(math.Max(0.5-sx/6, 0)),
		Z: math.Sqrt(math.Max(1-sx/2-sy/2+sx*sy/3, 0)),
	})
}

// Inverse maps a cube coordinate back to the sphere.
func (c Coordinate) Inverse() r3.Vector {
	return Spherize(c.Pos, c.Face)
}

// FirstDerivatives returns the partial derivatives of Spherize with respect to the face coordinates at pos.
func FirstDerivatives(pos r2.Point, face Face) Derivatives {
	x, y := pos.X, pos.Y
	sx, sy := x*x, y*y
	tx := math.Sqrt(0.5 - sx/6)
	ty := math.Sqrt(0.5 - sy/6)
	tt := math.Sqrt(1 - sx/2 - sy/2 + sx*sy/3)

	dx := r3.Vector{
		X: ty,
		Y: -x * y / (6 * tx),
		Z: (-x + 2*x*sy/3) / (2 * tt),
	}
	dy := r3.Vector{
		X: -x * y / (6 * ty),
		Y: tx,
		Z: (-y + 2*sx*y/3) / (2 * tt),
	}
	return Derivatives{Fx: face.Apply(dx), Fy: face.Apply(dy)}
}

// SecondDerivatives returns the second partial derivatives of Spherize at pos.
func SecondDerivatives(pos r2.Point, face Face) Curvature {
	x, y := pos.X, pos.Y
	sx, sy := x*x, y*y
	tx := math.Sqrt(0.5 - sx/6)
	ty := math.Sqrt(0.5 - sy/6)
	g := 1 - sx/2 - sy/2 + sx*sy/3
	tt := math.Sqrt(g)
	tt3 := g * tt

	// partials of g
	gx := -x + 2*x*sy/3
	gy := -y + 2*sx*y/3

	fxx := r3.Vector{
		X: 0,
		Y: -y/(6*tx) - y*sx/(36*tx*tx*tx),
		Z: (-1+2*sy/3)/(2*tt) - gx*gx/(4*tt3),
	}
	fxy := r3.Vector{
		X: -y / (6 * ty),
		Y: -x / (6 * tx),
		Z: 2*x*y/(3*tt) - gx*gy/(4*tt3),
	}
	fyy := r3.Vector{
		X: -x/(6*ty) - x*sy/(36*ty*ty*ty),
		Y: 0,
		Z: (-1+2*sx/3)/(2*tt) - gy*gy/(4*tt3),
	}
	return Curvature{Fxx: face.Apply(fxx), Fxy: face.Apply(fxy), Fyy: face.Apply(fyy)}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
