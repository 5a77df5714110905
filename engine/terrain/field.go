// Package terrain provides the procedural elevation field and the addressing scheme of terrain tiles.
package terrain

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/ojrac/opensimplex-go"
)

// Field is a deterministic elevation function over unit directions with values in [0, 1).
type Field interface {
	Elevation(dir r3.Vector) float64
}

// NoiseField is a ridged multi-octave simplex field.
// It is safe for concurrent use.
type NoiseField struct {
	noise   opensimplex.Noise
	seed    int64
	octaves int
}

var _ Field = &NoiseField{}

// NewNoiseField creates a ridged noise field.
//
// Parameters:
//   - seed: the noise seed
//   - octaves: the number of octaves to accumulate, at least 1
//
// Returns:
//   - *NoiseField: the field
func NewNoiseField(seed int64, octaves int) *NoiseField {
	return &NoiseField{
		noise:   opensimplex.New(seed),
		seed:    seed,
		octaves: max(octaves, 1),
	}
}

// Seed returns the noise seed.
func (f *NoiseField) Seed() int64 {
	return f.seed
}

// Octaves returns the number of accumulated octaves.
func (f *NoiseField) Octaves() int {
	return f.octaves
}

// Elevation evaluates the field at a unit direction.
func (f *NoiseField) Elevation(dir r3.Vector) float64 {
	h := f.ridged(dir.Mul(2)) - 1
	return math.Min(math.Max(h, 0), math.Nextafter(1, 0))
}

func (f *NoiseField) ridge(v r3.Vector) float64 {
	return 2 * (0.5 - math.Abs(0.5-f.noise.Eval3(v.X, v.Y, v.Z)))
}

func (f *NoiseField) ridged(v r3.Vector) float64 {
	acc := 1.0
	coeff := 1.0
	for i := 0; i < f.octaves; i++ {
		t := f.ridge(v.Mul(coeff)) / coeff
		t = math.Copysign(math.Pow(math.Abs(t), 0.9), t)
		acc += t * acc
		coeff *= 2
	}
	return math.Copysign(math.Pow(math.Abs(acc), 1.3), acc)
}

// FlatField is a constant elevation, useful for headless runs that only exercise scheduling.
type FlatField float64

// Elevation returns the constant.
func (f FlatField) Elevation(r3.Vector) float64 {
	return float64(f)
}
