// Package config holds the tunable Parameters record shared by every planet pass, plus loading and validation.
package config

import (
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Parameters is the singleton record of engine tuning values.
// Distances are in millimeters, angles in degrees unless stated otherwise.
type Parameters struct {
	// MaxLods is the number of detail levels above level 0.
	MaxLods int `mapstructure:"max_lods" json:"max_lods"`
	// GridSize is the number of quads per side of the planet grid mesh.
	GridSize int `mapstructure:"grid_size" json:"grid_size"`
	// SnapSize is the number of snap cells per tile side.
	SnapSize int `mapstructure:"snap_size" json:"snap_size"`
	// ZoomFactor biases the distance to level-of-detail mapping.
	ZoomFactor int `mapstructure:"zoom_factor" json:"zoom_factor"`
	// SmoothingFactor damps mouse input.
	SmoothingFactor float64 `mapstructure:"smoothing_factor" json:"smoothing_factor"`
	// AnglePerPixel is the look rotation per pixel of mouse movement, in degrees.
	AnglePerPixel float64 `mapstructure:"angle_per_pixel" json:"angle_per_pixel"`
	// TerrainTextureSize is the edge length of one atlas layer, in texels.
	TerrainTextureSize int `mapstructure:"terrain_texture_size" json:"terrain_texture_size"`
	// TerrainTextureCount is the number of atlas layers.
	TerrainTextureCount int `mapstructure:"terrain_texture_count" json:"terrain_texture_count"`
	// PlayerHeight is the minimum clearance between the viewer and the ground.
	PlayerHeight int64 `mapstructure:"player_height" json:"player_height"`
	// MaxRenderLods caps the number of higher-level instances drawn per frame.
	MaxRenderLods int `mapstructure:"max_render_lods" json:"max_render_lods"`
	// MSAASamples is the multisample count for the rasterization stage.
	MSAASamples int `mapstructure:"msaa_samples" json:"msaa_samples"`
	// NumPbos is the capacity of each planet's height feedback queue.
	NumPbos int `mapstructure:"num_pbos" json:"num_pbos"`
	// ElevationOctaves is the octave count of the elevation field.
	ElevationOctaves int `mapstructure:"elevation_octaves" json:"elevation_octaves"`
	// ElevationSeed seeds the elevation field.
	ElevationSeed int64 `mapstructure:"elevation_seed" json:"elevation_seed"`
	// RotationRate is the planet spin rate in radians per second.
	RotationRate float64 `mapstructure:"rotation_rate" json:"rotation_rate"`
	// RenderWireframe asks the rasterization stage for wireframe output.
	RenderWireframe bool `mapstructure:"render_wireframe" json:"render_wireframe"`
}

// Default returns the Parameters used when no configuration file is given.
//
// Returns:
//   - Parameters: the default parameter set
func Default() Parameters {
	const maxLods = 30
	return Parameters{
		MaxLods:             maxLods,
		GridSize:            128,
		SnapSize:            4,
		ZoomFactor:          -1,
		SmoothingFactor:     15,
		AnglePerPixel:       0.5,
		TerrainTextureSize:  1024,
		TerrainTextureCount: maxLods + 6,
		PlayerHeight:        1000,
		MaxRenderLods:       10,
		MSAASamples:         1,
		NumPbos:             4,
		ElevationOctaves:    20,
	}
}

// MinTextureCount returns the smallest atlas layer count that can hold every level: six faces plus one layer per level.
func (p Parameters) MinTextureCount() int {
	return p.MaxLods + 6
}

// CellSize returns the width of one snap cell in tile-local units.
func (p Parameters) CellSize() float64 {
	return 1 / float64(p.SnapSize)
}

// Validate reports every invalid field at once.
//
// Returns:
//   - error: nil when the parameters are usable, otherwise all violations combined
func (p Parameters) Validate() error {
	var err error
	if p.MaxLods < 1 {
		err = multierr.Append(err, errors.Errorf("max_lods must be at least 1, got %d", p.MaxLods))
	}
	if p.GridSize < 1 {
		err = multierr.Append(err, errors.Errorf("grid_size must be at least 1, got %d", p.GridSize))
	}
	if p.SnapSize < 2 || p.SnapSize%2 != 0 {
		err = multierr.Append(err, errors.Errorf("snap_size must be an even number of at least 2, got %d", p.SnapSize))
	}
	if p.TerrainTextureSize < 32 || p.TerrainTextureSize%32 != 0 {
		err = multierr.Append(err, errors.Errorf("terrain_texture_size must be a positive multiple of 32, got %d", p.TerrainTextureSize))
	}
	if p.SnapSize > 0 && p.TerrainTextureSize%p.SnapSize != 0 {
		err = multierr.Append(err, errors.Errorf(
			"terrain_texture_size (%d) must be a multiple of snap_size (%d)", p.TerrainTextureSize, p.SnapSize))
	}
	if p.TerrainTextureCount < p.MinTextureCount() {
		err = multierr.Append(err, errors.Errorf(
			"terrain_texture_count must be at least max_lods+6 (%d), got %d", p.MinTextureCount(), p.TerrainTextureCount))
	}
	if p.NumPbos < 1 {
		err = multierr.Append(err, errors.Errorf("num_pbos must be at least 1, got %d", p.NumPbos))
	}
	if p.MaxRenderLods < 1 {
		err = multierr.Append(err, errors.Errorf("max_render_lods must be at least 1, got %d", p.MaxRenderLods))
	}
	if p.MSAASamples != 1 && p.MSAASamples != 4 {
		err = multierr.Append(err, errors.Errorf("msaa_samples must be 1 or 4, got %d", p.MSAASamples))
	}
	if p.ElevationOctaves < 1 {
		err = multierr.Append(err, errors.Errorf("elevation_octaves must be at least 1, got %d", p.ElevationOctaves))
	}
	if p.PlayerHeight < 0 {
		err = multierr.Append(err, errors.Errorf("player_height must not be negative, got %d", p.PlayerHeight))
	}
	return err
}

// Decode overlays raw onto the defaults. Keys use the snake_case names of the mapstructure tags.
// When max_lods is overridden without terrain_texture_count, the layer count follows max_lods.
//
// Parameters:
//   - raw: a generic key/value document, typically unmarshaled JSON
//
// Returns:
//   - Parameters: the decoded and validated parameters
//   - error: a decode error or the combined validation errors
func Decode(raw map[string]any) (Parameters, error) {
	p := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Parameters{}, errors.Wrap(err, "building parameter decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return Parameters{}, errors.Wrap(err, "decoding parameters")
	}

	_, hasLods := raw["max_lods"]
	_, hasCount := raw["terrain_texture_count"]
	if hasLods && !hasCount {
		p.TerrainTextureCount = p.MinTextureCount()
	}

	if err := p.Validate(); err != nil {
		return Parameters{}, errors.Wrap(err, "invalid parameters")
	}
	return p, nil
}

// Load reads a JSON parameter file. An empty path yields the defaults.
//
// Parameters:
//   - path: the JSON file path, or "" for defaults
//
// Returns:
//   - Parameters: the loaded parameters
//   - error: an error if the file cannot be read, parsed, or validated
func Load(path string) (Parameters, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, errors.Wrapf(err, "reading parameters from %q", path)
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Parameters{}, errors.Wrapf(err, "parsing parameters from %q", path)
	}
	return Decode(raw)
}
