// Package shader loads the WGSL compute passes that generate terrain. Sources are written with @oxy:
// annotations; loading expands them and derives everything a backend needs to build a pipeline:
// bind group layouts, workgroup sizes and the binding each named resource goes to.
package shader

import (
	_ "embed"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

//go:embed terrain_init.wgsl
var terrainInitSource string

//go:embed terrain_detail.wgsl
var terrainDetailSource string

// Entry points of the compute passes.
const (
	EntryInit   = "main"
	EntryDetail = "main"
	EntryBase   = "base"
)

type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	workgroupSizes             map[string][3]uint32
	declarations               []Annotation
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a pre-processed compute shader together with the layout metadata parsed from it.
type Shader interface {
	// Key retrieves the shader's unique identifier, also used as the module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the expanded WGSL source.
	//
	// Returns:
	//   - string: the WGSL source with every annotation expanded
	Source() string

	// BindGroupLayoutDescriptor retrieves the layout parsed for one bind group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty one if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves every parsed layout keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if nothing is declared there
	BindGroupVarName(group, binding int) string

	// Binding locates the binding a named resource was declared at by a group or provider
	// annotation.
	//
	// Parameters:
	//   - resource: the annotation's resource key, e.g. AnnotationArgAtlas
	//
	// Returns:
	//   - int: the bind group index
	//   - uint32: the binding index
	//   - bool: false if the shader declares no such resource
	Binding(resource AnnotationArg) (int, uint32, bool)

	// WorkgroupSize returns the workgroup size of a compute entry point.
	//
	// Parameters:
	//   - entry: the entry point name
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	//   - bool: false if the shader has no such compute entry point
	WorkgroupSize(entry string) ([3]uint32, bool)

	// Module returns the descriptor the device compiles the shader from.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the expanded WGSL
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group and provider annotations of the source, in source order.
	//
	// Returns:
	//   - []Annotation: the binding declarations
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes annotated WGSL source and parses its compute entry points and bind group
// layouts.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: the annotated WGSL source
//
// Returns:
//   - Shader: the loaded shader
//   - error: an error if an annotation is malformed or the source has no compute entry point
func NewShader(key, source string) (Shader, error) {
	pp := NewPreProcessor()
	expanded, err := pp.Process(source)
	if err != nil {
		return nil, errors.Wrapf(err, "pre-processing %s", key)
	}
	s := &shader{
		key:            key,
		source:         expanded,
		workgroupSizes: parseComputeEntryPoints(expanded),
		declarations:   append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: expanded,
			},
		},
	}
	if len(s.workgroupSizes) == 0 {
		return nil, errors.Errorf("%s has no compute entry point", key)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(expanded, wgpu.ShaderStageCompute)
	return s, nil
}

// TerrainInit loads the pass that fills the six whole-face layers.
func TerrainInit() (Shader, error) {
	return NewShader("Terrain Init", terrainInitSource)
}

// TerrainDetail loads the pass that regenerates one layer. It has two entry points: EntryBase resets
// the layer's base offsets from its parent, EntryDetail writes the texels.
func TerrainDetail() (Shader, error) {
	return NewShader("Terrain Detail", terrainDetailSource)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) Binding(resource AnnotationArg) (int, uint32, bool) {
	for _, d := range s.declarations {
		if d.Resource() == resource {
			return *d.Group, uint32(*d.Binding), true
		}
	}
	return 0, 0, false
}

func (s *shader) WorkgroupSize(entry string) ([3]uint32, bool) {
	size, ok := s.workgroupSizes[entry]
	return size, ok
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
