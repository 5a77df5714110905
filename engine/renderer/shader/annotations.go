// annotations.go defines the @oxy: annotations understood by the pre-processor. Annotations are
// single-line WGSL comments that inject shared sources, generate binding declarations, and name the
// resources a backend has to bind, so the Go side never hard-codes binding indices.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered WGSL source at the annotation site. It is consumed
	// entirely during pre-processing.
	//
	// Syntax: //@oxy:include <source>
	//
	// Example: //@oxy:include noise
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding buffer declaration and records it.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 uniform params init_params
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider names the resource behind a hand-written texture binding without
	// generating any WGSL.
	//
	// Syntax: //@oxy:provider <group> <binding> <resource>
	//
	// Example: //@oxy:provider 0 1 atlas
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is one parsed @oxy: annotation.
type Annotation struct {
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = source key
	//   - group:    [0] = address space, [1] = var name, [2] = type key, optionally wrapped in array<>
	//   - provider: [0] = resource key
	Args []AnnotationArg

	// Line is the 1-based source line, for error reporting.
	Line int

	// Group and Binding are nil for include annotations.
	Group   *int
	Binding *int
}

// Resource returns the key a backend looks the binding up by: the type key of a group annotation
// with any array<> stripped, or the resource key of a provider annotation.
func (a Annotation) Resource() AnnotationArg {
	switch a.Type {
	case AnnotationTypeBindingGroup:
		inner, _ := strings.CutPrefix(string(a.Args[2]), "array<")
		return AnnotationArg(strings.TrimSuffix(inner, ">"))
	case AnnotationTypeProvider:
		return a.Args[0]
	default:
		return ""
	}
}

// AnnotationArg is a typed annotation argument.
type AnnotationArg string

// Shared sources and structs.
const (
	// AnnotationArgCubeSphere identifies the cube-to-sphere mapping functions.
	AnnotationArgCubeSphere AnnotationArg = "cube_sphere"

	// AnnotationArgNoise identifies the simplex noise and elevation functions.
	AnnotationArgNoise AnnotationArg = "noise"

	// AnnotationArgInitParams identifies the InitParams uniform block.
	AnnotationArgInitParams AnnotationArg = "init_params"

	// AnnotationArgDetailParams identifies the DetailParams uniform block.
	AnnotationArgDetailParams AnnotationArg = "detail_params"

	// AnnotationArgBaseOffset identifies one layer's base offsets, a vec2<f32>.
	AnnotationArgBaseOffset AnnotationArg = "base_offset"
)

// Address spaces.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Texture resources.
const (
	// AnnotationArgAtlas is the whole atlas as a write-only layered storage texture.
	AnnotationArgAtlas AnnotationArg = "atlas"

	// AnnotationArgTargetLayer is the single atlas layer a detail pass writes.
	AnnotationArgTargetLayer AnnotationArg = "target_layer"

	// AnnotationArgParentLayer is the single atlas layer a detail pass reads its base from.
	AnnotationArgParentLayer AnnotationArg = "parent_layer"
)

var validSources = []AnnotationArg{
	AnnotationArgCubeSphere,
	AnnotationArgNoise,
	AnnotationArgInitParams,
	AnnotationArgDetailParams,
}

var validTypes = []AnnotationArg{
	AnnotationArgInitParams,
	AnnotationArgDetailParams,
	AnnotationArgBaseOffset,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviders = []AnnotationArg{
	AnnotationArgAtlas,
	AnnotationArgTargetLayer,
	AnnotationArgParentLayer,
}

// parseAnnotation parses one WGSL line. It returns nil with no error for lines without the
// annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validSources, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown source %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, name, type)", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			typeArg = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validTypes, AnnotationArg(typeArg)) {
			return nil, fmt.Errorf("line %d: unknown type %q in @oxy group annotation", lineNum, typeArg)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case string(AnnotationTypeProvider):
		if len(args) != 4 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires three arguments (group, binding, resource)", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviders, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown resource %q in @oxy provider annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    []AnnotationArg{AnnotationArg(args[3])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseGroupBinding(g, b string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(g)
	if err != nil || group < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q", lineNum, g)
	}
	binding, err := strconv.Atoi(b)
	if err != nil || binding < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q", lineNum, b)
	}
	return group, binding, nil
}
