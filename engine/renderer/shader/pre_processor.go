// pre_processor.go expands @oxy: annotations into plain WGSL and collects the binding declarations
// a backend wires resources by.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed cube_sphere.wgsl
var cubeSphereSource string

//go:embed noise.wgsl
var noiseSource string

//go:embed init_params.wgsl
var initParamsSource string

//go:embed detail_params.wgsl
var detailParamsSource string

// registryEntry pairs an injectable WGSL source with the type name a group annotation emits.
// Either side may be empty: function libraries have no type, primitive aliases have no source.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	registry             map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations is reset at the start of each Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces include annotations with their registered source and group annotations
	// with generated @group/@binding declarations. Provider annotations produce no output.
	// Each source is included at most once per call.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if an annotation is malformed
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations of the last Process call, in source
	// order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the terrain sources registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		registry: map[AnnotationArg]registryEntry{
			AnnotationArgCubeSphere:   {Source: cubeSphereSource},
			AnnotationArgNoise:        {Source: noiseSource},
			AnnotationArgInitParams:   {Source: initParamsSource, Type: "InitParams"},
			AnnotationArgDetailParams: {Source: detailParamsSource, Type: "DetailParams"},
			AnnotationArgBaseOffset:   {Type: "vec2<f32>"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)
	bound := make(map[[2]int]int)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, p.registry[a.Args[0]].Source)
		case AnnotationTypeBindingGroup, AnnotationTypeProvider:
			key := [2]int{*a.Group, *a.Binding}
			if prev, ok := bound[key]; ok {
				return "", fmt.Errorf("line %d: group %d binding %d already declared on line %d", a.Line, *a.Group, *a.Binding, prev)
			}
			bound[key] = a.Line
			if a.Type == AnnotationTypeBindingGroup {
				wgslType := p.registry[a.Resource()].Type
				if strings.HasPrefix(string(a.Args[2]), "array<") {
					wgslType = fmt.Sprintf("array<%s>", wgslType)
				}
				out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
					*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], wgslType))
			}
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
