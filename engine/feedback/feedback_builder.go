package feedback

import "go.uber.org/zap"

// PipelineBuilderOption is a functional option for configuring a pipeline.
type PipelineBuilderOption func(p *pipeline)

// WithLogger sets the logger.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithLogger(logger *zap.SugaredLogger) PipelineBuilderOption {
	return func(p *pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLabel sets the label prefix of the readback buffers.
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}
