package atlas

import "go.uber.org/zap"

// AtlasBuilderOption is a functional option for configuring an atlas.
type AtlasBuilderOption func(a *atlas)

// WithLogger sets the logger.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - AtlasBuilderOption: option function to apply
func WithLogger(logger *zap.SugaredLogger) AtlasBuilderOption {
	return func(a *atlas) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLabel sets the label of the device resources.
//
// Parameters:
//   - label: the resource label
//
// Returns:
//   - AtlasBuilderOption: option function to apply
func WithLabel(label string) AtlasBuilderOption {
	return func(a *atlas) {
		a.label = label
	}
}
