package surface

import "github.com/cogentcore/webgpu/wgpu"

// TargetBuilderOption is a functional option used to configure a Target during construction.
type TargetBuilderOption func(*target)

// WithFormat requests a specific color format. By default BGRA8Unorm is preferred,
// falling back to the surface's first format.
//
// Parameters:
//   - format: the color format to request
//
// Returns:
//   - TargetBuilderOption: a function that sets the requested color format
func WithFormat(format wgpu.TextureFormat) TargetBuilderOption {
	return func(t *target) {
		t.format = format
	}
}

// WithDepthFormat sets the depth attachment format. Defaults to Depth24PlusStencil8.
//
// Parameters:
//   - format: the depth format
//
// Returns:
//   - TargetBuilderOption: a function that sets the depth format
func WithDepthFormat(format wgpu.TextureFormat) TargetBuilderOption {
	return func(t *target) {
		t.depthFormat = format
	}
}

// WithPresentMode sets the present mode. Defaults to PresentModeVSync.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - TargetBuilderOption: a function that sets the present mode
func WithPresentMode(mode PresentMode) TargetBuilderOption {
	return func(t *target) {
		t.presentMode = mode
	}
}

// WithLabel sets the prefix used for the debug labels of the target's resources.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - TargetBuilderOption: a function that sets the label prefix
func WithLabel(label string) TargetBuilderOption {
	return func(t *target) {
		t.label = label
	}
}
