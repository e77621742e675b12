package device

import "github.com/cogentcore/webgpu/wgpu"

// ContextBuilderOption is a functional option used to configure a device Context during acquisition.
type ContextBuilderOption func(*deviceContext)

// WithLabel sets the debug label the device is requested with.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - ContextBuilderOption: a function that sets the device label
func WithLabel(label string) ContextBuilderOption {
	return func(c *deviceContext) {
		c.label = label
	}
}

// WithForceFallbackAdapter requests the software fallback adapter instead of a hardware one.
//
// Parameters:
//   - force: whether to require the fallback adapter
//
// Returns:
//   - ContextBuilderOption: a function that sets the fallback adapter flag
func WithForceFallbackAdapter(force bool) ContextBuilderOption {
	return func(c *deviceContext) {
		c.forceFallbackAdapter = force
	}
}

// WithPowerPreference sets the adapter power preference. Defaults to high performance.
//
// Parameters:
//   - pref: the power preference passed to the adapter request
//
// Returns:
//   - ContextBuilderOption: a function that sets the power preference
func WithPowerPreference(pref wgpu.PowerPreference) ContextBuilderOption {
	return func(c *deviceContext) {
		c.powerPreference = pref
	}
}
