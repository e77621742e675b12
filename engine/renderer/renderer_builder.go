package renderer

import (
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/surface"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode surface.PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceOptions = append(r.surfaceOptions, surface.WithPresentMode(mode))
	}
}

// WithDepthFormat sets the depth attachment format. Defaults to Depth24PlusStencil8.
//
// Parameters:
//   - format: the depth attachment format
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth format option to a renderer
func WithDepthFormat(format wgpu.TextureFormat) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceOptions = append(r.surfaceOptions, surface.WithDepthFormat(format))
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, device.WithForceFallbackAdapter(force))
	}
}

// WithPowerPreference sets the adapter power preference.
//
// Parameters:
//   - pref: the power preference passed to the adapter request
//
// Returns:
//   - RendererBuilderOption: a function that applies the power preference option to a renderer
func WithPowerPreference(pref wgpu.PowerPreference) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, device.WithPowerPreference(pref))
	}
}

// WithClearColor sets the color the color attachment is cleared to each frame. Defaults to DefaultClearColor.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithVertices replaces the uploaded vertices. Defaults to geometry.TriangleVertices.
//
// Parameters:
//   - vertices: the vertex records to upload
//
// Returns:
//   - RendererBuilderOption: a function that applies the vertices option to a renderer
func WithVertices(vertices []geometry.Vertex) RendererBuilderOption {
	return func(r *renderer) {
		r.vertices = vertices
	}
}

// WithShaderKey sets the key, and debug label, of the compiled program. Defaults to "triangle".
//
// Parameters:
//   - key: the program key
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader key option to a renderer
func WithShaderKey(key string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderKey = key
	}
}

// WithShaderOptions passes options through to shader compilation.
//
// Parameters:
//   - options: the shader.ProgramBuilderOption functions to apply
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader options to a renderer
func WithShaderOptions(options ...shader.ProgramBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderOptions = append(r.shaderOptions, options...)
	}
}
