package pipeline

import (
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/surface"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithLabel sets the debug label of the pipeline. Defaults to the program key.
//
// Parameters:
//   - label: the pipeline label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}

// WithSurface binds the pipeline to a surface target. The color target and depth formats default
// to the target's formats and any explicit formats must match them.
//
// Parameters:
//   - t: the surface target the pipeline renders into
//
// Returns:
//   - PipelineBuilderOption: a function that sets the surface target
func WithSurface(t surface.Target) PipelineBuilderOption {
	return func(p *pipeline) {
		p.target = t
	}
}

// WithVertexLayout sets the vertex buffer layout and the float32 width of each of its attributes.
//
// Parameters:
//   - layout: the layout for buffer slot 0
//   - componentsPerAttribute: the number of float32 components each attribute carries
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layout
func WithVertexLayout(layout backend.VertexBufferLayout, componentsPerAttribute int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayout = layout
		p.componentsPerAttribute = componentsPerAttribute
	}
}

// WithFragmentTargets sets the color target formats explicitly.
//
// Parameters:
//   - formats: the color target formats
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color targets
func WithFragmentTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.targets = formats
	}
}

// WithDepthStencil sets the whole depth-stencil state, overriding the depth test options.
//
// Parameters:
//   - state: the depth-stencil state
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth-stencil state
func WithDepthStencil(state backend.DepthStencilState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthStencil = &state
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
// When disabled every fragment passes the depth test.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth comparison function. Defaults to less.
//
// Parameters:
//   - compare: the comparison applied between a fragment's depth and the stored depth
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth comparison
func WithDepthCompare(compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face winding order to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face winding order for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}
