package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/surface"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrShaderNotCompiled is returned when the program has error diagnostics or no module.
	ErrShaderNotCompiled = errors.New("shader program is not compiled")

	// ErrFormatMismatch is returned when a color target or the depth state disagrees with the surface.
	ErrFormatMismatch = errors.New("pipeline attachment format does not match the surface")

	// ErrMissingTarget is returned when no color target format is known.
	ErrMissingTarget = errors.New("pipeline has no color target")

	// ErrCompile wraps the device's pipeline creation error.
	ErrCompile = errors.New("render pipeline creation failed")

	// ErrLayoutMismatch is returned when the vertex layout disagrees with the vertex record or the shader inputs.
	ErrLayoutMismatch = geometry.ErrLayoutMismatch
)

// pipeline is the implementation of the Pipeline interface.
// It holds the compiled render pipeline and the state it was built from.
type pipeline struct {
	label   string
	program shader.Program
	target  surface.Target

	vertexLayout           backend.VertexBufferLayout
	componentsPerAttribute int
	targets                []wgpu.TextureFormat
	depthStencil           *backend.DepthStencilState

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      wgpu.CompareFunction
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace

	renderPipeline backend.RenderPipeline
}

// Pipeline is an immutable render pipeline: a compiled program bound to a vertex layout,
// a color target format and a depth-stencil state. The layout has no bind groups.
type Pipeline interface {
	// Label returns the debug label of the pipeline.
	Label() string

	// Program returns the shader program the pipeline was built from.
	Program() shader.Program

	// VertexLayout returns the vertex buffer layout bound to slot 0.
	VertexLayout() backend.VertexBufferLayout

	// Targets returns the color target formats.
	Targets() []wgpu.TextureFormat

	// DepthStencil returns the depth-stencil state.
	DepthStencil() backend.DepthStencilState

	// Topology returns the primitive topology.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the winding order treated as front facing.
	FrontFace() wgpu.FrontFace

	// CullMode returns which faces are culled.
	CullMode() wgpu.CullMode

	// RenderPipeline returns the compiled device pipeline for binding in a render pass.
	RenderPipeline() backend.RenderPipeline

	// Release releases the compiled device pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// Build validates that the program, vertex layout, color targets and depth state agree with each other
// and with the surface, then compiles the render pipeline on the device. Nothing is created on the
// device when validation fails.
//
// Parameters:
//   - dev: the device to compile on
//   - program: the compiled shader program
//   - options: PipelineBuilderOption functions that configure the pipeline
//
// Returns:
//   - Pipeline: the compiled pipeline
//   - error: ErrShaderNotCompiled, ErrLayoutMismatch, ErrFormatMismatch, ErrMissingTarget, or an error wrapping ErrCompile
func Build(dev backend.Device, program shader.Program, options ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		program:                program,
		vertexLayout:           geometry.Layout(),
		componentsPerAttribute: geometry.ComponentsPerAttribute,
		depthTestEnabled:       true,
		depthWriteEnabled:      true,
		depthCompare:           wgpu.CompareFunctionLess,
		cullMode:               wgpu.CullModeNone,
		topology:               wgpu.PrimitiveTopologyTriangleList,
		frontFace:              wgpu.FrontFaceCCW,
	}
	for _, opt := range options {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	created, err := dev.CreateRenderPipeline(backend.RenderPipelineDescriptor{
		Label:              p.label,
		Module:             program.Module(),
		VertexEntryPoint:   program.VertexEntryPoint(),
		FragmentEntryPoint: program.FragmentEntryPoint(),
		Buffers:            []backend.VertexBufferLayout{p.vertexLayout},
		Targets:            p.targets,
		DepthStencil:       p.depthStencil,
		Topology:           p.topology,
		FrontFace:          p.frontFace,
		CullMode:           p.cullMode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, p.label, err)
	}
	p.renderPipeline = created

	common.Logger().Debug("render pipeline created",
		"label", p.label,
		"targets", len(p.targets),
		"depth_format", p.depthStencil.Format,
	)
	return p, nil
}

// validate resolves defaults from the program and surface and checks every pairing.
func (p *pipeline) validate() error {
	if p.program == nil || !p.program.Compiled() {
		if p.program != nil {
			if err := p.program.Diagnostics().Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrShaderNotCompiled, err)
			}
		}
		return ErrShaderNotCompiled
	}
	if p.label == "" {
		p.label = p.program.Key() + " Render Pipeline"
	}

	if err := geometry.AssertLayout(p.vertexLayout, p.componentsPerAttribute); err != nil {
		return err
	}
	for _, in := range p.program.VertexInputs() {
		attr, ok := findAttribute(p.vertexLayout, in.Location)
		if !ok {
			return fmt.Errorf("%w: shader input %q at location %d has no vertex attribute", ErrLayoutMismatch, in.Name, in.Location)
		}
		if attr.Format != in.Format {
			return fmt.Errorf("%w: shader input %q at location %d expects %v, layout provides %v", ErrLayoutMismatch, in.Name, in.Location, in.Format, attr.Format)
		}
	}

	if len(p.targets) == 0 && p.target != nil {
		p.targets = []wgpu.TextureFormat{p.target.Format()}
	}
	if len(p.targets) == 0 {
		return ErrMissingTarget
	}
	if p.target != nil {
		for i, f := range p.targets {
			if f != p.target.Format() {
				return fmt.Errorf("%w: color target %d is %v, surface is %v", ErrFormatMismatch, i, f, p.target.Format())
			}
		}
	}

	if p.depthStencil == nil {
		depthFormat := wgpu.TextureFormatDepth24PlusStencil8
		if p.target != nil {
			depthFormat = p.target.DepthFormat()
		}
		compare := p.depthCompare
		if !p.depthTestEnabled {
			compare = wgpu.CompareFunctionAlways
		}
		p.depthStencil = &backend.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      compare,
		}
	}
	if p.target != nil && p.depthStencil.Format != p.target.DepthFormat() {
		return fmt.Errorf("%w: depth state is %v, depth attachment is %v", ErrFormatMismatch, p.depthStencil.Format, p.target.DepthFormat())
	}
	return nil
}

func findAttribute(layout backend.VertexBufferLayout, location uint32) (backend.VertexAttribute, bool) {
	for _, a := range layout.Attributes {
		if a.ShaderLocation == location {
			return a, true
		}
	}
	return backend.VertexAttribute{}, false
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Program() shader.Program {
	return p.program
}

func (p *pipeline) VertexLayout() backend.VertexBufferLayout {
	return p.vertexLayout
}

func (p *pipeline) Targets() []wgpu.TextureFormat {
	return p.targets
}

func (p *pipeline) DepthStencil() backend.DepthStencilState {
	return *p.depthStencil
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) RenderPipeline() backend.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
