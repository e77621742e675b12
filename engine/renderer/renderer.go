package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/surface"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrFrameInProgress is returned by BeginFrame when the previous frame has not been ended and presented.
	ErrFrameInProgress = errors.New("previous frame has not been presented")

	// ErrNoFrame is returned by DrawCall and EndFrame outside of a BeginFrame/EndFrame pair.
	ErrNoFrame = errors.New("no frame in progress")

	// ErrAcquire marks a BeginFrame failure caused by the surface having no image to render into.
	// Callers may skip the frame and try again on the next tick.
	ErrAcquire = errors.New("failed to acquire surface image")

	// ErrReleased is returned by frame operations after Release.
	ErrReleased = errors.New("renderer has been released")
)

// DefaultClearColor is the opaque mid grey the color attachment is cleared to every frame.
var DefaultClearColor = wgpu.Color{R: 0.3, G: 0.3, B: 0.3, A: 1.0}

// Drawable is the host drawable area the surface is sized to.
type Drawable interface {
	Width() int
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	// configuration collected from builder options
	deviceOptions  []device.ContextBuilderOption
	surfaceOptions []surface.TargetBuilderOption
	shaderOptions  []shader.ProgramBuilderOption
	shaderKey      string
	vertices       []geometry.Vertex
	clearColor     wgpu.Color

	ctx      device.Context
	program  shader.Program
	geometry geometry.Buffer
	target   surface.Target
	pipeline pipeline.Pipeline
	released bool

	// per-frame state between BeginFrame and Present
	frameEncoder backend.CommandEncoder
	framePass    backend.RenderPass
	frameEnded   bool
}

// Renderer owns every GPU resource needed to draw the triangle and encodes one frame at a time.
// A frame is BeginFrame, DrawCall, EndFrame and Present, in that order.
type Renderer interface {
	// Device returns the device context.
	Device() device.Context

	// Program returns the compiled shader program.
	Program() shader.Program

	// Geometry returns the finalized vertex buffer.
	Geometry() geometry.Buffer

	// Target returns the configured surface target.
	Target() surface.Target

	// Pipeline returns the render pipeline.
	Pipeline() pipeline.Pipeline

	// ClearColor returns the color the color attachment is cleared to.
	ClearColor() wgpu.Color

	// BeginFrame acquires the next surface image and begins a render pass that clears the color
	// attachment to ClearColor, the depth aspect to 1.0 and the stencil aspect to 0, storing all three.
	// When acquisition fails the error wraps ErrAcquire, nothing is encoded and the frame must be skipped.
	//
	// Returns:
	//   - error: ErrReleased, ErrFrameInProgress, an ErrAcquire-wrapped acquisition error, or an encoding error
	BeginFrame() error

	// DrawCall binds the pipeline and the vertex buffer to slot 0 and draws the buffer's vertices once.
	//
	// Returns:
	//   - error: ErrNoFrame if no frame is in progress, or an error if the geometry is not finalized
	DrawCall() error

	// EndFrame ends the render pass and submits the encoded commands to the device queue.
	//
	// Returns:
	//   - error: ErrNoFrame if no frame is in progress, or an encoding error
	EndFrame() error

	// Present hands the submitted image to the surface for display.
	Present()

	// Release releases every resource in reverse creation order. Safe to call more than once.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer runs the ordered setup: device, shader, geometry, surface, pipeline. Setup stops at the
// first failing stage and releases everything created by earlier stages.
//
// Parameters:
//   - opener: the host GPU entry point
//   - drawable: the host drawable area the surface is sized to
//   - source: the WGSL source of the triangle program
//   - options: RendererBuilderOption functions that configure the renderer
//
// Returns:
//   - Renderer: the ready renderer
//   - error: a *SetupError naming the failed stage, otherwise nil
func NewRenderer(opener backend.Opener, drawable Drawable, source string, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		shaderKey:  "triangle",
		vertices:   geometry.TriangleVertices,
		clearColor: DefaultClearColor,
	}
	for _, opt := range options {
		opt(r)
	}
	logger := common.Logger()

	ctx, err := device.Acquire(opener, r.deviceOptions...)
	if err != nil {
		return nil, &SetupError{Stage: StageDevice, Err: err}
	}
	r.ctx = ctx
	dev := ctx.Device()

	program, diags := shader.Compile(dev, r.shaderKey, source, r.shaderOptions...)
	if !diags.OK() || !program.Compiled() {
		program.Release()
		r.Release()
		err := diags.Err()
		if err == nil {
			err = shader.ErrCompilation
		}
		return nil, &SetupError{Stage: StageShader, Err: err, Diagnostics: diags}
	}
	r.program = program

	buf, err := geometry.Upload(dev, r.vertices, geometry.WithLabel(r.shaderKey+" Vertex Buffer"))
	if err != nil {
		r.Release()
		return nil, &SetupError{Stage: StageGeometry, Err: err}
	}
	r.geometry = buf

	width, height := 0, 0
	if drawable != nil {
		width, height = drawable.Width(), drawable.Height()
	}
	target, err := surface.Configure(dev, ctx.Surface(), width, height, r.surfaceOptions...)
	if err != nil {
		r.Release()
		return nil, &SetupError{Stage: StageSurface, Err: err}
	}
	r.target = target

	p, err := pipeline.Build(dev, program,
		pipeline.WithSurface(target),
		pipeline.WithVertexLayout(buf.Layout(), geometry.ComponentsPerAttribute),
	)
	if err != nil {
		r.Release()
		return nil, &SetupError{Stage: StagePipeline, Err: err}
	}
	r.pipeline = p

	logger.Info("renderer ready",
		"width", target.Width(),
		"height", target.Height(),
		"vertices", buf.VertexCount(),
	)
	return r, nil
}

func (r *renderer) Device() device.Context {
	return r.ctx
}

func (r *renderer) Program() shader.Program {
	return r.program
}

func (r *renderer) Geometry() geometry.Buffer {
	return r.geometry
}

func (r *renderer) Target() surface.Target {
	return r.target
}

func (r *renderer) Pipeline() pipeline.Pipeline {
	return r.pipeline
}

func (r *renderer) ClearColor() wgpu.Color {
	return r.clearColor
}

func (r *renderer) BeginFrame() error {
	if r.released {
		return ErrReleased
	}
	if r.frameEncoder != nil || r.frameEnded {
		return ErrFrameInProgress
	}

	view, err := r.target.Acquire()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	encoder, err := r.ctx.Device().CreateCommandEncoder("Frame Encoder")
	if err != nil {
		r.target.Discard()
		return err
	}

	pass, err := encoder.BeginRenderPass(backend.RenderPassDescriptor{
		Label: "Triangle Pass",
		ColorAttachments: []backend.ColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: r.clearColor,
			},
		},
		DepthStencilAttachment: &backend.DepthStencilAttachment{
			View:              r.target.DepthView(),
			DepthLoadOp:       wgpu.LoadOpClear,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   1.0,
			StencilLoadOp:     wgpu.LoadOpClear,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: 0,
		},
	})
	if err != nil {
		encoder.Release()
		r.target.Discard()
		return err
	}

	r.frameEncoder = encoder
	r.framePass = pass
	return nil
}

func (r *renderer) DrawCall() error {
	if r.framePass == nil {
		return ErrNoFrame
	}
	buf, err := r.geometry.GPU()
	if err != nil {
		return err
	}
	r.framePass.SetPipeline(r.pipeline.RenderPipeline())
	r.framePass.SetVertexBuffer(0, buf)
	r.framePass.Draw(r.geometry.VertexCount(), 1, 0, 0)
	return nil
}

func (r *renderer) EndFrame() error {
	if r.framePass == nil {
		return ErrNoFrame
	}
	defer func() {
		r.frameEncoder.Release()
		r.frameEncoder = nil
		r.framePass = nil
	}()

	if err := r.framePass.End(); err != nil {
		r.target.Discard()
		return err
	}
	cmd, err := r.frameEncoder.Finish()
	if err != nil {
		r.target.Discard()
		return err
	}
	r.ctx.Device().Submit(cmd)
	cmd.Release()
	r.frameEnded = true
	return nil
}

func (r *renderer) Present() {
	if !r.frameEnded {
		return
	}
	r.frameEnded = false
	r.target.Present()
}

func (r *renderer) Release() {
	if r.released {
		return
	}
	r.released = true

	if r.frameEncoder != nil {
		r.frameEncoder.Release()
		r.frameEncoder = nil
		r.framePass = nil
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.target != nil {
		r.target.Release()
	}
	if r.geometry != nil {
		r.geometry.Release()
	}
	if r.program != nil {
		r.program.Release()
	}
	if r.ctx != nil {
		r.ctx.Release()
	}
}
