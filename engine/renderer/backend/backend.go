package backend

import (
	"context"
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnsupported is returned by an Opener when the host exposes no usable GPU adapter or device.
var ErrUnsupported = errors.New("backend: no GPU adapter available")

// OpenOptions carries the adapter and device request parameters handed to an Opener.
type OpenOptions struct {
	Label                string
	ForceFallbackAdapter bool
	PowerPreference      wgpu.PowerPreference
}

// Opener negotiates an adapter and a logical device, and returns the presentable surface bound to them.
// Implementations wrap ErrUnsupported when no adapter or device can be obtained.
type Opener interface {
	// Open requests an adapter compatible with the host surface and a device from it.
	//
	// Parameters:
	//   - opts: the adapter and device request parameters
	//
	// Returns:
	//   - Device: the logical device with its submission queue
	//   - Surface: the presentable surface bound to the same adapter
	//   - error: an error wrapping ErrUnsupported if the host has no GPU support, otherwise nil
	Open(opts OpenOptions) (Device, Surface, error)
}

// Device is the subset of a WebGPU logical device used by the renderer.
// Every resource it returns is owned by the caller and must be released.
type Device interface {
	// CreateShaderModule hands WGSL source to the host compiler.
	//
	// Parameters:
	//   - label: the debug label for the module
	//   - wgsl: the WGSL source text
	//
	// Returns:
	//   - ShaderModule: the compiled module
	//   - error: the host compiler's error, if any
	CreateShaderModule(label, wgsl string) (ShaderModule, error)

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the size, usage and mapping state of the buffer
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if the allocation failed
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateTexture allocates a 2D single-sampled texture.
	//
	// Parameters:
	//   - desc: the dimensions, format and usage of the texture
	//
	// Returns:
	//   - Texture: the allocated texture
	//   - error: an error if the allocation failed
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateRenderPipeline compiles a render pipeline with an empty pipeline layout.
	//
	// Parameters:
	//   - desc: the fixed-function and programmable state of the pipeline
	//
	// Returns:
	//   - RenderPipeline: the compiled pipeline
	//   - error: the host's pipeline creation error, if any
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateCommandEncoder starts recording a new command sequence.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit enqueues finished command buffers on the device queue in order.
	Submit(buffers ...CommandBuffer)

	// ReadBuffer copies size bytes out of src into host memory, waiting for the device to finish.
	// The source buffer must be unmapped and carry BufferUsageCopySrc.
	ReadBuffer(ctx context.Context, src Buffer, size uint64) ([]byte, error)

	Release()
}

// Buffer is a GPU buffer handle.
type Buffer interface {
	Size() uint64
	Usage() wgpu.BufferUsage

	// MappedRange returns the host-visible bytes of a buffer created with MappedAtCreation.
	// The slice is only valid until Unmap.
	MappedRange(offset, size uint64) []byte

	// Unmap transfers ownership of a mapped buffer to the GPU.
	Unmap() error

	Release()
}

// Texture is a GPU texture handle.
type Texture interface {
	CreateView() (TextureView, error)
	Width() uint32
	Height() uint32
	Format() wgpu.TextureFormat
	Release()
}

// TextureView is a view of a Texture usable as a render pass attachment.
type TextureView interface {
	Release()
}

// ShaderModule is a compiled WGSL module.
type ShaderModule interface {
	Release()
}

// RenderPipeline is a compiled render pipeline.
type RenderPipeline interface {
	Release()
}

// CommandBuffer is a finished command sequence ready for submission.
type CommandBuffer interface {
	Release()
}

// CommandEncoder records render passes into a CommandBuffer.
type CommandEncoder interface {
	BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error)
	Finish() (CommandBuffer, error)
	Release()
}

// RenderPass records draw commands against the attachments it was begun with.
type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetVertexBuffer(slot uint32, b Buffer)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}

// Surface is the presentable image source bound to the host window.
type Surface interface {
	// Formats lists the texture formats the surface supports, in the adapter's preference order.
	Formats() []wgpu.TextureFormat

	// Configure binds the surface to a device with the given format, size and present mode.
	Configure(dev Device, cfg SurfaceConfiguration) error

	// CurrentTexture acquires the next presentable image.
	CurrentTexture() (Texture, error)

	// Present queues the most recently acquired image for display.
	Present()

	Release()
}

type BufferDescriptor struct {
	Label            string
	Size             uint64
	Usage            wgpu.BufferUsage
	MappedAtCreation bool
}

type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// VertexAttribute locates one shader input inside a vertex record.
type VertexAttribute struct {
	Format         wgpu.VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

// VertexBufferLayout describes how vertex records are laid out in a buffer bound to one slot.
type VertexBufferLayout struct {
	ArrayStride uint64
	Attributes  []VertexAttribute
}

// DepthStencilState is the depth test configuration of a pipeline. Stencil tests always pass.
type DepthStencilState struct {
	Format            wgpu.TextureFormat
	DepthWriteEnabled bool
	DepthCompare      wgpu.CompareFunction
}

type RenderPipelineDescriptor struct {
	Label              string
	Module             ShaderModule
	VertexEntryPoint   string
	FragmentEntryPoint string
	Buffers            []VertexBufferLayout
	Targets            []wgpu.TextureFormat
	DepthStencil       *DepthStencilState
	Topology           wgpu.PrimitiveTopology
	FrontFace          wgpu.FrontFace
	CullMode           wgpu.CullMode
}

type ColorAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue wgpu.Color
}

type DepthStencilAttachment struct {
	View              TextureView
	DepthLoadOp       wgpu.LoadOp
	DepthStoreOp      wgpu.StoreOp
	DepthClearValue   float32
	StencilLoadOp     wgpu.LoadOp
	StencilStoreOp    wgpu.StoreOp
	StencilClearValue uint32
}

type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment
}

type SurfaceConfiguration struct {
	Format      wgpu.TextureFormat
	Usage       wgpu.TextureUsage
	Width       uint32
	Height      uint32
	PresentMode wgpu.PresentMode
}
