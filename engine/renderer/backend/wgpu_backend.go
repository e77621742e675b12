package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuOpener opens a native WebGPU device through wgpu-native.
type wgpuOpener struct {
	surfaceDescriptor *wgpu.SurfaceDescriptor
}

var _ Opener = &wgpuOpener{}

// NewWGPUOpener creates an Opener that builds a wgpu instance and surface from the host window's surface descriptor.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from wgpuglfw.GetSurfaceDescriptor
//
// Returns:
//   - Opener: the native WebGPU opener
func NewWGPUOpener(surfaceDescriptor *wgpu.SurfaceDescriptor) Opener {
	return &wgpuOpener{surfaceDescriptor: surfaceDescriptor}
}

func (o *wgpuOpener) Open(opts OpenOptions) (Device, Surface, error) {
	if o.surfaceDescriptor == nil {
		return nil, nil, fmt.Errorf("no surface descriptor: %w", ErrUnsupported)
	}

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, nil, fmt.Errorf("failed to create wgpu instance: %w", ErrUnsupported)
	}
	surface := instance.CreateSurface(o.surfaceDescriptor)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		PowerPreference:      opts.PowerPreference,
		CompatibleSurface:    surface,
	})
	if err != nil {
		surface.Release()
		instance.Release()
		return nil, nil, fmt.Errorf("failed to request adapter: %w", errors.Join(ErrUnsupported, err))
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: opts.Label,
	})
	if err != nil {
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, nil, fmt.Errorf("failed to request device: %w", errors.Join(ErrUnsupported, err))
	}

	d := &wgpuDevice{
		mu:       &sync.Mutex{},
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
	}
	s := &wgpuSurface{
		adapter: adapter,
		surface: surface,
	}
	return d, s, nil
}

type wgpuDevice struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

var _ Device = &wgpuDevice{}

func (d *wgpuDevice) CreateShaderModule(label, source string) (ShaderModule, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{module: module}, nil
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage,
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf, size: desc.Size, usage: desc.Usage}, nil
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{texture: tex, width: desc.Width, height: desc.Height, format: desc.Format}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	module, ok := desc.Module.(*wgpuShaderModule)
	if !ok || module == nil {
		return nil, errors.New("render pipeline requires a wgpu shader module")
	}

	// The triangle binds no resources, so the layout carries no bind group layouts.
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: desc.Label + " Layout",
	})
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	buffers := make([]wgpu.VertexBufferLayout, 0, len(desc.Buffers))
	for _, b := range desc.Buffers {
		attributes := make([]wgpu.VertexAttribute, 0, len(b.Attributes))
		for _, a := range b.Attributes {
			attributes = append(attributes, wgpu.VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			})
		}
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: b.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attributes,
		})
	}

	targets := make([]wgpu.ColorTargetState, 0, len(desc.Targets))
	for _, format := range desc.Targets {
		targets = append(targets, wgpu.ColorTargetState{
			Format:    format,
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthStencil != nil {
		depthStencil = &wgpu.DepthStencilState{
			Format:            desc.DepthStencil.Format,
			DepthWriteEnabled: desc.DepthStencil.DepthWriteEnabled,
			DepthCompare:      desc.DepthStencil.DepthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module.module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module.module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPipeline{pipeline: created}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder: encoder}, nil
}

func (d *wgpuDevice) Submit(buffers ...CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	native := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if cb, ok := b.(*wgpuCommandBuffer); ok {
			native = append(native, cb.buffer)
		}
	}
	d.queue.Submit(native...)
}

func (d *wgpuDevice) ReadBuffer(ctx context.Context, src Buffer, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	source, ok := src.(*wgpuBuffer)
	if !ok {
		return nil, errors.New("read back requires a wgpu buffer")
	}
	if source.usage&wgpu.BufferUsageCopySrc == 0 {
		return nil, errors.New("read back requires a buffer created with BufferUsageCopySrc")
	}

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Read Back Staging Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(source.buffer, 0, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer cmd.Release()
	d.queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = true
	})
	if err != nil {
		return nil, err
	}
	for !mapped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("buffer map failed with status %d", status)
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (d *wgpuDevice) Release() {
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

type wgpuSurface struct {
	adapter *wgpu.Adapter
	surface *wgpu.Surface
	width   uint32
	height  uint32
	format  wgpu.TextureFormat
}

var _ Surface = &wgpuSurface{}

func (s *wgpuSurface) Formats() []wgpu.TextureFormat {
	return s.surface.GetCapabilities(s.adapter).Formats
}

func (s *wgpuSurface) Configure(dev Device, cfg SurfaceConfiguration) error {
	d, ok := dev.(*wgpuDevice)
	if !ok {
		return errors.New("surface must be configured with a wgpu device")
	}

	capabilities := s.surface.GetCapabilities(s.adapter)
	if len(capabilities.AlphaModes) == 0 {
		return errors.New("surface reports no alpha modes")
	}

	s.surface.Configure(s.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       cfg.Usage,
		Format:      cfg.Format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: cfg.PresentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	s.width, s.height, s.format = cfg.Width, cfg.Height, cfg.Format
	return nil
}

func (s *wgpuSurface) CurrentTexture() (Texture, error) {
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{texture: tex, width: s.width, height: s.height, format: s.format}, nil
}

func (s *wgpuSurface) Present() {
	s.surface.Present()
}

func (s *wgpuSurface) Release() {
	s.surface.Release()
}

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *wgpuBuffer) MappedRange(offset, size uint64) []byte {
	return b.buffer.GetMappedRange(uint(offset), uint(size))
}

func (b *wgpuBuffer) Unmap() error {
	b.buffer.Unmap()
	return nil
}

func (b *wgpuBuffer) Release() { b.buffer.Release() }

type wgpuTexture struct {
	texture *wgpu.Texture
	width   uint32
	height  uint32
	format  wgpu.TextureFormat
}

func (t *wgpuTexture) CreateView() (TextureView, error) {
	view, err := t.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{view: view}, nil
}

func (t *wgpuTexture) Width() uint32              { return t.width }
func (t *wgpuTexture) Height() uint32             { return t.height }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.format }
func (t *wgpuTexture) Release()                   { t.texture.Release() }

type wgpuTextureView struct {
	view *wgpu.TextureView
}

func (v *wgpuTextureView) Release() { v.view.Release() }

type wgpuShaderModule struct {
	module *wgpu.ShaderModule
}

func (m *wgpuShaderModule) Release() { m.module.Release() }

type wgpuRenderPipeline struct {
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuRenderPipeline) Release() { p.pipeline.Release() }

type wgpuCommandBuffer struct {
	buffer *wgpu.CommandBuffer
}

func (c *wgpuCommandBuffer) Release() { c.buffer.Release() }

type wgpuCommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	colors := make([]wgpu.RenderPassColorAttachment, 0, len(desc.ColorAttachments))
	for _, c := range desc.ColorAttachments {
		view, ok := c.View.(*wgpuTextureView)
		if !ok || view == nil {
			return nil, errors.New("color attachment requires a wgpu texture view")
		}
		colors = append(colors, wgpu.RenderPassColorAttachment{
			View:       view.view,
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearValue: c.ClearValue,
		})
	}

	native := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		view, ok := ds.View.(*wgpuTextureView)
		if !ok || view == nil {
			return nil, errors.New("depth attachment requires a wgpu texture view")
		}
		native.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              view.view,
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			StencilLoadOp:     ds.StencilLoadOp,
			StencilStoreOp:    ds.StencilStoreOp,
			StencilClearValue: ds.StencilClearValue,
		}
	}

	return &wgpuRenderPass{pass: e.encoder.BeginRenderPass(native)}, nil
}

func (e *wgpuCommandEncoder) Finish() (CommandBuffer, error) {
	cmd, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{buffer: cmd}, nil
}

func (e *wgpuCommandEncoder) Release() { e.encoder.Release() }

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	if native, ok := rp.(*wgpuRenderPipeline); ok {
		p.pass.SetPipeline(native.pipeline)
	}
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, b Buffer) {
	if native, ok := b.(*wgpuBuffer); ok {
		p.pass.SetVertexBuffer(slot, native.buffer, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) End() error {
	p.pass.End()
	p.pass.Release()
	return nil
}
