// Package fakegpu is an in-memory backend for tests. It records every command it is handed and
// executes submitted render passes with a small software rasterizer, so frame output can be checked
// pixel by pixel without a GPU.
package fakegpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// Journal is the ordered list of commands seen by a fake device and its surface.
type Journal struct {
	mu     sync.Mutex
	events []string
}

func (j *Journal) record(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

// Reset drops every recorded event.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = nil
}

// Opener hands out a single fake Device and Surface pair sharing one Journal.
type Opener struct {
	Journal *Journal
	Device  *Device
	Surface *Surface

	// Unsupported makes Open fail as a host without WebGPU would.
	Unsupported bool

	Opened []backend.OpenOptions
}

var _ backend.Opener = &Opener{}

// NewOpener creates an Opener whose surface advertises the given formats.
// With no formats the surface advertises BGRA8Unorm only.
func NewOpener(formats ...wgpu.TextureFormat) *Opener {
	if len(formats) == 0 {
		formats = []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm}
	}
	j := &Journal{}
	return &Opener{
		Journal: j,
		Device:  &Device{journal: j},
		Surface: &Surface{journal: j, SupportedFormats: formats},
	}
}

func (o *Opener) Open(opts backend.OpenOptions) (backend.Device, backend.Surface, error) {
	o.Opened = append(o.Opened, opts)
	if o.Unsupported {
		return nil, nil, fmt.Errorf("fake host has no adapter: %w", backend.ErrUnsupported)
	}
	return o.Device, o.Surface, nil
}

// Device is a recording fake of backend.Device.
type Device struct {
	journal *Journal

	// Failure knobs; a non-nil value is returned by the matching Create call.
	ShaderModuleErr error
	BufferErr       error
	TextureErr      error
	PipelineErr     error
	EncoderErr      error

	Modules     []*ShaderModule
	Buffers     []*Buffer
	Textures    []*Texture
	Pipelines   []*RenderPipeline
	Submissions []*CommandBuffer
	Released    bool
}

var _ backend.Device = &Device{}

// NewDevice creates a standalone Device with its own Journal.
func NewDevice() *Device {
	return &Device{journal: &Journal{}}
}

// Journal returns the journal the device records into.
func (d *Device) Journal() *Journal {
	return d.journal
}

func (d *Device) CreateShaderModule(label, wgsl string) (backend.ShaderModule, error) {
	if d.ShaderModuleErr != nil {
		return nil, d.ShaderModuleErr
	}
	m := &ShaderModule{Label: label, Source: wgsl}
	d.Modules = append(d.Modules, m)
	d.journal.record("create-shader-module %s", label)
	return m, nil
}

func (d *Device) CreateBuffer(desc backend.BufferDescriptor) (backend.Buffer, error) {
	if d.BufferErr != nil {
		return nil, d.BufferErr
	}
	if desc.MappedAtCreation && desc.Size%4 != 0 {
		return nil, fmt.Errorf("mapped buffer size %d is not a multiple of 4", desc.Size)
	}
	b := &Buffer{
		Label:  desc.Label,
		data:   make([]byte, desc.Size),
		usage:  desc.Usage,
		mapped: desc.MappedAtCreation,
	}
	d.Buffers = append(d.Buffers, b)
	d.journal.record("create-buffer %s", desc.Label)
	return b, nil
}

func (d *Device) CreateTexture(desc backend.TextureDescriptor) (backend.Texture, error) {
	if d.TextureErr != nil {
		return nil, d.TextureErr
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q has zero extent", desc.Label)
	}
	t := newTexture(desc.Label, desc.Width, desc.Height, desc.Format)
	d.Textures = append(d.Textures, t)
	d.journal.record("create-texture %s", desc.Label)
	return t, nil
}

func (d *Device) CreateRenderPipeline(desc backend.RenderPipelineDescriptor) (backend.RenderPipeline, error) {
	if d.PipelineErr != nil {
		return nil, d.PipelineErr
	}
	if _, ok := desc.Module.(*ShaderModule); !ok {
		return nil, errors.New("render pipeline requires a fake shader module")
	}
	if desc.VertexEntryPoint == "" || desc.FragmentEntryPoint == "" {
		return nil, errors.New("render pipeline requires vertex and fragment entry points")
	}
	if len(desc.Targets) == 0 {
		return nil, errors.New("render pipeline requires at least one color target")
	}
	for i, b := range desc.Buffers {
		for _, a := range b.Attributes {
			if a.Offset+vertexFormatSize(a.Format) > b.ArrayStride {
				return nil, fmt.Errorf("attribute at location %d overruns stride of buffer %d", a.ShaderLocation, i)
			}
		}
	}
	p := &RenderPipeline{Desc: desc}
	d.Pipelines = append(d.Pipelines, p)
	d.journal.record("create-render-pipeline %s", desc.Label)
	return p, nil
}

func (d *Device) CreateCommandEncoder(label string) (backend.CommandEncoder, error) {
	if d.EncoderErr != nil {
		return nil, d.EncoderErr
	}
	return &CommandEncoder{journal: d.journal, Label: label}, nil
}

// Submit records the command buffers and executes their render passes in order.
func (d *Device) Submit(buffers ...backend.CommandBuffer) {
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			continue
		}
		d.Submissions = append(d.Submissions, cb)
		d.journal.record("submit")
		for _, pass := range cb.Passes {
			execute(pass)
		}
	}
}

func (d *Device) ReadBuffer(ctx context.Context, src backend.Buffer, size uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := src.(*Buffer)
	if !ok {
		return nil, errors.New("read back requires a fake buffer")
	}
	if b.mapped {
		return nil, errors.New("read back of a mapped buffer")
	}
	if b.usage&wgpu.BufferUsageCopySrc == 0 {
		return nil, errors.New("read back requires BufferUsageCopySrc")
	}
	if size > uint64(len(b.data)) {
		return nil, fmt.Errorf("read back of %d bytes exceeds buffer size %d", size, len(b.data))
	}
	return append([]byte(nil), b.data[:size]...), nil
}

func (d *Device) Release() {
	d.Released = true
}

// Draws returns every draw call submitted so far, in submission order.
func (d *Device) Draws() []DrawCall {
	var out []DrawCall
	for _, cb := range d.Submissions {
		for _, pass := range cb.Passes {
			out = append(out, pass.Draws...)
		}
	}
	return out
}

// Buffer is a host-memory fake of backend.Buffer.
type Buffer struct {
	Label    string
	data     []byte
	usage    wgpu.BufferUsage
	mapped   bool
	Released bool
}

func (b *Buffer) Size() uint64            { return uint64(len(b.data)) }
func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }

// Mapped reports whether the host still owns the buffer contents.
func (b *Buffer) Mapped() bool { return b.mapped }

// Bytes returns the raw buffer contents regardless of mapping state.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) MappedRange(offset, size uint64) []byte {
	if !b.mapped || offset+size > uint64(len(b.data)) {
		return nil
	}
	return b.data[offset : offset+size]
}

func (b *Buffer) Unmap() error {
	if !b.mapped {
		return errors.New("buffer is not mapped")
	}
	b.mapped = false
	return nil
}

func (b *Buffer) Release() { b.Released = true }

type ShaderModule struct {
	Label    string
	Source   string
	Released bool
}

func (m *ShaderModule) Release() { m.Released = true }

type RenderPipeline struct {
	Desc     backend.RenderPipelineDescriptor
	Released bool
}

func (p *RenderPipeline) Release() { p.Released = true }

// DrawCall is a draw recorded together with the state bound when it was issued.
type DrawCall struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
	Pipeline      *RenderPipeline
	VertexBuffer  *Buffer
}

type CommandEncoder struct {
	journal  *Journal
	Label    string
	Passes   []*RenderPass
	Finished bool
	Released bool
}

func (e *CommandEncoder) BeginRenderPass(desc backend.RenderPassDescriptor) (backend.RenderPass, error) {
	if e.Finished {
		return nil, errors.New("encoder already finished")
	}
	for _, p := range e.Passes {
		if !p.Ended {
			return nil, errors.New("previous render pass has not ended")
		}
	}
	for _, c := range desc.ColorAttachments {
		if _, ok := c.View.(*TextureView); !ok {
			return nil, errors.New("color attachment requires a fake texture view")
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		if _, ok := ds.View.(*TextureView); !ok {
			return nil, errors.New("depth attachment requires a fake texture view")
		}
	}
	p := &RenderPass{journal: e.journal, Desc: desc}
	e.Passes = append(e.Passes, p)
	e.journal.record("begin-render-pass")
	return p, nil
}

func (e *CommandEncoder) Finish() (backend.CommandBuffer, error) {
	for _, p := range e.Passes {
		if !p.Ended {
			return nil, errors.New("render pass still open at finish")
		}
	}
	e.Finished = true
	return &CommandBuffer{Passes: e.Passes}, nil
}

func (e *CommandEncoder) Release() { e.Released = true }

type CommandBuffer struct {
	Passes   []*RenderPass
	Released bool
}

func (c *CommandBuffer) Release() { c.Released = true }

type RenderPass struct {
	journal      *Journal
	Desc         backend.RenderPassDescriptor
	Draws        []DrawCall
	Ended        bool
	pipeline     *RenderPipeline
	vertexBuffer *Buffer
}

func (p *RenderPass) SetPipeline(rp backend.RenderPipeline) {
	p.pipeline, _ = rp.(*RenderPipeline)
	p.journal.record("set-pipeline")
}

func (p *RenderPass) SetVertexBuffer(slot uint32, b backend.Buffer) {
	if slot == 0 {
		p.vertexBuffer, _ = b.(*Buffer)
	}
	p.journal.record("set-vertex-buffer %d", slot)
}

func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Draws = append(p.Draws, DrawCall{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
		Pipeline:      p.pipeline,
		VertexBuffer:  p.vertexBuffer,
	})
	p.journal.record("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *RenderPass) End() error {
	if p.Ended {
		return errors.New("render pass already ended")
	}
	p.Ended = true
	p.journal.record("end-render-pass")
	return nil
}

// Surface is a fake presentable surface. Each acquisition yields a fresh texture.
type Surface struct {
	journal          *Journal
	SupportedFormats []wgpu.TextureFormat
	Config           *backend.SurfaceConfiguration
	ConfigureErr     error

	// AcquireErrs is consumed one entry per acquisition; a nil entry succeeds.
	AcquireErrs []error

	Acquired  []*Texture
	Presented []*Texture
	Released  bool
	current   *Texture
}

var _ backend.Surface = &Surface{}

func (s *Surface) Formats() []wgpu.TextureFormat {
	return s.SupportedFormats
}

func (s *Surface) Configure(_ backend.Device, cfg backend.SurfaceConfiguration) error {
	if s.ConfigureErr != nil {
		return s.ConfigureErr
	}
	c := cfg
	s.Config = &c
	s.journal.record("configure-surface %dx%d", cfg.Width, cfg.Height)
	return nil
}

func (s *Surface) CurrentTexture() (backend.Texture, error) {
	if len(s.AcquireErrs) > 0 {
		err := s.AcquireErrs[0]
		s.AcquireErrs = s.AcquireErrs[1:]
		if err != nil {
			s.journal.record("acquire-failed")
			return nil, err
		}
	}
	if s.Config == nil {
		return nil, errors.New("surface is not configured")
	}
	if s.current != nil {
		return nil, errors.New("surface image is already acquired")
	}
	t := newTexture("Surface Texture", s.Config.Width, s.Config.Height, s.Config.Format)
	t.onRelease = func() {
		if s.current == t {
			s.current = nil
		}
	}
	s.current = t
	s.Acquired = append(s.Acquired, t)
	s.journal.record("acquire")
	return t, nil
}

func (s *Surface) Present() {
	if s.current == nil {
		return
	}
	s.Presented = append(s.Presented, s.current)
	s.current = nil
	s.journal.record("present")
}

func (s *Surface) Release() { s.Released = true }

// LastPresented returns the most recently presented image, or nil.
func (s *Surface) LastPresented() *Texture {
	if len(s.Presented) == 0 {
		return nil
	}
	return s.Presented[len(s.Presented)-1]
}
