package geometry

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrInvalidSize is returned when a buffer size is zero or not a whole number of Vertex records.
	ErrInvalidSize = errors.New("geometry buffer size must be a non-zero multiple of the vertex stride")

	// ErrNotFinalized is returned when the GPU handle is requested before the host has released the mapping.
	ErrNotFinalized = errors.New("geometry buffer is still mapped")

	// ErrFinalized is returned when writing to a buffer the GPU already owns.
	ErrFinalized = errors.New("geometry buffer is already finalized")

	// ErrOutOfRange is returned when a write does not fit inside the buffer.
	ErrOutOfRange = errors.New("write exceeds geometry buffer size")
)

// buffer is the implementation of the Buffer interface.
type buffer struct {
	label  string
	usage  wgpu.BufferUsage
	layout backend.VertexBufferLayout

	device    backend.Device
	gpu       backend.Buffer
	size      uint64
	finalized bool
}

// Buffer is a vertex buffer created host-mapped. The host fills it through Write while it is mapped,
// then hands it to the GPU with Finalize; from then on it is immutable and can be bound for drawing.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Size returns the buffer size in bytes, always VertexCount times the layout stride.
	Size() uint64

	// VertexCount returns the number of Vertex records the buffer holds.
	VertexCount() uint32

	// Layout returns the vertex buffer layout the contents follow.
	Layout() backend.VertexBufferLayout

	// Write copies bytes into the mapped buffer at the given offset.
	//
	// Parameters:
	//   - offset: the byte offset to write at
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: ErrFinalized after Finalize, ErrOutOfRange if the write does not fit, otherwise nil
	Write(offset uint64, data []byte) error

	// Finalize releases the host mapping and transfers the buffer to the GPU. Calling it again is a no-op.
	//
	// Returns:
	//   - error: an error if the mapping could not be released
	Finalize() error

	// Finalized reports whether Finalize has completed.
	Finalized() bool

	// GPU returns the device buffer handle for binding.
	//
	// Returns:
	//   - backend.Buffer: the device buffer
	//   - error: ErrNotFinalized if the host still holds the mapping
	GPU() (backend.Buffer, error)

	// ReadBack copies the finalized buffer contents back to host memory.
	//
	// Parameters:
	//   - ctx: the context bounding the wait for the device
	//
	// Returns:
	//   - []byte: a copy of the buffer contents
	//   - error: ErrNotFinalized before Finalize, or the device's read error
	ReadBack(ctx context.Context) ([]byte, error)

	// Vertices reads the buffer back and decodes it as Vertex records.
	Vertices(ctx context.Context) ([]Vertex, error)

	// Release releases the device buffer.
	Release()
}

var _ Buffer = &buffer{}

// Allocate creates a host-mapped vertex buffer of byteSize bytes with vertex and copy-source usage.
//
// Parameters:
//   - dev: the device to allocate on
//   - byteSize: the buffer size, a non-zero multiple of Stride
//   - options: BufferBuilderOption functions that configure the buffer
//
// Returns:
//   - Buffer: the mapped buffer, ready for Write
//   - error: ErrInvalidSize for a bad size, or the device's allocation error
func Allocate(dev backend.Device, byteSize uint64, options ...BufferBuilderOption) (Buffer, error) {
	b := &buffer{
		label:  "Triangle Vertex Buffer",
		usage:  wgpu.BufferUsageVertex | wgpu.BufferUsageCopySrc,
		layout: Layout(),
		device: dev,
	}
	for _, opt := range options {
		opt(b)
	}

	if byteSize == 0 || b.layout.ArrayStride == 0 || byteSize%b.layout.ArrayStride != 0 {
		return nil, fmt.Errorf("%w: %d bytes with stride %d", ErrInvalidSize, byteSize, b.layout.ArrayStride)
	}

	gpu, err := dev.CreateBuffer(backend.BufferDescriptor{
		Label:            b.label,
		Size:             byteSize,
		Usage:            b.usage,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %s: %w", b.label, err)
	}
	b.gpu = gpu
	b.size = byteSize

	common.Logger().Debug("geometry buffer allocated", "label", b.label, "bytes", byteSize)
	return b, nil
}

// Upload allocates a buffer sized for the vertices, writes them and finalizes it.
//
// Parameters:
//   - dev: the device to allocate on
//   - vertices: the vertex records to upload
//   - options: BufferBuilderOption functions that configure the buffer
//
// Returns:
//   - Buffer: the finalized buffer
//   - error: an error if allocation, the write or finalization failed
func Upload(dev backend.Device, vertices []Vertex, options ...BufferBuilderOption) (Buffer, error) {
	data := common.SliceToBytes(vertices)
	b, err := Allocate(dev, uint64(len(data)), options...)
	if err != nil {
		return nil, err
	}
	if err := b.Write(0, data); err != nil {
		b.Release()
		return nil, err
	}
	if err := b.Finalize(); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *buffer) Label() string {
	return b.label
}

func (b *buffer) Size() uint64 {
	return b.size
}

func (b *buffer) VertexCount() uint32 {
	return uint32(b.size / b.layout.ArrayStride)
}

func (b *buffer) Layout() backend.VertexBufferLayout {
	return b.layout
}

func (b *buffer) Write(offset uint64, data []byte) error {
	if b.finalized {
		return ErrFinalized
	}
	end := offset + uint64(len(data))
	if end < offset || end > b.size {
		return fmt.Errorf("%w: [%d, %d) of %d bytes", ErrOutOfRange, offset, end, b.size)
	}
	mapped := b.gpu.MappedRange(0, b.size)
	if uint64(len(mapped)) < b.size {
		return errors.New("geometry buffer has no host mapping")
	}
	copy(mapped[offset:end], data)
	return nil
}

func (b *buffer) Finalize() error {
	if b.finalized {
		return nil
	}
	if err := b.gpu.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap %s: %w", b.label, err)
	}
	b.finalized = true
	return nil
}

func (b *buffer) Finalized() bool {
	return b.finalized
}

func (b *buffer) GPU() (backend.Buffer, error) {
	if !b.finalized {
		return nil, ErrNotFinalized
	}
	return b.gpu, nil
}

func (b *buffer) ReadBack(ctx context.Context) ([]byte, error) {
	if !b.finalized {
		return nil, ErrNotFinalized
	}
	return b.device.ReadBuffer(ctx, b.gpu, b.size)
}

func (b *buffer) Vertices(ctx context.Context) ([]Vertex, error) {
	data, err := b.ReadBack(ctx)
	if err != nil {
		return nil, err
	}
	return common.BytesToSlice[Vertex](data)
}

func (b *buffer) Release() {
	if b.gpu != nil {
		b.gpu.Release()
	}
}
