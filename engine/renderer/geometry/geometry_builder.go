package geometry

import (
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferBuilderOption is a functional option used to configure a Buffer during allocation.
type BufferBuilderOption func(*buffer)

// WithLabel sets the debug label of the buffer.
//
// Parameters:
//   - label: the buffer label
//
// Returns:
//   - BufferBuilderOption: a function that sets the buffer label
func WithLabel(label string) BufferBuilderOption {
	return func(b *buffer) {
		b.label = label
	}
}

// WithUsage adds usage flags on top of the default vertex and copy-source usage.
//
// Parameters:
//   - usage: the additional usage flags
//
// Returns:
//   - BufferBuilderOption: a function that adds the usage flags
func WithUsage(usage wgpu.BufferUsage) BufferBuilderOption {
	return func(b *buffer) {
		b.usage |= usage
	}
}

// WithLayout overrides the vertex buffer layout. Defaults to Layout().
//
// Parameters:
//   - layout: the layout the buffer contents follow
//
// Returns:
//   - BufferBuilderOption: a function that sets the layout
func WithLayout(layout backend.VertexBufferLayout) BufferBuilderOption {
	return func(b *buffer) {
		b.layout = layout
	}
}
