package geometry

import (
	_ "embed"
	"errors"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// TriangleShaderSource is the WGSL program that consumes Vertex records: vertex_main passes the
// position through as the clip position and forwards the color, fragment_main outputs the
// interpolated color.
//
//go:embed assets/triangle.wgsl
var TriangleShaderSource string

const (
	// ComponentsPerAttribute is the number of float32 components in each vertex attribute.
	ComponentsPerAttribute = 4

	// ComponentSize is the byte size of a single component.
	ComponentSize = 4

	// AttributeSize is the byte size of one vertex attribute.
	AttributeSize = ComponentsPerAttribute * ComponentSize

	// Stride is the byte distance between consecutive Vertex records.
	Stride = 2 * AttributeSize
)

// ErrLayoutMismatch is returned when a vertex layout disagrees with the Vertex record.
var ErrLayoutMismatch = errors.New("vertex layout does not match the vertex record")

// Vertex is the GPU-aligned representation of a single triangle vertex.
// Size: 32 bytes, no padding.
type Vertex struct {
	Position [4]float32 // offset  0: clip space position, w = 1
	Color    [4]float32 // offset 16: linear RGBA color
}

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v Vertex) Size() int {
	return int(unsafe.Sizeof(v))
}

// TriangleVertices are the three vertices of the reference triangle: red at the lower right,
// green at the lower left and blue at the top center.
var TriangleVertices = []Vertex{
	{Position: [4]float32{1, -1, 0, 1}, Color: [4]float32{1, 0, 0, 1}},
	{Position: [4]float32{-1, -1, 0, 1}, Color: [4]float32{0, 1, 0, 1}},
	{Position: [4]float32{0, 1, 0, 1}, Color: [4]float32{0, 0, 1, 1}},
}

// Layout returns the vertex buffer layout of a Vertex record: position at location 0, color at location 1.
//
// Returns:
//   - backend.VertexBufferLayout: the layout for buffer slot 0
func Layout() backend.VertexBufferLayout {
	return backend.VertexBufferLayout{
		ArrayStride: Stride,
		Attributes: []backend.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x4, Offset: AttributeSize, ShaderLocation: 1},
		},
	}
}

// AssertLayout checks that a layout describes packed float32 attributes of the given width,
// with offsets equal to the attribute index times the attribute size and a stride equal to
// the attribute count times the attribute size.
//
// Parameters:
//   - layout: the layout to check
//   - componentsPerAttribute: the number of float32 components each attribute carries
//
// Returns:
//   - error: an error wrapping ErrLayoutMismatch describing the first disagreement, otherwise nil
func AssertLayout(layout backend.VertexBufferLayout, componentsPerAttribute int) error {
	format, ok := float32Formats[componentsPerAttribute]
	if !ok {
		return fmt.Errorf("%w: unsupported component count %d", ErrLayoutMismatch, componentsPerAttribute)
	}
	size := uint64(componentsPerAttribute * ComponentSize)
	if len(layout.Attributes) == 0 {
		return fmt.Errorf("%w: no attributes", ErrLayoutMismatch)
	}
	if want := size * uint64(len(layout.Attributes)); layout.ArrayStride != want {
		return fmt.Errorf("%w: stride %d, want %d", ErrLayoutMismatch, layout.ArrayStride, want)
	}
	seen := make(map[uint32]bool, len(layout.Attributes))
	for i, a := range layout.Attributes {
		if a.Format != format {
			return fmt.Errorf("%w: attribute %d has format %v, want %v", ErrLayoutMismatch, i, a.Format, format)
		}
		if want := size * uint64(i); a.Offset != want {
			return fmt.Errorf("%w: attribute %d at offset %d, want %d", ErrLayoutMismatch, i, a.Offset, want)
		}
		if seen[a.ShaderLocation] {
			return fmt.Errorf("%w: location %d bound twice", ErrLayoutMismatch, a.ShaderLocation)
		}
		seen[a.ShaderLocation] = true
	}
	return nil
}

var float32Formats = map[int]wgpu.VertexFormat{
	1: wgpu.VertexFormatFloat32,
	2: wgpu.VertexFormatFloat32x2,
	3: wgpu.VertexFormatFloat32x3,
	4: wgpu.VertexFormatFloat32x4,
}
