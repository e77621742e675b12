package fakegpu

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// Texture stores color, depth and stencil planes; only the plane matching Format is meaningful.
type Texture struct {
	Label    string
	width    uint32
	height   uint32
	format   wgpu.TextureFormat
	color    []wgpu.Color
	depth    []float32
	stencil  []uint32
	Released bool
	Views    []*TextureView

	onRelease func()
}

func newTexture(label string, width, height uint32, format wgpu.TextureFormat) *Texture {
	n := int(width) * int(height)
	return &Texture{
		Label:   label,
		width:   width,
		height:  height,
		format:  format,
		color:   make([]wgpu.Color, n),
		depth:   make([]float32, n),
		stencil: make([]uint32, n),
	}
}

func (t *Texture) CreateView() (backend.TextureView, error) {
	v := &TextureView{Texture: t}
	t.Views = append(t.Views, v)
	return v, nil
}

func (t *Texture) Width() uint32              { return t.width }
func (t *Texture) Height() uint32             { return t.height }
func (t *Texture) Format() wgpu.TextureFormat { return t.format }

func (t *Texture) Release() {
	t.Released = true
	if t.onRelease != nil {
		t.onRelease()
	}
}

// Pixel returns the color stored at (x, y), with y growing downwards.
func (t *Texture) Pixel(x, y int) wgpu.Color {
	return t.color[y*int(t.width)+x]
}

// Depth returns the depth stored at (x, y).
func (t *Texture) Depth(x, y int) float32 {
	return t.depth[y*int(t.width)+x]
}

// Stencil returns the stencil value stored at (x, y).
func (t *Texture) Stencil(x, y int) uint32 {
	return t.stencil[y*int(t.width)+x]
}

type TextureView struct {
	Texture  *Texture
	Released bool
}

func (v *TextureView) Release() { v.Released = true }

type clipVertex struct {
	position [4]float32
	color    [4]float32
}

// execute applies a render pass's load operations and rasterizes its draws.
// Location 0 is read as the clip-space position and location 1 as the color.
func execute(pass *RenderPass) {
	var colorTarget, depthTarget *Texture
	if len(pass.Desc.ColorAttachments) > 0 {
		c := pass.Desc.ColorAttachments[0]
		colorTarget = c.View.(*TextureView).Texture
		if c.LoadOp == wgpu.LoadOpClear {
			for i := range colorTarget.color {
				colorTarget.color[i] = c.ClearValue
			}
		}
	}
	if ds := pass.Desc.DepthStencilAttachment; ds != nil {
		depthTarget = ds.View.(*TextureView).Texture
		if ds.DepthLoadOp == wgpu.LoadOpClear {
			for i := range depthTarget.depth {
				depthTarget.depth[i] = ds.DepthClearValue
			}
		}
		if ds.StencilLoadOp == wgpu.LoadOpClear {
			for i := range depthTarget.stencil {
				depthTarget.stencil[i] = ds.StencilClearValue
			}
		}
	}

	for _, dc := range pass.Draws {
		if dc.Pipeline == nil || dc.VertexBuffer == nil || colorTarget == nil {
			continue
		}
		vertices := fetchVertices(dc)
		for i := 0; i+2 < len(vertices); i += 3 {
			drawTriangle(dc.Pipeline.Desc, vertices[i:i+3], colorTarget, depthTarget)
		}
	}
}

func fetchVertices(dc DrawCall) []clipVertex {
	desc := dc.Pipeline.Desc
	if len(desc.Buffers) == 0 {
		return nil
	}
	layout := desc.Buffers[0]
	data := dc.VertexBuffer.data
	out := make([]clipVertex, 0, dc.VertexCount)
	for i := dc.FirstVertex; i < dc.FirstVertex+dc.VertexCount; i++ {
		base := uint64(i) * layout.ArrayStride
		if base+layout.ArrayStride > uint64(len(data)) {
			break
		}
		v := clipVertex{position: [4]float32{0, 0, 0, 1}, color: [4]float32{0, 0, 0, 1}}
		for _, a := range layout.Attributes {
			values := decodeAttribute(data[base+a.Offset:], a.Format)
			switch a.ShaderLocation {
			case 0:
				v.position = values
			case 1:
				v.color = values
			}
		}
		out = append(out, v)
	}
	return out
}

func vertexFormatSize(f wgpu.VertexFormat) uint64 {
	switch f {
	case wgpu.VertexFormatFloat32:
		return 4
	case wgpu.VertexFormatFloat32x2:
		return 8
	case wgpu.VertexFormatFloat32x3:
		return 12
	case wgpu.VertexFormatFloat32x4:
		return 16
	}
	return 0
}

func decodeAttribute(b []byte, f wgpu.VertexFormat) [4]float32 {
	out := [4]float32{0, 0, 0, 1}
	n := int(vertexFormatSize(f) / 4)
	for i := 0; i < n && 4*i+4 <= len(b); i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func drawTriangle(desc backend.RenderPipelineDescriptor, tri []clipVertex, color, depth *Texture) {
	var sx, sy, sz [3]float64
	w, h := float64(color.width), float64(color.height)
	for i, v := range tri {
		cw := float64(v.position[3])
		if cw == 0 {
			return
		}
		nx, ny, nz := float64(v.position[0])/cw, float64(v.position[1])/cw, float64(v.position[2])/cw
		sx[i] = (nx + 1) / 2 * w
		sy[i] = (1 - ny) / 2 * h
		sz[i] = nz
	}

	// Framebuffer y grows downwards, so a counter-clockwise triangle in NDC has negative area here.
	area := edge(sx[0], sy[0], sx[1], sy[1], sx[2], sy[2])
	if area == 0 {
		return
	}
	ccw := area < 0
	front := ccw == (desc.FrontFace != wgpu.FrontFaceCW)
	switch desc.CullMode {
	case wgpu.CullModeBack:
		if !front {
			return
		}
	case wgpu.CullModeFront:
		if front {
			return
		}
	}

	minX := clampInt(int(math.Floor(min3(sx))), 0, int(color.width)-1)
	maxX := clampInt(int(math.Ceil(max3(sx))), 0, int(color.width)-1)
	minY := clampInt(int(math.Floor(min3(sy))), 0, int(color.height)-1)
	maxY := clampInt(int(math.Ceil(max3(sy))), 0, int(color.height)-1)

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			cx, cy := float64(px)+0.5, float64(py)+0.5
			w0 := edge(sx[1], sy[1], sx[2], sy[2], cx, cy) / area
			w1 := edge(sx[2], sy[2], sx[0], sy[0], cx, cy) / area
			w2 := edge(sx[0], sy[0], sx[1], sy[1], cx, cy) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*sz[0] + w1*sz[1] + w2*sz[2]
			if z < 0 || z > 1 {
				continue
			}
			idx := py*int(color.width) + px
			if ds := desc.DepthStencil; ds != nil && depth != nil {
				if !compare(ds.DepthCompare, float32(z), depth.depth[idx]) {
					continue
				}
				if ds.DepthWriteEnabled {
					depth.depth[idx] = float32(z)
				}
			}
			var c [4]float64
			for k := range c {
				c[k] = w0*float64(tri[0].color[k]) + w1*float64(tri[1].color[k]) + w2*float64(tri[2].color[k])
			}
			color.color[idx] = wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
		}
	}
}

func compare(fn wgpu.CompareFunction, fragment, stored float32) bool {
	switch fn {
	case wgpu.CompareFunctionNever:
		return false
	case wgpu.CompareFunctionLess:
		return fragment < stored
	case wgpu.CompareFunctionLessEqual:
		return fragment <= stored
	case wgpu.CompareFunctionEqual:
		return fragment == stored
	case wgpu.CompareFunctionGreater:
		return fragment > stored
	case wgpu.CompareFunctionGreaterEqual:
		return fragment >= stored
	case wgpu.CompareFunctionNotEqual:
		return fragment != stored
	}
	return true
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func min3(v [3]float64) float64 { return math.Min(v[0], math.Min(v[1], v[2])) }
func max3(v [3]float64) float64 { return math.Max(v[0], math.Max(v[1], v[2])) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
