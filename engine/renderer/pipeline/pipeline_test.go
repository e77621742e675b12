package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/surface"
	"github.com/Carmen-Shannon/oxy-triangle/internal/fakegpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setup(t *testing.T, source string) (*fakegpu.Opener, shader.Program, surface.Target) {
	t.Helper()
	opener := fakegpu.NewOpener()
	program, _ := shader.Compile(opener.Device, "triangle", source, shader.WithLogger(quiet))
	target, err := surface.Configure(opener.Device, opener.Surface, 16, 16)
	require.NoError(t, err)
	return opener, program, target
}

func TestBuildTriangle(t *testing.T) {
	opener, program, target := setup(t, geometry.TriangleShaderSource)

	p, err := Build(opener.Device, program, WithSurface(target))
	require.NoError(t, err)
	require.Len(t, opener.Device.Pipelines, 1)

	desc := opener.Device.Pipelines[0].Desc
	assert.Equal(t, "vertex_main", desc.VertexEntryPoint)
	assert.Equal(t, "fragment_main", desc.FragmentEntryPoint)
	assert.Equal(t, []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm}, desc.Targets)
	assert.Equal(t, []backend.VertexBufferLayout{geometry.Layout()}, desc.Buffers)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Topology)
	assert.Equal(t, wgpu.FrontFaceCCW, desc.FrontFace)
	assert.Equal(t, wgpu.CullModeNone, desc.CullMode)
	require.NotNil(t, desc.DepthStencil)
	assert.Equal(t, backend.DepthStencilState{
		Format:            wgpu.TextureFormatDepth24PlusStencil8,
		DepthWriteEnabled: true,
		DepthCompare:      wgpu.CompareFunctionLess,
	}, *desc.DepthStencil)

	assert.Equal(t, "triangle Render Pipeline", p.Label())
	assert.Equal(t, *desc.DepthStencil, p.DepthStencil())
	assert.Same(t, opener.Device.Pipelines[0], p.RenderPipeline())

	p.Release()
	assert.True(t, opener.Device.Pipelines[0].Released)
}

func TestBuildRefusesFailedProgram(t *testing.T) {
	opener, program, target := setup(t, "fn broken(")
	require.False(t, program.Compiled())

	_, err := Build(opener.Device, program, WithSurface(target))
	assert.ErrorIs(t, err, ErrShaderNotCompiled)
	assert.ErrorIs(t, err, shader.ErrCompilation)
	assert.Empty(t, opener.Device.Pipelines)

	_, err = Build(opener.Device, nil)
	assert.ErrorIs(t, err, ErrShaderNotCompiled)
}

func TestBuildFormatMismatch(t *testing.T) {
	opener, program, target := setup(t, geometry.TriangleShaderSource)

	_, err := Build(opener.Device, program,
		WithSurface(target),
		WithFragmentTargets(wgpu.TextureFormatRGBA8Unorm),
	)
	assert.ErrorIs(t, err, ErrFormatMismatch)

	_, err = Build(opener.Device, program,
		WithSurface(target),
		WithDepthStencil(backend.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		}),
	)
	assert.ErrorIs(t, err, ErrFormatMismatch)
	assert.Empty(t, opener.Device.Pipelines)
}

func TestBuildWithoutTarget(t *testing.T) {
	opener, program, _ := setup(t, geometry.TriangleShaderSource)

	_, err := Build(opener.Device, program)
	assert.ErrorIs(t, err, ErrMissingTarget)

	p, err := Build(opener.Device, program, WithFragmentTargets(wgpu.TextureFormatRGBA8Unorm))
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatDepth24PlusStencil8, p.DepthStencil().Format)
}

func TestBuildLayoutMismatch(t *testing.T) {
	opener, program, target := setup(t, geometry.TriangleShaderSource)

	bad := geometry.Layout()
	bad.Attributes[1].Offset = 8
	_, err := Build(opener.Device, program, WithSurface(target), WithVertexLayout(bad, 4))
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	moved := geometry.Layout()
	moved.Attributes[1].ShaderLocation = 2
	_, err = Build(opener.Device, program, WithSurface(target), WithVertexLayout(moved, 4))
	assert.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Empty(t, opener.Device.Pipelines)
}

func TestBuildShaderInputFormatMismatch(t *testing.T) {
	src := strings.Replace(geometry.TriangleShaderSource, "@location(1) color: vec4<f32>,\n};\n\nstruct VertexOutput", "@location(1) color: vec3<f32>,\n};\n\nstruct VertexOutput", 1)
	src = strings.Replace(src, "output.color = input.color;", "output.color = vec4<f32>(input.color, 1.0);", 1)
	opener, program, target := setup(t, src)
	require.True(t, program.Compiled(), "diagnostics: %v", program.Diagnostics())

	_, err := Build(opener.Device, program, WithSurface(target))
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestBuildDeviceError(t *testing.T) {
	opener, program, target := setup(t, geometry.TriangleShaderSource)
	rejected := errors.New("incompatible entry point")
	opener.Device.PipelineErr = rejected

	_, err := Build(opener.Device, program, WithSurface(target), WithLabel("Rejected"))
	assert.ErrorIs(t, err, ErrCompile)
	assert.ErrorIs(t, err, rejected)
	assert.Contains(t, err.Error(), "Rejected")
}

func TestBuildOptions(t *testing.T) {
	opener, program, target := setup(t, geometry.TriangleShaderSource)

	p, err := Build(opener.Device, program,
		WithSurface(target),
		WithCullMode(wgpu.CullModeBack),
		WithFrontFace(wgpu.FrontFaceCW),
		WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		WithDepthWriteEnabled(false),
		WithDepthTestEnabled(false),
	)
	require.NoError(t, err)
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, p.Topology())
	assert.False(t, p.DepthStencil().DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionAlways, p.DepthStencil().DepthCompare)
}
