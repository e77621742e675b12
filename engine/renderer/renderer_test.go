package renderer

import (
	"errors"
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

type drawable struct{ w, h int }

func (d drawable) Width() int  { return d.w }
func (d drawable) Height() int { return d.h }

func renderOneFrame(t *testing.T, r Renderer) {
	t.Helper()
	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCall())
	require.NoError(t, r.EndFrame())
	r.Present()
}

func TestNewRendererSetupOrder(t *testing.T) {
	opener := fakegpu.NewOpener()

	r, err := NewRenderer(opener, drawable{64, 64}, geometry.TriangleShaderSource)
	require.NoError(t, err)
	defer r.Release()

	assert.Equal(t, []string{
		"create-shader-module triangle",
		"create-buffer triangle Vertex Buffer",
		"configure-surface 64x64",
		"create-texture Surface Depth Texture",
		"create-render-pipeline triangle Render Pipeline",
	}, opener.Journal.Events())

	require.Len(t, opener.Opened, 1)
	assert.Equal(t, wgpu.PowerPreferenceHighPerformance, opener.Opened[0].PowerPreference)
	assert.False(t, opener.Opened[0].ForceFallbackAdapter)
	assert.True(t, r.Program().Compiled())
	assert.True(t, r.Geometry().Finalized())
	assert.EqualValues(t, 3, r.Geometry().VertexCount())
	assert.Equal(t, DefaultClearColor, r.ClearColor())
}

func TestRendererFrameEncoding(t *testing.T) {
	opener := fakegpu.NewOpener()
	r, err := NewRenderer(opener, drawable{64, 64}, geometry.TriangleShaderSource)
	require.NoError(t, err)
	defer r.Release()
	opener.Journal.Reset()

	renderOneFrame(t, r)

	assert.Equal(t, []string{
		"acquire",
		"begin-render-pass",
		"set-pipeline",
		"set-vertex-buffer 0",
		"draw 3 1 0 0",
		"end-render-pass",
		"submit",
		"present",
	}, opener.Journal.Events())

	require.Len(t, opener.Device.Submissions, 1)
	pass := opener.Device.Submissions[0].Passes[0]
	require.Len(t, pass.Desc.ColorAttachments, 1)
	color := pass.Desc.ColorAttachments[0]
	assert.Equal(t, wgpu.LoadOpClear, color.LoadOp)
	assert.Equal(t, wgpu.StoreOpStore, color.StoreOp)
	assert.Equal(t, DefaultClearColor, color.ClearValue)

	ds := pass.Desc.DepthStencilAttachment
	require.NotNil(t, ds)
	assert.Equal(t, wgpu.LoadOpClear, ds.DepthLoadOp)
	assert.Equal(t, wgpu.StoreOpStore, ds.DepthStoreOp)
	assert.EqualValues(t, 1.0, ds.DepthClearValue)
	assert.Equal(t, wgpu.LoadOpClear, ds.StencilLoadOp)
	assert.Equal(t, wgpu.StoreOpStore, ds.StencilStoreOp)
	assert.EqualValues(t, 0, ds.StencilClearValue)
}

func TestRendererDrawsInterpolatedTriangle(t *testing.T) {
	opener := fakegpu.NewOpener()
	r, err := NewRenderer(opener, drawable{64, 64}, geometry.TriangleShaderSource)
	require.NoError(t, err)
	defer r.Release()

	renderOneFrame(t, r)

	img := opener.Surface.LastPresented()
	require.NotNil(t, img)

	corner := img.Pixel(0, 0)
	assert.InDelta(t, 0.3, corner.R, 1e-6)
	assert.InDelta(t, 0.3, corner.G, 1e-6)
	assert.InDelta(t, 0.3, corner.B, 1e-6)

	// The center sits halfway up the triangle, so blue carries about half the weight.
	center := img.Pixel(32, 32)
	assert.InDelta(t, 0.25, center.R, 0.05)
	assert.InDelta(t, 0.25, center.G, 0.05)
	assert.InDelta(t, 0.5, center.B, 0.05)
	assert.InDelta(t, 1.0, center.A, 1e-6)

	// Near each corner the matching vertex color dominates.
	assert.Greater(t, img.Pixel(60, 62).R, 0.8)
	assert.Greater(t, img.Pixel(3, 62).G, 0.8)
	assert.Greater(t, img.Pixel(32, 2).B, 0.8)

	depth := opener.Device.Textures[0]
	assert.InDelta(t, 0.0, depth.Depth(32, 32), 1e-6)
	assert.InDelta(t, 1.0, depth.Depth(0, 0), 1e-6)
	assert.EqualValues(t, 0, depth.Stencil(32, 32))
}

func TestRendererDepthTestKeepsNearest(t *testing.T) {
	quad := func(z float32, c [4]float32) []geometry.Vertex {
		return []geometry.Vertex{
			{Position: [4]float32{1, -1, z, 1}, Color: c},
			{Position: [4]float32{-1, -1, z, 1}, Color: c},
			{Position: [4]float32{0, 1, z, 1}, Color: c},
		}
	}
	red := [4]float32{1, 0, 0, 1}
	blue := [4]float32{0, 0, 1, 1}

	tests := []struct {
		name     string
		vertices []geometry.Vertex
	}{
		{"near drawn last", append(quad(0.5, red), quad(0.2, blue)...)},
		{"near drawn first", append(quad(0.2, blue), quad(0.5, red)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := fakegpu.NewOpener()
			r, err := NewRenderer(opener, drawable{32, 32}, geometry.TriangleShaderSource, WithVertices(tt.vertices))
			require.NoError(t, err)
			defer r.Release()

			renderOneFrame(t, r)

			px := opener.Surface.LastPresented().Pixel(16, 16)
			assert.InDelta(t, 0.0, px.R, 1e-6)
			assert.InDelta(t, 1.0, px.B, 1e-6)
			assert.InDelta(t, 0.2, opener.Device.Textures[0].Depth(16, 16), 1e-6)
		})
	}
}

func TestNewRendererSetupFailures(t *testing.T) {
	brokenShader := "@vertex fn vertex_main( -> {"

	tests := []struct {
		name   string
		source string
		setup  func(o *fakegpu.Opener)
		size   drawable
		stage  Stage
		kind   ErrorKind
	}{
		{
			name:   "no adapter",
			source: geometry.TriangleShaderSource,
			setup:  func(o *fakegpu.Opener) { o.Unsupported = true },
			size:   drawable{8, 8},
			stage:  StageDevice,
			kind:   KindEnvironmental,
		},
		{
			name:   "shader does not compile",
			source: brokenShader,
			setup:  func(o *fakegpu.Opener) {},
			size:   drawable{8, 8},
			stage:  StageShader,
			kind:   KindCompilation,
		},
		{
			name:   "buffer allocation fails",
			source: geometry.TriangleShaderSource,
			setup:  func(o *fakegpu.Opener) { o.Device.BufferErr = errors.New("out of memory") },
			size:   drawable{8, 8},
			stage:  StageGeometry,
			kind:   KindConstruction,
		},
		{
			name:   "zero sized drawable",
			source: geometry.TriangleShaderSource,
			setup:  func(o *fakegpu.Opener) {},
			size:   drawable{0, 8},
			stage:  StageSurface,
			kind:   KindConstruction,
		},
		{
			name:   "pipeline rejected",
			source: geometry.TriangleShaderSource,
			setup:  func(o *fakegpu.Opener) { o.Device.PipelineErr = errors.New("invalid pipeline") },
			size:   drawable{8, 8},
			stage:  StagePipeline,
			kind:   KindConstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := fakegpu.NewOpener()
			tt.setup(opener)

			r, err := NewRenderer(opener, tt.size, tt.source)
			assert.Nil(t, r)

			var setupErr *SetupError
			require.ErrorAs(t, err, &setupErr)
			assert.Equal(t, tt.stage, setupErr.Stage)
			assert.Equal(t, tt.kind, setupErr.Kind())
			assert.Contains(t, err.Error(), tt.stage.String())

			if tt.stage == StageDevice {
				assert.ErrorIs(t, err, backend.ErrUnsupported)
				return
			}
			assert.True(t, opener.Device.Released)
			assert.True(t, opener.Surface.Released)
			for _, b := range opener.Device.Buffers {
				assert.True(t, b.Released)
			}
			for _, m := range opener.Device.Modules {
				assert.True(t, m.Released)
			}
			for _, tex := range opener.Device.Textures {
				assert.True(t, tex.Released)
			}
		})
	}
}

func TestNewRendererCompilationErrorSkipsLaterStages(t *testing.T) {
	opener := fakegpu.NewOpener()

	_, err := NewRenderer(opener, drawable{8, 8}, "fn broken( {")

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.ErrorIs(t, err, shader.ErrCompilation)
	assert.NotEmpty(t, setupErr.Diagnostics.Errors())
	assert.Empty(t, opener.Device.Modules)
	assert.Empty(t, opener.Device.Buffers)
	assert.Empty(t, opener.Device.Pipelines)
	assert.Nil(t, opener.Surface.Config)
}

func TestRendererOptions(t *testing.T) {
	opener := fakegpu.NewOpener(wgpu.TextureFormatRGBA8Unorm)
	clear := wgpu.Color{R: 0, G: 0, B: 0, A: 1}

	r, err := NewRenderer(opener, drawable{16, 16}, geometry.TriangleShaderSource,
		WithForceSoftwareRenderer(true),
		WithPowerPreference(wgpu.PowerPreferenceLowPower),
		WithPresentMode(surface.PresentModeUncapped),
		WithDepthFormat(wgpu.TextureFormatDepth32Float),
		WithClearColor(clear),
		WithShaderKey("custom"),
	)
	require.NoError(t, err)
	defer r.Release()

	require.Len(t, opener.Opened, 1)
	assert.True(t, opener.Opened[0].ForceFallbackAdapter)
	assert.Equal(t, wgpu.PowerPreferenceLowPower, opener.Opened[0].PowerPreference)
	assert.Equal(t, wgpu.PresentModeImmediate, opener.Surface.Config.PresentMode)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, r.Target().Format())
	assert.Equal(t, wgpu.TextureFormatDepth32Float, r.Target().DepthFormat())
	assert.Equal(t, wgpu.TextureFormatDepth32Float, r.Pipeline().DepthStencil().Format)
	assert.Equal(t, clear, r.ClearColor())
	assert.Equal(t, "custom", r.Program().Key())
}

func TestRendererFrameStateErrors(t *testing.T) {
	opener := fakegpu.NewOpener()
	r, err := NewRenderer(opener, drawable{8, 8}, geometry.TriangleShaderSource)
	require.NoError(t, err)

	assert.ErrorIs(t, r.DrawCall(), ErrNoFrame)
	assert.ErrorIs(t, r.EndFrame(), ErrNoFrame)

	require.NoError(t, r.BeginFrame())
	assert.ErrorIs(t, r.BeginFrame(), ErrFrameInProgress)
	require.NoError(t, r.DrawCall())
	require.NoError(t, r.EndFrame())
	assert.ErrorIs(t, r.BeginFrame(), ErrFrameInProgress)
	r.Present()
	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCall())
	require.NoError(t, r.EndFrame())
	r.Present()
	assert.Len(t, opener.Surface.Presented, 2)

	r.Release()
	r.Release()
	assert.ErrorIs(t, r.BeginFrame(), ErrReleased)
	assert.True(t, opener.Device.Released)
	assert.True(t, opener.Device.Pipelines[0].Released)
}

func TestRendererAcquireFailureEncodesNothing(t *testing.T) {
	opener := fakegpu.NewOpener()
	r, err := NewRenderer(opener, drawable{8, 8}, geometry.TriangleShaderSource)
	require.NoError(t, err)
	defer r.Release()

	outdated := errors.New("surface outdated")
	opener.Surface.AcquireErrs = []error{outdated}
	opener.Journal.Reset()

	err = r.BeginFrame()
	assert.ErrorIs(t, err, ErrAcquire)
	assert.ErrorIs(t, err, outdated)
	assert.Equal(t, []string{"acquire-failed"}, opener.Journal.Events())
	assert.ErrorIs(t, r.DrawCall(), ErrNoFrame)

	renderOneFrame(t, r)
	assert.Len(t, opener.Surface.Presented, 1)
}

func TestRendererEncoderFailureIsNotAcquisition(t *testing.T) {
	opener := fakegpu.NewOpener()
	r, err := NewRenderer(opener, drawable{8, 8}, geometry.TriangleShaderSource)
	require.NoError(t, err)
	defer r.Release()

	lost := errors.New("device lost")
	opener.Device.EncoderErr = lost

	err = r.BeginFrame()
	assert.ErrorIs(t, err, lost)
	assert.NotErrorIs(t, err, ErrAcquire)
	require.Len(t, opener.Surface.Acquired, 1)
	assert.True(t, opener.Surface.Acquired[0].Released)

	opener.Device.EncoderErr = nil
	renderOneFrame(t, r)
	assert.Len(t, opener.Surface.Presented, 1)
}

func TestSetupErrorStrings(t *testing.T) {
	assert.Equal(t, "pipeline", StagePipeline.String())
	assert.Equal(t, "Stage(9)", Stage(9).String())
	assert.Equal(t, "compilation", KindCompilation.String())
	assert.Equal(t, "ErrorKind(7)", ErrorKind(7).String())

	inner := errors.New("boom")
	err := &SetupError{Stage: StageGeometry, Err: inner}
	assert.Equal(t, "renderer setup failed at geometry stage: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
