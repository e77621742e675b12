package surface

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-triangle/internal/fakegpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureDefaults(t *testing.T) {
	opener := fakegpu.NewOpener(wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm)

	target, err := Configure(opener.Device, opener.Surface, 640, 480)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, target.Format())
	assert.Equal(t, wgpu.TextureFormatDepth24PlusStencil8, target.DepthFormat())
	assert.Equal(t, PresentModeVSync, target.PresentMode())

	cfg := opener.Surface.Config
	require.NotNil(t, cfg)
	assert.Equal(t, wgpu.PresentModeFifo, cfg.PresentMode)
	assert.EqualValues(t, 640, cfg.Width)
	assert.EqualValues(t, 480, cfg.Height)
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, cfg.Usage)

	require.Len(t, opener.Device.Textures, 1)
	depth := opener.Device.Textures[0]
	assert.EqualValues(t, 640, depth.Width())
	assert.EqualValues(t, 480, depth.Height())
	assert.Equal(t, wgpu.TextureFormatDepth24PlusStencil8, depth.Format())
	assert.NotNil(t, target.DepthView())
}

func TestConfigureFallsBackToFirstFormat(t *testing.T) {
	opener := fakegpu.NewOpener(wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatRGBA8Unorm)

	target, err := Configure(opener.Device, opener.Surface, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, target.Format())
}

func TestConfigureRequestedFormat(t *testing.T) {
	opener := fakegpu.NewOpener(wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm)

	target, err := Configure(opener.Device, opener.Surface, 8, 8,
		WithFormat(wgpu.TextureFormatRGBA8Unorm),
		WithDepthFormat(wgpu.TextureFormatDepth32Float),
		WithPresentMode(PresentModeUncapped),
	)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, target.Format())
	assert.Equal(t, wgpu.TextureFormatDepth32Float, target.DepthFormat())
	assert.Equal(t, wgpu.PresentModeImmediate, opener.Surface.Config.PresentMode)

	_, err = Configure(opener.Device, opener.Surface, 8, 8, WithFormat(wgpu.TextureFormatRGBA16Float))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConfigureInvalidSize(t *testing.T) {
	for _, size := range [][2]int{{0, 480}, {640, 0}, {-1, 10}} {
		opener := fakegpu.NewOpener()
		_, err := Configure(opener.Device, opener.Surface, size[0], size[1])
		assert.ErrorIs(t, err, ErrInvalidSize)
		assert.Nil(t, opener.Surface.Config)
		assert.Empty(t, opener.Device.Textures)
	}
}

func TestConfigureNoFormats(t *testing.T) {
	opener := fakegpu.NewOpener()
	opener.Surface.SupportedFormats = nil
	_, err := Configure(opener.Device, opener.Surface, 8, 8)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAcquirePresent(t *testing.T) {
	opener := fakegpu.NewOpener()
	target, err := Configure(opener.Device, opener.Surface, 4, 4)
	require.NoError(t, err)

	view, err := target.Acquire()
	require.NoError(t, err)
	require.NotNil(t, view)

	_, err = target.Acquire()
	assert.ErrorIs(t, err, ErrFrameInFlight)

	target.Present()
	require.Len(t, opener.Surface.Presented, 1)
	assert.True(t, opener.Surface.Presented[0].Released)
	assert.True(t, view.(*fakegpu.TextureView).Released)

	target.Present()
	assert.Len(t, opener.Surface.Presented, 1)

	_, err = target.Acquire()
	require.NoError(t, err)
	target.Discard()
	assert.Len(t, opener.Surface.Presented, 1)
	_, err = target.Acquire()
	assert.NoError(t, err)
}

func TestAcquireFailure(t *testing.T) {
	opener := fakegpu.NewOpener()
	target, err := Configure(opener.Device, opener.Surface, 4, 4)
	require.NoError(t, err)

	lost := errors.New("surface lost")
	opener.Surface.AcquireErrs = []error{lost}
	_, err = target.Acquire()
	assert.ErrorIs(t, err, lost)

	_, err = target.Acquire()
	assert.NoError(t, err)
}

func TestRelease(t *testing.T) {
	opener := fakegpu.NewOpener()
	target, err := Configure(opener.Device, opener.Surface, 4, 4)
	require.NoError(t, err)

	target.Release()
	assert.True(t, opener.Device.Textures[0].Released)
	target.Release()
}

func TestParsePresentMode(t *testing.T) {
	for in, want := range map[string]PresentMode{
		"":         PresentModeVSync,
		"vsync":    PresentModeVSync,
		"VSync":    PresentModeVSync,
		"uncapped": PresentModeUncapped,
	} {
		got, err := ParsePresentMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePresentMode("mailbox")
	assert.Error(t, err)
}
