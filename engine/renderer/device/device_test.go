package device

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-triangle/internal/fakegpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	opener := fakegpu.NewOpener()

	ctx, err := Acquire(opener,
		WithLabel("Test Device"),
		WithForceFallbackAdapter(true),
		WithPowerPreference(wgpu.PowerPreferenceLowPower),
	)
	require.NoError(t, err)
	assert.Equal(t, "Test Device", ctx.Label())
	assert.Same(t, opener.Device, ctx.Device())
	assert.Same(t, opener.Surface, ctx.Surface())

	require.Len(t, opener.Opened, 1)
	assert.Equal(t, "Test Device", opener.Opened[0].Label)
	assert.True(t, opener.Opened[0].ForceFallbackAdapter)
	assert.Equal(t, wgpu.PowerPreferenceLowPower, opener.Opened[0].PowerPreference)
}

func TestAcquireUnsupported(t *testing.T) {
	opener := fakegpu.NewOpener()
	opener.Unsupported = true

	ctx, err := Acquire(opener)
	assert.Nil(t, ctx)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

// partialOpener hands back only one half of the device and surface pair.
type partialOpener struct {
	device  *fakegpu.Device
	surface *fakegpu.Surface
}

func (o partialOpener) Open(backend.OpenOptions) (backend.Device, backend.Surface, error) {
	var dev backend.Device
	var surf backend.Surface
	if o.device != nil {
		dev = o.device
	}
	if o.surface != nil {
		surf = o.surface
	}
	return dev, surf, nil
}

func TestAcquireReleasesPartialOpen(t *testing.T) {
	t.Run("device without surface", func(t *testing.T) {
		full := fakegpu.NewOpener()
		ctx, err := Acquire(partialOpener{device: full.Device})
		require.ErrorIs(t, err, ErrUnsupported)
		assert.Nil(t, ctx)
		assert.True(t, full.Device.Released)
	})

	t.Run("surface without device", func(t *testing.T) {
		full := fakegpu.NewOpener()
		ctx, err := Acquire(partialOpener{surface: full.Surface})
		require.ErrorIs(t, err, ErrUnsupported)
		assert.Nil(t, ctx)
		assert.True(t, full.Surface.Released)
	})
}

func TestAcquireNilOpener(t *testing.T) {
	_, err := Acquire(nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReleaseIsIdempotent(t *testing.T) {
	opener := fakegpu.NewOpener()
	ctx, err := Acquire(opener)
	require.NoError(t, err)

	ctx.Release()
	ctx.Release()
	assert.True(t, opener.Device.Released)
	assert.True(t, opener.Surface.Released)
}
