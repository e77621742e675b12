package device

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnsupported is reported when the host exposes no GPU adapter or device.
// Callers treat it as environmental and stop setup without attempting later stages.
var ErrUnsupported = backend.ErrUnsupported

// Context is the negotiated GPU device together with its submission queue and the host surface
// bound to the same adapter. It is the root that every other GPU resource is created from.
type Context interface {
	// Device returns the logical device used to create all other resources.
	Device() backend.Device

	// Surface returns the presentable surface bound to the adapter the device came from.
	Surface() backend.Surface

	// Label returns the debug label the device was requested with.
	Label() string

	// Release releases the surface and then the device. Safe to call more than once.
	Release()
}

type deviceContext struct {
	label                string
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference

	device   backend.Device
	surface  backend.Surface
	released bool
}

var _ Context = &deviceContext{}

// Acquire negotiates an adapter and a logical device through the given Opener.
// The first successful device is used; there is no retry.
//
// Parameters:
//   - opener: the host GPU entry point
//   - options: ContextBuilderOption functions that configure the adapter request
//
// Returns:
//   - Context: the acquired device context
//   - error: an error wrapping ErrUnsupported if the host has no GPU support, otherwise nil
func Acquire(opener backend.Opener, options ...ContextBuilderOption) (Context, error) {
	if opener == nil {
		return nil, fmt.Errorf("no GPU entry point: %w", ErrUnsupported)
	}

	c := &deviceContext{
		label:           "Main Device",
		powerPreference: wgpu.PowerPreferenceHighPerformance,
	}
	for _, opt := range options {
		opt(c)
	}

	dev, surf, err := opener.Open(backend.OpenOptions{
		Label:                c.label,
		ForceFallbackAdapter: c.forceFallbackAdapter,
		PowerPreference:      c.powerPreference,
	})
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			err = errors.Join(ErrUnsupported, err)
		}
		return nil, err
	}
	if dev == nil || surf == nil {
		if dev != nil {
			dev.Release()
		}
		if surf != nil {
			surf.Release()
		}
		return nil, fmt.Errorf("host returned no device or surface: %w", ErrUnsupported)
	}

	c.device = dev
	c.surface = surf
	common.Logger().Info("gpu device acquired",
		"label", c.label,
		"fallback", c.forceFallbackAdapter,
	)
	return c, nil
}

func (c *deviceContext) Device() backend.Device {
	return c.device
}

func (c *deviceContext) Surface() backend.Surface {
	return c.surface
}

func (c *deviceContext) Label() string {
	return c.label
}

func (c *deviceContext) Release() {
	if c.released {
		return
	}
	c.released = true
	c.surface.Release()
	c.device.Release()
}
