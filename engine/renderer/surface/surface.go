package surface

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrInvalidSize is returned when the drawable area has a zero or negative dimension.
	ErrInvalidSize = errors.New("surface size must be positive in both dimensions")

	// ErrUnsupportedFormat is returned when the requested color format is not offered by the surface.
	ErrUnsupportedFormat = errors.New("surface does not support the requested format")

	// ErrFrameInFlight is returned by Acquire while a previously acquired image has not been presented.
	ErrFrameInFlight = errors.New("previous frame surface not yet presented")
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode converts "vsync" or "uncapped" (case insensitive) into a PresentMode.
//
// Parameters:
//   - s: the present mode name
//
// Returns:
//   - PresentMode: the parsed mode
//   - error: an error if the name is not recognized
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vsync":
		return PresentModeVSync, nil
	case "uncapped":
		return PresentModeUncapped, nil
	}
	return PresentModeVSync, fmt.Errorf("unknown present mode %q", s)
}

func (m PresentMode) String() string {
	if m == PresentModeUncapped {
		return "uncapped"
	}
	return "vsync"
}

func (m PresentMode) native() wgpu.PresentMode {
	if m == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

// target is the implementation of the Target interface.
type target struct {
	format      wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	presentMode PresentMode
	label       string

	surface      backend.Surface
	width        uint32
	height       uint32
	depthTexture backend.Texture
	depthView    backend.TextureView

	frameTexture backend.Texture
	frameView    backend.TextureView
}

// Target is a configured presentable surface together with the depth attachment sized to it.
type Target interface {
	// Format returns the negotiated color format of the presentable images.
	Format() wgpu.TextureFormat

	// DepthFormat returns the format of the depth attachment.
	DepthFormat() wgpu.TextureFormat

	// Width returns the surface width in pixels.
	Width() uint32

	// Height returns the surface height in pixels.
	Height() uint32

	// PresentMode returns the mode the surface was configured with.
	PresentMode() PresentMode

	// DepthView returns the view of the depth attachment. It has the same dimensions as the surface.
	DepthView() backend.TextureView

	// Acquire obtains the next presentable image and returns a view of it for the color attachment.
	// The image is held until Present or Discard.
	//
	// Returns:
	//   - backend.TextureView: the view to render into
	//   - error: ErrFrameInFlight if an image is already held, or the surface's acquisition error
	Acquire() (backend.TextureView, error)

	// Present queues the held image for display and releases it. A no-op when nothing is held.
	Present()

	// Discard releases the held image without presenting it. A no-op when nothing is held.
	Discard()

	// Release releases the depth attachment and any held image.
	Release()
}

var _ Target = &target{}

// Configure binds the surface to the device with the negotiated color format, the drawable size and
// the present mode, then allocates a depth attachment of the same size.
//
// Parameters:
//   - dev: the device that renders into the surface
//   - surf: the host surface
//   - width: the drawable width in pixels
//   - height: the drawable height in pixels
//   - options: TargetBuilderOption functions that configure the target
//
// Returns:
//   - Target: the configured target
//   - error: ErrInvalidSize, ErrUnsupportedFormat, or the device's configuration error
func Configure(dev backend.Device, surf backend.Surface, width, height int, options ...TargetBuilderOption) (Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	t := &target{
		depthFormat: wgpu.TextureFormatDepth24PlusStencil8,
		presentMode: PresentModeVSync,
		label:       "Surface",
		surface:     surf,
		width:       uint32(width),
		height:      uint32(height),
	}
	for _, opt := range options {
		opt(t)
	}

	format, err := negotiateFormat(surf.Formats(), t.format)
	if err != nil {
		return nil, err
	}
	t.format = format

	if err := surf.Configure(dev, backend.SurfaceConfiguration{
		Format:      t.format,
		Usage:       wgpu.TextureUsageRenderAttachment,
		Width:       t.width,
		Height:      t.height,
		PresentMode: t.presentMode.native(),
	}); err != nil {
		return nil, fmt.Errorf("failed to configure surface: %w", err)
	}

	t.depthTexture, err = dev.CreateTexture(backend.TextureDescriptor{
		Label:  t.label + " Depth Texture",
		Width:  t.width,
		Height: t.height,
		Format: t.depthFormat,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create depth texture: %w", err)
	}
	t.depthView, err = t.depthTexture.CreateView()
	if err != nil {
		t.depthTexture.Release()
		return nil, fmt.Errorf("failed to create depth texture view: %w", err)
	}

	common.Logger().Info("surface configured",
		"width", t.width,
		"height", t.height,
		"format", t.format,
		"depth_format", t.depthFormat,
		"present_mode", t.presentMode.String(),
	)
	return t, nil
}

// negotiateFormat picks the requested format if the surface offers it, otherwise BGRA8Unorm if offered,
// otherwise the surface's first format.
func negotiateFormat(available []wgpu.TextureFormat, requested wgpu.TextureFormat) (wgpu.TextureFormat, error) {
	if len(available) == 0 {
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: surface reports no formats", ErrUnsupportedFormat)
	}
	if requested != wgpu.TextureFormatUndefined {
		if !slices.Contains(available, requested) {
			return wgpu.TextureFormatUndefined, fmt.Errorf("%w: %v", ErrUnsupportedFormat, requested)
		}
		return requested, nil
	}
	if slices.Contains(available, wgpu.TextureFormatBGRA8Unorm) {
		return wgpu.TextureFormatBGRA8Unorm, nil
	}
	return available[0], nil
}

func (t *target) Format() wgpu.TextureFormat {
	return t.format
}

func (t *target) DepthFormat() wgpu.TextureFormat {
	return t.depthFormat
}

func (t *target) Width() uint32 {
	return t.width
}

func (t *target) Height() uint32 {
	return t.height
}

func (t *target) PresentMode() PresentMode {
	return t.presentMode
}

func (t *target) DepthView() backend.TextureView {
	return t.depthView
}

func (t *target) Acquire() (backend.TextureView, error) {
	if t.frameTexture != nil {
		return nil, ErrFrameInFlight
	}

	tex, err := t.surface.CurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView()
	if err != nil {
		tex.Release()
		return nil, err
	}

	t.frameTexture = tex
	t.frameView = view
	return view, nil
}

func (t *target) Present() {
	if t.frameTexture == nil {
		return
	}
	t.surface.Present()
	t.Discard()
}

func (t *target) Discard() {
	if t.frameView != nil {
		t.frameView.Release()
		t.frameView = nil
	}
	if t.frameTexture != nil {
		t.frameTexture.Release()
		t.frameTexture = nil
	}
}

func (t *target) Release() {
	t.Discard()
	if t.depthView != nil {
		t.depthView.Release()
		t.depthView = nil
	}
	if t.depthTexture != nil {
		t.depthTexture.Release()
		t.depthTexture = nil
	}
}
