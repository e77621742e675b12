package window

import (
	"context"
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNotInitialized is returned when the platform window has not been created or was already closed.
var ErrNotInitialized = errors.New("window is not initialized")

// Window is the host drawable: it owns the platform window, reports the drawable size in pixels,
// hands out the surface descriptor and paces the frame loop.
type Window interface {
	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: ErrNotInitialized if the window was never created or is already closed
	Close() error

	// NextFrame pumps pending window events and reports whether another frame should be drawn.
	// The surface's present mode does the actual pacing, so this never sleeps.
	//
	// Parameters:
	//   - ctx: a done context ends the loop
	//
	// Returns:
	//   - bool: false once the window is closed or ctx is done
	NextFrame(ctx context.Context) bool

	// ProcessMessages runs the window message loop without drawing.
	// Blocks until the window is closed or ctx is done.
	//
	// Parameters:
	//   - ctx: a done context ends the loop
	ProcessMessages(ctx context.Context)

	// Width returns the current drawable width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current drawable height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the current drawable width in pixels.
	width int

	// height is the current drawable height in pixels.
	height int

	// resizable lets the user resize the window. The surface is configured once, so it defaults to false.
	resizable bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
// Must be called from the goroutine that will run the frame loop.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:  "oxy-triangle",
		width:  800,
		height: 600,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) NextFrame(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return platformProcessMessages(w)
}

func (w *engineWindow) ProcessMessages(ctx context.Context) {
	for ctx.Err() == nil && w.IsRunning() {
		if !platformWaitMessages(w) {
			break
		}
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
