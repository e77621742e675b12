package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/profiler"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
)

var (
	// ErrNoRenderer is returned by Run when the engine was built without a renderer.
	ErrNoRenderer = errors.New("engine has no renderer")

	// ErrNoScheduler is returned by Run when the engine was built without a scheduler.
	ErrNoScheduler = errors.New("engine has no frame scheduler")

	// ErrAlreadyRunning is returned by Run when the loop is already running.
	ErrAlreadyRunning = errors.New("engine is already running")
)

// Scheduler paces the frame loop to the host's refresh.
type Scheduler interface {
	// NextFrame blocks until the host is ready for the next frame.
	//
	// Parameters:
	//   - ctx: cancelling the context ends the loop
	//
	// Returns:
	//   - bool: false when the host has closed or ctx is done, which ends the loop
	NextFrame(ctx context.Context) bool
}

// FrameState is the position of the loop within a single tick.
type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquireTarget
	FrameEncodePass
	FrameSubmit
	FramePresent
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAcquireTarget:
		return "acquire-target"
	case FrameEncodePass:
		return "encode-pass"
	case FrameSubmit:
		return "submit"
	case FramePresent:
		return "present"
	}
	return fmt.Sprintf("FrameState(%d)", int(s))
}

// Stats counts frames since the engine was created.
type Stats struct {
	// Rendered is the number of frames submitted and presented.
	Rendered uint64

	// Dropped is the number of ticks skipped because no surface image could be acquired.
	Dropped uint64
}

// engine implements the Engine interface.
// The loop runs on the calling goroutine; everything it touches is owned by that goroutine.
type engine struct {
	renderer  renderer.Renderer
	scheduler Scheduler

	running     bool
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	state    FrameState
	stats    Stats
	observer func(FrameState)
}

// Engine drives the renderer once per host refresh until the host closes or Quit is called.
type Engine interface {
	// Renderer returns the renderer the loop draws with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer, or nil if none was configured
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run executes the frame loop on the calling goroutine. Each tick acquires the next surface image,
	// encodes exactly one draw, submits it and presents it, then yields to the Scheduler.
	// A tick whose image cannot be acquired is dropped and the loop continues; any other frame
	// error ends the loop and is returned.
	//
	// Parameters:
	//   - ctx: cancelling the context stops the loop after the current tick
	//
	// Returns:
	//   - error: nil when the host closed, ctx was cancelled or Quit was called; otherwise the encoding error that stopped the loop
	Run(ctx context.Context) error

	// Quit stops the loop after the current tick.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// State returns the loop's position within the current tick.
	//
	// Returns:
	//   - FrameState: FrameIdle between ticks
	State() FrameState

	// Stats returns the rendered and dropped frame counters.
	//
	// Returns:
	//   - Stats: a copy of the counters
	Stats() Stats
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (renderer, scheduler, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
		state:       FrameIdle,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}
	return e
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

// Quit closes the quit channel. It may be called from any goroutine.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) State() FrameState {
	return e.state
}

func (e *engine) Stats() Stats {
	return e.stats
}

func (e *engine) Run(ctx context.Context) error {
	if e.renderer == nil {
		return ErrNoRenderer
	}
	if e.scheduler == nil {
		return ErrNoScheduler
	}
	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	defer func() { e.running = false }()

	logger := common.Logger()
	logger.Info("frame loop started")
	defer func() {
		logger.Info("frame loop stopped", "rendered", e.stats.Rendered, "dropped", e.stats.Dropped)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		default:
		}

		if !e.scheduler.NextFrame(ctx) {
			return nil
		}

		start := time.Now()
		if err := e.tick(); err != nil {
			return err
		}

		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// tick runs one pass of Idle, AcquireTarget, EncodePass, Submit, Present and back to Idle.
// A failed acquisition returns to Idle with the frame counted as dropped.
// Other BeginFrame errors, such as a released renderer or a lost device, are returned.
func (e *engine) tick() error {
	defer e.setState(FrameIdle)

	e.setState(FrameAcquireTarget)
	if err := e.renderer.BeginFrame(); err != nil {
		if !errors.Is(err, renderer.ErrAcquire) {
			return fmt.Errorf("failed to begin frame: %w", err)
		}
		e.stats.Dropped++
		common.Logger().Debug("frame dropped", "error", err, "dropped", e.stats.Dropped)
		return nil
	}

	e.setState(FrameEncodePass)
	if err := e.renderer.DrawCall(); err != nil {
		// The pass must still be closed before the error is reported.
		_ = e.renderer.EndFrame()
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	e.setState(FrameSubmit)
	if err := e.renderer.EndFrame(); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}

	e.setState(FramePresent)
	e.renderer.Present()
	e.stats.Rendered++
	return nil
}

func (e *engine) setState(s FrameState) {
	e.state = s
	if e.observer != nil {
		e.observer(s)
	}
}
