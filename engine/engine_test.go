package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-triangle/internal/fakegpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawable struct{ w, h int }

func (d drawable) Width() int  { return d.w }
func (d drawable) Height() int { return d.h }

// countingScheduler grants a fixed number of frames, then reports the host as closed.
type countingScheduler struct {
	frames int
	calls  int
	onTick func(n int)
}

func (s *countingScheduler) NextFrame(ctx context.Context) bool {
	if ctx.Err() != nil || s.calls >= s.frames {
		return false
	}
	s.calls++
	if s.onTick != nil {
		s.onTick(s.calls)
	}
	return true
}

func newTestRenderer(t *testing.T) (renderer.Renderer, *fakegpu.Opener) {
	t.Helper()
	opener := fakegpu.NewOpener()
	r, err := renderer.NewRenderer(opener, drawable{16, 16}, geometry.TriangleShaderSource)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	opener.Journal.Reset()
	return r, opener
}

func TestRunRendersOneDrawPerTick(t *testing.T) {
	r, opener := newTestRenderer(t)
	sched := &countingScheduler{frames: 3}

	e := NewEngine(WithRenderer(r), WithScheduler(sched))
	require.NoError(t, e.Run(context.Background()))

	frame := []string{
		"acquire",
		"begin-render-pass",
		"set-pipeline",
		"set-vertex-buffer 0",
		"draw 3 1 0 0",
		"end-render-pass",
		"submit",
		"present",
	}
	var want []string
	for i := 0; i < 3; i++ {
		want = append(want, frame...)
	}
	assert.Equal(t, want, opener.Journal.Events())
	assert.Equal(t, Stats{Rendered: 3}, e.Stats())
	assert.Equal(t, FrameIdle, e.State())
	assert.Len(t, opener.Device.Draws(), 3)
}

func TestRunDropsFramesWithoutImage(t *testing.T) {
	r, opener := newTestRenderer(t)
	opener.Surface.AcquireErrs = []error{nil, errors.New("timeout"), nil, errors.New("outdated")}

	var states []FrameState
	e := NewEngine(
		WithRenderer(r),
		WithScheduler(&countingScheduler{frames: 5}),
		WithFrameObserver(func(s FrameState) { states = append(states, s) }),
	)
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, Stats{Rendered: 3, Dropped: 2}, e.Stats())
	assert.Len(t, opener.Device.Submissions, 3)
	assert.Len(t, opener.Surface.Presented, 3)

	full := []FrameState{FrameAcquireTarget, FrameEncodePass, FrameSubmit, FramePresent, FrameIdle}
	dropped := []FrameState{FrameAcquireTarget, FrameIdle}
	var want []FrameState
	for _, f := range [][]FrameState{full, dropped, full, dropped, full} {
		want = append(want, f...)
	}
	assert.Equal(t, want, states)
}

func TestRunStopsOnQuit(t *testing.T) {
	r, _ := newTestRenderer(t)
	sched := &countingScheduler{frames: 100}
	e := NewEngine(WithRenderer(r), WithScheduler(sched))
	sched.onTick = func(n int) {
		if n == 2 {
			e.Quit()
			e.Quit()
		}
	}

	require.NoError(t, e.Run(context.Background()))
	assert.EqualValues(t, 2, e.Stats().Rendered)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	r, _ := newTestRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	sched := &countingScheduler{frames: 100, onTick: func(n int) {
		if n == 4 {
			cancel()
		}
	}}
	e := NewEngine(WithRenderer(r), WithScheduler(sched))

	require.NoError(t, e.Run(ctx))
	assert.EqualValues(t, 4, e.Stats().Rendered)
}

func TestRunRequiresRendererAndScheduler(t *testing.T) {
	assert.ErrorIs(t, NewEngine().Run(context.Background()), ErrNoRenderer)

	r, _ := newTestRenderer(t)
	assert.ErrorIs(t, NewEngine(WithRenderer(r)).Run(context.Background()), ErrNoScheduler)
}

func TestRunStopsAfterRelease(t *testing.T) {
	r, _ := newTestRenderer(t)
	sched := &countingScheduler{frames: 2}
	e := NewEngine(WithRenderer(r), WithScheduler(sched))
	r.Release()

	err := e.Run(context.Background())
	require.ErrorIs(t, err, renderer.ErrReleased)
	assert.Equal(t, Stats{}, e.Stats())
	assert.Equal(t, 1, sched.calls)
	assert.Equal(t, FrameIdle, e.State())
}

func TestRunStopsOnEncoderFailure(t *testing.T) {
	r, opener := newTestRenderer(t)
	lost := errors.New("device lost")
	opener.Device.EncoderErr = lost
	e := NewEngine(WithRenderer(r), WithScheduler(&countingScheduler{frames: 50}))

	err := e.Run(context.Background())
	require.ErrorIs(t, err, lost)
	assert.NotErrorIs(t, err, renderer.ErrAcquire)
	assert.Equal(t, Stats{}, e.Stats())

	// The loop stops on the first tick and hands the acquired image back unpresented.
	require.Len(t, opener.Surface.Acquired, 1)
	assert.True(t, opener.Surface.Acquired[0].Released)
	assert.Empty(t, opener.Surface.Presented)
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(WithProfiling(true), WithRenderFrameLimit(50)).(*engine)
	assert.True(t, e.profilingEnabled)
	assert.NotNil(t, e.profiler)
	assert.EqualValues(t, 20_000_000, e.renderFrameLimit)

	e.DisableProfiler()
	assert.False(t, e.profilingEnabled)
	e.EnableProfiler()
	assert.True(t, e.profilingEnabled)
	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit)
}

func TestFrameStateString(t *testing.T) {
	assert.Equal(t, "acquire-target", FrameAcquireTarget.String())
	assert.Equal(t, "present", FramePresent.String())
	assert.Equal(t, "FrameState(42)", FrameState(42).String())
}
