package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProfilerTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := NewProfiler(WithClock(clock.now), WithLogger(logger), WithInterval(time.Second))

	for i := 0; i < 59; i++ {
		clock.advance(16 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Empty(t, buf.String())

	clock.advance(56 * time.Millisecond)
	require.True(t, p.Tick())
	out := buf.String()
	assert.Contains(t, out, "msg=profiler")
	assert.Contains(t, out, "fps=60")
	assert.Contains(t, out, "heap_mb=")
	assert.Contains(t, out, "gc_max_pause_us=")

	clock.advance(10 * time.Millisecond)
	assert.False(t, p.Tick())
}

func TestProfilerDefaults(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.now)
	assert.False(t, p.Tick())
}
