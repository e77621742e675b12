package window

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowOptions(t *testing.T) {
	w := newEngineWindow(WithTitle("triangle"), WithWidth(1024), WithHeight(768), WithResizable(true))

	assert.Equal(t, "triangle", w.title)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
	assert.True(t, w.resizable)
}

func TestWindowDefaults(t *testing.T) {
	w := newEngineWindow()

	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.False(t, w.resizable)
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow()

	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.False(t, w.NextFrame(context.Background()))
	assert.ErrorIs(t, w.Close(), ErrNotInitialized)

	// Returns immediately instead of blocking on an absent window.
	w.ProcessMessages(context.Background())
}
