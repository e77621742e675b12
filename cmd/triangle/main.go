// Command triangle opens a window and draws a single vertex-colored triangle with WebGPU until the
// window is closed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/config"
	"github.com/Carmen-Shannon/oxy-triangle/engine"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-triangle/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	level, _ := cfg.Level()
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	logger := common.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := cfg.Shader(geometry.TriangleShaderSource)
	if err != nil {
		logger.Error("failed to load shader", "error", err)
		return 1
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Title),
		window.WithWidth(cfg.Width),
		window.WithHeight(cfg.Height),
	)
	if err != nil {
		logger.Error("failed to create window", "error", err)
		return 1
	}
	defer win.Close()

	mode, _ := cfg.Present()
	r, err := renderer.NewRenderer(backend.NewWGPUOpener(win.SurfaceDescriptor()), win, source,
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(cfg.ForceFallbackAdapter),
		renderer.WithClearColor(wgpu.Color{
			R: cfg.ClearColor[0],
			G: cfg.ClearColor[1],
			B: cfg.ClearColor[2],
			A: cfg.ClearColor[3],
		}),
	)
	if err != nil {
		var setupErr *renderer.SetupError
		if errors.As(err, &setupErr) && setupErr.Kind() == renderer.KindEnvironmental {
			logger.Error("no usable GPU, continuing without rendering", "error", err)
			win.ProcessMessages(ctx)
			return 0
		}
		logger.Error("renderer setup failed", "error", err)
		return 1
	}
	defer r.Release()

	e := engine.NewEngine(
		engine.WithRenderer(r),
		engine.WithScheduler(win),
		engine.WithProfiling(cfg.Profiling),
	)
	if err := e.Run(ctx); err != nil {
		logger.Error("frame loop failed", "error", err)
		return 1
	}
	return 0
}
