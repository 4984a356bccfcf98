package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/bmatthieu3/fits3"
	"github.com/bmatthieu3/fits3/cubeview/rt/app"
	"github.com/bmatthieu3/fits3/cubeview/rt/core"
	"github.com/bmatthieu3/fits3/cubeview/rt/gpu"
	"github.com/bmatthieu3/fits3/cubeview/rt/volume"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := fits3.ParseArgs(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := fits3.NewDefaultLogger(cfg.LogPrefix, cfg.Debug)
	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg fits3.Config, log fits3.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial, err := loadInitialCube(ctx, cfg)
	if err != nil {
		return err
	}
	cube, err := volume.ParseCube(initial.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", initial.Source, err)
	}
	log.Infof("cube %q %s (BITPIX %d) from %s", cube.Object, cube.Extents, cube.Bitpix, initial.Source)

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	gctx, err := gpu.NewContext(window)
	if err != nil {
		return err
	}
	defer gctx.Release()

	uniforms, err := gpu.NewUniformBuffers(gctx.Device)
	if err != nil {
		return err
	}
	defer uniforms.Release()

	renderer, err := gpu.NewRenderer(gctx.Device, gctx.Config.Format, uniforms)
	if err != nil {
		return err
	}
	defer renderer.Release()

	lo, hi, fixed := cfg.Range()
	fbw, fbh := window.GetFramebufferSize()
	vis, err := app.NewVisualizer(app.Deps{
		Surface: gpu.NewPresenter(gctx, renderer),
		Writer:  uniforms,
		Binder:  renderer,
		Factory: gpu.NewCubeTextureFactory(gctx.Device, cfg.MaxTextureDimension),
		Clock:   core.SystemClock{},
		Logger:  log,
	}, app.Options{
		Width:       uint32(max(fbw, 0)),
		Height:      uint32(max(fbh, 0)),
		Perspective: cfg.Perspective,
		FixedRange:  fixed,
		Min:         lo,
		Max:         hi,
	}, cube)
	if err != nil {
		return err
	}
	defer vis.Close()

	bindInput(window, vis)
	startSources(ctx, cfg, vis.Cubes(), log)

	for !window.ShouldClose() {
		vis.Pump()
		glfw.PollEvents()
		if err := vis.Step(); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	return nil
}

// loadInitialCube reads the cube file, or downloads the URL when no file
// is configured.
func loadInitialCube(ctx context.Context, cfg fits3.Config) (app.CubeRequest, error) {
	if cfg.CubePath != "" {
		return app.ReadCubeFile(cfg.CubePath)
	}
	return app.FetchSource{URL: cfg.CubeURL}.Fetch(ctx)
}

func startSources(ctx context.Context, cfg fits3.Config, inbox *app.CubeInbox, log fits3.Logger) {
	var sources []app.Source
	if cfg.Watch {
		sources = append(sources, app.WatchSource{Path: cfg.CubePath, Log: log})
	}
	if cfg.CubePath != "" && cfg.CubeURL != "" {
		sources = append(sources, app.FetchSource{URL: cfg.CubeURL})
	}
	for _, src := range sources {
		go func(src app.Source) {
			if err := src.Run(ctx, inbox); err != nil && ctx.Err() == nil {
				log.Errorf("cube source: %v", err)
			}
		}(src)
	}
}

func bindInput(window *glfw.Window, vis *app.Visualizer) {
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		vis.Resize(uint32(max(width, 0)), uint32(max(height, 0)))
	})

	// Cursor positions arrive in screen coordinates; drags are normalised
	// against the framebuffer, so convert.
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		ww, wh := w.GetSize()
		fw, fh := w.GetFramebufferSize()
		if ww > 0 && wh > 0 {
			xpos *= float64(fw) / float64(ww)
			ypos *= float64(fh) / float64(wh)
		}
		vis.Move(xpos, ypos)
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		var b core.Button
		switch button {
		case glfw.MouseButtonLeft:
			b = core.ButtonPrimary
		case glfw.MouseButtonRight:
			b = core.ButtonSecondary
		default:
			return
		}
		switch action {
		case glfw.Press:
			vis.Press(b)
		case glfw.Release:
			vis.Release(b)
		}
	})

	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		if !focused {
			vis.Abort()
		}
	})
	window.SetCursorEnterCallback(func(w *glfw.Window, entered bool) {
		if !entered {
			vis.Abort()
		}
	})

	var windowed [4]int
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyEnter:
			if w.GetMonitor() != nil {
				w.SetMonitor(nil, windowed[0], windowed[1], windowed[2], windowed[3], 0)
				return
			}
			monitor := glfw.GetPrimaryMonitor()
			if monitor == nil {
				return
			}
			windowed[0], windowed[1] = w.GetPos()
			windowed[2], windowed[3] = w.GetSize()
			mode := monitor.GetVideoMode()
			w.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
		case glfw.KeyP:
			vis.Params().Post(app.ParamChange{Kind: app.TogglePerspective})
		case glfw.KeyR:
			vis.ResetView()
		}
	})
}
