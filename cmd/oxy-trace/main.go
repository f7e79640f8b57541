// Command oxy-trace renders a scene with the progressive GPU ray tracer, either in an
// interactive window or headless to a PNG file.
//
// Usage:
//
//	oxy-trace [-config file.toml] [-scene scene.toml] [-headless -frames N] [-out image.png]
//
// In the window, drag with the left mouse button to orbit, drag with the right button to
// pan, scroll to zoom, press R to restart accumulation, P to pause animation, Space to
// step a paused animation, F to toggle the profiler and Escape to quit.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

type options struct {
	configPath string
	scenePath  string
	headless   bool
	frames     int
	outPath    string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML config file; built-in defaults when empty")
	flag.StringVar(&opts.scenePath, "scene", "", "TOML scene file; replaces the config's meshes and entities")
	flag.BoolVar(&opts.headless, "headless", false, "render off-screen without opening a window")
	flag.IntVar(&opts.frames, "frames", 64, "frames to accumulate in headless mode")
	flag.StringVar(&opts.outPath, "out", "", "write the accumulated image to this PNG file (headless only)")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("oxy-trace: %v", err)
	}
}

func run(opts options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	if opts.outPath != "" && !opts.headless {
		log.Printf("oxy-trace: -out is only written in headless mode")
	}

	// ── Scene ───────────────────────────────────────────────────────────
	s, err := loadScene(cfg, opts.scenePath)
	if err != nil {
		return err
	}
	log.Printf("oxy-trace: scene %q: %d entities, %d meshes", s.Name(), s.Count(), len(s.Meshes()))

	// ── Window + Renderer ───────────────────────────────────────────────
	var win window.Window
	width, height := cfg.Render.Width, cfg.Render.Height
	if !opts.headless {
		win, err = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		if err != nil {
			return err
		}
		width, height = win.Width(), win.Height()
	}

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win, rendererOptions(cfg)...)
	if err != nil {
		return err
	}
	defer r.Release()

	// ── Camera ──────────────────────────────────────────────────────────
	cam := newCamera(cfg.Camera, float32(width)/float32(height))

	// ── Kernel + Raytracer ──────────────────────────────────────────────
	kernelShader, err := raytracer.LoadKernelShader(cfg.Resolve(cfg.Render.Kernel))
	if err != nil {
		return err
	}
	kernel, err := r.NewKernel(kernelShader)
	if err != nil {
		return err
	}
	defer kernel.Release()

	rtOpts := []raytracer.RaytracerBuilderOption{
		raytracer.WithDevice(r),
		raytracer.WithKernel(kernel),
		raytracer.WithScene(s),
		raytracer.WithCamera(cam),
		raytracer.WithResolution(width, height),
		raytracer.WithSamplesPerPixel(cfg.Render.SamplesPerPixel),
		raytracer.WithDepth(cfg.Render.Depth),
		raytracer.WithWorkers(cfg.Render.Workers),
		raytracer.WithVerbose(cfg.Render.Verbose),
	}
	if cfg.Render.Environment != "" {
		tex := common.ImportedTexture{Name: "environment", Path: cfg.Resolve(cfg.Render.Environment)}
		env, err := tex.Decode()
		if err != nil {
			return fmt.Errorf("environment: %w", err)
		}
		rtOpts = append(rtOpts, raytracer.WithEnvironment(env))
	}
	rt, err := raytracer.NewRaytracer(rtOpts...)
	if err != nil {
		return err
	}
	defer rt.Release()

	// ── Engine ──────────────────────────────────────────────────────────
	engineOpts := []engine.EngineBuilderOption{
		engine.WithPresenter(r),
		engine.WithScene(s),
		engine.WithCamera(cam),
		engine.WithRaytracer(rt),
		engine.WithProfiling(!opts.headless),
	}
	if win != nil {
		engineOpts = append(engineOpts, engine.WithWindow(win))
	}
	eng := engine.NewEngine(engineOpts...)

	if !opts.headless {
		defer win.Close()
		return eng.Run()
	}

	img, err := eng.RenderFrames(opts.frames)
	if err != nil {
		return err
	}
	log.Printf("oxy-trace: rendered %d frames at %dx%d, %d sample layers", opts.frames, width, height, rt.SampleLayerCount())
	if opts.outPath == "" {
		return nil
	}
	return writePNG(r, img, opts.outPath)
}

// loadScene fills a scene from the -scene file when given, otherwise from the config's
// own tables, and falls back to the built-in demo scene when both are empty.
func loadScene(cfg *config.Config, scenePath string) (scene.Scene, error) {
	switch {
	case scenePath != "":
		s := scene.NewScene(scenePath)
		if err := s.LoadSceneFile(scenePath); err != nil {
			return nil, err
		}
		return s, nil
	case len(cfg.Entities) > 0:
		s := scene.NewScene("config")
		if err := s.Populate(cfg.Scene()); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return demoScene()
	}
}

func rendererOptions(cfg *config.Config) []renderer.RendererBuilderOption {
	opts := []renderer.RendererBuilderOption{
		renderer.WithForceSoftwareRenderer(cfg.Render.Software),
	}
	if cfg.Render.PresentMode == config.PresentModeUncapped {
		opts = append(opts, renderer.WithPresentMode(renderer.PresentModeUncapped))
	}
	return opts
}

func newCamera(c config.Camera, aspect float32) camera.Camera {
	ctrl := camera.NewOrbitController(
		camera.WithTarget(mgl32.Vec3(c.Target)),
		camera.WithRadius(c.Radius),
		camera.WithAzimuth(mgl32.DegToRad(c.Yaw)),
		camera.WithElevation(mgl32.DegToRad(c.Pitch)),
	)
	return camera.NewCamera(
		camera.WithFov(c.FOV),
		camera.WithClip(c.Near, c.Far),
		camera.WithAspect(aspect),
		camera.WithController(ctrl),
	)
}
