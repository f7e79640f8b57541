// Package engine runs the interactive viewer: a fixed-rate tick loop animating the scene,
// a render loop adding one sample layer per frame, and the window's input handling.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

var (
	// ErrNoRaytracer is returned when a frame is requested before a raytracer is set.
	ErrNoRaytracer = errors.New("engine: no raytracer")

	// ErrRaytracerSet is returned by SetRaytracer when the engine already has one.
	ErrRaytracerSet = errors.New("engine: raytracer already set")

	// ErrNoWindow is returned by Run on an engine built without a window.
	ErrNoWindow = errors.New("engine: no window")
)

// panSensitivity is the world distance panned per pixel of right-button drag.
const panSensitivity = 0.01

// Presenter shows finished frames. renderer.Renderer satisfies it.
type Presenter interface {
	Present(img renderer.Image) error
	Resize(width, height int)
}

// engine implements the Engine interface.
// Coordinates the tick and render goroutines with the window thread.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window    window.Window
	presenter Presenter
	scene     scene.Scene
	camera    camera.Camera
	rt        raytracer.Raytracer

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	paused atomic.Bool
	step   atomic.Bool

	engineTickRate   time.Duration
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	// Drag state; only touched by window callbacks.
	orbiting bool
	panning  bool
	lastX    float32
	lastY    float32

	errMu     sync.Mutex
	renderErr error
}

// Engine is the viewer's entry point. It animates the scene, renders and presents one
// sample layer per frame, and turns window input into camera moves and resets.
type Engine interface {
	// Window returns the window, or nil for a headless engine.
	Window() window.Window

	// Scene returns the scene being rendered.
	Scene() scene.Scene

	// Camera returns the camera the input handlers move.
	Camera() camera.Camera

	// Raytracer returns the raytracer, or nil if none is set.
	Raytracer() raytracer.Raytracer

	// SetRaytracer installs the raytracer. An engine drives exactly one.
	//
	// Parameters:
	//   - rt: the raytracer to drive
	//
	// Returns:
	//   - error: ErrRaytracerSet if one is already installed
	SetRaytracer(rt raytracer.Raytracer) error

	// EnableProfiler enables the once-per-second profiler log line.
	EnableProfiler()

	// DisableProfiler disables the profiler log line.
	DisableProfiler()

	// SetTickRate sets the scene animation rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	SetRenderFrameLimit(fps float64)

	// SetPaused stops or resumes scene animation. Accumulation keeps running, so a paused
	// scene converges.
	SetPaused(paused bool)

	// Paused reports whether scene animation is stopped.
	Paused() bool

	// RenderFrame updates the camera, renders one frame and presents it.
	//
	// Returns:
	//   - renderer.Image: the output image of the frame
	//   - error: ErrNoRaytracer, or a wrapped render or present error
	RenderFrame() (renderer.Image, error)

	// RenderFrames renders n frames back to back without animating the scene.
	//
	// Parameters:
	//   - n: the number of frames, at least 1
	//
	// Returns:
	//   - renderer.Image: the output image after the last frame
	//   - error: the first error encountered
	RenderFrames(n int) (renderer.Image, error)

	// Run starts the tick and render loops and processes window messages until the
	// window closes or Quit is called.
	//
	// Returns:
	//   - error: ErrNoWindow, ErrNoRaytracer, or the render error that stopped the loop
	Run() error

	// Quit signals all engine goroutines to stop and closes the window.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an Engine from the given options. Input and resize callbacks are
// registered on the window when one is supplied.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.scene == nil {
		e.scene = scene.NewScene("default")
	}
	if e.window != nil {
		e.window.SetResizeCallback(e.handleResize)
		e.window.SetKeyCallback(e.handleKey)
		e.window.SetMouseButtonCallback(e.handleMouseButton)
		e.window.SetMouseMoveCallback(e.handleMouseMove)
		e.window.SetScrollCallback(e.handleScroll)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Raytracer() raytracer.Raytracer {
	return e.rt
}

func (e *engine) SetRaytracer(rt raytracer.Raytracer) error {
	if e.rt != nil {
		return ErrRaytracerSet
	}
	e.rt = rt
	return nil
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update rather than block.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

func (e *engine) RenderFrame() (renderer.Image, error) {
	if e.rt == nil {
		return nil, ErrNoRaytracer
	}
	if e.camera != nil {
		e.camera.Update()
	}

	img, err := e.rt.Render()
	if err != nil {
		return nil, fmt.Errorf("engine: render: %w", err)
	}
	if e.presenter != nil {
		if err := e.presenter.Present(img); err != nil {
			return nil, fmt.Errorf("engine: present: %w", err)
		}
	}

	if e.profilingEnabled.Load() {
		e.profiler.Tick(e.rt.SampleLayerCount())
	}
	return img, nil
}

func (e *engine) RenderFrames(n int) (renderer.Image, error) {
	if n < 1 {
		return nil, fmt.Errorf("engine: frame count must be at least 1, got %d", n)
	}
	var img renderer.Image
	for range n {
		var err error
		if img, err = e.RenderFrame(); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (e *engine) Run() error {
	if e.window == nil {
		return ErrNoWindow
	}
	if e.rt == nil {
		return ErrNoRaytracer
	}

	e.running.Store(true)
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.running.Store(false)

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.renderErr
}

func (e *engine) Quit() {
	e.signalQuit()
	if e.window != nil {
		e.window.RequestClose()
	}
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop that animates the scene.
// Listens for rate changes via tickRateChannel and exits when the quit channel closes.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// tick advances scene animation unless paused. A pending single step runs one tick of
// the configured rate while paused.
func (e *engine) tick(dt float32) {
	switch {
	case !e.paused.Load():
		e.scene.Update(dt)
	case e.step.CompareAndSwap(true, false):
		e.scene.Update(float32(e.engineTickRate.Seconds()))
	}
}

// handleRender runs the render loop until quit. A render error stops the engine and is
// returned from Run. Recovers from panics so the window thread can shut down cleanly.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("engine: render goroutine panic: %v", r))
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		frameStart := time.Now()
		if _, err := e.RenderFrame(); err != nil {
			e.fail(err)
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// fail records the first render error and stops the engine.
func (e *engine) fail(err error) {
	log.Printf("%v", err)
	e.errMu.Lock()
	if e.renderErr == nil {
		e.renderErr = err
	}
	e.errMu.Unlock()
	e.Quit()
}

func (e *engine) handleKey(keyCode int, pressed bool) {
	if !pressed {
		return
	}
	switch keyCode {
	case common.KeyEsc:
		e.Quit()
	case common.KeyR:
		if e.rt != nil {
			e.rt.ResetRenderTexture()
		}
	case common.KeyP:
		paused := !e.paused.Load()
		e.paused.Store(paused)
		log.Printf("engine: animation paused: %t", paused)
	case common.KeySpace:
		if e.paused.Load() {
			e.step.Store(true)
		}
	case common.KeyF:
		if e.profilingEnabled.Load() {
			e.DisableProfiler()
		} else {
			e.EnableProfiler()
		}
	}
}

func (e *engine) handleMouseButton(button window.MouseButton, pressed bool, x, y float32) {
	switch button {
	case window.MouseButtonLeft:
		e.orbiting = pressed
	case window.MouseButtonRight:
		e.panning = pressed
	default:
		return
	}
	e.lastX, e.lastY = x, y
}

func (e *engine) handleMouseMove(x, y float32) {
	dx, dy := x-e.lastX, y-e.lastY
	e.lastX, e.lastY = x, y

	ctrl := e.controller()
	if ctrl == nil {
		return
	}
	switch {
	case e.orbiting:
		ctrl.Orbit(dx, dy)
	case e.panning:
		ctrl.PanRight(-dx * panSensitivity)
		ctrl.PanUp(dy * panSensitivity)
	}
}

func (e *engine) handleScroll(delta float32) {
	if ctrl := e.controller(); ctrl != nil {
		ctrl.Zoom(delta)
	}
}

// handleResize follows the framebuffer size. A minimized window reports 0x0 and is ignored.
func (e *engine) handleResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if e.presenter != nil {
		e.presenter.Resize(width, height)
	}
	if e.rt != nil {
		if err := e.rt.SetResolution(width, height); err != nil {
			log.Printf("engine: resize to %dx%d: %v", width, height, err)
		}
	}
	if e.camera != nil {
		e.camera.SetAspect(float32(width) / float32(height))
	}
}

func (e *engine) controller() camera.CameraController {
	if e.camera == nil {
		return nil
	}
	return e.camera.Controller()
}
