package engine

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImage struct{ released bool }

func (i *fakeImage) Label() string  { return "output" }
func (i *fakeImage) Width() int     { return 4 }
func (i *fakeImage) Height() int    { return 4 }
func (i *fakeImage) Released() bool { return i.released }
func (i *fakeImage) Release()       { i.released = true }

type fakeRaytracer struct {
	img       *fakeImage
	layers    int
	resets    int
	width     int
	height    int
	renderErr error
}

var _ raytracer.Raytracer = &fakeRaytracer{}

func (r *fakeRaytracer) Render() (renderer.Image, error) {
	if r.renderErr != nil {
		return nil, r.renderErr
	}
	r.layers++
	return r.img, nil
}

func (r *fakeRaytracer) ResetRenderTexture() {
	r.resets++
	r.layers = 0
}

func (r *fakeRaytracer) SetResolution(width, height int) error {
	r.width, r.height = width, height
	r.layers = 0
	return nil
}

func (r *fakeRaytracer) Resolution() (int, int) { return r.width, r.height }
func (r *fakeRaytracer) SampleLayerCount() int  { return r.layers }
func (r *fakeRaytracer) Release()               {}

type fakePresenter struct {
	presented []renderer.Image
	width     int
	height    int
}

func (p *fakePresenter) Present(img renderer.Image) error {
	p.presented = append(p.presented, img)
	return nil
}

func (p *fakePresenter) Resize(width, height int) {
	p.width, p.height = width, height
}

func newTestEngine() (*engine, *fakeRaytracer, *fakePresenter) {
	rt := &fakeRaytracer{img: &fakeImage{}, width: 4, height: 4}
	p := &fakePresenter{}
	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController()))
	e := NewEngine(WithRaytracer(rt), WithPresenter(p), WithCamera(cam)).(*engine)
	return e, rt, p
}

func TestEngine_RenderFramesPresentsEachFrame(t *testing.T) {
	e, rt, p := newTestEngine()

	img, err := e.RenderFrames(3)
	require.NoError(t, err)
	assert.Same(t, rt.img, img)
	assert.Len(t, p.presented, 3)
	assert.Equal(t, 3, rt.SampleLayerCount())

	_, err = e.RenderFrames(0)
	assert.Error(t, err)
}

func TestEngine_RenderErrorsAreWrapped(t *testing.T) {
	e, rt, p := newTestEngine()
	rt.renderErr = raytracer.ErrMissingBuffer

	_, err := e.RenderFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, raytracer.ErrMissingBuffer)
	assert.Empty(t, p.presented)

	_, err = NewEngine().RenderFrame()
	assert.ErrorIs(t, err, ErrNoRaytracer)
}

func TestEngine_SetRaytracerOnce(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.SetRaytracer(&fakeRaytracer{}))
	assert.ErrorIs(t, e.SetRaytracer(&fakeRaytracer{}), ErrRaytracerSet)
}

func TestEngine_RunWithoutWindow(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.ErrorIs(t, e.Run(), ErrNoWindow)
}

func TestEngine_KeyBindings(t *testing.T) {
	e, rt, _ := newTestEngine()

	e.handleKey(common.KeyR, false)
	assert.Zero(t, rt.resets, "releases are ignored")
	e.handleKey(common.KeyR, true)
	assert.Equal(t, 1, rt.resets)

	e.handleKey(common.KeyP, true)
	assert.True(t, e.Paused())
	e.handleKey(common.KeyP, true)
	assert.False(t, e.Paused())

	e.handleKey(common.KeyF, true)
	assert.True(t, e.profilingEnabled.Load())

	e.handleKey(common.KeyEsc, true)
	select {
	case <-e.quitChannel:
	default:
		t.Fatal("escape did not signal quit")
	}
	assert.NotPanics(t, func() { e.Quit() })
}

func TestEngine_TickAnimatesUnlessPaused(t *testing.T) {
	s := scene.NewScene("tick")
	ent := entity.NewEntity(entity.Sphere{Diameter: 1}, entity.WithRotationSpeed(mgl32.Vec3{0, 90, 0}))
	s.AddEntity(ent)
	e := NewEngine(WithScene(s), WithTickRate(2)).(*engine)

	e.tick(0.5)
	assert.InDelta(t, 45, ent.Transform().EulerAngles().Y(), 1e-3)

	e.SetPaused(true)
	e.tick(0.5)
	assert.InDelta(t, 45, ent.Transform().EulerAngles().Y(), 1e-3)

	e.handleKey(common.KeySpace, true)
	e.tick(0.1)
	assert.InDelta(t, 90, ent.Transform().EulerAngles().Y(), 1e-3, "a step advances one 0.5s tick")

	e.tick(0.5)
	assert.InDelta(t, 90, ent.Transform().EulerAngles().Y(), 1e-3)
}

func TestEngine_MouseDragOrbitsAndScrollZooms(t *testing.T) {
	e, _, _ := newTestEngine()
	ctrl := e.Camera().Controller()
	azimuth, radius := ctrl.Azimuth(), ctrl.Radius()

	e.handleMouseMove(50, 50)
	assert.Equal(t, azimuth, ctrl.Azimuth(), "moving without a button held does nothing")

	e.handleMouseButton(window.MouseButtonLeft, true, 50, 50)
	e.handleMouseMove(150, 50)
	assert.NotEqual(t, azimuth, ctrl.Azimuth())

	e.handleMouseButton(window.MouseButtonLeft, false, 150, 50)
	target := ctrl.Target()
	e.handleMouseButton(window.MouseButtonRight, true, 150, 50)
	e.handleMouseMove(250, 50)
	assert.NotEqual(t, target, ctrl.Target())

	e.handleScroll(2)
	assert.Less(t, ctrl.Radius(), radius)
}

func TestEngine_CameraMoveFlagsCameraChange(t *testing.T) {
	e, _, _ := newTestEngine()
	_, err := e.RenderFrame()
	require.NoError(t, err)
	e.Camera().ClearChangedFlag()

	e.handleMouseButton(window.MouseButtonLeft, true, 0, 0)
	e.handleMouseMove(40, 0)
	_, err = e.RenderFrame()
	require.NoError(t, err)
	assert.True(t, e.Camera().HasChangedSinceLastCheck())
}

func TestEngine_ResizeFollowsFramebuffer(t *testing.T) {
	e, rt, p := newTestEngine()

	e.handleResize(800, 400)
	assert.Equal(t, 800, p.width)
	w, h := rt.Resolution()
	assert.Equal(t, []int{800, 400}, []int{w, h})
	assert.InDelta(t, 2, e.Camera().Aspect(), 1e-6)

	e.handleResize(0, 0)
	w, _ = rt.Resolution()
	assert.Equal(t, 800, w, "minimized window is ignored")
}

func TestEngine_SetTickRateWhileStopped(t *testing.T) {
	e := NewEngine().(*engine)
	e.SetTickRate(30)
	assert.InDelta(t, 1.0/30, e.engineTickRate.Seconds(), 1e-6)
	e.SetTickRate(-1)
	assert.InDelta(t, 1.0/60, e.engineTickRate.Seconds(), 1e-6)

	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit)
	e.SetRenderFrameLimit(50)
	assert.Equal(t, 20*time.Millisecond, e.renderFrameLimit)
}
