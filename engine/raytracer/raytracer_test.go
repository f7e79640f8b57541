package raytracer

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	dev    *fakeDevice
	kernel *fakeKernel
	scene  *fakeScene
	camera *fakeCamera
	rt     Raytracer
}

func newHarness(t *testing.T, scene *fakeScene, options ...RaytracerBuilderOption) *harness {
	t.Helper()
	h := &harness{
		dev:    &fakeDevice{},
		kernel: newFakeKernel(),
		scene:  scene,
		camera: &fakeCamera{far: 100},
	}
	opts := append([]RaytracerBuilderOption{
		WithDevice(h.dev),
		WithKernel(h.kernel),
		WithScene(h.scene),
		WithCamera(h.camera),
		WithResolution(100, 60),
		WithRandom(rand.New(rand.NewPCG(7, 11))),
	}, options...)
	rt, err := NewRaytracer(opts...)
	require.NoError(t, err)
	t.Cleanup(rt.Release)
	h.rt = rt
	return h
}

func TestNewRaytracer_Preconditions(t *testing.T) {
	dev := &fakeDevice{}
	k := newFakeKernel()
	scene := newFakeScene()
	cam := &fakeCamera{}

	tests := []struct {
		name    string
		options []RaytracerBuilderOption
		want    error
	}{
		{name: "no device", options: []RaytracerBuilderOption{WithKernel(k), WithScene(scene), WithCamera(cam)}, want: ErrNoDevice},
		{name: "no kernel", options: []RaytracerBuilderOption{WithDevice(dev), WithScene(scene), WithCamera(cam)}, want: ErrNoKernel},
		{name: "no scene", options: []RaytracerBuilderOption{WithDevice(dev), WithKernel(k), WithCamera(cam)}, want: ErrNoScene},
		{name: "no camera", options: []RaytracerBuilderOption{WithDevice(dev), WithKernel(k), WithScene(scene)}, want: ErrNoCamera},
		{name: "bad resolution", options: []RaytracerBuilderOption{WithDevice(dev), WithKernel(k), WithScene(scene), WithCamera(cam), WithResolution(0, 10)}, want: ErrInvalidResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := NewRaytracer(tt.options...)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, rt)
		})
	}
}

func TestRaytracer_AccumulatesUntilSceneChanges(t *testing.T) {
	mover := entity.NewEntity(entity.Sphere{Diameter: 1})
	h := newHarness(t, newFakeScene(mover, entity.NewEntity(entity.Box{Size: mgl32.Vec3{1, 1, 1}})))

	var first []*fakeImage
	for range 5 {
		out, err := h.rt.Render()
		require.NoError(t, err)
		require.NotNil(t, out)
		if first == nil {
			first = h.dev.liveImages()
		}
	}
	assert.Equal(t, 5, h.rt.SampleLayerCount())
	assert.Len(t, h.dev.images, 2)
	assert.Equal(t, int32(4), h.kernel.ints[ParamLayerCount])

	mover.SetPosition(mgl32.Vec3{0, 2, 0})
	_, err := h.rt.Render()
	require.NoError(t, err)

	assert.Equal(t, 1, h.rt.SampleLayerCount())
	assert.Equal(t, int32(0), h.kernel.ints[ParamLayerCount])
	for _, img := range first {
		assert.True(t, img.released)
	}
	assert.Len(t, h.dev.images, 4)
	assert.Len(t, h.dev.liveImages(), 2)
}

func TestRaytracer_CameraMoveResets(t *testing.T) {
	h := newHarness(t, newFakeScene())
	for range 3 {
		_, err := h.rt.Render()
		require.NoError(t, err)
	}
	h.camera.changed = true
	_, err := h.rt.Render()
	require.NoError(t, err)
	assert.Equal(t, 1, h.rt.SampleLayerCount())
}

func TestRaytracer_StructuralSceneChangeResets(t *testing.T) {
	h := newHarness(t, newFakeScene(entity.NewEntity(entity.Sphere{Diameter: 1}), entity.NewEntity(entity.Sphere{Diameter: 2})))
	for range 3 {
		_, err := h.rt.Render()
		require.NoError(t, err)
	}
	require.Equal(t, 3, h.rt.SampleLayerCount())

	h.scene.entities = h.scene.entities[:1]
	h.scene.structural = true
	_, err := h.rt.Render()
	require.NoError(t, err)

	assert.Equal(t, 1, h.rt.SampleLayerCount())
	assert.False(t, h.scene.structural)
	assert.Equal(t, int32(1), h.kernel.ints[ParamNumSpheres])
}

func TestRaytracer_FrameCommands(t *testing.T) {
	scene := newFakeScene(entity.NewEntity(entity.Mesh{Handle: "quad"}))
	scene.meshes["quad"] = mesh.Quad()
	h := newHarness(t, scene, WithSamplesPerPixel(4), WithDepth(5))

	out, err := h.rt.Render()
	require.NoError(t, err)

	require.Len(t, h.kernel.groups, 1)
	assert.Equal(t, [3]uint32{13, 8, 1}, h.kernel.groups[0])
	assert.Equal(t, 1, h.dev.frames)
	require.Len(t, h.dev.copies, 1)
	assert.Same(t, out, h.dev.copies[0].src)
	assert.Same(t, h.kernel.textures[ParamResult], h.dev.copies[0].dst)
	assert.Same(t, out, h.kernel.textures[ParamResultOut])
	assert.NotNil(t, h.kernel.textures[ParamSkyboxTexture])

	assert.Equal(t, int32(5), h.kernel.ints[ParamDepth])
	assert.Equal(t, int32(4), h.kernel.ints[ParamSamplePerPixel])
	assert.Equal(t, int32(1), h.kernel.ints[ParamNumSpheres])
	assert.Equal(t, int32(1), h.kernel.ints[ParamNumBoxes])
	assert.Equal(t, int32(1), h.kernel.ints[ParamNumMeshObjects])
	assert.Equal(t, 4, h.kernel.buffers[ParamVertices].Count())
	assert.Equal(t, 6, h.kernel.buffers[ParamIndices].Count())
	assert.Equal(t, mgl32.Vec4{100, 60, 0, 0}, h.kernel.vectors[ParamScreenSize])
	assert.Equal(t, float32(100), h.kernel.floats[ParamCameraFar])
	assert.Equal(t, h.camera.CameraToWorld(), h.kernel.matrices[ParamCameraToWorld])

	offset := h.kernel.vectors[ParamPixelOffset]
	assert.GreaterOrEqual(t, offset.X(), float32(0))
	assert.Less(t, offset.X(), float32(1))
	seed := h.kernel.floats[ParamSeed]
	assert.GreaterOrEqual(t, seed, float32(0))
	assert.Less(t, seed, float32(1))
}

func TestRaytracer_MeshBuffersUnboundWithoutMeshes(t *testing.T) {
	h := newHarness(t, newFakeScene(entity.NewEntity(entity.Sphere{Diameter: 1})))

	_, err := h.rt.Render()
	require.NoError(t, err)

	assert.Equal(t, int32(0), h.kernel.ints[ParamNumMeshObjects])
	assert.NotContains(t, h.kernel.buffers, ParamMeshObjects)
	assert.NotContains(t, h.kernel.buffers, ParamVertices)
	assert.NotContains(t, h.kernel.buffers, ParamIndices)
	assert.Contains(t, h.kernel.buffers, ParamSpheres)
	assert.Contains(t, h.kernel.buffers, ParamBoxes)
}

func TestRaytracer_ResetRenderTexture(t *testing.T) {
	h := newHarness(t, newFakeScene())
	for range 3 {
		_, err := h.rt.Render()
		require.NoError(t, err)
	}

	h.rt.ResetRenderTexture()
	assert.Equal(t, 0, h.rt.SampleLayerCount())
	assert.Empty(t, h.dev.liveImages())

	_, err := h.rt.Render()
	require.NoError(t, err)
	assert.Equal(t, 1, h.rt.SampleLayerCount())
}

func TestRaytracer_SetResolution(t *testing.T) {
	h := newHarness(t, newFakeScene())
	_, err := h.rt.Render()
	require.NoError(t, err)

	assert.ErrorIs(t, h.rt.SetResolution(-1, 5), ErrInvalidResolution)
	assert.Equal(t, 1, h.rt.SampleLayerCount())

	require.NoError(t, h.rt.SetResolution(17, 9))
	assert.Equal(t, 0, h.rt.SampleLayerCount())
	w, ht := h.rt.Resolution()
	assert.Equal(t, 17, w)
	assert.Equal(t, 9, ht)

	out, err := h.rt.Render()
	require.NoError(t, err)
	assert.Equal(t, 17, out.Width())
	assert.Equal(t, [3]uint32{3, 2, 1}, h.kernel.groups[len(h.kernel.groups)-1])
}

func TestRaytracer_DeviceFailureKeepsLayer(t *testing.T) {
	h := newHarness(t, newFakeScene())
	_, err := h.rt.Render()
	require.NoError(t, err)

	h.kernel.failDispatch = errFake
	out, err := h.rt.Render()
	assert.ErrorIs(t, err, errFake)
	assert.Nil(t, out)
	assert.Equal(t, 1, h.rt.SampleLayerCount())
	assert.False(t, h.dev.open)

	h.kernel.failDispatch = nil
	h.dev.failCopy = errFake
	_, err = h.rt.Render()
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, 1, h.rt.SampleLayerCount())
	assert.False(t, h.dev.open)

	h.dev.failCreateBuffer = errFake
	h.dev.failCopy = nil
	h.scene.entities = append(h.scene.entities, entity.NewEntity(entity.Sphere{Diameter: 1}), entity.NewEntity(entity.Sphere{Diameter: 1}))
	_, err = h.rt.Render()
	assert.ErrorIs(t, err, errFake)
}

func TestRaytracer_Release(t *testing.T) {
	scene := newFakeScene(entity.NewEntity(entity.Mesh{Handle: "tri"}))
	scene.meshes["tri"] = mesh.Triangle()
	h := newHarness(t, scene, WithWorkers(2))

	_, err := h.rt.Render()
	require.NoError(t, err)

	h.rt.Release()
	h.rt.Release()

	for _, b := range h.dev.buffers {
		assert.True(t, b.released, b.label)
	}
	assert.Empty(t, h.dev.liveImages())
	for _, tex := range h.dev.textures {
		assert.True(t, tex.released)
	}
	assert.False(t, h.kernel.released)

	out, err := h.rt.Render()
	assert.ErrorIs(t, err, ErrReleased)
	assert.Nil(t, out)
}
