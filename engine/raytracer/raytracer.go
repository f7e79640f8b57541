package raytracer

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// ThreadTile is the workgroup edge length of the ray tracing kernel in x and y.
const ThreadTile = 8

// Kernel parameter names read by the ray tracing kernel.
const (
	ParamCameraToWorld           = "_CameraToWorld"
	ParamCameraInverseProjection = "_CameraInverseProjection"
	ParamCameraFar               = "_CameraFar"
	ParamSkyboxTexture           = "_SkyboxTexture"
	ParamPixelOffset             = "_PixelOffset"
	ParamScreenSize              = "_ScreenSize"
	ParamDepth                   = "_depth"
	ParamSamplePerPixel          = "_SamplePerPixel"
	ParamSeed                    = "_Seed"
	ParamLayerCount              = "_layerCount"
	ParamSpheres                 = "_Spheres"
	ParamNumSpheres              = "_numSpheres"
	ParamBoxes                   = "_Boxs"
	ParamNumBoxes                = "_numBoxs"
	ParamMeshObjects             = "_MeshObjects"
	ParamNumMeshObjects          = "_numMeshObjects"
	ParamVertices                = "_Vertices"
	ParamIndices                 = "_Indices"
	ParamResult                  = "Result"
	ParamResultOut               = "ResultOut"
)

// Raytracer progressively renders a scene: every Render call traces one more sample layer
// and folds it into a running average that restarts whenever the scene or camera changes.
type Raytracer interface {
	// Render traces one frame and returns the image holding the updated average. The
	// image stays valid until the next reset.
	//
	// Returns:
	//   - renderer.Image: the output image
	//   - error: a precondition or device error; no layer is added when non-nil
	Render() (renderer.Image, error)

	// ResetRenderTexture drops the accumulated average.
	ResetRenderTexture()

	// SetResolution changes the render size and drops the accumulated average.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - error: ErrInvalidResolution when either side is not positive
	SetResolution(width, height int) error

	// Resolution returns the render size.
	Resolution() (int, int)

	// SampleLayerCount returns the number of sample layers in the current average.
	SampleLayerCount() int

	// Release frees every buffer and image the ray tracer owns and stops its worker pool.
	// The kernel and device are left to their owner. Safe to call more than once.
	Release()
}

type raytracer struct {
	mu *sync.Mutex

	device ComputeDevice
	kernel renderer.Kernel
	scene  SceneSource
	camera CameraSource
	rng    *rand.Rand

	width           int
	height          int
	samplesPerPixel int
	depth           int
	environment     common.TextureStagingData
	workers         int
	verbose         bool

	pool     worker.DynamicWorkerPool
	buffers  *SceneBuffers
	targets  *AccumulationTargets
	detector *ChangeDetector
	skybox   renderer.Image

	released bool
}

var _ Raytracer = &raytracer{}

// NewRaytracer creates a Raytracer from the given options. A device, a kernel, a scene and a
// camera are required.
//
// Parameters:
//   - options: the RaytracerBuilderOption values to apply
//
// Returns:
//   - Raytracer: the ray tracer
//   - error: ErrNoDevice, ErrNoKernel, ErrNoScene, ErrNoCamera or ErrInvalidResolution
func NewRaytracer(options ...RaytracerBuilderOption) (Raytracer, error) {
	r := &raytracer{
		mu:              &sync.Mutex{},
		width:           1280,
		height:          720,
		samplesPerPixel: 1,
		depth:           8,
		environment:     common.SolidTexture(128, 178, 255, 255),
	}
	for _, opt := range options {
		opt(r)
	}

	switch {
	case r.device == nil:
		return nil, ErrNoDevice
	case r.kernel == nil:
		return nil, ErrNoKernel
	case r.scene == nil:
		return nil, ErrNoScene
	case r.camera == nil:
		return nil, ErrNoCamera
	case r.width <= 0 || r.height <= 0:
		return nil, fmt.Errorf("%dx%d: %w", r.width, r.height, ErrInvalidResolution)
	}

	if r.rng == nil {
		seed := uint64(time.Now().UnixNano())
		r.rng = rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
	}
	if r.workers > 0 {
		r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)
	}
	r.buffers = NewSceneBuffers(r.pool, r.verbose)
	r.targets = NewAccumulationTargets(r.device, r.width, r.height)
	r.detector = NewChangeDetector(r.targets)

	return r, nil
}

func (r *raytracer) Render() (renderer.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil, ErrReleased
	}
	width, height := r.targets.Resolution()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidResolution)
	}

	entities := r.scene.FindAllEntities()
	sources := []ChangeSource{r.camera}
	if structural, ok := r.scene.(ChangeSource); ok {
		sources = append(sources, structural)
	}
	if n := r.detector.Detect(entities, sources...); n > 0 && r.verbose {
		log.Printf("raytracer: accumulation reset after %d scene change(s)", n)
	}

	if err := r.buffers.Build(r.device, r.scene, entities); err != nil {
		return nil, err
	}
	if r.buffers.SphereBuffer() == nil {
		return nil, fmt.Errorf("%s: %w", ParamSpheres, ErrMissingBuffer)
	}
	if r.buffers.BoxBuffer() == nil {
		return nil, fmt.Errorf("%s: %w", ParamBoxes, ErrMissingBuffer)
	}

	if err := r.ensureSkybox(); err != nil {
		return nil, err
	}
	r.bindParameters(width, height)

	result, err := r.targets.AccumulationImage()
	if err != nil {
		return nil, err
	}
	resultOut, err := r.targets.OutputImage()
	if err != nil {
		return nil, err
	}
	r.kernel.SetTexture(ParamResult, result)
	r.kernel.SetTexture(ParamResultOut, resultOut)

	groups := [3]uint32{
		common.WorkgroupCount(uint32(width), ThreadTile),
		common.WorkgroupCount(uint32(height), ThreadTile),
		1,
	}
	if err := r.device.BeginComputeFrame(); err != nil {
		return nil, fmt.Errorf("raytracer: %w", err)
	}
	if err := r.kernel.Dispatch(groups); err != nil {
		_ = r.device.EndComputeFrame()
		return nil, fmt.Errorf("raytracer: dispatch: %w", err)
	}
	if err := r.device.CopyImage(resultOut, result); err != nil {
		_ = r.device.EndComputeFrame()
		return nil, fmt.Errorf("raytracer: copy %s to %s: %w", ParamResultOut, ParamResult, err)
	}
	if err := r.device.EndComputeFrame(); err != nil {
		return nil, fmt.Errorf("raytracer: %w", err)
	}

	r.targets.AdvanceLayer()
	return resultOut, nil
}

// bindParameters writes the per-frame kernel parameters. Must be called with mu held.
func (r *raytracer) bindParameters(width, height int) {
	k := r.kernel

	k.SetMatrix(ParamCameraToWorld, r.camera.CameraToWorld())
	k.SetMatrix(ParamCameraInverseProjection, r.camera.InverseProjection())
	k.SetFloat(ParamCameraFar, r.camera.Far())
	k.SetTexture(ParamSkyboxTexture, r.skybox)

	k.SetVector(ParamPixelOffset, mgl32.Vec4{r.rng.Float32(), r.rng.Float32(), 0, 0})
	k.SetVector(ParamScreenSize, mgl32.Vec4{float32(width), float32(height), 0, 0})
	k.SetInt(ParamDepth, int32(r.depth))
	k.SetInt(ParamSamplePerPixel, int32(r.samplesPerPixel))
	k.SetFloat(ParamSeed, r.rng.Float32())
	k.SetInt(ParamLayerCount, int32(r.targets.SampleLayerCount()))

	spheres := r.buffers.SphereBuffer()
	k.SetBuffer(ParamSpheres, spheres)
	k.SetInt(ParamNumSpheres, int32(spheres.Count()))

	boxes := r.buffers.BoxBuffer()
	k.SetBuffer(ParamBoxes, boxes)
	k.SetInt(ParamNumBoxes, int32(boxes.Count()))

	meshObjects := r.buffers.MeshObjectBuffer()
	numMeshObjects := 0
	if meshObjects != nil {
		numMeshObjects = meshObjects.Count()
	}
	k.SetBuffer(ParamMeshObjects, meshObjects)
	k.SetInt(ParamNumMeshObjects, int32(numMeshObjects))
	k.SetBuffer(ParamVertices, r.buffers.VertexBuffer())
	k.SetBuffer(ParamIndices, r.buffers.IndexBuffer())
}

// ensureSkybox uploads the environment texture on first use. Must be called with mu held.
func (r *raytracer) ensureSkybox() error {
	if r.skybox != nil {
		return nil
	}
	env := r.environment
	if env.Width == 0 || env.Height == 0 {
		env = common.SolidTexture(0, 0, 0, 255)
	}
	img, err := r.device.CreateTexture("Skybox Texture", env)
	if err != nil {
		return fmt.Errorf("raytracer: skybox: %w", err)
	}
	r.skybox = img
	return nil
}

func (r *raytracer) ResetRenderTexture() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.targets.Reset()
	if r.verbose {
		log.Printf("raytracer: accumulation reset on request")
	}
}

func (r *raytracer) SetResolution(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.targets.SetResolution(width, height); err != nil {
		return err
	}
	r.width, r.height = width, height
	if r.verbose {
		log.Printf("raytracer: accumulation reset for resolution %dx%d", width, height)
	}
	return nil
}

func (r *raytracer) Resolution() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targets.Resolution()
}

func (r *raytracer) SampleLayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targets.SampleLayerCount()
}

func (r *raytracer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true

	r.buffers.Release()
	r.targets.Reset()
	if r.skybox != nil {
		r.skybox.Release()
		r.skybox = nil
	}
	if r.pool != nil {
		r.pool.Stop()
		r.pool = nil
	}
}
