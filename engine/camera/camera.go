package camera

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov    float32 // degrees
	aspect float32
	near   float32
	far    float32

	viewMatrix              mgl32.Mat4
	projectionMatrix        mgl32.Mat4
	cameraToWorld           mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4

	controller CameraController
	changed    atomic.Bool
}

// Camera is a perspective camera whose placement comes from a CameraController. The ray
// tracer reads CameraToWorld and InverseProjection to generate primary rays, and watches
// the changed flag to restart accumulation whenever the view moves.
// Thread-safe for concurrent access.
type Camera interface {
	// Up returns the world up vector used to orient the view.
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in degrees.
	Fov() float32

	// Aspect returns the viewport aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping distance.
	Near() float32

	// Far returns the far clipping distance. Rays report a miss beyond it.
	Far() float32

	// Position returns the world-space eye position, the origin at the zero vector when
	// no controller is attached.
	Position() mgl32.Vec3

	// ViewMatrix returns the world-to-camera matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection with WebGPU [0, 1] depth.
	ProjectionMatrix() mgl32.Mat4

	// CameraToWorld returns the inverse of the view matrix.
	CameraToWorld() mgl32.Mat4

	// InverseProjection returns the inverse of the projection matrix.
	InverseProjection() mgl32.Mat4

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update recomputes the matrices from the controller's current placement and raises
	// the changed flag if the view differs from the last computed one.
	Update()

	// SetUp sets the world up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in degrees.
	//
	// Parameters:
	//   - degrees: the field of view
	SetFov(degrees float32)

	// SetAspect sets the viewport aspect ratio. Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: width divided by height
	SetAspect(aspect float32)

	// SetNear sets the near clipping distance.
	//
	// Parameters:
	//   - near: the distance, greater than zero
	SetNear(near float32)

	// SetFar sets the far clipping distance.
	//
	// Parameters:
	//   - far: the distance, greater than near
	SetFar(far float32)

	// SetController replaces the controller and recomputes the view.
	//
	// Parameters:
	//   - ctrl: the new controller
	SetController(ctrl CameraController)

	// HasChangedSinceLastCheck reports whether the view or projection changed since the
	// flag was last cleared. A new camera starts changed.
	HasChangedSinceLastCheck() bool

	// ClearChangedFlag clears the changed flag.
	ClearChangedFlag()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with a 60 degree field of view, unit aspect and a
// 0.1 to 1000 clip range, then applies the given options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                      &sync.Mutex{},
		up:                      common.AxisY,
		fov:                     60,
		aspect:                  1,
		near:                    0.1,
		far:                     1000,
		viewMatrix:              mgl32.Ident4(),
		cameraToWorld:           mgl32.Ident4(),
		projectionMatrix:        mgl32.Ident4(),
		inverseProjectionMatrix: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	c.changed.Store(true)
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraToWorld.Col(3).Vec3()
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) CameraToWorld() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraToWorld
}

func (c *cameraImpl) InverseProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(degrees float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = degrees
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) HasChangedSinceLastCheck() bool {
	return c.changed.Load()
}

func (c *cameraImpl) ClearChangedFlag() {
	c.changed.Store(false)
}

// updateMatrices rebuilds every matrix and raises the changed flag when the view or
// projection moved. Caller must hold c.mu.
func (c *cameraImpl) updateMatrices() {
	view := c.viewMatrix
	if c.controller != nil {
		view = mgl32.LookAtV(c.controller.Position(), c.controller.Target(), c.up)
	}
	proj := common.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)

	if view.ApproxEqual(c.viewMatrix) && proj.ApproxEqual(c.projectionMatrix) {
		return
	}
	c.viewMatrix = view
	c.projectionMatrix = proj
	c.cameraToWorld = view.Inv()
	c.inverseProjectionMatrix = proj.Inv()
	c.changed.Store(true)
}
