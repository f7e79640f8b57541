package entity

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a snapshot of an entity's placement in world space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// LocalToWorld returns the T * R * S matrix of the transform.
func (t Transform) LocalToWorld() mgl32.Mat4 {
	return common.TRS(t.Position, t.Rotation, t.Scale)
}

// EulerAngles returns the rotation as Euler angles in degrees, each in [0, 360).
func (t Transform) EulerAngles() mgl32.Vec3 {
	return common.EulerAngles(t.Rotation)
}

type entity struct {
	id       uint64
	name     string
	active   atomic.Bool
	changed  atomic.Bool
	shape    Shape
	mu       *sync.RWMutex
	mat      material.Material
	xform    Transform
	rotSpeed mgl32.Vec3
}

// Entity is one primitive in a ray traced scene: a Shape variant, a shared Material and
// a world Transform. Every mutation that affects the rendered image raises the entity's
// changed flag, which the ray tracer's change detector observes and clears once per frame.
type Entity interface {
	// ID returns the entity's unique identifier within its scene.
	//
	// Returns:
	//   - uint64: the entity ID
	ID() uint64

	// SetID assigns the entity's identifier. The scene calls this when the entity is added.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Name returns the optional human readable name of the entity.
	//
	// Returns:
	//   - string: the name, or empty
	Name() string

	// Active reports whether the entity takes part in rendering.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive toggles participation in rendering. A toggle raises the changed flag.
	//
	// Parameters:
	//   - active: true to activate
	SetActive(active bool)

	// Shape returns the entity's primitive variant.
	//
	// Returns:
	//   - Shape: one of Sphere, Box or Mesh
	Shape() Shape

	// Material returns the entity's surface description.
	//
	// Returns:
	//   - material.Material: the material, never nil
	Material() material.Material

	// SetMaterial replaces the entity's material and raises the changed flag.
	//
	// Parameters:
	//   - m: the new material; nil restores the default material
	SetMaterial(m material.Material)

	// Transform returns a consistent snapshot of position, rotation and scale.
	//
	// Returns:
	//   - Transform: the current transform
	Transform() Transform

	// SetPosition moves the entity and raises the changed flag.
	//
	// Parameters:
	//   - p: the new world-space position
	SetPosition(p mgl32.Vec3)

	// SetRotation orients the entity and raises the changed flag.
	//
	// Parameters:
	//   - q: the new orientation
	SetRotation(q mgl32.Quat)

	// SetEulerRotation orients the entity from Euler angles in degrees and raises the changed flag.
	//
	// Parameters:
	//   - degrees: rotation about X, Y and Z in degrees
	SetEulerRotation(degrees mgl32.Vec3)

	// SetScale rescales the entity and raises the changed flag.
	//
	// Parameters:
	//   - s: the new per-axis scale
	SetScale(s mgl32.Vec3)

	// Rotate applies an additional rotation, given in Euler degrees, on top of the
	// current orientation and raises the changed flag if the rotation is non-zero.
	//
	// Parameters:
	//   - degrees: the delta rotation about X, Y and Z in degrees
	Rotate(degrees mgl32.Vec3)

	// RotationSpeed returns the entity's spin in degrees per second.
	//
	// Returns:
	//   - mgl32.Vec3: angular speed about X, Y and Z
	RotationSpeed() mgl32.Vec3

	// SetRotationSpeed sets the entity's spin in degrees per second. The scene applies
	// it on every update.
	//
	// Parameters:
	//   - degreesPerSecond: angular speed about X, Y and Z
	SetRotationSpeed(degreesPerSecond mgl32.Vec3)

	// HasChangedSinceLastCheck reports whether anything affecting the rendered image
	// changed since the flag was last cleared.
	//
	// Returns:
	//   - bool: true if the entity changed
	HasChangedSinceLastCheck() bool

	// ClearChangedFlag lowers the changed flag. Only the change detector calls this.
	ClearChangedFlag()
}

var _ Entity = &entity{}

// NewEntity creates an active entity with the given shape at the origin with identity
// rotation, unit scale and the default material. New entities start with the changed
// flag raised so their first appearance restarts accumulation.
//
// Parameters:
//   - shape: the primitive variant
//   - options: functional options to configure the entity
//
// Returns:
//   - Entity: the newly created entity
func NewEntity(shape Shape, options ...EntityBuilderOption) Entity {
	e := &entity{
		shape: shape,
		mu:    &sync.RWMutex{},
		mat:   material.Default(),
		xform: Transform{
			Rotation: mgl32.QuatIdent(),
			Scale:    mgl32.Vec3{1, 1, 1},
		},
	}
	e.active.Store(true)
	e.changed.Store(true)
	for _, option := range options {
		option(e)
	}
	return e
}

func (e *entity) ID() uint64 {
	return e.id
}

func (e *entity) SetID(id uint64) {
	e.id = id
}

func (e *entity) Name() string {
	return e.name
}

func (e *entity) Active() bool {
	return e.active.Load()
}

func (e *entity) SetActive(active bool) {
	if e.active.Swap(active) != active {
		e.changed.Store(true)
	}
}

func (e *entity) Shape() Shape {
	return e.shape
}

func (e *entity) Material() material.Material {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mat
}

func (e *entity) SetMaterial(m material.Material) {
	if m == nil {
		m = material.Default()
	}
	e.mu.Lock()
	e.mat = m
	e.mu.Unlock()
	e.changed.Store(true)
}

func (e *entity) Transform() Transform {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.xform
}

func (e *entity) SetPosition(p mgl32.Vec3) {
	e.mu.Lock()
	e.xform.Position = p
	e.mu.Unlock()
	e.changed.Store(true)
}

func (e *entity) SetRotation(q mgl32.Quat) {
	e.mu.Lock()
	e.xform.Rotation = q.Normalize()
	e.mu.Unlock()
	e.changed.Store(true)
}

func (e *entity) SetEulerRotation(degrees mgl32.Vec3) {
	e.SetRotation(common.EulerToQuat(degrees))
}

func (e *entity) SetScale(s mgl32.Vec3) {
	e.mu.Lock()
	e.xform.Scale = s
	e.mu.Unlock()
	e.changed.Store(true)
}

func (e *entity) Rotate(degrees mgl32.Vec3) {
	if degrees == (mgl32.Vec3{}) {
		return
	}
	delta := common.EulerToQuat(degrees)
	e.mu.Lock()
	e.xform.Rotation = delta.Mul(e.xform.Rotation).Normalize()
	e.mu.Unlock()
	e.changed.Store(true)
}

func (e *entity) RotationSpeed() mgl32.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rotSpeed
}

func (e *entity) SetRotationSpeed(degreesPerSecond mgl32.Vec3) {
	e.mu.Lock()
	e.rotSpeed = degreesPerSecond
	e.mu.Unlock()
}

func (e *entity) HasChangedSinceLastCheck() bool {
	return e.changed.Load()
}

func (e *entity) ClearChangedFlag() {
	e.changed.Store(false)
}
