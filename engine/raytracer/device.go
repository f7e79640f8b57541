package raytracer

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// BufferAllocator creates storage buffers of a fixed (count, stride) shape.
type BufferAllocator interface {
	CreateBuffer(label string, count, stride int) (renderer.Buffer, error)
}

// ImageAllocator creates float images usable as storage and sampled textures.
type ImageAllocator interface {
	CreateImage(label string, width, height int) (renderer.Image, error)
}

// ComputeDevice is the slice of the renderer the ray tracer drives. renderer.Renderer
// satisfies it.
type ComputeDevice interface {
	BufferAllocator
	ImageAllocator

	// CreateTexture uploads RGBA8 pixels into a sampled texture.
	CreateTexture(label string, stagingData common.TextureStagingData) (renderer.Image, error)

	// BeginComputeFrame opens the batch that the dispatch and the accumulation copy are recorded into.
	BeginComputeFrame() error

	// CopyImage records a full copy of src into dst in the open batch.
	CopyImage(src, dst renderer.Image) error

	// EndComputeFrame submits the batch.
	EndComputeFrame() error
}

// MeshResolver maps a mesh entity to its geometry.
type MeshResolver interface {
	// ResolveMesh returns the entity's mesh, or false when the mesh is not ready.
	ResolveMesh(e entity.Entity) (mesh.Mesh, bool)
}

// SceneSource is the scene query surface read once per frame.
type SceneSource interface {
	MeshResolver

	// FindAllEntities returns every entity in a stable order, inactive ones included.
	FindAllEntities() []entity.Entity
}

// ChangeSource is anything carrying a changed-since-last-check flag.
type ChangeSource interface {
	HasChangedSinceLastCheck() bool
	ClearChangedFlag()
}

// CameraSource supplies the view matrices for a frame. Its changed flag restarts
// accumulation just like a moved entity.
type CameraSource interface {
	ChangeSource

	// CameraToWorld returns the inverse view matrix.
	CameraToWorld() mgl32.Mat4

	// InverseProjection returns the inverse of the projection matrix.
	InverseProjection() mgl32.Mat4

	// Far returns the far clip distance.
	Far() float32
}
