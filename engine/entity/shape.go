package entity

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Kind tags the primitive variant carried by an entity.
type Kind int

const (
	// KindSphere marks an analytic sphere.
	KindSphere Kind = iota
	// KindBox marks an oriented box.
	KindBox
	// KindMesh marks an instance of a triangle mesh from the scene's mesh library.
	KindMesh
)

// String returns the lowercase name of the kind, as used in scene files.
func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// Shape is the closed set of primitive variants an entity can carry. The unexported
// method seals the set to Sphere, Box and Mesh.
type Shape interface {
	// Kind returns the variant tag.
	Kind() Kind
	isShape()
}

// Sphere is an analytic sphere. Diameter is the authored size; the GPU record stores
// half of it as the radius.
type Sphere struct {
	Diameter float32
}

// Box is an oriented box with full edge lengths Size.
type Box struct {
	Size mgl32.Vec3
}

// Mesh references a triangle mesh by its handle in the scene's mesh library.
type Mesh struct {
	Handle string
}

func (Sphere) Kind() Kind { return KindSphere }
func (Box) Kind() Kind    { return KindBox }
func (Mesh) Kind() Kind   { return KindMesh }

func (Sphere) isShape() {}
func (Box) isShape()    {}
func (Mesh) isShape()   {}
