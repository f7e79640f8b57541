package loader

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// Primitive is one triangle list of an imported model together with the index of its
// material in Model.Materials, or -1 when the primitive has none.
type Primitive struct {
	Mesh          mesh.Mesh
	MaterialIndex int
}

// Model is the CPU-side result of importing a model file.
type Model struct {
	// Name is the file name without extension, or the cache key for streamed models.
	Name string
	// Path is the file the model was loaded from, empty for streamed models.
	Path string
	// Primitives holds every primitive of every mesh in document order.
	Primitives []Primitive
	// Materials holds the converted materials, indexed like the source document.
	Materials []material.Material
}

// Merged concatenates every primitive into a single mesh named after the model,
// offsetting each primitive's indices by the vertices that precede it.
//
// Returns:
//   - mesh.Mesh: the combined triangle list
func (m *Model) Merged() mesh.Mesh {
	var vertexCount, indexCount int
	for _, p := range m.Primitives {
		vertexCount += len(p.Mesh.Vertices)
		indexCount += len(p.Mesh.Indices)
	}

	out := mesh.Mesh{Name: m.Name}
	if len(m.Primitives) == 1 {
		out.Vertices = m.Primitives[0].Mesh.Vertices
		out.Indices = m.Primitives[0].Mesh.Indices
		return out
	}

	out.Vertices = make([]mgl32.Vec3, 0, vertexCount)
	out.Indices = make([]uint32, 0, indexCount)
	for _, p := range m.Primitives {
		base := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, p.Mesh.Vertices...)
		for _, idx := range p.Mesh.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
	}
	return out
}

// Material returns the material of the first primitive that has one, or nil.
//
// Returns:
//   - material.Material: the material, or nil if no primitive references one
func (m *Model) Material() material.Material {
	for _, p := range m.Primitives {
		if p.MaterialIndex >= 0 && p.MaterialIndex < len(m.Materials) {
			return m.Materials[p.MaterialIndex]
		}
	}
	return nil
}
