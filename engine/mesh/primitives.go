package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Quad returns a unit square in the XZ plane centred on the origin, facing +Y.
func Quad() Mesh {
	return Mesh{
		Name: "quad",
		Vertices: []mgl32.Vec3{
			{-0.5, 0, -0.5},
			{0.5, 0, -0.5},
			{0.5, 0, 0.5},
			{-0.5, 0, 0.5},
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
}

// Triangle returns a single triangle in the XY plane.
func Triangle() Mesh {
	return Mesh{
		Name: "triangle",
		Vertices: []mgl32.Vec3{
			{-0.5, 0, 0},
			{0.5, 0, 0},
			{0, 1, 0},
		},
		Indices: []uint32{0, 1, 2},
	}
}

// Tetrahedron returns a regular tetrahedron inscribed in the unit sphere.
func Tetrahedron() Mesh {
	return Mesh{
		Name: "tetrahedron",
		Vertices: []mgl32.Vec3{
			{1, 1, 1},
			{-1, -1, 1},
			{-1, 1, -1},
			{1, -1, -1},
		},
		Indices: []uint32{
			0, 1, 2,
			0, 3, 1,
			0, 2, 3,
			1, 3, 2,
		},
	}
}

// Cube returns a unit cube centred on the origin with outward winding. Faces share no
// vertices, so each face can be flat shaded.
func Cube() Mesh {
	faces := [6][4]mgl32.Vec3{
		{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}},     // +Z
		{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}, // -Z
		{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}},     // +X
		{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}, // -X
		{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}},     // +Y
		{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}, // -Y
	}
	m := Mesh{
		Name:     "cube",
		Vertices: make([]mgl32.Vec3, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for _, f := range faces {
		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, f[:]...)
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// Primitive looks up a built-in mesh by name.
//
// Parameters:
//   - name: one of "quad", "triangle", "tetrahedron" or "cube"
//
// Returns:
//   - Mesh: the mesh
//   - bool: false if the name is unknown
func Primitive(name string) (Mesh, bool) {
	switch name {
	case "quad":
		return Quad(), true
	case "triangle":
		return Triangle(), true
	case "tetrahedron":
		return Tetrahedron(), true
	case "cube":
		return Cube(), true
	default:
		return Mesh{}, false
	}
}
