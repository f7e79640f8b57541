// Package mesh holds the CPU-side triangle geometry that mesh entities reference by
// handle. The ray tracer concatenates every resolved mesh into one shared vertex pool
// and one shared index pool each frame.
package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle list in object space.
type Mesh struct {
	// Name identifies the mesh for logging.
	Name string
	// Vertices holds one object-space position per vertex.
	Vertices []mgl32.Vec3
	// Indices holds three vertex indices per triangle, local to Vertices.
	Indices []uint32
}

// TriangleCount returns the number of whole triangles described by Indices.
func (m Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Empty reports whether the mesh has nothing to render.
func (m Mesh) Empty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Validate checks that the index list describes whole triangles and that every index
// addresses an existing vertex.
//
// Returns:
//   - error: a description of the first violation, or nil
func (m Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: index count %d is not a multiple of 3", m.Name, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("mesh %q: index %d at position %d out of range (%d vertices)", m.Name, idx, i, len(m.Vertices))
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the vertices. An empty mesh reports
// a zero box.
//
// Returns:
//   - mgl32.Vec3: the minimum corner
//   - mgl32.Vec3: the maximum corner
func (m Mesh) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	lo, hi := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for a := range 3 {
			mgl32.SetMin(&lo[a], &v[a])
			mgl32.SetMax(&hi[a], &v[a])
		}
	}
	return lo, hi
}
