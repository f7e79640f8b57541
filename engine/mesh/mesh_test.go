package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPrimitives(t *testing.T) {
	for name, tris := range map[string]int{"quad": 2, "triangle": 1, "tetrahedron": 4, "cube": 12} {
		m, ok := Primitive(name)
		assert.True(t, ok, name)
		assert.Equal(t, tris, m.TriangleCount(), name)
		assert.NoError(t, m.Validate(), name)
		assert.False(t, m.Empty(), name)
	}

	_, ok := Primitive("teapot")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Mesh{Name: "partial", Vertices: make([]mgl32.Vec3, 3), Indices: []uint32{0, 1}}.Validate())
	assert.ErrorContains(t, Mesh{Name: "oob", Vertices: make([]mgl32.Vec3, 3), Indices: []uint32{0, 1, 3}}.Validate(), "out of range")
	assert.True(t, Mesh{}.Empty())
}

func TestBounds(t *testing.T) {
	lo, hi := Cube().Bounds()
	assert.Equal(t, mgl32.Vec3{-0.5, -0.5, -0.5}, lo)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, hi)

	lo, hi = Mesh{}.Bounds()
	assert.Equal(t, mgl32.Vec3{}, lo)
	assert.Equal(t, mgl32.Vec3{}, hi)
}
