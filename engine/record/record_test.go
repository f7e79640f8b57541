package record

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func testMaterial() material.Material {
	return material.NewMaterial(
		material.WithAlbedo(material.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}),
		material.WithSpecular(material.Color{R: 0.4, G: 0.5, B: 0.6, A: 1}),
		material.WithEmission(material.Color{R: 7, G: 8, B: 9, A: 1}),
		material.WithSmoothness(0.75),
	)
}

func TestRecordSizes(t *testing.T) {
	assert.Equal(t, 80, Stride[GPUSphere]())
	assert.Equal(t, 96, Stride[GPUBox]())
	assert.Equal(t, 128, Stride[GPUMeshObject]())
	assert.Equal(t, 16, Stride[GPUVertex]())
	assert.Equal(t, 4, Stride[GPUIndex]())
}

func TestExtractSphere(t *testing.T) {
	xf := entity.Transform{Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
	s := ExtractSphere(xf, entity.Sphere{Diameter: 3}, testMaterial())

	assert.Equal(t, [3]float32{1, 2, 3}, s.Position)
	assert.Equal(t, float32(1.5), s.Radius)
	assert.Equal(t, [3]float32{0, 0, 0}, s.Rotation)

	buf := s.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, float32(1.5), floatAt(buf, 12))
	assert.Equal(t, float32(0.75), floatAt(buf, 28))
	assert.Equal(t, float32(0.1), floatAt(buf, 32))
	assert.Equal(t, float32(0.4), floatAt(buf, 48))
	assert.Equal(t, float32(9), floatAt(buf, 72))
}

func TestExtractBox(t *testing.T) {
	xf := entity.Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
	b := ExtractBox(xf, entity.Box{Size: mgl32.Vec3{2, 4, 6}}, testMaterial())

	buf := b.Marshal()
	require.Len(t, buf, 96)
	assert.Equal(t, float32(0.75), floatAt(buf, 12))
	assert.Equal(t, float32(2), floatAt(buf, 32))
	assert.Equal(t, float32(6), floatAt(buf, 40))
	assert.Equal(t, float32(0.3), floatAt(buf, 56))
	assert.Equal(t, float32(7), floatAt(buf, 80))
}

func TestExtractMeshObject(t *testing.T) {
	xf := entity.Transform{Position: mgl32.Vec3{5, 0, 0}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
	o := ExtractMeshObject(xf, testMaterial(), 36, 12)

	buf := o.Marshal()
	require.Len(t, buf, 128)
	// column-major translation lives in the fourth column
	assert.Equal(t, float32(5), floatAt(buf, 48))
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(buf[64:]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(buf[68:]))
	assert.Equal(t, float32(0.75), floatAt(buf, 72))
	assert.Equal(t, float32(0.1), floatAt(buf, 80))
	assert.Equal(t, float32(8), floatAt(buf, 116))
}

func TestExtractIndices(t *testing.T) {
	dst := make([]GPUIndex, 3)
	ExtractIndices(dst, []uint32{0, 1, 2}, 4)
	assert.Equal(t, []GPUIndex{4, 5, 6}, dst)

	verts := make([]GPUVertex, 2)
	ExtractVertices(verts, []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, [3]float32{4, 5, 6}, verts[1].Position)
}

func TestMarshalAll(t *testing.T) {
	assert.Nil(t, MarshalAll([]GPUIndex{}))

	buf := MarshalAll([]GPUIndex{7, 9})
	require.Len(t, buf, 8)
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(buf[4:]))

	spheres := MarshalAll([]GPUSphere{{Radius: 1}, {Radius: 2}})
	require.Len(t, spheres, 160)
	assert.Equal(t, float32(2), floatAt(spheres, 80+12))
}
