package raytracer

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/Carmen-Shannon/oxy-trace/engine/record"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indicesOf(records []record.GPUIndex) []uint32 {
	out := make([]uint32, len(records))
	for i, r := range records {
		out[i] = uint32(r)
	}
	return out
}

func TestSceneBuffers_OneOfEach(t *testing.T) {
	scene := newFakeScene(
		entity.NewEntity(entity.Sphere{Diameter: 2}, entity.WithPosition(mgl32.Vec3{0, 1, 0})),
		entity.NewEntity(entity.Box{Size: mgl32.Vec3{1, 2, 3}}),
		entity.NewEntity(entity.Mesh{Handle: "tri"}),
	)
	scene.meshes["tri"] = mesh.Triangle()
	dev := &fakeDevice{}
	sb := NewSceneBuffers(nil, false)

	require.NoError(t, sb.Build(dev, scene, scene.FindAllEntities()))

	assert.Equal(t, 1, sb.SphereBuffer().Count())
	assert.Equal(t, 1, sb.BoxBuffer().Count())
	assert.Equal(t, 1, sb.MeshObjectBuffer().Count())
	assert.Equal(t, 3, sb.VertexBuffer().Count())
	assert.Equal(t, 3, sb.IndexBuffer().Count())
	assert.Equal(t, []uint32{0, 1, 2}, indicesOf(sb.Indices()))

	assert.Equal(t, float32(1), sb.Spheres()[0].Radius)
	assert.Equal(t, [3]float32{1, 2, 3}, sb.Boxes()[0].BoxSize)
	assert.Equal(t, uint32(0), sb.MeshObjects()[0].IndicesOffset)
	assert.Equal(t, uint32(3), sb.MeshObjects()[0].IndicesCount)
}

func TestSceneBuffers_SecondMeshIndicesRebased(t *testing.T) {
	scene := newFakeScene(
		entity.NewEntity(entity.Mesh{Handle: "quad"}),
		entity.NewEntity(entity.Mesh{Handle: "tri"}),
	)
	scene.meshes["quad"] = mesh.Quad()
	scene.meshes["tri"] = mesh.Triangle()
	dev := &fakeDevice{}
	sb := NewSceneBuffers(nil, false)

	require.NoError(t, sb.Build(dev, scene, scene.FindAllEntities()))

	assert.Len(t, sb.Vertices(), 7)
	require.Len(t, sb.MeshObjects(), 2)
	second := sb.MeshObjects()[1]
	assert.Equal(t, uint32(6), second.IndicesOffset)
	assert.Equal(t, uint32(3), second.IndicesCount)
	assert.Equal(t, []uint32{4, 5, 6}, indicesOf(sb.Indices()[6:9]))
	assert.Equal(t, mesh.Quad().Indices, indicesOf(sb.Indices()[:6]))
}

func TestSceneBuffers_EmptySceneUsesPlaceholders(t *testing.T) {
	dev := &fakeDevice{}
	sb := NewSceneBuffers(nil, false)

	require.NoError(t, sb.Build(dev, newFakeScene(), nil))

	assert.Empty(t, sb.Spheres())
	assert.Empty(t, sb.Boxes())
	require.NotNil(t, sb.SphereBuffer())
	require.NotNil(t, sb.BoxBuffer())
	assert.Equal(t, 1, sb.SphereBuffer().Count())
	assert.Equal(t, 1, sb.BoxBuffer().Count())
	assert.Nil(t, sb.MeshObjectBuffer())
	assert.Nil(t, sb.VertexBuffer())
	assert.Nil(t, sb.IndexBuffer())

	placeholder := dev.buffers[0].data
	assert.Equal(t, make([]byte, len(placeholder)), placeholder)
}

func TestSceneBuffers_SkipsInactiveAndUnresolved(t *testing.T) {
	scene := newFakeScene(
		entity.NewEntity(entity.Sphere{Diameter: 1}, entity.WithActive(false)),
		entity.NewEntity(entity.Sphere{Diameter: 4}),
		entity.NewEntity(entity.Mesh{Handle: "missing"}),
		entity.NewEntity(entity.Mesh{Handle: "tri"}, entity.WithActive(false)),
	)
	scene.meshes["tri"] = mesh.Triangle()
	dev := &fakeDevice{}
	sb := NewSceneBuffers(nil, false)

	require.NoError(t, sb.Build(dev, scene, scene.FindAllEntities()))

	require.Len(t, sb.Spheres(), 1)
	assert.Equal(t, float32(2), sb.Spheres()[0].Radius)
	assert.Empty(t, sb.MeshObjects())
	assert.Nil(t, sb.MeshObjectBuffer())
	assert.Nil(t, sb.VertexBuffer())
}

func TestSceneBuffers_MeshesRemovedReleasesBuffers(t *testing.T) {
	mover := entity.NewEntity(entity.Mesh{Handle: "tri"})
	scene := newFakeScene(mover)
	scene.meshes["tri"] = mesh.Triangle()
	dev := &fakeDevice{}
	sb := NewSceneBuffers(nil, false)

	require.NoError(t, sb.Build(dev, scene, scene.FindAllEntities()))
	vertices := sb.VertexBuffer()
	require.NotNil(t, vertices)

	mover.SetActive(false)
	require.NoError(t, sb.Build(dev, scene, scene.FindAllEntities()))
	assert.Nil(t, sb.VertexBuffer())
	assert.True(t, vertices.(*fakeBuffer).released)
}

func TestSceneBuffers_PoolKeepsOrderAndIndexRanges(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 256, 1*time.Second)
	defer pool.Stop()

	rng := rand.New(rand.NewPCG(1, 2))
	scene := newFakeScene()
	prims := []string{"quad", "triangle", "tetrahedron", "cube"}
	for _, name := range prims {
		m, ok := mesh.Primitive(name)
		require.True(t, ok)
		scene.meshes[name] = m
	}
	for i := range 300 {
		var shape entity.Shape
		switch i % 3 {
		case 0:
			shape = entity.Sphere{Diameter: float32(i)}
		case 1:
			shape = entity.Box{Size: mgl32.Vec3{float32(i), 1, 1}}
		default:
			shape = entity.Mesh{Handle: prims[rng.IntN(len(prims))]}
		}
		scene.entities = append(scene.entities, entity.NewEntity(shape))
	}

	dev := &fakeDevice{}
	sb := NewSceneBuffers(pool, false)
	for range 2 {
		require.NoError(t, sb.Build(dev, scene, scene.FindAllEntities()))
	}

	require.Len(t, sb.Spheres(), 100)
	for i, s := range sb.Spheres() {
		assert.Equal(t, float32(i*3)/2, s.Radius)
	}
	require.Len(t, sb.Boxes(), 100)
	for i, b := range sb.Boxes() {
		assert.Equal(t, float32(i*3+1), b.BoxSize[0])
	}

	vertexCount := uint32(len(sb.Vertices()))
	firstVertex := uint32(0)
	nextIndex := uint32(0)
	meshEntities := 0
	for _, e := range scene.entities {
		shape, ok := e.Shape().(entity.Mesh)
		if !ok {
			continue
		}
		m := scene.meshes[shape.Handle]
		obj := sb.MeshObjects()[meshEntities]
		meshEntities++

		assert.Equal(t, nextIndex, obj.IndicesOffset)
		assert.Equal(t, uint32(len(m.Indices)), obj.IndicesCount)
		for k := obj.IndicesOffset; k < obj.IndicesOffset+obj.IndicesCount; k++ {
			idx := uint32(sb.Indices()[k])
			assert.Less(t, idx, vertexCount)
			assert.GreaterOrEqual(t, idx, firstVertex)
			assert.Less(t, idx, firstVertex+uint32(len(m.Vertices)))
		}
		firstVertex += uint32(len(m.Vertices))
		nextIndex += obj.IndicesCount
	}
	assert.Len(t, sb.MeshObjects(), meshEntities)
	assert.Equal(t, vertexCount, firstVertex)
	assert.Equal(t, 1, sb.sphereBuffer.Allocations())
}
