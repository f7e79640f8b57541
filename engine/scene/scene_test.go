package scene

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntityAssignsIDsInOrder(t *testing.T) {
	s := NewScene("test")
	a := entity.NewEntity(entity.Sphere{Diameter: 1})
	b := entity.NewEntity(entity.Box{Size: mgl32.Vec3{1, 1, 1}})

	idA := s.AddEntity(a)
	idB := s.AddEntity(b)

	assert.Equal(t, uint64(1), idA)
	assert.Equal(t, uint64(2), idB)
	assert.Equal(t, []entity.Entity{a, b}, s.FindAllEntities())
	assert.Same(t, b, s.Get(idB))
	assert.Equal(t, 2, s.Count())

	assert.Equal(t, idA, s.AddEntity(a))
	assert.Equal(t, 2, s.Count())
}

func TestAddEntityKeepsPresetIDs(t *testing.T) {
	s := NewScene("test")
	preset := entity.NewEntity(entity.Sphere{Diameter: 1})
	preset.SetID(10)

	assert.Equal(t, uint64(10), s.AddEntity(preset))
	assert.Equal(t, uint64(11), s.AddEntity(entity.NewEntity(entity.Sphere{Diameter: 1})))
}

func TestFindAllEntitiesReturnsSnapshot(t *testing.T) {
	inactive := entity.NewEntity(entity.Sphere{Diameter: 1}, entity.WithActive(false))
	s := NewScene("test", WithEntities(inactive))

	snapshot := s.FindAllEntities()
	s.AddEntity(entity.NewEntity(entity.Sphere{Diameter: 2}))

	require.Len(t, snapshot, 1)
	assert.Same(t, inactive, snapshot[0])
	assert.Len(t, s.FindAllEntities(), 2)
}

func TestRemoveEntity(t *testing.T) {
	a := entity.NewEntity(entity.Sphere{Diameter: 1})
	b := entity.NewEntity(entity.Sphere{Diameter: 2})
	c := entity.NewEntity(entity.Sphere{Diameter: 3})
	s := NewScene("test", WithEntities(a, b, c))
	s.ClearChangedFlag()

	assert.True(t, s.RemoveEntity(b.ID()))
	assert.Equal(t, []entity.Entity{a, c}, s.FindAllEntities())
	assert.Nil(t, s.Get(b.ID()))
	assert.True(t, s.HasChangedSinceLastCheck())

	s.ClearChangedFlag()
	assert.False(t, s.RemoveEntity(b.ID()))
	assert.False(t, s.HasChangedSinceLastCheck())
}

func TestResolveMesh(t *testing.T) {
	s := NewScene("test", WithMesh("quad", mesh.Quad()))
	quad := entity.NewEntity(entity.Mesh{Handle: "quad"})
	missing := entity.NewEntity(entity.Mesh{Handle: "bunny"})
	sphere := entity.NewEntity(entity.Sphere{Diameter: 1})

	m, ok := s.ResolveMesh(quad)
	require.True(t, ok)
	assert.Equal(t, mesh.Quad(), m)

	_, ok = s.ResolveMesh(missing)
	assert.False(t, ok)
	_, ok = s.ResolveMesh(sphere)
	assert.False(t, ok)
	_, ok = s.ResolveMesh(nil)
	assert.False(t, ok)

	s.UnregisterMesh("quad")
	_, ok = s.ResolveMesh(quad)
	assert.False(t, ok)
}

func TestRegisterMeshRejectsInvalid(t *testing.T) {
	s := NewScene("test")
	s.ClearChangedFlag()

	tests := []struct {
		name   string
		handle string
		mesh   mesh.Mesh
	}{
		{name: "empty handle", handle: "", mesh: mesh.Quad()},
		{name: "empty mesh", handle: "empty", mesh: mesh.Mesh{Name: "empty"}},
		{name: "partial triangle", handle: "partial", mesh: mesh.Mesh{Vertices: []mgl32.Vec3{{}, {}}, Indices: []uint32{0, 1}}},
		{name: "index out of range", handle: "oob", mesh: mesh.Mesh{Vertices: []mgl32.Vec3{{}, {}, {}}, Indices: []uint32{0, 1, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.RegisterMesh(tt.handle, tt.mesh))
		})
	}
	assert.Empty(t, s.Meshes())
	assert.False(t, s.HasChangedSinceLastCheck())
}

func TestStructuralChangeFlag(t *testing.T) {
	s := NewScene("test")
	assert.False(t, s.HasChangedSinceLastCheck())

	s.AddEntity(entity.NewEntity(entity.Sphere{Diameter: 1}))
	assert.True(t, s.HasChangedSinceLastCheck())
	s.ClearChangedFlag()

	require.NoError(t, s.RegisterMesh("cube", mesh.Cube()))
	assert.True(t, s.HasChangedSinceLastCheck())
	s.ClearChangedFlag()

	s.UnregisterMesh("absent")
	assert.False(t, s.HasChangedSinceLastCheck())

	s.Clear()
	assert.True(t, s.HasChangedSinceLastCheck())
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Meshes())
}

func TestUpdateAppliesRotationSpeed(t *testing.T) {
	spinning := entity.NewEntity(entity.Box{Size: mgl32.Vec3{1, 1, 1}}, entity.WithRotationSpeed(mgl32.Vec3{0, 90, 0}))
	still := entity.NewEntity(entity.Sphere{Diameter: 1})
	asleep := entity.NewEntity(entity.Sphere{Diameter: 1}, entity.WithActive(false), entity.WithRotationSpeed(mgl32.Vec3{0, 90, 0}))
	s := NewScene("test", WithEntities(spinning, still, asleep))
	for _, e := range s.FindAllEntities() {
		e.ClearChangedFlag()
	}

	s.Update(0.5)

	assert.InDelta(t, 45, spinning.Transform().EulerAngles().Y(), 1e-3)
	assert.True(t, spinning.HasChangedSinceLastCheck())
	assert.False(t, still.HasChangedSinceLastCheck())
	assert.False(t, asleep.HasChangedSinceLastCheck())

	spinning.ClearChangedFlag()
	s.Update(0)
	assert.False(t, spinning.HasChangedSinceLastCheck())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewScene("test", WithMesh("cube", mesh.Cube()))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				e := entity.NewEntity(entity.Mesh{Handle: "cube"})
				id := s.AddEntity(e)
				_, _ = s.ResolveMesh(e)
				_ = s.FindAllEntities()
				s.Update(0.01)
				if (i+j)%2 == 0 {
					s.RemoveEntity(id)
				}
			}
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, e := range s.FindAllEntities() {
		assert.False(t, seen[e.ID()])
		seen[e.ID()] = true
	}
	assert.Equal(t, 200, s.Count())
}

func TestLoadMeshThroughLoader(t *testing.T) {
	mdl := &loader.Model{
		Name: "bunny",
		Primitives: []loader.Primitive{
			{Mesh: mesh.Triangle(), MaterialIndex: -1},
			{Mesh: mesh.Triangle(), MaterialIndex: -1},
		},
	}
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithModel("assets/bunny.glb", mdl))
	s := NewScene("test", WithLoader(l))

	got, err := s.LoadMesh("bunny", "assets/bunny.glb")
	require.NoError(t, err)
	assert.Same(t, mdl, got)

	m, ok := s.ResolveMesh(entity.NewEntity(entity.Mesh{Handle: "bunny"}))
	require.True(t, ok)
	assert.Len(t, m.Vertices, 6)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.Indices)

	_, err = s.LoadMesh("missing", "assets/missing.glb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assets/missing.glb")
}

const sceneFile = `
[[mesh]]
handle = "floor"
primitive = "quad"

[[mesh]]
handle = "statue"
path = "statue.glb"

[[entity]]
name = "ball"
kind = "sphere"
position = [0, 1, 0]
diameter = 2.0
rotation_speed = [0, 30, 0]
[entity.material]
albedo = [0.8, 0.1, 0.1]
emission = [4, 4, 4]
smoothness = 0.5

[[entity]]
kind = "box"
size = [2, 1, 3]
rotation = [0, 90, 0]
active = false

[[entity]]
kind = "mesh"
mesh = "floor"
scale = [10, 1, 10]

[[entity]]
kind = "mesh"
mesh = "statue"
`

func TestLoadSceneFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(sceneFile), 0o644))

	gold := material.NewMaterial(material.WithName("gold"))
	statue := &loader.Model{
		Name:       "statue",
		Primitives: []loader.Primitive{{Mesh: mesh.Tetrahedron(), MaterialIndex: 0}},
		Materials:  []material.Material{gold},
	}
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithModel(filepath.Join(dir, "statue.glb"), statue))
	s := NewScene("test", WithLoader(l))

	require.NoError(t, s.LoadSceneFile(path))
	assert.Equal(t, []string{"floor", "statue"}, s.Meshes())

	entities := s.FindAllEntities()
	require.Len(t, entities, 4)

	ball := entities[0]
	assert.Equal(t, "ball", ball.Name())
	assert.Equal(t, entity.Sphere{Diameter: 2}, ball.Shape())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, ball.Transform().Position)
	assert.Equal(t, mgl32.Vec3{0, 30, 0}, ball.RotationSpeed())
	assert.Equal(t, [3]float32{0.8, 0.1, 0.1}, ball.Material().Albedo().RGB())
	assert.Equal(t, [3]float32{4, 4, 4}, ball.Material().Emission().RGB())
	assert.Equal(t, [3]float32{0, 0, 0}, ball.Material().Specular().RGB())
	assert.InDelta(t, 0.5, ball.Material().Smoothness(), 1e-6)

	box := entities[1]
	assert.Equal(t, "box_1", box.Name())
	assert.Equal(t, entity.Box{Size: mgl32.Vec3{2, 1, 3}}, box.Shape())
	assert.False(t, box.Active())
	assert.InDelta(t, 90, box.Transform().EulerAngles().Y(), 1e-3)

	floor := entities[2]
	assert.Equal(t, mgl32.Vec3{10, 1, 10}, floor.Transform().Scale)
	_, ok := s.ResolveMesh(floor)
	assert.True(t, ok)

	assert.Same(t, gold, entities[3].Material())
	m, ok := s.ResolveMesh(entities[3])
	require.True(t, ok)
	assert.Equal(t, mesh.Tetrahedron().Indices, m.Indices)
}

func TestLoadSceneFileMissingMeshLeavesSceneUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(sceneFile), 0o644))

	s := NewScene("test")
	err := s.LoadSceneFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statue.glb")
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Meshes())
}

func TestLoadSceneFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[entity]]\nkind = \"torus\"\n"), 0o644))

	s := NewScene("test")
	require.Error(t, s.LoadSceneFile(path))
	assert.Zero(t, s.Count())
}

func TestLoadSceneFileExample(t *testing.T) {
	s := NewScene("example")
	require.NoError(t, s.LoadSceneFile(filepath.Join("..", "..", "examples", "scene.toml")))

	assert.Equal(t, []string{"floor", "pyramid"}, s.Meshes())
	require.Equal(t, 5, s.Count())

	var pyramid entity.Entity
	for _, e := range s.FindAllEntities() {
		if e.Name() == "pyramid" {
			pyramid = e
		}
	}
	require.NotNil(t, pyramid)

	m, ok := s.ResolveMesh(pyramid)
	require.True(t, ok)
	assert.Len(t, m.Vertices, 5)
	assert.Equal(t, 6, m.TriangleCount())

	copper := pyramid.Material()
	assert.Equal(t, "copper", copper.Name())
	assert.InDelta(t, 0.7, copper.Smoothness(), 1e-6)
	specular := copper.Specular().RGB()
	assert.InDeltaSlice(t, []float32{0.95, 0.64, 0.54}, specular[:], 1e-6)
}
