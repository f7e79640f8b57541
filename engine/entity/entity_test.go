package entity

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestNewEntity_Defaults(t *testing.T) {
	e := NewEntity(Sphere{Diameter: 2})

	assert.True(t, e.Active())
	assert.True(t, e.HasChangedSinceLastCheck(), "new entities start changed")
	assert.Equal(t, "default", e.Material().Name())
	assert.Equal(t, KindSphere, e.Shape().Kind())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, e.Transform().Scale)
	assert.Equal(t, mgl32.QuatIdent(), e.Transform().Rotation)
}

func TestEntity_ChangedFlag(t *testing.T) {
	e := NewEntity(Box{Size: mgl32.Vec3{1, 1, 1}}, WithName("crate"))
	e.ClearChangedFlag()

	e.SetRotationSpeed(mgl32.Vec3{0, 10, 0})
	assert.False(t, e.HasChangedSinceLastCheck(), "rotation speed alone does not alter the image")

	e.SetActive(true)
	assert.False(t, e.HasChangedSinceLastCheck(), "setting the same active state is a no-op")

	mutations := []func(){
		func() { e.SetPosition(mgl32.Vec3{1, 0, 0}) },
		func() { e.SetEulerRotation(mgl32.Vec3{0, 45, 0}) },
		func() { e.SetScale(mgl32.Vec3{2, 2, 2}) },
		func() { e.SetMaterial(material.NewMaterial()) },
		func() { e.SetActive(false) },
		func() { e.Rotate(mgl32.Vec3{5, 0, 0}) },
	}
	for i, mutate := range mutations {
		mutate()
		assert.True(t, e.HasChangedSinceLastCheck(), "mutation %d", i)
		e.ClearChangedFlag()
	}

	e.Rotate(mgl32.Vec3{})
	assert.False(t, e.HasChangedSinceLastCheck())
}

func TestEntity_SetMaterialNil(t *testing.T) {
	e := NewEntity(Mesh{Handle: "pyramid"}, WithMaterial(material.NewMaterial(material.WithName("gold"))))
	assert.Equal(t, "gold", e.Material().Name())

	e.SetMaterial(nil)
	assert.Equal(t, "default", e.Material().Name())
}

func TestEntity_Rotate(t *testing.T) {
	e := NewEntity(Sphere{Diameter: 1})
	e.Rotate(mgl32.Vec3{0, 90, 0})

	euler := e.Transform().EulerAngles()
	assert.InDelta(t, 90, euler[1], 1e-3)

	forward := e.Transform().LocalToWorld().Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3()
	assert.InDeltaSlice(t, []float32{1, 0, 0}, forward[:], 1e-5)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "sphere", KindSphere.String())
	assert.Equal(t, "box", KindBox.String())
	assert.Equal(t, "mesh", KindMesh.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
