package main

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// demoScene builds the scene shown when neither a scene file nor config entities are given:
// a floor, three spheres of increasing smoothness, a light and a spinning tetrahedron.
func demoScene() (scene.Scene, error) {
	s := scene.NewScene("demo")
	if err := s.RegisterMesh("tetrahedron", mesh.Tetrahedron()); err != nil {
		return nil, err
	}

	floor := material.NewMaterial(
		material.WithName("floor"),
		material.WithAlbedo(rgb(0.6, 0.6, 0.6)),
		material.WithSpecular(rgb(0.04, 0.04, 0.04)),
		material.WithSmoothness(0.2),
	)
	s.AddEntity(entity.NewEntity(entity.Box{Size: mgl32.Vec3{20, 0.2, 20}},
		entity.WithName("floor"),
		entity.WithPosition(mgl32.Vec3{0, -0.1, 0}),
		entity.WithMaterial(floor),
	))

	colors := []material.Color{
		rgb(0.9, 0.2, 0.2),
		rgb(0.2, 0.9, 0.2),
		rgb(0.2, 0.3, 0.9),
	}
	for i, c := range colors {
		m := material.NewMaterial(
			material.WithAlbedo(c),
			material.WithSpecular(c.Scale(0.5)),
			material.WithSmoothness(float32(i)*0.45),
		)
		s.AddEntity(entity.NewEntity(entity.Sphere{Diameter: 1.5},
			entity.WithPosition(mgl32.Vec3{float32(i-1) * 2, 0.75, 0}),
			entity.WithMaterial(m),
		))
	}

	light := material.NewMaterial(
		material.WithName("light"),
		material.WithAlbedo(material.Black),
		material.WithEmission(rgb(8, 7, 6)),
	)
	s.AddEntity(entity.NewEntity(entity.Sphere{Diameter: 2},
		entity.WithName("light"),
		entity.WithPosition(mgl32.Vec3{0, 6, -3}),
		entity.WithMaterial(light),
	))

	gold := material.NewMaterial(
		material.WithAlbedo(rgb(1, 0.78, 0.34)),
		material.WithSpecular(rgb(1, 0.78, 0.34)),
		material.WithSmoothness(0.85),
	)
	s.AddEntity(entity.NewEntity(entity.Mesh{Handle: "tetrahedron"},
		entity.WithName("spinner"),
		entity.WithPosition(mgl32.Vec3{0, 1, 2.5}),
		entity.WithMaterial(gold),
		entity.WithRotationSpeed(mgl32.Vec3{0, 30, 0}),
	))
	return s, nil
}

func rgb(r, g, b float32) material.Color {
	return material.ColorFromRGB([3]float32{r, g, b})
}
