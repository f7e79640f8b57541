package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

func (s *scene) LoadSceneFile(path string) error {
	desc, err := config.LoadScene(path)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return s.Populate(desc)
}

func (s *scene) Populate(desc *config.Scene) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	// Every mesh is imported before anything is registered, so a failing file leaves
	// the scene untouched.
	meshes := make(map[string]mesh.Mesh, len(desc.Meshes))
	materials := make(map[string]material.Material)
	for _, m := range desc.Meshes {
		if m.Primitive != "" {
			prim, ok := mesh.Primitive(m.Primitive)
			if !ok {
				return fmt.Errorf("scene: mesh %q: unknown primitive %q", m.Handle, m.Primitive)
			}
			meshes[m.Handle] = prim
			continue
		}

		mdl, err := s.loader.Load(desc.Resolve(m.Path))
		if err != nil {
			return fmt.Errorf("scene: mesh %q: %w", m.Handle, err)
		}
		meshes[m.Handle] = mdl.Merged()
		if mat := mdl.Material(); mat != nil {
			materials[m.Handle] = mat
		}
	}

	for _, m := range desc.Meshes {
		if err := s.RegisterMesh(m.Handle, meshes[m.Handle]); err != nil {
			return err
		}
	}

	for i, e := range desc.Entities {
		ent, err := buildEntity(i, e, materials)
		if err != nil {
			return err
		}
		s.AddEntity(ent)
	}
	return nil
}

// buildEntity converts an [[entity]] table. A mesh entity without its own material
// takes the material of its model file, if any.
func buildEntity(index int, e config.Entity, meshMaterials map[string]material.Material) (entity.Entity, error) {
	var shape entity.Shape
	switch e.Kind {
	case config.KindSphere:
		shape = entity.Sphere{Diameter: e.DiameterOrDefault()}
	case config.KindBox:
		shape = entity.Box{Size: mgl32.Vec3(e.SizeOrDefault())}
	case config.KindMesh:
		shape = entity.Mesh{Handle: e.Mesh}
	default:
		return nil, fmt.Errorf("scene: entity[%d]: unknown kind %q", index, e.Kind)
	}

	name := e.Name
	if name == "" {
		name = fmt.Sprintf("%s_%d", e.Kind, index)
	}

	options := []entity.EntityBuilderOption{
		entity.WithName(name),
		entity.WithActive(e.IsActive()),
		entity.WithPosition(mgl32.Vec3(e.Position)),
		entity.WithEulerRotation(mgl32.Vec3(e.Rotation)),
		entity.WithScale(mgl32.Vec3(e.ScaleOrDefault())),
		entity.WithRotationSpeed(mgl32.Vec3(e.RotationSpeed)),
	}
	switch {
	case e.Material != nil:
		options = append(options, entity.WithMaterial(buildMaterial(name, e.Material)))
	case meshMaterials[e.Mesh] != nil && e.Kind == config.KindMesh:
		options = append(options, entity.WithMaterial(meshMaterials[e.Mesh]))
	}

	return entity.NewEntity(shape, options...), nil
}

func buildMaterial(name string, m *config.Material) material.Material {
	options := []material.MaterialBuilderOption{
		material.WithName(name),
		material.WithSmoothness(m.Smoothness),
	}
	if m.Albedo != nil {
		options = append(options, material.WithAlbedo(material.ColorFromRGB(*m.Albedo)))
	}
	if m.Specular != nil {
		options = append(options, material.WithSpecular(material.ColorFromRGB(*m.Specular)))
	}
	if m.Emission != nil {
		options = append(options, material.WithEmission(material.ColorFromRGB(*m.Emission)))
	}
	return material.NewMaterial(options...)
}
