package scene

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithLoader sets the loader LoadMesh and LoadSceneFile import model files through.
//
// Parameters:
//   - l: the loader to use
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLoader(l loader.Loader) SceneBuilderOption {
	return func(s *scene) {
		s.loader = l
	}
}

// WithEntities adds initial entities to the scene in order.
// Entities without IDs will be assigned new IDs.
//
// Parameters:
//   - entities: the entities to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEntities(entities ...entity.Entity) SceneBuilderOption {
	return func(s *scene) {
		for _, e := range entities {
			s.AddEntity(e)
		}
	}
}

// WithMesh registers a mesh under handle. Invalid meshes are dropped, so entities that
// reference the handle are skipped when rendering.
//
// Parameters:
//   - handle: the handle entities reference
//   - m: the mesh
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMesh(handle string, m mesh.Mesh) SceneBuilderOption {
	return func(s *scene) {
		_ = s.RegisterMesh(handle, m)
	}
}
