package scene

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the entity and mesh registry the ray tracer renders. Entities are kept in
// insertion order; meshes are keyed by the handle mesh entities reference.
// Structural edits (adding or removing entities, registering meshes) raise a changed
// flag with the same contract as an entity's, so a renderer restarts accumulation when
// the set of objects changes.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// FindAllEntities returns an ordered snapshot of every entity, active or not. The
	// slice is a copy; editing the scene afterwards does not change it.
	//
	// Returns:
	//   - []entity.Entity: the entities in insertion order
	FindAllEntities() []entity.Entity

	// ResolveMesh looks up the mesh a Mesh entity references.
	//
	// Parameters:
	//   - e: the entity to resolve
	//
	// Returns:
	//   - mesh.Mesh: the registered mesh
	//   - bool: false if e is not a Mesh entity or its handle has no mesh yet
	ResolveMesh(e entity.Entity) (mesh.Mesh, bool)

	// RegisterMesh validates m and stores it under handle, replacing any previous mesh.
	//
	// Parameters:
	//   - handle: the handle entities reference
	//   - m: the mesh
	//
	// Returns:
	//   - error: an error if the handle is empty or the mesh is empty or invalid
	RegisterMesh(handle string, m mesh.Mesh) error

	// LoadMesh imports a glTF/GLB file, merges its primitives and registers the result
	// under handle.
	//
	// Parameters:
	//   - handle: the handle entities reference
	//   - path: the model file
	//
	// Returns:
	//   - *loader.Model: the imported model, carrying the file's materials
	//   - error: an error naming the path if import or registration fails
	LoadMesh(handle, path string) (*loader.Model, error)

	// UnregisterMesh removes the mesh stored under handle. Entities referencing it are
	// skipped until a mesh is registered again.
	//
	// Parameters:
	//   - handle: the handle to remove
	UnregisterMesh(handle string)

	// Meshes returns the registered handles in sorted order.
	Meshes() []string

	// AddEntity appends e to the scene, assigning an ID if it has none. Adding an entity
	// whose ID is already registered is a no-op.
	//
	// Parameters:
	//   - e: the entity to add
	//
	// Returns:
	//   - uint64: the entity's ID
	AddEntity(e entity.Entity) uint64

	// RemoveEntity removes an entity by ID.
	//
	// Parameters:
	//   - id: the entity's ID
	//
	// Returns:
	//   - bool: false if no entity has that ID
	RemoveEntity(id uint64) bool

	// Get retrieves an entity by ID, or nil if not found.
	Get(id uint64) entity.Entity

	// Count returns the number of entities, active or not.
	Count() int

	// Clear removes every entity and mesh.
	Clear()

	// Update advances the scene by dt seconds, turning every active entity by its
	// rotation speed.
	//
	// Parameters:
	//   - dt: elapsed time since the last update in seconds
	Update(dt float32)

	// LoadSceneFile adds the meshes and entities of a TOML scene file. Mesh paths resolve
	// against the file's directory.
	//
	// Parameters:
	//   - path: the scene file
	//
	// Returns:
	//   - error: an error if the file is invalid or a mesh cannot be loaded
	LoadSceneFile(path string) error

	// Populate adds the meshes and entities of an already decoded scene description.
	// Every mesh is imported before any is registered, so a failing mesh file leaves the
	// scene unchanged.
	//
	// Parameters:
	//   - desc: the scene description
	//
	// Returns:
	//   - error: an error if the description is invalid or a mesh cannot be loaded
	Populate(desc *config.Scene) error

	// HasChangedSinceLastCheck reports whether the entity list or mesh library changed
	// since the flag was last cleared.
	HasChangedSinceLastCheck() bool

	// ClearChangedFlag clears the structural changed flag.
	ClearChangedFlag()
}

type scene struct {
	mu *sync.RWMutex

	name string

	entities []entity.Entity
	registry map[uint64]entity.Entity
	meshes   map[string]mesh.Mesh
	nextID   uint64

	loader  loader.Loader
	changed atomic.Bool
}

var _ Scene = &scene{}

// NewScene creates an empty scene. Meshes are imported through a glTF loader unless
// WithLoader supplies one.
//
// Parameters:
//   - name: the scene's identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		name:     name,
		registry: make(map[uint64]entity.Entity),
		meshes:   make(map[string]mesh.Mesh),
	}

	for _, option := range options {
		option(s)
	}

	if s.loader == nil {
		s.loader = loader.NewLoader(loader.BackendTypeGLTF)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) FindAllEntities() []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entities)
}

func (s *scene) ResolveMesh(e entity.Entity) (mesh.Mesh, bool) {
	if e == nil {
		return mesh.Mesh{}, false
	}
	shape, ok := e.Shape().(entity.Mesh)
	if !ok {
		return mesh.Mesh{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[shape.Handle]
	return m, ok
}

func (s *scene) RegisterMesh(handle string, m mesh.Mesh) error {
	if handle == "" {
		return fmt.Errorf("scene: mesh handle is required")
	}
	if m.Empty() {
		return fmt.Errorf("scene: mesh %q has no triangles", handle)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	s.mu.Lock()
	s.meshes[handle] = m
	s.mu.Unlock()
	s.changed.Store(true)
	return nil
}

func (s *scene) LoadMesh(handle, path string) (*loader.Model, error) {
	mdl, err := s.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("scene: mesh %q: %w", handle, err)
	}
	if err := s.RegisterMesh(handle, mdl.Merged()); err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return mdl, nil
}

func (s *scene) UnregisterMesh(handle string) {
	s.mu.Lock()
	_, exists := s.meshes[handle]
	delete(s.meshes, handle)
	s.mu.Unlock()

	if exists {
		s.changed.Store(true)
	}
}

func (s *scene) Meshes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]string, 0, len(s.meshes))
	for h := range s.meshes {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return handles
}

func (s *scene) AddEntity(e entity.Entity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID() == 0 {
		s.nextID++
		e.SetID(s.nextID)
	}
	s.nextID = max(s.nextID, e.ID())
	if _, exists := s.registry[e.ID()]; exists {
		return e.ID()
	}
	s.registry[e.ID()] = e
	s.entities = append(s.entities, e)
	s.changed.Store(true)
	return e.ID()
}

func (s *scene) RemoveEntity(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.registry[id]
	if !exists {
		return false
	}
	delete(s.registry, id)
	s.entities = slices.DeleteFunc(s.entities, func(other entity.Entity) bool {
		return other == e
	})
	s.changed.Store(true)
	return true
}

func (s *scene) Get(id uint64) entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = nil
	s.registry = make(map[uint64]entity.Entity)
	s.meshes = make(map[string]mesh.Mesh)
	s.changed.Store(true)
}

func (s *scene) Update(dt float32) {
	if dt <= 0 {
		return
	}
	for _, e := range s.FindAllEntities() {
		if !e.Active() {
			continue
		}
		speed := e.RotationSpeed()
		if speed == (mgl32.Vec3{}) {
			continue
		}
		e.Rotate(speed.Mul(dt))
	}
}

func (s *scene) HasChangedSinceLastCheck() bool {
	return s.changed.Load()
}

func (s *scene) ClearChangedFlag() {
	s.changed.Store(false)
}
