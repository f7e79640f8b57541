package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Mesh declares a mesh handle backed by a glTF file or a built-in primitive.
type Mesh struct {
	Handle    string `toml:"handle"`
	Path      string `toml:"path"`
	Primitive string `toml:"primitive"`
}

// Material holds an [entity.material] table. Colors left out keep the material defaults.
type Material struct {
	Albedo     *[3]float32 `toml:"albedo"`
	Specular   *[3]float32 `toml:"specular"`
	Emission   *[3]float32 `toml:"emission"`
	Smoothness float32     `toml:"smoothness"`
}

// Entity holds one [[entity]] table. Fields that do not apply to the kind are ignored.
type Entity struct {
	Name          string      `toml:"name"`
	Kind          string      `toml:"kind"`
	Position      [3]float32  `toml:"position"`
	Rotation      [3]float32  `toml:"rotation"`
	Scale         *[3]float32 `toml:"scale"`
	Diameter      float32     `toml:"diameter"`
	Size          *[3]float32 `toml:"size"`
	Mesh          string      `toml:"mesh"`
	Active        *bool       `toml:"active"`
	RotationSpeed [3]float32  `toml:"rotation_speed"`
	Material      *Material   `toml:"material"`
}

// IsActive reports the entity's active flag, true when left out.
func (e Entity) IsActive() bool {
	return e.Active == nil || *e.Active
}

// ScaleOrDefault returns the scale, or (1, 1, 1) when left out.
func (e Entity) ScaleOrDefault() [3]float32 {
	if e.Scale == nil {
		return [3]float32{1, 1, 1}
	}
	return *e.Scale
}

// SizeOrDefault returns the box size, or (1, 1, 1) when left out.
func (e Entity) SizeOrDefault() [3]float32 {
	if e.Size == nil {
		return [3]float32{1, 1, 1}
	}
	return *e.Size
}

// DiameterOrDefault returns the sphere diameter, or 1 when left out.
func (e Entity) DiameterOrDefault() float32 {
	if e.Diameter == 0 {
		return 1
	}
	return e.Diameter
}

// Scene is a scene description: a mesh library and an ordered entity list.
type Scene struct {
	Meshes   []Mesh   `toml:"mesh"`
	Entities []Entity `toml:"entity"`

	// Dir is the directory mesh paths are resolved against.
	Dir string `toml:"-"`
}

// LoadScene reads a scene file holding only [[mesh]] and [[entity]] tables.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Scene: the validated scene description
//   - error: an error if the file cannot be read, decoded or validated
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	s := &Scene{}
	if err := decodeStrict(data, s); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	s.Dir = filepath.Dir(path)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return s, nil
}

// Resolve returns path joined onto the scene directory unless it is absolute or empty.
func (s *Scene) Resolve(path string) string {
	return resolve(s.Dir, path)
}

// Validate checks mesh handles and entity kinds.
//
// Returns:
//   - error: nil, or the joined validation errors, each wrapping ErrInvalidConfig
func (s *Scene) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig))
	}

	handles := make(map[string]bool, len(s.Meshes))
	for i, m := range s.Meshes {
		switch {
		case m.Handle == "":
			fail("mesh[%d]: handle is required", i)
		case handles[m.Handle]:
			fail("mesh[%d]: duplicate handle %q", i, m.Handle)
		}
		if (m.Path == "") == (m.Primitive == "") {
			fail("mesh[%d] %q: exactly one of path or primitive is required", i, m.Handle)
		}
		handles[m.Handle] = true
	}

	for i, e := range s.Entities {
		switch e.Kind {
		case KindSphere:
			if e.Diameter < 0 {
				fail("entity[%d]: diameter %g must not be negative", i, e.Diameter)
			}
		case KindBox:
			if size := e.SizeOrDefault(); size[0] < 0 || size[1] < 0 || size[2] < 0 {
				fail("entity[%d]: size %v must not be negative", i, size)
			}
		case KindMesh:
			if e.Mesh == "" {
				fail("entity[%d]: mesh handle is required", i)
			}
		default:
			fail("entity[%d]: unknown kind %q", i, e.Kind)
		}
		if e.Material != nil && (e.Material.Smoothness < 0 || e.Material.Smoothness > 1) {
			fail("entity[%d]: smoothness %g must be in [0, 1]", i, e.Material.Smoothness)
		}
	}
	return errors.Join(errs...)
}
