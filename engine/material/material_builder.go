package material

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithAlbedo is an option builder that sets the diffuse reflectance color.
//
// Parameters:
//   - c: the albedo color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo option to a material
func WithAlbedo(c Color) MaterialBuilderOption {
	return func(m *material) {
		m.albedo = c
	}
}

// WithSpecular is an option builder that sets the specular reflectance color.
//
// Parameters:
//   - c: the specular color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option to a material
func WithSpecular(c Color) MaterialBuilderOption {
	return func(m *material) {
		m.specular = c
	}
}

// WithEmission is an option builder that sets the emitted radiance. HDR values above 1
// are preserved.
//
// Parameters:
//   - c: the emission color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emission option to a material
func WithEmission(c Color) MaterialBuilderOption {
	return func(m *material) {
		m.emission = c
	}
}

// WithSmoothness is an option builder that sets the surface smoothness, clamped to [0, 1].
//
// Parameters:
//   - s: the smoothness
//
// Returns:
//   - MaterialBuilderOption: a function that applies the smoothness option to a material
func WithSmoothness(s float32) MaterialBuilderOption {
	return func(m *material) {
		m.smoothness = common.Clamp01(s)
	}
}
