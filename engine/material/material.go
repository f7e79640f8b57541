package material

// material is the implementation of the Material interface.
type material struct {
	name       string
	albedo     Color
	specular   Color
	emission   Color
	smoothness float32
}

// Material defines the surface description shared by every ray traced entity. It is a
// passive value object: all properties are fixed at construction and read once per
// frame when the scene is serialized for the GPU.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Albedo retrieves the diffuse reflectance color.
	//
	// Returns:
	//   - Color: the albedo color, white by default
	Albedo() Color

	// Specular retrieves the specular reflectance color.
	//
	// Returns:
	//   - Color: the specular color, black by default
	Specular() Color

	// Emission retrieves the emitted radiance. Channels may exceed 1 for HDR emitters.
	//
	// Returns:
	//   - Color: the emission color, black by default
	Emission() Color

	// Smoothness retrieves the surface smoothness in [0, 1], where 1 is a perfect mirror.
	//
	// Returns:
	//   - float32: the smoothness
	Smoothness() float32
}

var _ Material = &material{}

// NewMaterial creates a new Material with white albedo, black specular, no emission and
// zero smoothness, then applies the given options.
//
// Parameters:
//   - options: functional options to configure the material
//
// Returns:
//   - Material: the configured material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		albedo:   White,
		specular: Black,
		emission: Black,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Default returns the material assigned to entities created without one.
func Default() Material {
	return NewMaterial(WithName("default"))
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Albedo() Color {
	return m.albedo
}

func (m *material) Specular() Color {
	return m.specular
}

func (m *material) Emission() Color {
	return m.emission
}

func (m *material) Smoothness() float32 {
	return m.smoothness
}
