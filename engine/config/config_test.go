package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1280, cfg.Render.Width)
	assert.Equal(t, 720, cfg.Render.Height)
	assert.Equal(t, 8, cfg.Render.Depth)
	assert.Equal(t, 4, cfg.Render.Workers)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "oxy.toml", `
[render]
width = 320
height = 200
samples_per_pixel = 2
environment = "sky.png"

[camera]
radius = 12.5

[[mesh]]
handle = "ground"
primitive = "quad"

[[entity]]
kind = "sphere"
position = [0, 1, 0]
diameter = 2.0
[entity.material]
albedo = [0.8, 0.1, 0.1]
smoothness = 0.5

[[entity]]
kind = "mesh"
mesh = "ground"
scale = [20, 1, 20]
active = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.Render.Width)
	assert.Equal(t, 200, cfg.Render.Height)
	assert.Equal(t, 2, cfg.Render.SamplesPerPixel)
	assert.Equal(t, 8, cfg.Render.Depth)
	assert.Equal(t, float32(12.5), cfg.Camera.Radius)
	assert.Equal(t, float32(60), cfg.Camera.FOV)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "sky.png"), cfg.Resolve(cfg.Render.Environment))

	scene := cfg.Scene()
	require.Len(t, scene.Meshes, 1)
	require.Len(t, scene.Entities, 2)

	sphere := scene.Entities[0]
	assert.True(t, sphere.IsActive())
	assert.Equal(t, [3]float32{1, 1, 1}, sphere.ScaleOrDefault())
	require.NotNil(t, sphere.Material)
	assert.Equal(t, [3]float32{0.8, 0.1, 0.1}, *sphere.Material.Albedo)
	assert.Nil(t, sphere.Material.Specular)

	ground := scene.Entities[1]
	assert.False(t, ground.IsActive())
	assert.Equal(t, [3]float32{20, 1, 20}, ground.ScaleOrDefault())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{name: "zero width", content: "[render]\nwidth = 0\n", invalid: true},
		{name: "no samples", content: "[render]\nsamples_per_pixel = 0\n", invalid: true},
		{name: "zero depth", content: "[render]\ndepth = 0\n", invalid: true},
		{name: "bad present mode", content: "[render]\npresent_mode = \"sometimes\"\n", invalid: true},
		{name: "unknown kind", content: "[[entity]]\nkind = \"cone\"\n", invalid: true},
		{name: "mesh without handle", content: "[[entity]]\nkind = \"mesh\"\n", invalid: true},
		{name: "unknown key", content: "[render]\nwidht = 10\n"},
		{name: "malformed", content: "[render\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.toml", tt.content))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadScene(t *testing.T) {
	path := writeFile(t, "scene.toml", `
[[mesh]]
handle = "bunny"
path = "models/bunny.glb"

[[entity]]
kind = "box"
size = [2, 0.5, 2]
rotation_speed = [0, 45, 0]
`)

	s, err := LoadScene(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "models", "bunny.glb"), s.Resolve(s.Meshes[0].Path))
	assert.Equal(t, [3]float32{2, 0.5, 2}, s.Entities[0].SizeOrDefault())
	assert.Equal(t, [3]float32{0, 45, 0}, s.Entities[0].RotationSpeed)
}

func TestScene_ValidateMeshes(t *testing.T) {
	s := &Scene{Meshes: []Mesh{
		{Handle: "a", Primitive: "cube"},
		{Handle: "a", Primitive: "quad"},
		{Handle: "b"},
		{Primitive: "quad"},
	}}
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "duplicate handle")
	assert.Contains(t, err.Error(), "exactly one of path or primitive")
	assert.Contains(t, err.Error(), "handle is required")
}

func TestConfig_EncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Render.Width = 640
	data, err := cfg.Encode()
	require.NoError(t, err)

	loaded, err := Load(writeFile(t, "out.toml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, 640, loaded.Render.Width)
	assert.Equal(t, cfg.Camera, loaded.Camera)
}
