// Package config loads the TOML files that describe a render session: the render and
// window settings, the orbit camera, and optionally the scene itself.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Entity kinds accepted in scene files.
const (
	KindSphere = "sphere"
	KindBox    = "box"
	KindMesh   = "mesh"
)

// Present modes accepted in [render] present_mode.
const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// Render holds the [render] table.
type Render struct {
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	SamplesPerPixel int    `toml:"samples_per_pixel"`
	Depth           int    `toml:"depth"`
	Environment     string `toml:"environment"`
	Workers         int    `toml:"workers"`
	Kernel          string `toml:"kernel"`
	PresentMode     string `toml:"present_mode"`
	Software        bool   `toml:"software"`
	Verbose         bool   `toml:"verbose"`
}

// Window holds the [window] table.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Camera holds the [camera] table. Angles are in degrees.
type Camera struct {
	FOV    float32    `toml:"fov"`
	Near   float32    `toml:"near"`
	Far    float32    `toml:"far"`
	Target [3]float32 `toml:"target"`
	Radius float32    `toml:"radius"`
	Yaw    float32    `toml:"yaw"`
	Pitch  float32    `toml:"pitch"`
}

// Config is a whole configuration file. Meshes and entities are optional; a scene can also
// come from a separate file loaded with LoadScene.
type Config struct {
	Render   Render   `toml:"render"`
	Window   Window   `toml:"window"`
	Camera   Camera   `toml:"camera"`
	Meshes   []Mesh   `toml:"mesh"`
	Entities []Entity `toml:"entity"`

	// Dir is the directory relative paths in the file are resolved against.
	Dir string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: Render{
			Width:           1280,
			Height:          720,
			SamplesPerPixel: 1,
			Depth:           8,
			Workers:         4,
			PresentMode:     PresentModeVSync,
		},
		Window: Window{
			Title:  "oxy-trace",
			Width:  1280,
			Height: 720,
		},
		Camera: Camera{
			FOV:    60,
			Near:   0.1,
			Far:    1000,
			Target: [3]float32{0, 1, 0},
			Radius: 8,
			Pitch:  15,
		},
		Dir: ".",
	}
}

// Load reads a configuration file over the defaults. Keys the file leaves out keep their
// default value; unknown keys are an error.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Config: the validated configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func decodeStrict(data []byte, v any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.New(strict.String())
		}
		return err
	}
	return nil
}

// Validate checks every field and reports all problems at once.
//
// Returns:
//   - error: nil, or the joined validation errors, each wrapping ErrInvalidConfig
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig))
		}
	}

	check(c.Render.Width > 0 && c.Render.Height > 0, "render resolution %dx%d must be positive", c.Render.Width, c.Render.Height)
	check(c.Render.SamplesPerPixel > 0, "render.samples_per_pixel %d must be positive", c.Render.SamplesPerPixel)
	check(c.Render.Depth >= 1, "render.depth %d must be at least 1", c.Render.Depth)
	check(c.Render.Workers >= 0, "render.workers %d must not be negative", c.Render.Workers)
	check(c.Render.PresentMode == "" || c.Render.PresentMode == PresentModeVSync || c.Render.PresentMode == PresentModeUncapped,
		"render.present_mode %q must be %q or %q", c.Render.PresentMode, PresentModeVSync, PresentModeUncapped)
	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	check(c.Camera.FOV > 0 && c.Camera.FOV < 180, "camera.fov %g must be in (0, 180)", c.Camera.FOV)
	check(c.Camera.Near > 0 && c.Camera.Far > c.Camera.Near, "camera near %g and far %g must satisfy 0 < near < far", c.Camera.Near, c.Camera.Far)
	check(c.Camera.Radius > 0, "camera.radius %g must be positive", c.Camera.Radius)

	if err := c.Scene().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Scene returns the meshes and entities declared in the configuration file.
func (c *Config) Scene() *Scene {
	return &Scene{Meshes: c.Meshes, Entities: c.Entities, Dir: c.Dir}
}

// Resolve returns path unchanged when absolute or empty, and joined onto the
// configuration directory otherwise.
func (c *Config) Resolve(path string) string {
	return resolve(c.Dir, path)
}

// Encode serializes the configuration as TOML.
//
// Returns:
//   - []byte: the TOML document
//   - error: an error if encoding fails
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return data, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
