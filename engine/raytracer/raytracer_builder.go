package raytracer

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// RaytracerBuilderOption is a functional option applied to a ray tracer during construction via NewRaytracer.
type RaytracerBuilderOption func(*raytracer)

// WithDevice sets the compute device buffers and images are allocated on.
//
// Parameters:
//   - device: the compute device, usually a renderer.Renderer
//
// Returns:
//   - RaytracerBuilderOption: a function that applies the device option to a ray tracer
func WithDevice(device ComputeDevice) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.device = device
	}
}

// WithKernel sets the compute kernel that traces the rays.
//
// Parameters:
//   - k: the kernel, compiled from a shader using the ray tracing parameter names
//
// Returns:
//   - RaytracerBuilderOption: a function that applies the kernel option to a ray tracer
func WithKernel(k renderer.Kernel) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.kernel = k
	}
}

// WithScene sets the scene entities and meshes are read from.
func WithScene(s SceneSource) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.scene = s
	}
}

// WithCamera sets the camera the rays are cast from.
func WithCamera(c CameraSource) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.camera = c
	}
}

// WithResolution sets the render size in pixels. Defaults to 1280x720.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RaytracerBuilderOption: a function that applies the resolution option to a ray tracer
func WithResolution(width, height int) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.width = width
		r.height = height
	}
}

// WithSamplesPerPixel sets how many samples each pixel traces per frame. Defaults to 1.
func WithSamplesPerPixel(n int) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.samplesPerPixel = max(n, 1)
	}
}

// WithDepth sets the maximum number of bounces per ray. Defaults to 8.
func WithDepth(n int) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.depth = max(n, 1)
	}
}

// WithEnvironment sets the equirectangular sky texture. An empty texture renders a black sky.
//
// Parameters:
//   - env: the RGBA8 sky pixels
//
// Returns:
//   - RaytracerBuilderOption: a function that applies the environment option to a ray tracer
func WithEnvironment(env common.TextureStagingData) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.environment = env
	}
}

// WithWorkers sets the size of the worker pool used to extract records. Zero extracts on
// the calling goroutine.
func WithWorkers(n int) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.workers = max(n, 0)
	}
}

// WithRandom sets the source of the pixel jitter and kernel seed.
func WithRandom(rng *rand.Rand) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.rng = rng
	}
}

// WithVerbose logs buffer reallocations and accumulation resets.
func WithVerbose(verbose bool) RaytracerBuilderOption {
	return func(r *raytracer) {
		r.verbose = verbose
	}
}
