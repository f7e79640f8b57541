package raytracer

import "errors"

var (
	// ErrInvalidResolution is returned when the render resolution is not positive in both axes.
	ErrInvalidResolution = errors.New("raytracer: invalid resolution")

	// ErrMissingBuffer is returned when a mandatory sphere or box buffer is unbound at dispatch time.
	ErrMissingBuffer = errors.New("raytracer: mandatory buffer not bound")

	// ErrReleased is returned when Render is called after Release.
	ErrReleased = errors.New("raytracer: released")

	// ErrNoKernel is returned by NewRaytracer when no kernel was supplied.
	ErrNoKernel = errors.New("raytracer: no kernel")

	// ErrNoDevice is returned by NewRaytracer when no compute device was supplied.
	ErrNoDevice = errors.New("raytracer: no compute device")

	// ErrNoScene is returned by NewRaytracer when no scene was supplied.
	ErrNoScene = errors.New("raytracer: no scene")

	// ErrNoCamera is returned by NewRaytracer when no camera was supplied.
	ErrNoCamera = errors.New("raytracer: no camera")
)
