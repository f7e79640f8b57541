package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController places a camera. It combines orbit-style rotation around a target
// with planar panning of both target and eye.
// Thread-safe for concurrent access.
type CameraController interface {
	orbitCameraController
	planarCameraController

	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the world-space point the eye looks at.
	Target() mgl32.Vec3

	// SetTarget moves the orbit center, keeping radius and angles.
	//
	// Parameters:
	//   - target: the new look-at point
	SetTarget(target mgl32.Vec3)

	// Zoom moves the eye toward the target by delta times the zoom speed, clamped to the
	// radius bounds.
	//
	// Parameters:
	//   - delta: the zoom amount; positive moves closer
	Zoom(delta float32)
}

// orbitCameraController rotates the eye around the target on a sphere. Angles are in
// radians; azimuth 0 places the eye on +Z.
type orbitCameraController interface {
	// Orbit rotates by mouse movement in pixels, scaled by the mouse sensitivity.
	// Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dx: horizontal movement, positive orbits right
	//   - dy: vertical movement, positive orbits down
	Orbit(dx, dy float32)

	// OrbitLeft rotates left by one orbit-speed step.
	OrbitLeft()

	// OrbitRight rotates right by one orbit-speed step.
	OrbitRight()

	// OrbitUp raises the eye by one orbit-speed step.
	OrbitUp()

	// OrbitDown lowers the eye by one orbit-speed step.
	OrbitDown()

	Radius() float32

	// SetRadius sets the eye distance, clamped to the radius bounds.
	SetRadius(radius float32)

	Azimuth() float32

	SetAzimuth(azimuth float32)

	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the elevation bounds.
	SetElevation(elevation float32)
}

// planarCameraController translates the eye and target together along the camera's
// local axes.
type planarCameraController interface {
	// PanRight moves along the horizontal right axis.
	PanRight(delta float32)

	// PanUp moves along the camera's up axis.
	PanUp(delta float32)

	// PanForward moves along the view direction.
	PanForward(delta float32)
}
