package entity

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/go-gl/mathgl/mgl32"
)

// EntityBuilderOption is a function that configures an entity during construction.
// Options never raise the changed flag beyond the initial raise done by NewEntity.
type EntityBuilderOption func(*entity)

// WithName is an option builder that sets the entity's display name.
//
// Parameters:
//   - name: the display name
//
// Returns:
//   - EntityBuilderOption: a function that applies the name option to an entity
func WithName(name string) EntityBuilderOption {
	return func(e *entity) {
		e.name = name
	}
}

// WithActive is an option builder that sets the initial activation state.
//
// Parameters:
//   - active: true if the entity should render
//
// Returns:
//   - EntityBuilderOption: a function that applies the active option to an entity
func WithActive(active bool) EntityBuilderOption {
	return func(e *entity) {
		e.active.Store(active)
	}
}

// WithMaterial is an option builder that sets the entity's material.
//
// Parameters:
//   - m: the material; nil keeps the default
//
// Returns:
//   - EntityBuilderOption: a function that applies the material option to an entity
func WithMaterial(m material.Material) EntityBuilderOption {
	return func(e *entity) {
		if m != nil {
			e.mat = m
		}
	}
}

// WithPosition is an option builder that sets the initial world-space position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - EntityBuilderOption: a function that applies the position option to an entity
func WithPosition(p mgl32.Vec3) EntityBuilderOption {
	return func(e *entity) {
		e.xform.Position = p
	}
}

// WithRotation is an option builder that sets the initial orientation.
//
// Parameters:
//   - q: the orientation
//
// Returns:
//   - EntityBuilderOption: a function that applies the rotation option to an entity
func WithRotation(q mgl32.Quat) EntityBuilderOption {
	return func(e *entity) {
		e.xform.Rotation = q.Normalize()
	}
}

// WithEulerRotation is an option builder that sets the initial orientation from Euler
// angles in degrees.
//
// Parameters:
//   - degrees: rotation about X, Y and Z in degrees
//
// Returns:
//   - EntityBuilderOption: a function that applies the rotation option to an entity
func WithEulerRotation(degrees mgl32.Vec3) EntityBuilderOption {
	return func(e *entity) {
		e.xform.Rotation = common.EulerToQuat(degrees)
	}
}

// WithScale is an option builder that sets the initial per-axis scale.
//
// Parameters:
//   - s: the scale
//
// Returns:
//   - EntityBuilderOption: a function that applies the scale option to an entity
func WithScale(s mgl32.Vec3) EntityBuilderOption {
	return func(e *entity) {
		e.xform.Scale = s
	}
}

// WithRotationSpeed is an option builder that sets the entity's spin in degrees per second.
//
// Parameters:
//   - degreesPerSecond: angular speed about X, Y and Z
//
// Returns:
//   - EntityBuilderOption: a function that applies the rotation speed option to an entity
func WithRotationSpeed(degreesPerSecond mgl32.Vec3) EntityBuilderOption {
	return func(e *entity) {
		e.rotSpeed = degreesPerSecond
	}
}
