// Package record turns scene entities into the fixed-layout records the ray tracing
// kernel reads from its storage buffers. Every function here is pure: it reads a
// transform and material snapshot and returns a value, with no GPU side effects.
package record

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/go-gl/mathgl/mgl32"
)

// ExtractSphere builds the record for a sphere entity. The authored diameter is halved
// into a radius and the rotation is stored as Euler degrees.
//
// Parameters:
//   - xf: the entity's world transform
//   - s: the sphere geometry
//   - m: the entity's material
//
// Returns:
//   - GPUSphere: the record
func ExtractSphere(xf entity.Transform, s entity.Sphere, m material.Material) GPUSphere {
	return GPUSphere{
		Position:   xf.Position,
		Radius:     s.Diameter / 2.0,
		Rotation:   xf.EulerAngles(),
		Smoothness: m.Smoothness(),
		Albedo:     m.Albedo().RGB(),
		Specular:   m.Specular().RGB(),
		Emission:   m.Emission().RGB(),
	}
}

// ExtractBox builds the record for a box entity. The size passes through unchanged.
//
// Parameters:
//   - xf: the entity's world transform
//   - b: the box geometry
//   - m: the entity's material
//
// Returns:
//   - GPUBox: the record
func ExtractBox(xf entity.Transform, b entity.Box, m material.Material) GPUBox {
	return GPUBox{
		Position:   xf.Position,
		Smoothness: m.Smoothness(),
		Rotation:   xf.EulerAngles(),
		BoxSize:    b.Size,
		Albedo:     m.Albedo().RGB(),
		Specular:   m.Specular().RGB(),
		Emission:   m.Emission().RGB(),
	}
}

// ExtractMeshObject builds the record for a mesh instance whose triangles occupy
// indexCount entries of the shared index pool starting at indexOffset.
//
// Parameters:
//   - xf: the entity's world transform
//   - m: the entity's material
//   - indexOffset: position of the instance's first index in the shared pool
//   - indexCount: number of indices belonging to the instance
//
// Returns:
//   - GPUMeshObject: the record
func ExtractMeshObject(xf entity.Transform, m material.Material, indexOffset, indexCount uint32) GPUMeshObject {
	return GPUMeshObject{
		LocalToWorld:  xf.LocalToWorld(),
		IndicesOffset: indexOffset,
		IndicesCount:  indexCount,
		Smoothness:    m.Smoothness(),
		Albedo:        m.Albedo().RGB(),
		Specular:      m.Specular().RGB(),
		Emission:      m.Emission().RGB(),
	}
}

// ExtractVertices writes one vertex record per position into dst, which must have the
// same length as vertices.
//
// Parameters:
//   - dst: the destination slice inside the shared vertex pool
//   - vertices: object-space positions
func ExtractVertices(dst []GPUVertex, vertices []mgl32.Vec3) {
	for i, v := range vertices {
		dst[i] = GPUVertex{Position: v}
	}
}

// ExtractIndices writes indices into dst, shifting each by firstVertex so they address
// the shared vertex pool. dst must have the same length as indices.
//
// Parameters:
//   - dst: the destination slice inside the shared index pool
//   - indices: mesh-local vertex indices
//   - firstVertex: number of vertices appended to the pool before this mesh
func ExtractIndices(dst []GPUIndex, indices []uint32, firstVertex uint32) {
	for i, idx := range indices {
		dst[i] = GPUIndex(idx + firstVertex)
	}
}
