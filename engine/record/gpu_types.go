package record

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

// GPUSphereSource is the canonical WGSL definition of the Sphere struct.
// Matches GPUSphere layout exactly (80 bytes, WGSL storage aligned).
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

// GPUBoxSource is the canonical WGSL definition of the Box struct.
// Matches GPUBox layout exactly (96 bytes, WGSL storage aligned).
//
//go:embed assets/box.wgsl
var GPUBoxSource string

// GPUMeshObjectSource is the canonical WGSL definition of the MeshObject struct.
// Matches GPUMeshObject layout exactly (128 bytes, WGSL storage aligned).
//
//go:embed assets/mesh_object.wgsl
var GPUMeshObjectSource string

// GPUSphere is the GPU-aligned record of one sphere entity.
// Size: 80 bytes.
type GPUSphere struct {
	Position   [3]float32 // offset  0
	Radius     float32    // offset 12: half the authored diameter
	Rotation   [3]float32 // offset 16: Euler degrees
	Smoothness float32    // offset 28
	Albedo     [3]float32 // offset 32
	_pad0      float32    // offset 44
	Specular   [3]float32 // offset 48
	_pad1      float32    // offset 60
	Emission   [3]float32 // offset 64
	_pad2      float32    // offset 76
}

// Size returns the size of the GPUSphere struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUSphere) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the record into buf, which must hold at least Size() bytes.
//
// Parameters:
//   - buf: the destination buffer
func (g *GPUSphere) MarshalTo(buf []byte) {
	common.PutFloat32s(buf, 0, g.Position[0], g.Position[1], g.Position[2], g.Radius)
	common.PutFloat32s(buf, 16, g.Rotation[0], g.Rotation[1], g.Rotation[2], g.Smoothness)
	common.PutFloat32s(buf, 32, g.Albedo[0], g.Albedo[1], g.Albedo[2], 0)
	common.PutFloat32s(buf, 48, g.Specular[0], g.Specular[1], g.Specular[2], 0)
	common.PutFloat32s(buf, 64, g.Emission[0], g.Emission[1], g.Emission[2], 0)
}

// Marshal serializes the GPUSphere struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUSphere) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}

// GPUBox is the GPU-aligned record of one box entity.
// Size: 96 bytes.
type GPUBox struct {
	Position   [3]float32 // offset  0
	Smoothness float32    // offset 12
	Rotation   [3]float32 // offset 16: Euler degrees
	_pad0      float32    // offset 28
	BoxSize    [3]float32 // offset 32: full edge lengths
	_pad1      float32    // offset 44
	Albedo     [3]float32 // offset 48
	_pad2      float32    // offset 60
	Specular   [3]float32 // offset 64
	_pad3      float32    // offset 76
	Emission   [3]float32 // offset 80
	_pad4      float32    // offset 92
}

// Size returns the size of the GPUBox struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUBox) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the record into buf, which must hold at least Size() bytes.
//
// Parameters:
//   - buf: the destination buffer
func (g *GPUBox) MarshalTo(buf []byte) {
	common.PutFloat32s(buf, 0, g.Position[0], g.Position[1], g.Position[2], g.Smoothness)
	common.PutFloat32s(buf, 16, g.Rotation[0], g.Rotation[1], g.Rotation[2], 0)
	common.PutFloat32s(buf, 32, g.BoxSize[0], g.BoxSize[1], g.BoxSize[2], 0)
	common.PutFloat32s(buf, 48, g.Albedo[0], g.Albedo[1], g.Albedo[2], 0)
	common.PutFloat32s(buf, 64, g.Specular[0], g.Specular[1], g.Specular[2], 0)
	common.PutFloat32s(buf, 80, g.Emission[0], g.Emission[1], g.Emission[2], 0)
}

// Marshal serializes the GPUBox struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUBox) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}

// GPUMeshObject is the GPU-aligned record of one mesh instance. The index range points
// into the frame's shared index pool.
// Size: 128 bytes.
type GPUMeshObject struct {
	LocalToWorld  [16]float32 // offset   0: column-major mat4x4<f32>
	IndicesOffset uint32      // offset  64: first index in the shared pool
	IndicesCount  uint32      // offset  68
	Smoothness    float32     // offset  72
	_pad0         float32     // offset  76
	Albedo        [3]float32  // offset  80
	_pad1         float32     // offset  92
	Specular      [3]float32  // offset  96
	_pad2         float32     // offset 108
	Emission      [3]float32  // offset 112
	_pad3         float32     // offset 124
}

// Size returns the size of the GPUMeshObject struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (g *GPUMeshObject) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the record into buf, which must hold at least Size() bytes.
//
// Parameters:
//   - buf: the destination buffer
func (g *GPUMeshObject) MarshalTo(buf []byte) {
	common.PutFloat32s(buf, 0, g.LocalToWorld[:]...)
	binary.LittleEndian.PutUint32(buf[64:], g.IndicesOffset)
	binary.LittleEndian.PutUint32(buf[68:], g.IndicesCount)
	binary.LittleEndian.PutUint32(buf[72:], math.Float32bits(g.Smoothness))
	binary.LittleEndian.PutUint32(buf[76:], 0)
	common.PutFloat32s(buf, 80, g.Albedo[0], g.Albedo[1], g.Albedo[2], 0)
	common.PutFloat32s(buf, 96, g.Specular[0], g.Specular[1], g.Specular[2], 0)
	common.PutFloat32s(buf, 112, g.Emission[0], g.Emission[1], g.Emission[2], 0)
}

// Marshal serializes the GPUMeshObject struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUMeshObject) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}

// GPUVertex is one entry of the shared vertex pool, read by the kernel as
// array<vec3<f32>> (16 byte stride).
type GPUVertex struct {
	Position [3]float32 // offset  0
	_pad     float32    // offset 12
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the vertex into buf, which must hold at least Size() bytes.
//
// Parameters:
//   - buf: the destination buffer
func (g *GPUVertex) MarshalTo(buf []byte) {
	common.PutFloat32s(buf, 0, g.Position[0], g.Position[1], g.Position[2], 0)
}

// GPUIndex is one entry of the shared index pool, already offset into the shared
// vertex pool. The kernel reads it as array<u32>.
type GPUIndex uint32

// Size returns the size of a GPUIndex in bytes.
//
// Returns:
//   - int: the size in bytes (4)
func (g *GPUIndex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the index into buf, which must hold at least Size() bytes.
//
// Parameters:
//   - buf: the destination buffer
func (g *GPUIndex) MarshalTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf, uint32(*g))
}

// Marshaler is the constraint satisfied by pointers to every GPU record type.
type Marshaler[T any] interface {
	*T
	Size() int
	MarshalTo(buf []byte)
}

// Stride returns the byte size of one record of type T.
func Stride[T any, P Marshaler[T]]() int {
	var zero T
	return P(&zero).Size()
}

// MarshalAll serializes records back to back into a single upload buffer.
//
// Parameters:
//   - records: the records to serialize
//
// Returns:
//   - []byte: len(records) * Stride bytes, or nil when records is empty
func MarshalAll[T any, P Marshaler[T]](records []T) []byte {
	if len(records) == 0 {
		return nil
	}
	stride := Stride[T, P]()
	buf := make([]byte, stride*len(records))
	for i := range records {
		P(&records[i]).MarshalTo(buf[i*stride:])
	}
	return buf
}
