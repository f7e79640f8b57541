package shader

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var wgslTextureDimensions = map[string]wgpu.TextureViewDimension{
	"1d":         wgpu.TextureViewDimension1D,
	"2d":         wgpu.TextureViewDimension2D,
	"2d_array":   wgpu.TextureViewDimension2DArray,
	"3d":         wgpu.TextureViewDimension3D,
	"cube":       wgpu.TextureViewDimensionCube,
	"cube_array": wgpu.TextureViewDimensionCubeArray,
}

var wgslSampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var wgslStorageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// wgslTexelFormats lists the storage texel formats of the WGSL specification.
var wgslTexelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

// layoutEntry classifies the resource from its address space and type: buffers by
// address space, then samplers, storage textures, depth textures and sampled textures
// by type name.
func (r wgslResource) layoutEntry(visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(r.binding),
		Visibility: visibility,
	}

	switch {
	case r.addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case strings.HasPrefix(r.addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(r.addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		return entry
	}

	base, params := splitTypeParams(r.typeName)
	switch {
	case base == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case base == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture.ViewDimension = wgslTextureDimensions[strings.TrimPrefix(base, "texture_storage_")]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = wgslTexelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = wgslStorageAccess[strings.TrimSpace(access)]
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		dim, multisampled := strings.CutPrefix(strings.TrimPrefix(base, "texture_depth_"), "multisampled_")
		entry.Texture.ViewDimension = wgslTextureDimensions[dim]
		entry.Texture.Multisampled = multisampled
	case strings.HasPrefix(base, "texture_"):
		dim, multisampled := strings.CutPrefix(strings.TrimPrefix(base, "texture_"), "multisampled_")
		entry.Texture.ViewDimension = wgslTextureDimensions[dim]
		entry.Texture.Multisampled = multisampled
		entry.Texture.SampleType = wgslSampleTypes[params]
	}
	return entry
}
