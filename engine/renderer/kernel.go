package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Kernel is a compute shader bound to group 0 whose parameters are addressed by name.
// Scalar, vector and matrix parameters are members of any uniform struct in the shader;
// buffers and textures are resource bindings named by their WGSL variable. Names the
// shader does not declare are ignored, so a kernel compiled without some parameter
// still accepts it.
type Kernel interface {
	// Name returns the key of the kernel's compute shader.
	Name() string

	// Has reports whether the shader declares a uniform member or resource binding called name.
	Has(name string) bool

	// SetMatrix stores a 4x4 matrix parameter.
	//
	// Parameters:
	//   - name: the uniform member name
	//   - m: the column-major matrix
	SetMatrix(name string, m mgl32.Mat4)

	// SetVector stores up to four float components of a vector parameter. Only as many
	// components as the member holds are written.
	//
	// Parameters:
	//   - name: the uniform member name
	//   - v: the vector value
	SetVector(name string, v mgl32.Vec4)

	// SetInt stores an integer parameter, converted to the member's scalar type.
	//
	// Parameters:
	//   - name: the uniform member name
	//   - v: the value
	SetInt(name string, v int32)

	// SetFloat stores a float parameter, converted to the member's scalar type.
	//
	// Parameters:
	//   - name: the uniform member name
	//   - v: the value
	SetFloat(name string, v float32)

	// SetBuffer binds a storage buffer. A nil buffer unbinds the name, leaving the kernel's
	// own zeroed fallback buffer in its place.
	//
	// Parameters:
	//   - name: the storage binding variable name
	//   - buf: the buffer to bind, or nil
	SetBuffer(name string, buf Buffer)

	// SetTexture binds an image to a sampled or storage texture binding. A nil image
	// unbinds the name.
	//
	// Parameters:
	//   - name: the texture binding variable name
	//   - img: the image to bind, or nil
	SetTexture(name string, img Image)

	// WorkgroupSize returns the @workgroup_size of the compute entry point.
	WorkgroupSize() [3]uint32

	// Dispatch flushes the parameters, rebuilds the bind group if any binding changed and
	// encodes a dispatch into the open compute frame.
	//
	// Parameters:
	//   - groups: the number of workgroups in x, y and z
	//
	// Returns:
	//   - error: an error if the kernel was released, a binding is missing, or no frame is open
	Dispatch(groups [3]uint32) error

	// Release frees the pipeline, bind group and every buffer the kernel created.
	Release()
}

type uniformSlot struct {
	binding int
	field   shader.UniformField
}

type kernel struct {
	mu       *sync.Mutex
	backend  wgpuRendererBackend
	shader   shader.Shader
	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
	layout   wgpu.BindGroupLayoutDescriptor

	entries  map[int]wgpu.BindGroupLayoutEntry
	uniforms map[int][]byte
	slots    map[string]uniformSlot

	buffers map[int]*wgpu.Buffer
	views   map[int]*wgpu.TextureView

	dirty    bool
	released bool
}

var _ Kernel = &kernel{}

// newKernel registers the compute pipeline for s and prepares its group 0 bind group provider.
func newKernel(backend wgpuRendererBackend, s shader.Shader) (*kernel, error) {
	if s.ShaderType() != shader.ShaderTypeCompute {
		return nil, fmt.Errorf("kernel %q: shader is not a compute shader", s.Key())
	}
	for g := range s.BindGroupLayoutDescriptors() {
		if g != 0 {
			return nil, fmt.Errorf("kernel %q: only bind group 0 is supported, found group %d", s.Key(), g)
		}
	}

	p := pipeline.NewPipeline(s.Key(), pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s))
	if err := backend.RegisterComputePipeline(p); err != nil {
		return nil, fmt.Errorf("kernel %q: %w", s.Key(), err)
	}

	k := &kernel{
		mu:       &sync.Mutex{},
		backend:  backend,
		shader:   s,
		pipeline: p,
		provider: bind_group_provider.NewBindGroupProvider(s.Key()),
		layout:   s.BindGroupLayoutDescriptor(0),
		entries:  make(map[int]wgpu.BindGroupLayoutEntry),
		uniforms: make(map[int][]byte),
		slots:    make(map[string]uniformSlot),
		buffers:  make(map[int]*wgpu.Buffer),
		views:    make(map[int]*wgpu.TextureView),
		dirty:    true,
	}

	for _, entry := range k.layout.Entries {
		k.entries[int(entry.Binding)] = entry
		if entry.Sampler.Type == wgpu.SamplerBindingTypeUndefined {
			continue
		}
		samp, err := backend.CreateSampler(fmt.Sprintf("%s Sampler %d", s.Key(), entry.Binding), common.SamplerStagingData{
			AddressModeU: wgpu.AddressModeRepeat,
			AddressModeV: wgpu.AddressModeClampToEdge,
		})
		if err != nil {
			k.Release()
			return nil, fmt.Errorf("kernel %q: %w", s.Key(), err)
		}
		k.provider.SetSampler(int(entry.Binding), samp)
	}

	for _, block := range s.UniformBlocks() {
		if block.Group != 0 {
			continue
		}
		k.uniforms[block.Binding] = make([]byte, block.Size)
		for _, f := range block.Fields {
			k.slots[f.Name] = uniformSlot{binding: block.Binding, field: f}
		}
	}

	return k, nil
}

func (k *kernel) Name() string {
	return k.shader.Key()
}

func (k *kernel) Has(name string) bool {
	if _, ok := k.slots[name]; ok {
		return true
	}
	_, ok := k.shader.BindGroupFromVarName(0, name)
	return ok
}

func (k *kernel) WorkgroupSize() [3]uint32 {
	return k.shader.WorkgroupSize()
}

// slot returns the destination bytes of a uniform member, or nil if name is unknown.
func (k *kernel) slot(name string) ([]byte, shader.UniformField) {
	s, ok := k.slots[name]
	if !ok {
		return nil, shader.UniformField{}
	}
	data := k.uniforms[s.binding]
	end := s.field.Offset + s.field.Size
	if end > uint64(len(data)) {
		return nil, shader.UniformField{}
	}
	return data[s.field.Offset:end], s.field
}

func (k *kernel) SetMatrix(name string, m mgl32.Mat4) {
	k.mu.Lock()
	defer k.mu.Unlock()

	dst, _ := k.slot(name)
	if len(dst) < 64 {
		return
	}
	common.PutFloat32s(dst, 0, m[:]...)
}

func (k *kernel) SetVector(name string, v mgl32.Vec4) {
	k.mu.Lock()
	defer k.mu.Unlock()

	dst, _ := k.slot(name)
	n := min(4, len(dst)/4)
	common.PutFloat32s(dst, 0, v[:n]...)
}

func (k *kernel) SetInt(name string, v int32) {
	k.mu.Lock()
	defer k.mu.Unlock()

	dst, field := k.slot(name)
	if len(dst) < 4 {
		return
	}
	switch scalarKind(field.Type) {
	case "f32":
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	default:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	}
}

func (k *kernel) SetFloat(name string, v float32) {
	k.mu.Lock()
	defer k.mu.Unlock()

	dst, field := k.slot(name)
	if len(dst) < 4 {
		return
	}
	switch scalarKind(field.Type) {
	case "i32":
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	case "u32":
		binary.LittleEndian.PutUint32(dst, uint32(v))
	default:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	}
}

func (k *kernel) SetBuffer(name string, buf Buffer) {
	k.mu.Lock()
	defer k.mu.Unlock()

	binding, ok := k.shader.BindGroupFromVarName(0, name)
	if !ok {
		return
	}
	entry := k.entries[binding]
	if entry.Buffer.Type != wgpu.BufferBindingTypeStorage && entry.Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		return
	}

	var handle *wgpu.Buffer
	if b, ok := buf.(*wgpuBuffer); ok && b != nil {
		handle = b.handle()
	}
	if k.buffers[binding] == handle {
		return
	}
	if handle == nil {
		delete(k.buffers, binding)
	} else {
		k.buffers[binding] = handle
	}
	k.provider.BindBuffer(binding, handle)
	k.dirty = true
}

func (k *kernel) SetTexture(name string, img Image) {
	k.mu.Lock()
	defer k.mu.Unlock()

	binding, ok := k.shader.BindGroupFromVarName(0, name)
	if !ok {
		return
	}
	entry := k.entries[binding]
	if entry.Texture.SampleType == wgpu.TextureSampleTypeUndefined && entry.StorageTexture.Access == wgpu.StorageTextureAccessUndefined {
		return
	}

	var view *wgpu.TextureView
	if i, ok := img.(*wgpuImage); ok && i != nil {
		_, view = i.handles()
	}
	if k.views[binding] == view {
		return
	}
	if view == nil {
		delete(k.views, binding)
	} else {
		k.views[binding] = view
	}
	k.provider.BindTextureView(binding, view)
	k.dirty = true
}

func (k *kernel) Dispatch(groups [3]uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.released {
		return fmt.Errorf("kernel %q: %w", k.shader.Key(), ErrResourceReleased)
	}

	if k.dirty || k.provider.BindGroup() == nil {
		k.provider.ReleaseBindGroup()
		if err := k.backend.InitBindGroup(k.provider, k.layout); err != nil {
			return fmt.Errorf("kernel %q: %w", k.shader.Key(), err)
		}
		k.dirty = false
	}

	for binding, data := range k.uniforms {
		if err := k.backend.WriteBuffer(k.provider.OwnedBuffer(binding), 0, data); err != nil {
			return fmt.Errorf("kernel %q: uniform binding %d: %w", k.shader.Key(), binding, err)
		}
	}

	return k.backend.DispatchCompute(k.pipeline, k.provider, groups)
}

func (k *kernel) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.released {
		return
	}
	k.released = true
	k.provider.Release()
	k.pipeline.Release()
	clear(k.buffers)
	clear(k.views)
}

// scalarKind returns the scalar component type of a WGSL scalar or vector type name,
// e.g. "u32" for both "u32" and "vec2<u32>".
func scalarKind(typeName string) string {
	if i := strings.IndexByte(typeName, '<'); i >= 0 {
		return strings.TrimSuffix(typeName[i+1:], ">")
	}
	switch typeName {
	case "vec2i", "vec3i", "vec4i":
		return "i32"
	case "vec2u", "vec3u", "vec4u":
		return "u32"
	case "vec2f", "vec3f", "vec4f":
		return "f32"
	}
	return typeName
}
