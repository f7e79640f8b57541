package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/x448/float16"
)

//go:embed assets/blit.wgsl
var blitSource string

// BlitPipelineKey is the cache key of the built-in pipeline that draws an Image to the surface.
const BlitPipelineKey = "blit"

// ImageFormat is the texel format of every Image created by CreateImage: four half floats.
const ImageFormat = wgpu.TextureFormatRGBA16Float

// imageBytesPerTexel is the size of one ImageFormat texel.
const imageBytesPerTexel = 8

// ErrResourceReleased is returned when a released renderer, kernel, buffer or image is used.
var ErrResourceReleased = errors.New("resource released")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode

	// blit state for Present
	blitProvider bind_group_provider.BindGroupProvider
	blitSource   *wgpu.TextureView

	released bool
}

// Renderer defines the interface for the rendering system.
//
// It owns the GPU device and hands out the resources a compute workload needs: storage
// buffers, float images, sampled textures and kernels. Compute work is batched between
// BeginComputeFrame and EndComputeFrame into one submission. Finished images are shown with
// Present when a window surface exists, or read back with ReadImage when headless.
type Renderer interface {
	// Headless reports whether the renderer was created without a window surface.
	Headless() bool

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateBuffer allocates a zeroed storage buffer for count records of stride bytes.
	//
	// Parameters:
	//   - label: the debug label
	//   - count: the number of records, at least 1
	//   - stride: the record size in bytes, at least 1
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if the shape is invalid or allocation fails
	CreateBuffer(label string, count, stride int) (Buffer, error)

	// CreateImage allocates a zeroed ImageFormat image usable as a storage texture, a sampled
	// texture and a copy source or destination.
	//
	// Parameters:
	//   - label: the debug label
	//   - width, height: the size in texels, both positive
	//
	// Returns:
	//   - Image: the new image
	//   - error: an error if the size is invalid or allocation fails
	CreateImage(label string, width, height int) (Image, error)

	// CreateTexture uploads RGBA8 staging data into a new sRGB sampled texture.
	//
	// Parameters:
	//   - label: the debug label
	//   - stagingData: the pixels and dimensions
	//
	// Returns:
	//   - Image: the new texture
	//   - error: an error if the staging data is invalid or allocation fails
	CreateTexture(label string, stagingData common.TextureStagingData) (Image, error)

	// NewKernel compiles a compute shader into a Kernel whose parameters are set by name.
	//
	// Parameters:
	//   - s: a compute shader using only bind group 0
	//
	// Returns:
	//   - Kernel: the new kernel
	//   - error: an error if the shader is not a compute shader or pipeline creation fails
	NewKernel(s shader.Shader) (Kernel, error)

	// BeginComputeFrame opens a command encoder for batching kernel dispatches and image copies
	// into a single GPU submission.
	//
	// Returns:
	//   - error: an error if a frame is already open or the encoder could not be created
	BeginComputeFrame() error

	// CopyImage encodes a full copy of src into dst within the open compute frame.
	//
	// Parameters:
	//   - src, dst: images of equal size and format
	//
	// Returns:
	//   - error: an error if either image is released, sizes differ, or no frame is open
	CopyImage(src, dst Image) error

	// EndComputeFrame submits the batched compute work.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// ReadImage copies an image created by CreateImage back to the CPU.
	//
	// Parameters:
	//   - img: the image to read
	//
	// Returns:
	//   - []float32: width*height*4 RGBA values, row-major from the top row
	//   - error: an error if the image is released or the readback fails
	ReadImage(img Image) ([]float32, error)

	// Present draws img to the window surface and presents it. Does nothing when headless.
	//
	// Parameters:
	//   - img: the image to show
	//
	// Returns:
	//   - error: an error if the blit pipeline or surface texture is unavailable
	Present(img Image) error

	// Release frees every cached pipeline, the blit resources and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and window.
// A nil window creates a headless renderer that can only run compute work and read it back.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface, or nil for headless
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if no adapter or device could be acquired
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	var surfaceDescriptor *wgpu.SurfaceDescriptor
	if win != nil {
		surfaceDescriptor = win.SurfaceDescriptor()
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if win != nil {
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}
	return r, nil
}

func (r *renderer) Headless() bool {
	return r.backend.Headless()
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerPipelines(pipelines...)
}

func (r *renderer) registerPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return err
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return err
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, count, stride int) (Buffer, error) {
	if count <= 0 || stride <= 0 {
		return nil, fmt.Errorf("buffer %q: invalid shape %d x %d", label, count, stride)
	}
	if r.isReleased() {
		return nil, ErrResourceReleased
	}

	buf, err := r.backend.CreateBuffer(label, uint64(count)*uint64(stride), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", label, err)
	}
	return &wgpuBuffer{
		mu:      &sync.Mutex{},
		label:   label,
		count:   count,
		stride:  stride,
		buffer:  buf,
		backend: r.backend,
	}, nil
}

func (r *renderer) CreateImage(label string, width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image %q: invalid size %dx%d", label, width, height)
	}
	if r.isReleased() {
		return nil, ErrResourceReleased
	}

	usage := wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	tex, view, err := r.backend.CreateTexture(label, uint32(width), uint32(height), ImageFormat, usage)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", label, err)
	}
	return &wgpuImage{
		mu:      &sync.Mutex{},
		label:   label,
		width:   width,
		height:  height,
		format:  ImageFormat,
		texture: tex,
		view:    view,
	}, nil
}

func (r *renderer) CreateTexture(label string, stagingData common.TextureStagingData) (Image, error) {
	if stagingData.Width == 0 || stagingData.Height == 0 {
		return nil, fmt.Errorf("texture %q: empty staging data", label)
	}
	if r.isReleased() {
		return nil, ErrResourceReleased
	}

	tex, view, err := r.backend.CreateTexture(label, stagingData.Width, stagingData.Height,
		wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}
	if err := r.backend.WriteTexture(tex, stagingData); err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}
	return &wgpuImage{
		mu:      &sync.Mutex{},
		label:   label,
		width:   int(stagingData.Width),
		height:  int(stagingData.Height),
		format:  wgpu.TextureFormatRGBA8UnormSrgb,
		texture: tex,
		view:    view,
	}, nil
}

func (r *renderer) NewKernel(s shader.Shader) (Kernel, error) {
	if r.isReleased() {
		return nil, ErrResourceReleased
	}
	return newKernel(r.backend, s)
}

func (r *renderer) BeginComputeFrame() error {
	if r.isReleased() {
		return ErrResourceReleased
	}
	return r.backend.BeginComputeFrame()
}

func (r *renderer) CopyImage(src, dst Image) error {
	s, ok := src.(*wgpuImage)
	if !ok || s == nil {
		return errors.New("copy source is not a GPU image")
	}
	d, ok := dst.(*wgpuImage)
	if !ok || d == nil {
		return errors.New("copy destination is not a GPU image")
	}
	if s.width != d.width || s.height != d.height {
		return fmt.Errorf("copy %q to %q: size mismatch %dx%d vs %dx%d", s.label, d.label, s.width, s.height, d.width, d.height)
	}

	srcTex, _ := s.handles()
	dstTex, _ := d.handles()
	if srcTex == nil || dstTex == nil {
		return fmt.Errorf("copy %q to %q: %w", s.label, d.label, ErrResourceReleased)
	}
	return r.backend.CopyTexture(srcTex, dstTex, uint32(s.width), uint32(s.height))
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) ReadImage(img Image) ([]float32, error) {
	i, ok := img.(*wgpuImage)
	if !ok || i == nil {
		return nil, errors.New("read target is not a GPU image")
	}
	if i.format != ImageFormat {
		return nil, fmt.Errorf("image %q: readback supports only float images", i.label)
	}
	tex, _ := i.handles()
	if tex == nil {
		return nil, fmt.Errorf("image %q: %w", i.label, ErrResourceReleased)
	}

	raw, err := r.backend.ReadTexture(tex, uint32(i.width), uint32(i.height), imageBytesPerTexel)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", i.label, err)
	}
	return decodeHalfFloats(raw), nil
}

func (r *renderer) Present(img Image) error {
	if r.backend.Headless() {
		return nil
	}
	i, ok := img.(*wgpuImage)
	if !ok || i == nil {
		return errors.New("present source is not a GPU image")
	}
	_, view := i.handles()
	if view == nil {
		return fmt.Errorf("image %q: %w", i.label, ErrResourceReleased)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrResourceReleased
	}

	p, err := r.blitPipeline()
	if err != nil {
		return err
	}

	if r.blitSource != view || r.blitProvider.BindGroup() == nil {
		fs := p.Shader(shader.ShaderTypeFragment)
		binding, _ := fs.BindGroupFromVarName(0, "source")
		r.blitProvider.ReleaseBindGroup()
		r.blitProvider.BindTextureView(binding, view)
		layout := mergeBindGroupLayouts(p.Shader(shader.ShaderTypeVertex).BindGroupLayoutDescriptors(), fs.BindGroupLayoutDescriptors())
		if err := r.backend.InitBindGroup(r.blitProvider, layout[0]); err != nil {
			return fmt.Errorf("blit: %w", err)
		}
		r.blitSource = view
	}

	return r.backend.Present(p, r.blitProvider)
}

// blitPipeline returns the cached blit pipeline, registering it and its sampler on first use.
// Callers hold r.mu.
func (r *renderer) blitPipeline() (pipeline.Pipeline, error) {
	if p, ok := r.pipelineCache[BlitPipelineKey]; ok {
		return p, nil
	}

	vs, err := shader.NewShaderFromSource(BlitPipelineKey+" vertex", shader.ShaderTypeVertex, blitSource)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShaderFromSource(BlitPipelineKey+" fragment", shader.ShaderTypeFragment, blitSource)
	if err != nil {
		return nil, err
	}

	p := pipeline.NewPipeline(BlitPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	)
	if err := r.registerPipelines(p); err != nil {
		return nil, fmt.Errorf("blit: %w", err)
	}

	samplerBinding, _ := fs.BindGroupFromVarName(0, "sourceSampler")
	samp, err := r.backend.CreateSampler("Blit Sampler", common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("blit: %w", err)
	}
	r.blitProvider = bind_group_provider.NewBindGroupProvider("Blit", bind_group_provider.WithSampler(samplerBinding, samp))

	return p, nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true

	if r.blitProvider != nil {
		r.blitProvider.Release()
		r.blitProvider = nil
	}
	r.blitSource = nil
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
}

func (r *renderer) isReleased() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// decodeHalfFloats converts little-endian IEEE 754 half floats to float32.
func decodeHalfFloats(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		bits := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		out[i] = float16.Frombits(bits).Float32()
	}
	return out
}
