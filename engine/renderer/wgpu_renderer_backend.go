package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// copyRowAlignment is the required alignment of BytesPerRow in texture-to-buffer copies.
const copyRowAlignment = 256

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Compute frame state for batching all compute dispatches and copies into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
}

type wgpuRendererBackend interface {
	// Headless reports whether the backend was created without a presentation surface.
	Headless() bool

	// SurfaceFormat returns the configured surface texture format, or nil before ConfigureSurface
	// or when headless.
	SurfaceFormat() *wgpu.TextureFormat

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	// It does nothing when the backend is headless.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateBuffer allocates a zeroed GPU buffer.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the size in bytes
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if the buffer could not be created
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write could not be queued
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error

	// CreateTexture allocates a 2D texture with a single mip level and its default view.
	//
	// Parameters:
	//   - label: the debug label
	//   - width, height: the texture size in texels
	//   - format: the texel format
	//   - usage: the texture usage flags
	//
	// Returns:
	//   - *wgpu.Texture: the created texture
	//   - *wgpu.TextureView: the default view of the texture
	//   - error: an error if the texture or view could not be created
	CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error)

	// WriteTexture uploads RGBA8 staging pixels into the full extent of tex.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - stagingData: the pixels and dimensions to upload
	//
	// Returns:
	//   - error: an error if the pixel data does not match the dimensions
	WriteTexture(tex *wgpu.Texture, stagingData common.TextureStagingData) error

	// CreateSampler creates a GPU sampler. Zero fields in stagingData fall back to linear
	// filtering with repeat addressing.
	//
	// Parameters:
	//   - label: the debug label
	//   - stagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the created sampler
	//   - error: an error if the sampler could not be created
	CreateSampler(label string, stagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	// RegisterRenderPipeline creates a render pipeline targeting the surface format from the
	// pipeline's vertex and fragment shaders. Vertices are generated in the vertex shader, so
	// the pipeline has no vertex buffers and no depth attachment.
	//
	// Parameters:
	//   - p: the pipeline object containing the shaders and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline is a high-level function that creates a compute pipeline based on the provided pipeline.
	// It handles creating the shader module and compute pipeline based on the pipeline's configuration.
	//
	// Parameters:
	//   - p: the pipeline object containing the source code and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates a bind group from the provider's resources according to descriptor.
	// Uniform bindings and storage bindings without a bound buffer get an owned zeroed buffer of
	// the entry's MinBindingSize. Texture and sampler bindings must already be present on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider holding the resources and receiving the bind group
	//   - descriptor: the BindGroupLayoutDescriptor describing the layout of the bind group
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized, otherwise nil
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// and copies within a frame into one GPU submission. Must be paired with EndComputeFrame.
	//
	// Returns:
	//   - error: an error if a frame is already open or the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue. Calling it without an open frame does nothing.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// DispatchCompute encodes a compute pass within the current batched compute frame.
	//
	// Parameters:
	//   - p: the cached Pipeline containing the compute pipeline to use for dispatching
	//   - computeProvider: the BindGroupProvider whose BindGroup will be set on the compute pass
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if no compute frame is open or the provider has no bind group
	DispatchCompute(p pipeline.Pipeline, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// CopyTexture encodes a full-extent texture copy within the current batched compute frame.
	//
	// Parameters:
	//   - src, dst: the source and destination textures, equal in size and format
	//   - width, height: the extent to copy
	//
	// Returns:
	//   - error: an error if no compute frame is open
	CopyTexture(src, dst *wgpu.Texture, width, height uint32) error

	// ReadTexture copies tex into a mappable buffer, waits for the GPU and returns the texel
	// bytes with row padding removed.
	//
	// Parameters:
	//   - tex: the texture to read, created with TextureUsageCopySrc
	//   - width, height: the texture size in texels
	//   - bytesPerTexel: the size of one texel of the texture format
	//
	// Returns:
	//   - []byte: width*height*bytesPerTexel bytes, row-major
	//   - error: an error if the copy or the mapping failed
	ReadTexture(tex *wgpu.Texture, width, height, bytesPerTexel uint32) ([]byte, error)

	// Present draws a full-screen pass with the given render pipeline and bind group into the
	// next surface texture and presents it. Does nothing when headless.
	//
	// Parameters:
	//   - p: the render pipeline drawing a full-screen triangle
	//   - provider: the BindGroupProvider holding group 0 for the pass
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired or the pass could not be submitted
	Present(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error

	// Release frees the device, adapter, surface and instance.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the instance, adapter, device and queue. A nil surfaceDescriptor
// creates a headless backend that can run compute work and read results back but never presents.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	var err error
	w.adapter, err = w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}

	// the ray tracing kernel binds ten resources in one group, within the default limits
	w.device, err = w.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "oxy-trace device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	w.queue = w.device.GetQueue()
	return w, nil
}

func (b *wgpuRendererBackendImpl) Headless() bool {
	return b.surface == nil
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() *wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buf == nil {
		return errors.New("write to nil buffer")
	}
	return b.queue.WriteBuffer(buf, offset, data)
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		Size:          *extent2D(width, height),
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}

	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex *wgpu.Texture, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	expected := int(stagingData.Width) * int(stagingData.Height) * 4
	if len(stagingData.Pixels) != expected {
		return fmt.Errorf("texture staging data has %d bytes, expected %d for %dx%d RGBA8",
			len(stagingData.Pixels), expected, stagingData.Width, stagingData.Height)
	}

	layout := &wgpu.TextureDataLayout{BytesPerRow: stagingData.Width * 4, RowsPerImage: stagingData.Height}
	b.queue.WriteTexture(wholeTexture(tex), stagingData.Pixels, layout, extent2D(stagingData.Width, stagingData.Height))
	return nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, stagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(stagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(stagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(stagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(stagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(stagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(stagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(stagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(stagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(stagingData.MaxAnisotropy, 1),
	})
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeVertex) == nil || p.Shader(shader.ShaderTypeFragment) == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}
	format := b.SurfaceFormat()
	if format == nil {
		return errors.New("surface must be configured before registering a render pipeline")
	}

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.shaderModule(vertexShader)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.shaderModule(fragmentShader)
	if err != nil {
		return err
	}
	defer fs.Release()

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	pipelineLayout, err := b.createPipelineLayout(p.PipelineKey(), merged)
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{p.ColorTarget(*format)},
		},
		Primitive: p.PrimitiveState(),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)

	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeCompute) == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	computeShader := p.Shader(shader.ShaderTypeCompute)
	module, err := b.shaderModule(computeShader)
	if err != nil {
		return err
	}
	defer module.Release()

	layout, err := b.createPipelineLayout(p.PipelineKey(), computeShader.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)

	return nil
}

// shaderModule compiles the pre-processed source of s.
func (b *wgpuRendererBackendImpl) shaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.Source()},
	})
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", s.Key(), err)
	}
	return module, nil
}

// createPipelineLayout builds one bind group layout per group index, leaving gaps as nil,
// and wraps them in a pipeline layout.
func (b *wgpuRendererBackendImpl) createPipelineLayout(label string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		bgl, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		bindGroupLayouts[g] = bgl
	}
	defer func() {
		for _, bgl := range bindGroupLayouts {
			if bgl != nil {
				bgl.Release()
			}
		}
	}()

	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: bindGroupLayouts,
	})
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isStorageTexture := entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture || isStorageTexture:
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		case isSampler:
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		default:
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			}

			buf := provider.Buffer(binding)
			if buf == nil {
				size := entry.Buffer.MinBindingSize
				if size == 0 {
					size = 16
				}
				var err error
				buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
					Size:  size,
					Usage: usage,
				})
				if err != nil {
					return err
				}
				provider.SetBuffer(binding, buf)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		return errors.New("compute frame already open")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
		return fmt.Errorf("failed to finish compute frame: %w", err)
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.computeFrameEncoder.Release()
	b.computeFrameEncoder = nil
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("dispatch outside of a compute frame")
	}

	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return fmt.Errorf("pipeline %q has no compute pipeline", p.PipelineKey())
	}
	bindGroup := computeProvider.BindGroup()
	if bindGroup == nil {
		return fmt.Errorf("%s: bind group not initialized", computeProvider.Label())
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) CopyTexture(src, dst *wgpu.Texture, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("copy outside of a compute frame")
	}

	b.computeFrameEncoder.CopyTextureToTexture(wholeTexture(src), wholeTexture(dst), extent2D(width, height))
	return nil
}

func (b *wgpuRendererBackendImpl) ReadTexture(tex *wgpu.Texture, width, height, bytesPerTexel uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rowBytes := width * bytesPerTexel
	paddedRowBytes := (rowBytes + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
	size := uint64(paddedRowBytes) * uint64(height)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(wholeTexture(tex), &wgpu.ImageCopyBuffer{
		Layout: wgpu.TextureDataLayout{BytesPerRow: paddedRowBytes, RowsPerImage: height},
		Buffer: staging,
	}, extent2D(width, height))

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("readback mapping failed with status %d", status)
	}
	defer staging.Unmap()

	mapped := staging.GetMappedRange(0, uint(size))
	out := make([]byte, int(rowBytes)*int(height))
	for y := uint32(0); y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], mapped[y*paddedRowBytes:y*paddedRowBytes+rowBytes])
	}

	return out, nil
}

func (b *wgpuRendererBackendImpl) Present(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil
	}

	renderPipeline, ok := p.Pipeline().(*wgpu.RenderPipeline)
	if !ok || renderPipeline == nil {
		return fmt.Errorf("pipeline %q has no render pipeline", p.PipelineKey())
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.0, G: 0.0, B: 0.0, A: 1.0,
				},
			},
		},
	})
	pass.SetPipeline(renderPipeline)
	pass.SetBindGroup(0, provider.BindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// wholeTexture addresses mip level 0 of tex from its origin.
func wholeTexture(tex *wgpu.Texture) *wgpu.ImageCopyTexture {
	return &wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll}
}

func extent2D(width, height uint32) *wgpu.Extent3D {
	return &wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
}

// mergeBindGroupLayouts combines the bind group layouts of a vertex and a fragment shader.
// A binding declared by both stages keeps the vertex entry with the visibility of both.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index,
//     entries sorted by binding
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(vertexLayouts)+len(fragmentLayouts))
	for _, stage := range []map[int]wgpu.BindGroupLayoutDescriptor{vertexLayouts, fragmentLayouts} {
		for g, desc := range stage {
			out := merged[g]
			if out.Label == "" {
				out.Label = desc.Label
			}
			for _, e := range desc.Entries {
				i := slices.IndexFunc(out.Entries, func(other wgpu.BindGroupLayoutEntry) bool {
					return other.Binding == e.Binding
				})
				if i < 0 {
					out.Entries = append(out.Entries, e)
					continue
				}
				out.Entries[i].Visibility |= e.Visibility
			}
			merged[g] = out
		}
	}

	for g, desc := range merged {
		slices.SortFunc(desc.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
		merged[g] = desc
	}
	return merged
}
