package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the implementation of the BindGroupProvider interface.
type bindGroupProvider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	// owned resources are created on behalf of the provider and released with it.
	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	// borrowed resources belong to someone else and are only referenced by the bind group.
	borrowedBuffers      map[int]*wgpu.Buffer
	borrowedTextureViews map[int]*wgpu.TextureView
}

// BindGroupProvider holds one bind group together with the GPU resources referenced by its
// entries, keyed by binding index. Resources set with SetBuffer, SetTextureView and SetSampler
// are owned and released by Release. Resources set with BindBuffer and BindTextureView are
// borrowed: they take precedence over owned resources at the same binding and are never
// released by the provider.
type BindGroupProvider interface {
	// Release frees the bind group, its layout and every owned resource.
	// Borrowed resources are forgotten but left alive.
	Release()

	// ReleaseBindGroup frees only the bind group so it can be rebuilt against new resources.
	// The layout and all resources are kept.
	ReleaseBindGroup()

	// Label returns the debug label used for GPU objects created for this provider.
	Label() string

	// BindGroup returns the current bind group, or nil if it has not been built.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the bind group layout, or nil if it has not been created.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at binding, preferring a borrowed buffer over an owned one.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if none is set
	Buffer(binding int) *wgpu.Buffer

	// OwnedBuffer returns the owned buffer at binding, ignoring borrowed buffers.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the owned buffer, or nil if none is set
	OwnedBuffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view bound at binding, preferring a borrowed view.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the view, or nil if none is set
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler, or nil if none is set
	Sampler(binding int) *wgpu.Sampler

	SetBindGroup(bg *wgpu.BindGroup)
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)
	SetBuffer(binding int, buf *wgpu.Buffer)
	SetTextureView(binding int, tv *wgpu.TextureView)
	SetSampler(binding int, s *wgpu.Sampler)

	// BindBuffer references a buffer owned elsewhere at binding. Passing nil removes the
	// borrowed buffer so an owned buffer at the same binding shows through again.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the borrowed buffer, or nil
	BindBuffer(binding int, buf *wgpu.Buffer)

	// BindTextureView references a texture view owned elsewhere at binding. Passing nil
	// removes the borrowed view.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the borrowed texture view, or nil
	BindTextureView(binding int, tv *wgpu.TextureView)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider with the given debug label.
//
// Parameters:
//   - label: the debug label for GPU objects created for this provider
//   - options: functional options applied after construction
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:                label,
		buffers:              make(map[int]*wgpu.Buffer),
		textureViews:         make(map[int]*wgpu.TextureView),
		samplers:             make(map[int]*wgpu.Sampler),
		borrowedBuffers:      make(map[int]*wgpu.Buffer),
		borrowedTextureViews: make(map[int]*wgpu.TextureView),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	if buf, ok := p.borrowedBuffers[binding]; ok {
		return buf
	}
	return p.buffers[binding]
}

func (p *bindGroupProvider) OwnedBuffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	if tv, ok := p.borrowedTextureViews[binding]; ok {
		return tv
	}
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) BindBuffer(binding int, buf *wgpu.Buffer) {
	if buf == nil {
		delete(p.borrowedBuffers, binding)
		return
	}
	p.borrowedBuffers[binding] = buf
}

func (p *bindGroupProvider) BindTextureView(binding int, tv *wgpu.TextureView) {
	if tv == nil {
		delete(p.borrowedTextureViews, binding)
		return
	}
	p.borrowedTextureViews[binding] = tv
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.ReleaseBindGroup()

	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	clear(p.borrowedBuffers)
	clear(p.borrowedTextureViews)

	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
