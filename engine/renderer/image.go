package renderer

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Image is a 2D GPU texture together with its default view.
type Image interface {
	// Label returns the debug label of the image.
	Label() string

	// Width returns the width in texels.
	Width() int

	// Height returns the height in texels.
	Height() int

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the texture and its view. Safe to call more than once.
	Release()
}

type wgpuImage struct {
	mu      *sync.Mutex
	label   string
	width   int
	height  int
	format  wgpu.TextureFormat
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ Image = &wgpuImage{}

func (i *wgpuImage) Label() string {
	return i.label
}

func (i *wgpuImage) Width() int {
	return i.width
}

func (i *wgpuImage) Height() int {
	return i.height
}

func (i *wgpuImage) Released() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.texture == nil
}

func (i *wgpuImage) Release() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.view != nil {
		i.view.Release()
		i.view = nil
	}
	if i.texture != nil {
		i.texture.Release()
		i.texture = nil
	}
}

// handles returns the texture and view, both nil once released.
func (i *wgpuImage) handles() (*wgpu.Texture, *wgpu.TextureView) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.texture, i.view
}
