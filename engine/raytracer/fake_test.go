package raytracer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

var errFake = errors.New("fake failure")

type fakeBuffer struct {
	label    string
	count    int
	stride   int
	writes   int
	data     []byte
	released bool
}

var _ renderer.Buffer = &fakeBuffer{}

func (b *fakeBuffer) Label() string { return b.label }
func (b *fakeBuffer) Count() int    { return b.count }
func (b *fakeBuffer) Stride() int   { return b.stride }

func (b *fakeBuffer) Write(data []byte) error {
	if b.released {
		return renderer.ErrResourceReleased
	}
	if len(data) > b.count*b.stride {
		return fmt.Errorf("write of %d bytes exceeds %d", len(data), b.count*b.stride)
	}
	b.writes++
	b.data = append(b.data[:0], data...)
	return nil
}

func (b *fakeBuffer) Release() { b.released = true }

type fakeImage struct {
	label    string
	width    int
	height   int
	released bool
}

var _ renderer.Image = &fakeImage{}

func (i *fakeImage) Label() string  { return i.label }
func (i *fakeImage) Width() int     { return i.width }
func (i *fakeImage) Height() int    { return i.height }
func (i *fakeImage) Released() bool { return i.released }
func (i *fakeImage) Release()       { i.released = true }

type fakeCopy struct {
	src, dst renderer.Image
}

// fakeDevice records every allocation and command instead of touching a GPU.
type fakeDevice struct {
	buffers  []*fakeBuffer
	images   []*fakeImage
	textures []*fakeImage
	copies   []fakeCopy
	frames   int
	open     bool

	failCreateBuffer error
	failCopy         error
}

var _ ComputeDevice = &fakeDevice{}

func (d *fakeDevice) CreateBuffer(label string, count, stride int) (renderer.Buffer, error) {
	if d.failCreateBuffer != nil {
		return nil, d.failCreateBuffer
	}
	b := &fakeBuffer{label: label, count: count, stride: stride}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateImage(label string, width, height int) (renderer.Image, error) {
	img := &fakeImage{label: label, width: width, height: height}
	d.images = append(d.images, img)
	return img, nil
}

func (d *fakeDevice) CreateTexture(label string, stagingData common.TextureStagingData) (renderer.Image, error) {
	img := &fakeImage{label: label, width: int(stagingData.Width), height: int(stagingData.Height)}
	d.textures = append(d.textures, img)
	return img, nil
}

func (d *fakeDevice) BeginComputeFrame() error {
	if d.open {
		return errors.New("frame already open")
	}
	d.open = true
	return nil
}

func (d *fakeDevice) CopyImage(src, dst renderer.Image) error {
	if d.failCopy != nil {
		return d.failCopy
	}
	d.copies = append(d.copies, fakeCopy{src: src, dst: dst})
	return nil
}

func (d *fakeDevice) EndComputeFrame() error {
	if !d.open {
		return errors.New("no frame open")
	}
	d.open = false
	d.frames++
	return nil
}

// liveImages returns the allocated render target images that were not released.
func (d *fakeDevice) liveImages() []*fakeImage {
	var live []*fakeImage
	for _, img := range d.images {
		if !img.released {
			live = append(live, img)
		}
	}
	return live
}

// fakeKernel records the last value bound to every parameter name.
type fakeKernel struct {
	mu       sync.Mutex
	matrices map[string]mgl32.Mat4
	vectors  map[string]mgl32.Vec4
	ints     map[string]int32
	floats   map[string]float32
	buffers  map[string]renderer.Buffer
	textures map[string]renderer.Image
	groups   [][3]uint32

	failDispatch error
	released     bool
}

var _ renderer.Kernel = &fakeKernel{}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		matrices: make(map[string]mgl32.Mat4),
		vectors:  make(map[string]mgl32.Vec4),
		ints:     make(map[string]int32),
		floats:   make(map[string]float32),
		buffers:  make(map[string]renderer.Buffer),
		textures: make(map[string]renderer.Image),
	}
}

func (k *fakeKernel) Name() string { return KernelKey }

func (k *fakeKernel) Has(name string) bool { return true }

func (k *fakeKernel) SetMatrix(name string, m mgl32.Mat4) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.matrices[name] = m
}

func (k *fakeKernel) SetVector(name string, v mgl32.Vec4) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.vectors[name] = v
}

func (k *fakeKernel) SetInt(name string, v int32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ints[name] = v
}

func (k *fakeKernel) SetFloat(name string, v float32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.floats[name] = v
}

func (k *fakeKernel) SetBuffer(name string, buf renderer.Buffer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if buf == nil {
		delete(k.buffers, name)
		return
	}
	k.buffers[name] = buf
}

func (k *fakeKernel) SetTexture(name string, img renderer.Image) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if img == nil {
		delete(k.textures, name)
		return
	}
	k.textures[name] = img
}

func (k *fakeKernel) WorkgroupSize() [3]uint32 { return [3]uint32{ThreadTile, ThreadTile, 1} }

func (k *fakeKernel) Dispatch(groups [3]uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failDispatch != nil {
		return k.failDispatch
	}
	k.groups = append(k.groups, groups)
	return nil
}

func (k *fakeKernel) Release() { k.released = true }

type fakeScene struct {
	entities   []entity.Entity
	meshes     map[string]mesh.Mesh
	structural bool
}

var (
	_ SceneSource  = &fakeScene{}
	_ ChangeSource = &fakeScene{}
)

func newFakeScene(entities ...entity.Entity) *fakeScene {
	return &fakeScene{entities: entities, meshes: make(map[string]mesh.Mesh)}
}

func (s *fakeScene) FindAllEntities() []entity.Entity {
	return append([]entity.Entity(nil), s.entities...)
}

func (s *fakeScene) ResolveMesh(e entity.Entity) (mesh.Mesh, bool) {
	shape, ok := e.Shape().(entity.Mesh)
	if !ok {
		return mesh.Mesh{}, false
	}
	m, ok := s.meshes[shape.Handle]
	return m, ok
}

func (s *fakeScene) HasChangedSinceLastCheck() bool { return s.structural }
func (s *fakeScene) ClearChangedFlag()              { s.structural = false }

type fakeCamera struct {
	changed bool
	far     float32
}

var _ CameraSource = &fakeCamera{}

func (c *fakeCamera) CameraToWorld() mgl32.Mat4      { return mgl32.Translate3D(0, 1, -10) }
func (c *fakeCamera) InverseProjection() mgl32.Mat4  { return mgl32.Ident4() }
func (c *fakeCamera) Far() float32                   { return c.far }
func (c *fakeCamera) HasChangedSinceLastCheck() bool { return c.changed }
func (c *fakeCamera) ClearChangedFlag()              { c.changed = false }
