package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer is a GPU storage buffer sized for a fixed number of records of a fixed stride.
// The pair (Count, Stride) never changes over the lifetime of a Buffer: a different
// shape needs a new Buffer.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Count returns the number of records the buffer was allocated for.
	Count() int

	// Stride returns the size in bytes of one record.
	Stride() int

	// Write uploads data to the start of the buffer.
	//
	// Parameters:
	//   - data: the bytes to upload, at most Count()*Stride() long
	//
	// Returns:
	//   - error: an error if the buffer was released, data is too large, or the queue write fails
	Write(data []byte) error

	// Release frees the GPU buffer. Safe to call more than once.
	Release()
}

type wgpuBuffer struct {
	mu      *sync.Mutex
	label   string
	count   int
	stride  int
	buffer  *wgpu.Buffer
	backend wgpuRendererBackend
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string {
	return b.label
}

func (b *wgpuBuffer) Count() int {
	return b.count
}

func (b *wgpuBuffer) Stride() int {
	return b.stride
}

func (b *wgpuBuffer) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer == nil {
		return fmt.Errorf("buffer %q: %w", b.label, ErrResourceReleased)
	}
	if len(data) > b.count*b.stride {
		return fmt.Errorf("buffer %q: write of %d bytes exceeds capacity %d", b.label, len(data), b.count*b.stride)
	}
	if len(data) == 0 {
		return nil
	}
	return b.backend.WriteBuffer(b.buffer, 0, data)
}

func (b *wgpuBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

// handle returns the underlying GPU buffer, or nil once released.
func (b *wgpuBuffer) handle() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}
