package raytracer

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-trace/engine/record"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// Reconcile brings a storage buffer back in sync with a record list of count records of
// stride bytes. A buffer whose shape differs from (count, stride), or any buffer when
// count is zero, is released. When count is non-zero a buffer is allocated if none is
// left and data is uploaded over its whole contents.
//
// Reconcile never pads: an empty record list yields a nil buffer. Callers that need a
// bound buffer at all times supply a placeholder record themselves.
//
// Parameters:
//   - device: allocates the replacement buffer
//   - buffer: the current buffer, or nil
//   - label: the debug label for a new buffer
//   - count: the number of records
//   - stride: the size of one record in bytes
//   - data: count*stride bytes of serialized records
//
// Returns:
//   - renderer.Buffer: the buffer now matching (count, stride), or nil when count is zero
//   - error: an error if data has the wrong length, allocation fails or the upload fails
func Reconcile(device BufferAllocator, buffer renderer.Buffer, label string, count, stride int, data []byte) (renderer.Buffer, error) {
	if buffer != nil && (count == 0 || buffer.Count() != count || buffer.Stride() != stride) {
		buffer.Release()
		buffer = nil
	}
	if count == 0 {
		return nil, nil
	}
	if len(data) != count*stride {
		return buffer, fmt.Errorf("%s: %d bytes do not hold %d records of %d bytes", label, len(data), count, stride)
	}

	if buffer == nil {
		var err error
		buffer, err = device.CreateBuffer(label, count, stride)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
	}
	if err := buffer.Write(data); err != nil {
		return buffer, fmt.Errorf("%s: %w", label, err)
	}
	return buffer, nil
}

// TypedBuffer owns the storage buffer for one record type and reconciles it against a
// fresh record list every frame.
type TypedBuffer[T any, P record.Marshaler[T]] struct {
	label       string
	verbose     bool
	buffer      renderer.Buffer
	allocations int
}

// NewTypedBuffer creates an empty TypedBuffer.
//
// Parameters:
//   - label: the debug label of the buffers it allocates
//   - verbose: log every reallocation
//
// Returns:
//   - *TypedBuffer[T, P]: the typed buffer, initially unbound
func NewTypedBuffer[T any, P record.Marshaler[T]](label string, verbose bool) *TypedBuffer[T, P] {
	return &TypedBuffer[T, P]{label: label, verbose: verbose}
}

// Reconcile serializes records and reconciles the owned buffer with them.
//
// Parameters:
//   - device: allocates a replacement buffer when the shape changed
//   - records: the records for this frame
//
// Returns:
//   - error: an error from Reconcile
func (b *TypedBuffer[T, P]) Reconcile(device BufferAllocator, records []T) error {
	stride := record.Stride[T, P]()
	previous := b.buffer

	buffer, err := Reconcile(device, b.buffer, b.label, len(records), stride, record.MarshalAll[T, P](records))
	b.buffer = buffer
	if buffer != nil && buffer != previous {
		b.allocations++
		if b.verbose {
			log.Printf("raytracer: %s allocated for %d records of %d bytes", b.label, len(records), stride)
		}
	}
	return err
}

// Buffer returns the current buffer, or nil when unbound.
func (b *TypedBuffer[T, P]) Buffer() renderer.Buffer {
	return b.buffer
}

// Count returns the record count of the current buffer, or 0 when unbound.
func (b *TypedBuffer[T, P]) Count() int {
	if b.buffer == nil {
		return 0
	}
	return b.buffer.Count()
}

// Allocations returns how many buffers this TypedBuffer has allocated over its lifetime.
func (b *TypedBuffer[T, P]) Allocations() int {
	return b.allocations
}

// Release frees the current buffer. Safe to call more than once.
func (b *TypedBuffer[T, P]) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}
