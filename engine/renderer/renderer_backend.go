package renderer

import "github.com/pkg/errors"

// BufferSinkType identifies the storage implementation behind a BufferSink.
type BufferSinkType int

const (
	// SinkTypeHost keeps instance buffers in host memory. Used for headless runs and tests.
	SinkTypeHost BufferSinkType = iota

	// SinkTypeWGPU uploads instance buffers into WebGPU storage buffers on a headless device.
	SinkTypeWGPU
)

// ErrUnknownBuffer is returned when a BufferWrite targets a handle the sink does not own.
var ErrUnknownBuffer = errors.New("unknown buffer handle")

// BufferHandle identifies a buffer owned by a BufferSink. The zero value is NoBuffer.
type BufferHandle uint32

// NoBuffer is the handle of a buffer that has not been created.
const NoBuffer BufferHandle = 0

// BufferWrite describes a single buffer write operation targeting a buffer at a given byte offset.
type BufferWrite struct {
	Buffer BufferHandle
	Offset uint64
	Data   []byte
}

// BufferSink owns the instance storage buffers that per-level transforms are uploaded into.
//
// Buffers are created lazily and sized exactly; a call to EnsureBuffer with a different size
// replaces the buffer. Writes are staged by the caller and flushed in one WriteBuffers call per
// frame.
type BufferSink interface {
	// EnsureBuffer returns a buffer of exactly size bytes, reusing handle when it already has
	// that size. Otherwise the old buffer is released and a new one created.
	//
	// Parameters:
	//   - handle: the previously returned handle, or NoBuffer
	//   - label: a debug label for the buffer
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - BufferHandle: the handle to use for writes
	//   - error: an error if the buffer could not be created
	EnsureBuffer(handle BufferHandle, label string, size uint64) (BufferHandle, error)

	// WriteBuffers flushes every write in order.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: an error wrapping ErrUnknownBuffer, or a write that does not fit its buffer
	WriteBuffers(writes []BufferWrite) error

	// BufferSize returns the size of a buffer in bytes, or 0 if the handle is unknown.
	//
	// Parameters:
	//   - handle: the buffer handle
	//
	// Returns:
	//   - uint64: the buffer size
	BufferSize(handle BufferHandle) uint64

	// ReleaseBuffer frees a single buffer. Unknown handles are ignored.
	//
	// Parameters:
	//   - handle: the buffer handle
	ReleaseBuffer(handle BufferHandle)

	// Release frees every buffer and any device the sink created.
	Release()
}

// NewBufferSink creates a BufferSink of the given type.
//
// Parameters:
//   - sinkType: the storage implementation to use
//   - options: functional options applied to GPU sinks
//
// Returns:
//   - BufferSink: the newly created sink
//   - error: an error if the GPU device could not be acquired
func NewBufferSink(sinkType BufferSinkType, options ...WGPUSinkBuilderOption) (BufferSink, error) {
	switch sinkType {
	case SinkTypeHost:
		return NewHostBufferSink(), nil
	case SinkTypeWGPU:
		return NewWGPUBufferSink(options...)
	default:
		return nil, errors.Errorf("unknown buffer sink type %d", sinkType)
	}
}

// checkWrite validates a write against the size of its destination buffer.
func checkWrite(w BufferWrite, size uint64, ok bool) error {
	if !ok {
		return errors.Wrapf(ErrUnknownBuffer, "buffer %d", w.Buffer)
	}
	if w.Offset+uint64(len(w.Data)) > size {
		return errors.Errorf("write of %d bytes at offset %d overflows buffer %d of %d bytes", len(w.Data), w.Offset, w.Buffer, size)
	}
	return nil
}
