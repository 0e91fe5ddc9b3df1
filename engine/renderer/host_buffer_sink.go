package renderer

import "sync"

// hostBufferSink is the implementation of the HostBufferSink interface.
type hostBufferSink struct {
	mu      *sync.Mutex
	next    BufferHandle
	buffers map[BufferHandle][]byte
	labels  map[BufferHandle]string
	writes  uint64
}

// HostBufferSink is a BufferSink backed by host memory. Its contents can be read back, which
// makes it the sink of choice for headless runs and tests.
type HostBufferSink interface {
	BufferSink

	// Bytes returns a copy of the current contents of a buffer, or nil if the handle is unknown.
	//
	// Parameters:
	//   - handle: the buffer handle
	//
	// Returns:
	//   - []byte: the buffer contents
	Bytes(handle BufferHandle) []byte

	// Label returns the label a buffer was created with.
	//
	// Parameters:
	//   - handle: the buffer handle
	//
	// Returns:
	//   - string: the label, or "" if unknown
	Label(handle BufferHandle) string

	// Buffers returns the number of live buffers.
	//
	// Returns:
	//   - int: the live buffer count
	Buffers() int

	// Writes returns the total number of writes flushed since creation.
	//
	// Returns:
	//   - uint64: the write count
	Writes() uint64
}

var _ HostBufferSink = &hostBufferSink{}

// NewHostBufferSink creates an empty host memory sink.
//
// Returns:
//   - HostBufferSink: the newly created sink
func NewHostBufferSink() HostBufferSink {
	return &hostBufferSink{
		mu:      &sync.Mutex{},
		buffers: make(map[BufferHandle][]byte),
		labels:  make(map[BufferHandle]string),
	}
}

func (s *hostBufferSink) EnsureBuffer(handle BufferHandle, label string, size uint64) (BufferHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if buf, ok := s.buffers[handle]; ok {
		if uint64(len(buf)) == size {
			return handle, nil
		}
		delete(s.buffers, handle)
		delete(s.labels, handle)
	}

	s.next++
	s.buffers[s.next] = make([]byte, size)
	s.labels[s.next] = label
	return s.next, nil
}

func (s *hostBufferSink) WriteBuffers(writes []BufferWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		buf, ok := s.buffers[w.Buffer]
		if err := checkWrite(w, uint64(len(buf)), ok); err != nil {
			return err
		}
		copy(buf[w.Offset:], w.Data)
		s.writes++
	}
	return nil
}

func (s *hostBufferSink) BufferSize(handle BufferHandle) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.buffers[handle]))
}

func (s *hostBufferSink) ReleaseBuffer(handle BufferHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, handle)
	delete(s.labels, handle)
}

func (s *hostBufferSink) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = make(map[BufferHandle][]byte)
	s.labels = make(map[BufferHandle]string)
}

func (s *hostBufferSink) Bytes(handle BufferHandle) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[handle]
	if !ok {
		return nil
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

func (s *hostBufferSink) Label(handle BufferHandle) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labels[handle]
}

func (s *hostBufferSink) Buffers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers)
}

func (s *hostBufferSink) Writes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
