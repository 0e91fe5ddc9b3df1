package renderer

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// wgpuBufferSink is a BufferSink that owns a headless WebGPU device and one storage buffer per
// handle. No surface is created, so it runs without a window.
type wgpuBufferSink struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	next    BufferHandle
	buffers map[BufferHandle]*wgpu.Buffer
	sizes   map[BufferHandle]uint64

	forceFallbackAdapter bool
	deviceLabel          string
	log                  logrus.FieldLogger
}

var _ BufferSink = &wgpuBufferSink{}

// NewWGPUBufferSink acquires a headless WebGPU adapter and device for instance buffer uploads.
//
// Parameters:
//   - options: functional options to configure the sink
//
// Returns:
//   - BufferSink: the newly created sink
//   - error: an error if no adapter or device is available
func NewWGPUBufferSink(options ...WGPUSinkBuilderOption) (BufferSink, error) {
	s := &wgpuBufferSink{
		mu:          &sync.Mutex{},
		buffers:     make(map[BufferHandle]*wgpu.Buffer),
		sizes:       make(map[BufferHandle]uint64),
		deviceLabel: "Fractal Device",
		log:         logrus.StandardLogger(),
	}

	for _, option := range options {
		option(s)
	}

	s.instance = wgpu.CreateInstance(nil)
	a, err := s.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: s.forceFallbackAdapter,
	})
	if err != nil {
		s.instance.Release()
		return nil, errors.Wrap(err, "request adapter")
	}
	s.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: s.deviceLabel,
	})
	if err != nil {
		s.adapter.Release()
		s.instance.Release()
		return nil, errors.Wrap(err, "request device")
	}
	s.device = d
	s.queue = d.GetQueue()

	s.log.WithField("fallback", s.forceFallbackAdapter).Info("wgpu buffer sink ready")
	return s, nil
}

func (s *wgpuBufferSink) EnsureBuffer(handle BufferHandle, label string, size uint64) (BufferHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if buf, ok := s.buffers[handle]; ok {
		if s.sizes[handle] == size {
			return handle, nil
		}
		buf.Release()
		delete(s.buffers, handle)
		delete(s.sizes, handle)
	}

	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return NoBuffer, errors.Wrapf(err, "create buffer %q", label)
	}

	s.next++
	s.buffers[s.next] = buf
	s.sizes[s.next] = size
	s.log.WithFields(logrus.Fields{"buffer": label, "size": size}).Debug("storage buffer created")
	return s.next, nil
}

func (s *wgpuBufferSink) WriteBuffers(writes []BufferWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		buf, ok := s.buffers[w.Buffer]
		if err := checkWrite(w, s.sizes[w.Buffer], ok); err != nil {
			return err
		}
		if len(w.Data) == 0 {
			continue
		}
		if err := s.queue.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return errors.Wrapf(err, "write buffer %d", w.Buffer)
		}
	}
	return nil
}

func (s *wgpuBufferSink) BufferSize(handle BufferHandle) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizes[handle]
}

func (s *wgpuBufferSink) ReleaseBuffer(handle BufferHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.buffers[handle]; ok {
		buf.Release()
		delete(s.buffers, handle)
		delete(s.sizes, handle)
	}
}

func (s *wgpuBufferSink) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle, buf := range s.buffers {
		buf.Release()
		delete(s.buffers, handle)
		delete(s.sizes, handle)
	}
	if s.queue != nil {
		s.queue.Release()
		s.queue = nil
	}
	if s.device != nil {
		s.device.Release()
		s.device = nil
	}
	if s.adapter != nil {
		s.adapter.Release()
		s.adapter = nil
	}
	if s.instance != nil {
		s.instance.Release()
		s.instance = nil
	}
}
